package deck

import "testing"

func TestCardID(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want string
	}{
		{"jack of spades", Card{Suit: Spades, Rank: Jack, Deck: 1}, "J♠#1"},
		{"ten of hearts", Card{Suit: Hearts, Rank: Ten, Deck: 1}, "10♥#1"},
		{"second pack seven", Card{Suit: Clubs, Rank: Seven, Deck: 2}, "7♣#2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Card
		wantErr bool
	}{
		{"jack of spades", "J♠#1", Card{Suit: Spades, Rank: Jack, Deck: 1}, false},
		{"ten of diamonds", "10♦#1", Card{Suit: Diamonds, Rank: Ten, Deck: 1}, false},
		{"second pack ace", "A♥#2", Card{Suit: Hearts, Rank: Ace, Deck: 2}, false},
		{"missing deck index", "J♠", Card{}, true},
		{"bad deck index", "J♠#3", Card{}, true},
		{"unknown rank", "2♠#1", Card{}, true},
		{"unknown suit", "Jx#1", Card{}, true},
		{"empty", "", Card{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	for _, c := range New(2) {
		parsed, err := ParseID(c.ID())
		if err != nil {
			t.Fatalf("ParseID(%q) failed: %v", c.ID(), err)
		}
		if parsed != c {
			t.Errorf("round trip %q: got %v, want %v", c.ID(), parsed, c)
		}
	}
}

func TestRankPoints(t *testing.T) {
	wants := map[Rank]int{
		Jack: 3, Nine: 2, Ace: 1, Ten: 1,
		King: 0, Queen: 0, Eight: 0, Seven: 0,
	}
	total := 0
	for rank, want := range wants {
		if got := rank.Points(); got != want {
			t.Errorf("%s.Points() = %d, want %d", rank, got, want)
		}
		total += want * 4
	}
	if total != 28 {
		t.Errorf("point total per pack = %d, want 28", total)
	}
}

func TestRankOrder(t *testing.T) {
	// 7 < 8 < Q < K < 10 < A < 9 < J
	ascending := []Rank{Seven, Eight, Queen, King, Ten, Ace, Nine, Jack}
	for i := 1; i < len(ascending); i++ {
		lo, hi := ascending[i-1], ascending[i]
		if lo.Order() >= hi.Order() {
			t.Errorf("expected %s to rank below %s", lo, hi)
		}
	}
}

func TestCardJSON(t *testing.T) {
	card := Card{Suit: Hearts, Rank: Nine, Deck: 2}
	data, err := card.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() failed: %v", err)
	}
	if string(data) != `"9♥#2"` {
		t.Errorf("MarshalJSON() = %s, want %q", data, `"9♥#2"`)
	}

	var back Card
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() failed: %v", err)
	}
	if back != card {
		t.Errorf("JSON round trip = %v, want %v", back, card)
	}
}

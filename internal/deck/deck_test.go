package deck

import (
	"testing"

	"github.com/trickwire/twentyeight/internal/randutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		packs int
		want  int
	}{
		{"single pack", 1, 32},
		{"double pack", 2, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := New(tt.packs)
			if len(cards) != tt.want {
				t.Fatalf("New(%d) returned %d cards, want %d", tt.packs, len(cards), tt.want)
			}

			seen := make(map[string]bool, len(cards))
			for _, c := range cards {
				id := c.ID()
				if seen[id] {
					t.Errorf("duplicate card %q", id)
				}
				seen[id] = true
				if c.Deck < 1 || c.Deck > tt.packs {
					t.Errorf("card %q has pack index %d", id, c.Deck)
				}
			}
		})
	}
}

func TestShuffleDeterministic(t *testing.T) {
	a := New(1)
	b := New(1)
	Shuffle(a, randutil.New(42))
	Shuffle(b, randutil.New(42))

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at index %d: %v vs %v", i, a[i], b[i])
		}
	}

	c := New(1)
	Shuffle(c, randutil.New(43))
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical order")
	}
}

func TestRemove(t *testing.T) {
	hand := []Card{
		NewCard(Diamonds, Seven),
		NewCard(Clubs, Ace),
		NewCard(Spades, Jack),
	}

	rest, ok := Remove(hand, NewCard(Clubs, Ace))
	if !ok {
		t.Fatal("Remove() did not find card in hand")
	}
	if len(rest) != 2 {
		t.Fatalf("Remove() left %d cards, want 2", len(rest))
	}
	if len(hand) != 3 {
		t.Errorf("Remove() mutated input, len = %d", len(hand))
	}
	if Contains(rest, NewCard(Clubs, Ace)) {
		t.Error("removed card still present")
	}

	if _, ok := Remove(rest, NewCard(Hearts, Nine)); ok {
		t.Error("Remove() reported success for absent card")
	}
}

func TestBySuit(t *testing.T) {
	cards := []Card{
		NewCard(Hearts, Seven),
		NewCard(Hearts, Jack),
		NewCard(Spades, Nine),
	}
	counts := BySuit(cards)
	if counts[Hearts] != 2 || counts[Spades] != 1 || counts[Diamonds] != 0 {
		t.Errorf("BySuit() = %v", counts)
	}
}

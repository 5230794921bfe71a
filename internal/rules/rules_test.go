package rules

import (
	"testing"

	"github.com/trickwire/twentyeight/internal/deck"
)

func TestModes(t *testing.T) {
	tests := []struct {
		mode        Mode
		seats       int
		packs       int
		minBid      int
		maxBid      int
		totalPoints int
	}{
		{Mode28, 4, 1, 14, 28, 28},
		{Mode56, 6, 2, 28, 56, 56},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.Seats(); got != tt.seats {
				t.Errorf("Seats() = %d, want %d", got, tt.seats)
			}
			if got := tt.mode.Packs(); got != tt.packs {
				t.Errorf("Packs() = %d, want %d", got, tt.packs)
			}
			if got := tt.mode.MinBid(); got != tt.minBid {
				t.Errorf("MinBid() = %d, want %d", got, tt.minBid)
			}
			if got := tt.mode.MaxBid(); got != tt.maxBid {
				t.Errorf("MaxBid() = %d, want %d", got, tt.maxBid)
			}
			if got := tt.mode.TotalPoints(); got != tt.totalPoints {
				t.Errorf("TotalPoints() = %d, want %d", got, tt.totalPoints)
			}
		})
	}

	if Mode("32").Valid() {
		t.Error(`Valid() accepted mode "32"`)
	}
}

func TestDeal(t *testing.T) {
	tests := []struct {
		name      string
		mode      Mode
		wantEach  int
		wantKitty int
	}{
		{"four seats full deal", Mode28, 8, 0},
		{"six seats with kitty", Mode56, 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := MakeDeck(tt.mode)
			hands, kitty := Deal(cards, tt.mode.Seats())

			if len(hands) != tt.mode.Seats() {
				t.Fatalf("Deal() returned %d hands, want %d", len(hands), tt.mode.Seats())
			}
			for seat, hand := range hands {
				if len(hand) != tt.wantEach {
					t.Errorf("seat %d dealt %d cards, want %d", seat, len(hand), tt.wantEach)
				}
			}
			if len(kitty) != tt.wantKitty {
				t.Errorf("kitty holds %d cards, want %d", len(kitty), tt.wantKitty)
			}

			seen := make(map[string]bool)
			for _, hand := range hands {
				for _, c := range hand {
					seen[c.ID()] = true
				}
			}
			for _, c := range kitty {
				seen[c.ID()] = true
			}
			if len(seen) != len(cards) {
				t.Errorf("dealt %d distinct cards, want %d", len(seen), len(cards))
			}
		})
	}
}

func TestPlayable(t *testing.T) {
	hand := []deck.Card{
		deck.NewCard(deck.Diamonds, deck.Seven),
		deck.NewCard(deck.Clubs, deck.Ace),
		deck.NewCard(deck.Spades, deck.Jack),
	}

	tests := []struct {
		name     string
		lead     deck.Suit
		trump    deck.Suit
		revealed bool
		want     []string
	}{
		{"leading plays anything", deck.NoSuit, deck.Spades, true, []string{"7♦#1", "A♣#1", "J♠#1"}},
		{"must follow lead suit", deck.Diamonds, deck.Spades, false, []string{"7♦#1"}},
		{"void with trump hidden discards", deck.Hearts, deck.Spades, false, []string{"7♦#1", "A♣#1", "J♠#1"}},
		{"void with trump revealed must trump", deck.Hearts, deck.Spades, true, []string{"J♠#1"}},
		{"void of trump too discards", deck.Hearts, deck.Hearts, true, []string{"7♦#1", "A♣#1", "J♠#1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Playable(hand, tt.lead, tt.trump, tt.revealed)
			ids := deck.IDs(got)
			if len(ids) != len(tt.want) {
				t.Fatalf("Playable() = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("Playable()[%d] = %s, want %s", i, ids[i], tt.want[i])
				}
			}
		})
	}
}

func TestTrickWinner(t *testing.T) {
	tests := []struct {
		name       string
		trick      []Play
		trump      deck.Suit
		revealed   bool
		wantSeat   int
		wantPoints int
	}{
		{
			name: "lone revealed trump beats high hearts",
			trick: []Play{
				{Seat: 3, Card: deck.NewCard(deck.Hearts, deck.Ace)},
				{Seat: 0, Card: deck.NewCard(deck.Hearts, deck.Ten)},
				{Seat: 1, Card: deck.NewCard(deck.Hearts, deck.Seven)},
				{Seat: 2, Card: deck.NewCard(deck.Spades, deck.Seven)},
			},
			trump:      deck.Spades,
			revealed:   true,
			wantSeat:   2,
			wantPoints: 2,
		},
		{
			name: "hidden trump scores as discard",
			trick: []Play{
				{Seat: 3, Card: deck.NewCard(deck.Hearts, deck.Ace)},
				{Seat: 0, Card: deck.NewCard(deck.Hearts, deck.Ten)},
				{Seat: 1, Card: deck.NewCard(deck.Hearts, deck.Seven)},
				{Seat: 2, Card: deck.NewCard(deck.Spades, deck.Seven)},
			},
			trump:      deck.Spades,
			revealed:   false,
			wantSeat:   3,
			wantPoints: 2,
		},
		{
			name: "jack outranks nine and ace in suit",
			trick: []Play{
				{Seat: 0, Card: deck.NewCard(deck.Clubs, deck.Nine)},
				{Seat: 1, Card: deck.NewCard(deck.Clubs, deck.Jack)},
				{Seat: 2, Card: deck.NewCard(deck.Clubs, deck.Ace)},
				{Seat: 3, Card: deck.NewCard(deck.Clubs, deck.Ten)},
			},
			trump:      deck.NoSuit,
			revealed:   false,
			wantSeat:   1,
			wantPoints: 7,
		},
		{
			name: "identical pack twins go to earlier play",
			trick: []Play{
				{Seat: 0, Card: deck.Card{Suit: deck.Hearts, Rank: deck.Jack, Deck: 1}},
				{Seat: 1, Card: deck.Card{Suit: deck.Hearts, Rank: deck.Jack, Deck: 2}},
				{Seat: 2, Card: deck.Card{Suit: deck.Hearts, Rank: deck.Seven, Deck: 1}},
			},
			trump:      deck.NoSuit,
			revealed:   false,
			wantSeat:   0,
			wantPoints: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrickWinner(tt.trick, tt.trump, tt.revealed); got != tt.wantSeat {
				t.Errorf("TrickWinner() = %d, want %d", got, tt.wantSeat)
			}
			if got := TrickPoints(tt.trick); got != tt.wantPoints {
				t.Errorf("TrickPoints() = %d, want %d", got, tt.wantPoints)
			}
		})
	}
}

func TestTeamPoints(t *testing.T) {
	even, odd := TeamPoints([]int{5, 3, 9, 0, 2, 6})
	if even != 16 || odd != 9 {
		t.Errorf("TeamPoints() = (%d, %d), want (16, 9)", even, odd)
	}
}

func TestSeatRotation(t *testing.T) {
	if got := NextSeat(3, 4); got != 0 {
		t.Errorf("NextSeat(3, 4) = %d, want 0", got)
	}
	if got := NextDealer(0, 4); got != 3 {
		t.Errorf("NextDealer(0, 4) = %d, want 3", got)
	}
	if got := NextDealer(2, 6); got != 1 {
		t.Errorf("NextDealer(2, 6) = %d, want 1", got)
	}
}

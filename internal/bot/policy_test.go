package bot

import (
	"testing"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/randutil"
)

func TestBidAlwaysLegal(t *testing.T) {
	policy := DefaultPolicy()
	rng := randutil.New(1)
	hand := []deck.Card{
		deck.NewCard(deck.Spades, deck.Jack),
		deck.NewCard(deck.Spades, deck.Nine),
		deck.NewCard(deck.Hearts, deck.Seven),
		deck.NewCard(deck.Diamonds, deck.Queen),
	}

	for i := 0; i < 500; i++ {
		view := BidView{HighBid: 13 + i%14, MinBid: 14, MaxBid: 28, Hand: hand}
		got := policy.Bid(view, rng)
		if got == Pass {
			continue
		}
		if got < view.MinBid {
			t.Fatalf("bid %d below minimum %d", got, view.MinBid)
		}
		if got <= view.HighBid {
			t.Fatalf("bid %d does not beat high bid %d", got, view.HighBid)
		}
		if got > view.MaxBid {
			t.Fatalf("bid %d above maximum %d", got, view.MaxBid)
		}
	}
}

func TestBidPassesAtCeiling(t *testing.T) {
	policy := DefaultPolicy()
	rng := randutil.New(2)
	view := BidView{HighBid: 28, MinBid: 14, MaxBid: 28}

	for i := 0; i < 50; i++ {
		if got := policy.Bid(view, rng); got != Pass {
			t.Fatalf("bid %d when only pass is legal", got)
		}
	}
}

func TestTrumpPicksLongestSuit(t *testing.T) {
	policy := DefaultPolicy()
	hand := []deck.Card{
		deck.NewCard(deck.Hearts, deck.Seven),
		deck.NewCard(deck.Hearts, deck.Queen),
		deck.NewCard(deck.Hearts, deck.Jack),
		deck.NewCard(deck.Clubs, deck.Ace),
		deck.NewCard(deck.Spades, deck.Nine),
	}

	if got := policy.Trump(hand); got != deck.Hearts {
		t.Errorf("Trump() = %s, want %s", got, deck.Hearts)
	}
}

func TestTrumpTieIsDeterministic(t *testing.T) {
	policy := DefaultPolicy()
	hand := []deck.Card{
		deck.NewCard(deck.Hearts, deck.Seven),
		deck.NewCard(deck.Clubs, deck.Ace),
	}

	first := policy.Trump(hand)
	for i := 0; i < 10; i++ {
		if got := policy.Trump(hand); got != first {
			t.Fatalf("Trump() flapped between %s and %s", first, got)
		}
	}
}

func TestPlayStaysLegal(t *testing.T) {
	policy := DefaultPolicy()
	rng := randutil.New(3)
	playable := []string{"7♦#1", "9♦#1", "J♦#1"}
	legal := map[string]bool{"7♦#1": true, "9♦#1": true, "J♦#1": true}

	for i := 0; i < 100; i++ {
		if got := policy.Play(playable, rng); !legal[got] {
			t.Fatalf("Play() = %q, not in playable set", got)
		}
	}

	if got := policy.Play(nil, rng); got != "" {
		t.Errorf("Play(nil) = %q, want empty", got)
	}
}

func TestNamed(t *testing.T) {
	if got := Named("aggressive"); got.PassProbability >= DefaultPolicy().PassProbability {
		t.Errorf("aggressive preset passes too often: %f", got.PassProbability)
	}
	if got := Named("tight"); got.PassProbability <= DefaultPolicy().PassProbability {
		t.Errorf("tight preset passes too rarely: %f", got.PassProbability)
	}
	if got := Named("nonsense"); got != DefaultPolicy() {
		t.Errorf("unknown preset should fall back to default, got %+v", got)
	}
}

func TestHandStrengthBounds(t *testing.T) {
	jacks := []deck.Card{
		deck.NewCard(deck.Spades, deck.Jack),
		deck.NewCard(deck.Hearts, deck.Jack),
		deck.NewCard(deck.Diamonds, deck.Jack),
		deck.NewCard(deck.Clubs, deck.Jack),
	}
	if got := HandStrength(jacks); got != 1 {
		t.Errorf("HandStrength(all jacks) = %f, want 1", got)
	}

	duds := []deck.Card{
		deck.NewCard(deck.Spades, deck.Seven),
		deck.NewCard(deck.Hearts, deck.Eight),
	}
	if got := HandStrength(duds); got != 0 {
		t.Errorf("HandStrength(no points) = %f, want 0", got)
	}

	if got := HandStrength(nil); got != 0 {
		t.Errorf("HandStrength(nil) = %f, want 0", got)
	}
}

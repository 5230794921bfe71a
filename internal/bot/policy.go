// Package bot implements the decision policies that drive unmanned
// seats. Policies are pure: given a view of the game and an RNG they
// return a legal action, and identical inputs always produce identical
// choices.
package bot

import (
	rand "math/rand/v2"

	"github.com/trickwire/twentyeight/internal/deck"
)

// Pass is returned from Bid to drop out of the auction.
const Pass = -1

// BidView is what a policy sees when deciding a bid.
type BidView struct {
	HighBid int // 0 when nobody has bid yet
	MinBid  int
	MaxBid  int
	Hand    []deck.Card
}

// Policy is the baseline randomized strategy. The zero value never
// passes and always bids the floor, which is legal but dull; use
// DefaultPolicy for the usual behavior.
type Policy struct {
	// PassProbability is the base chance to pass when a legal bid
	// exists. Hand strength scales it: strong hands pass less.
	PassProbability float64
	// RaiseSpread is how far above the floor a bid may land.
	RaiseSpread int
}

// DefaultPolicy returns the server's standard bot temperament.
func DefaultPolicy() Policy {
	return Policy{PassProbability: 0.35, RaiseSpread: 3}
}

// Named resolves a policy preset by name. Unknown names fall back to
// the default temperament.
func Named(name string) Policy {
	switch name {
	case "aggressive", "aggro":
		return Policy{PassProbability: 0.15, RaiseSpread: 5}
	case "cautious", "tight":
		return Policy{PassProbability: 0.55, RaiseSpread: 2}
	default:
		return DefaultPolicy()
	}
}

// Bid returns the bid value for a seat, or Pass. The result is always
// legal: at least the minimum, above the standing high bid, and no
// higher than the ceiling.
func (p Policy) Bid(view BidView, rng *rand.Rand) int {
	floor := view.MinBid
	if view.HighBid+1 > floor {
		floor = view.HighBid + 1
	}
	if floor > view.MaxBid {
		return Pass
	}

	chance := p.PassProbability * (1.5 - HandStrength(view.Hand))
	if chance > 0 && rng.Float64() < chance {
		return Pass
	}

	spread := p.RaiseSpread
	if spread < 1 {
		spread = 1
	}
	bid := floor + rng.IntN(spread)
	if bid > view.MaxBid {
		bid = view.MaxBid
	}
	return bid
}

// Trump picks the suit the hand is longest in. Ties keep the earlier
// suit in deck order, so the choice is deterministic.
func (p Policy) Trump(hand []deck.Card) deck.Suit {
	counts := deck.BySuit(hand)
	best := deck.Spades
	bestN := -1
	for _, s := range deck.Suits() {
		if counts[s] > bestN {
			bestN = counts[s]
			best = s
		}
	}
	return best
}

// Play picks one of the legal card IDs uniformly. Empty input returns
// the empty string; callers only invoke this with at least one legal
// card.
func (p Policy) Play(playable []string, rng *rand.Rand) string {
	if len(playable) == 0 {
		return ""
	}
	return playable[rng.IntN(len(playable))]
}

// HandStrength scores a hand between 0 and 1 by the card points it
// holds relative to double the per-card deck average, so a typical
// hand lands near 0.5.
func HandStrength(hand []deck.Card) float64 {
	if len(hand) == 0 {
		return 0
	}
	points := 0
	for _, c := range hand {
		points += c.Points()
	}
	expected := float64(len(hand)) * 28.0 / 32.0
	s := float64(points) / (2 * expected)
	if s > 1 {
		return 1
	}
	return s
}

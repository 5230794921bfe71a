package deck

import (
	rand "math/rand/v2"
)

// New builds an ordered pack of size*32 cards. packs must be 1 (for 28)
// or 2 (for 56); the second pack is tagged with deck index 2 so every
// card ID stays unique.
func New(packs int) []Card {
	cards := make([]Card, 0, packs*32)
	for p := 1; p <= packs; p++ {
		for _, suit := range Suits() {
			for _, rank := range Ranks() {
				cards = append(cards, Card{Suit: suit, Rank: rank, Deck: p})
			}
		}
	}
	return cards
}

// Shuffle randomizes cards in place using the provided RNG
func Shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Contains reports whether cards holds the exact card (same ID)
func Contains(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

// Remove returns cards with the first occurrence of card removed, and
// whether it was present. The input slice is not modified.
func Remove(cards []Card, card Card) ([]Card, bool) {
	for i, c := range cards {
		if c == card {
			out := make([]Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			out = append(out, cards[i+1:]...)
			return out, true
		}
	}
	return cards, false
}

// BySuit counts how many cards of each suit are in the hand
func BySuit(cards []Card) map[Suit]int {
	counts := make(map[Suit]int, 4)
	for _, c := range cards {
		counts[c.Suit]++
	}
	return counts
}

// IDs returns the canonical IDs of the given cards, in order
func IDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	return ids
}

// Package rules holds the pure game rules for 28 and 56: deck
// construction, dealing, follow-suit legality, trick resolution and
// team scoring. Nothing here mutates shared state or performs I/O.
package rules

import (
	"github.com/trickwire/twentyeight/internal/deck"
)

// Mode selects the game variant.
type Mode string

const (
	Mode28 Mode = "28"
	Mode56 Mode = "56"
)

// Valid reports whether m names a known variant.
func (m Mode) Valid() bool {
	return m == Mode28 || m == Mode56
}

// Seats returns the fixed seat count for the variant.
func (m Mode) Seats() int {
	if m == Mode56 {
		return 6
	}
	return 4
}

// Packs returns how many 32-card packs the variant plays with.
func (m Mode) Packs() int {
	if m == Mode56 {
		return 2
	}
	return 1
}

// MinBid returns the lowest bid a seat may open with.
func (m Mode) MinBid() int {
	if m == Mode56 {
		return 28
	}
	return 14
}

// MaxBid returns the default bid ceiling. Sessions may override it.
func (m Mode) MaxBid() int {
	if m == Mode56 {
		return 56
	}
	return 28
}

// TotalPoints returns the card points in the full deck.
func (m Mode) TotalPoints() int {
	return 28 * m.Packs()
}

// MakeDeck builds the unshuffled deck for the variant. 56 plays two
// packs whose cards carry distinct pack indices.
func MakeDeck(m Mode) []deck.Card {
	return deck.New(m.Packs())
}

// Deal splits an already shuffled deck evenly across seats. Each seat
// receives len(cards)/seats cards in contiguous runs; the remainder
// forms the kitty.
func Deal(cards []deck.Card, seats int) (hands [][]deck.Card, kitty []deck.Card) {
	per := len(cards) / seats
	hands = make([][]deck.Card, seats)
	for s := 0; s < seats; s++ {
		hand := make([]deck.Card, per)
		copy(hand, cards[s*per:(s+1)*per])
		hands[s] = hand
	}
	kitty = make([]deck.Card, len(cards)-per*seats)
	copy(kitty, cards[per*seats:])
	return hands, kitty
}

// Play is a single card played by a seat within a trick.
type Play struct {
	Seat int       `json:"seat"`
	Card deck.Card `json:"card"`
}

// LeadSuit returns the suit led in the trick, or deck.NoSuit when the
// trick is empty.
func LeadSuit(trick []Play) deck.Suit {
	if len(trick) == 0 {
		return deck.NoSuit
	}
	return trick[0].Card.Suit
}

// Playable filters hand down to the cards a seat may legally play.
// The leader may play anything. A seat holding the lead suit must
// follow it. Once trump is revealed, a seat void in the lead suit must
// trump if able. Otherwise any card is a legal discard.
func Playable(hand []deck.Card, lead, trump deck.Suit, trumpRevealed bool) []deck.Card {
	if lead == deck.NoSuit {
		return append([]deck.Card(nil), hand...)
	}
	if follow := ofSuit(hand, lead); len(follow) > 0 {
		return follow
	}
	if trumpRevealed && trump != deck.NoSuit {
		if trumps := ofSuit(hand, trump); len(trumps) > 0 {
			return trumps
		}
	}
	return append([]deck.Card(nil), hand...)
}

func ofSuit(hand []deck.Card, suit deck.Suit) []deck.Card {
	var out []deck.Card
	for _, c := range hand {
		if c.Suit == suit {
			out = append(out, c)
		}
	}
	return out
}

// TrickWinner returns the seat taking the trick. Trump cards win over
// everything else, but only once trump is revealed at evaluation time;
// otherwise the highest card of the lead suit takes it. Ties between
// identical cards from the two 56 packs go to the earlier play.
func TrickWinner(trick []Play, trump deck.Suit, trumpRevealed bool) int {
	suit := LeadSuit(trick)
	if trumpRevealed && trump != deck.NoSuit && anyOfSuit(trick, trump) {
		suit = trump
	}

	winner := -1
	best := -1
	for _, p := range trick {
		if p.Card.Suit != suit {
			continue
		}
		if o := p.Card.Rank.Order(); o > best {
			best = o
			winner = p.Seat
		}
	}
	return winner
}

func anyOfSuit(trick []Play, suit deck.Suit) bool {
	for _, p := range trick {
		if p.Card.Suit == suit {
			return true
		}
	}
	return false
}

// TrickPoints sums the card points captured in the trick.
func TrickPoints(trick []Play) int {
	total := 0
	for _, p := range trick {
		total += p.Card.Points()
	}
	return total
}

// TeamOf returns the team index for a seat. Even seats form team 0,
// odd seats team 1.
func TeamOf(seat int) int {
	return seat % 2
}

// TeamPoints splits per-seat points into the even and odd team totals.
func TeamPoints(pointsBySeat []int) (even, odd int) {
	for seat, pts := range pointsBySeat {
		if TeamOf(seat) == 0 {
			even += pts
		} else {
			odd += pts
		}
	}
	return even, odd
}

// NextSeat advances turn order.
func NextSeat(seat, seats int) int {
	return (seat + 1) % seats
}

// NextDealer rotates the deal to the previous seat index.
func NextDealer(dealer, seats int) int {
	return (dealer - 1 + seats) % seats
}

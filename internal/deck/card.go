package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	// NoSuit is the zero-ish sentinel for "no lead suit yet" and
	// "trump not chosen". It never appears on a dealt card.
	NoSuit Suit = iota - 1
	Spades
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// ParseSuit converts a suit glyph back into a Suit
func ParseSuit(s string) (Suit, error) {
	switch s {
	case "♠":
		return Spades, nil
	case "♥":
		return Hearts, nil
	case "♦":
		return Diamonds, nil
	case "♣":
		return Clubs, nil
	default:
		return NoSuit, fmt.Errorf("invalid suit %q", s)
	}
}

// Suits lists the four suits in deck order
func Suits() []Suit {
	return []Suit{Spades, Hearts, Diamonds, Clubs}
}

// MarshalText encodes the suit as its glyph. NoSuit encodes as the
// empty string.
func (s Suit) MarshalText() ([]byte, error) {
	if s == NoSuit {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a suit glyph; empty input restores NoSuit.
func (s *Suit) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = NoSuit
		return nil
	}
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Rank represents a card rank. Only the eight ranks used by 28 and 56
// exist; the numeric value matches the face value for 7-10.
type Rank int

const (
	Seven Rank = iota + 7
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "10"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Points returns the counting value of a rank: J=3, 9=2, A=1, 10=1,
// everything else 0. A full deck is worth 28 points per 32 cards.
func (r Rank) Points() int {
	switch r {
	case Jack:
		return 3
	case Nine:
		return 2
	case Ace, Ten:
		return 1
	default:
		return 0
	}
}

// Order returns the trick-taking strength of a rank. The game order is
// 7 < 8 < Q < K < 10 < A < 9 < J, with Jack highest.
func (r Rank) Order() int {
	switch r {
	case Seven:
		return 0
	case Eight:
		return 1
	case Queen:
		return 2
	case King:
		return 3
	case Ten:
		return 4
	case Ace:
		return 5
	case Nine:
		return 6
	case Jack:
		return 7
	default:
		return -1
	}
}

// Ranks lists the eight ranks in ascending game order
func Ranks() []Rank {
	return []Rank{Seven, Eight, Queen, King, Ten, Ace, Nine, Jack}
}

var rankByName = map[string]Rank{
	"7": Seven, "8": Eight, "9": Nine, "10": Ten,
	"J": Jack, "Q": Queen, "K": King, "A": Ace,
}

// Card represents a playing card. Deck is 1 for the first 32-card pack
// and 2 for the second pack used in 56; within a session the ID is
// globally unique.
type Card struct {
	Suit Suit
	Rank Rank
	Deck int
}

// NewCard creates a new card from the first pack
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank, Deck: 1}
}

// String returns the display form of a card (e.g., "J♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// ID returns the canonical identity of a card (e.g., "J♠#1"). Two
// physically distinct copies of the same card differ only in the deck
// index suffix.
func (c Card) ID() string {
	return fmt.Sprintf("%s%s#%d", c.Rank, c.Suit, c.Deck)
}

// Points returns the counting value of the card
func (c Card) Points() int {
	return c.Rank.Points()
}

// ParseID parses a canonical card ID back into a Card
func ParseID(id string) (Card, error) {
	body, deckPart, ok := strings.Cut(id, "#")
	if !ok {
		return Card{}, fmt.Errorf("invalid card id %q: missing deck index", id)
	}
	var deckIndex int
	switch deckPart {
	case "1":
		deckIndex = 1
	case "2":
		deckIndex = 2
	default:
		return Card{}, fmt.Errorf("invalid card id %q: deck index must be 1 or 2", id)
	}

	// The suit glyph is the last rune of the body; everything before it
	// is the rank name.
	runes := []rune(body)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("invalid card id %q", id)
	}
	suit, err := ParseSuit(string(runes[len(runes)-1]))
	if err != nil {
		return Card{}, fmt.Errorf("invalid card id %q: %w", id, err)
	}
	rank, ok := rankByName[string(runes[:len(runes)-1])]
	if !ok {
		return Card{}, fmt.Errorf("invalid card id %q: unknown rank", id)
	}
	return Card{Suit: suit, Rank: rank, Deck: deckIndex}, nil
}

// MarshalJSON encodes a card as its ID string, so hands and tricks
// serialize compactly and clients address cards the same way they
// receive them.
func (c Card) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", c.ID())), nil
}

// UnmarshalJSON decodes a card from its ID string
func (c *Card) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid card JSON %s", s)
	}
	card, err := ParseID(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*c = card
	return nil
}

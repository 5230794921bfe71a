package game

import (
	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/rules"
)

// CompletedTrick records one resolved trick in play order.
type CompletedTrick struct {
	Plays  []rules.Play `json:"plays"`
	Winner int          `json:"winner"`
	Points int          `json:"points"`
}

// RoundRecord is the immutable history entry for a finished round.
type RoundRecord struct {
	Number       int              `json:"number"`
	Dealer       int              `json:"dealer"`
	BidWinner    int              `json:"bid_winner"`
	BidValue     int              `json:"bid_value"`
	Trump        deck.Suit        `json:"trump"`
	Tricks       []CompletedTrick `json:"tricks"`
	PointsBySeat []int            `json:"points_by_seat"`
	TeamEven     int              `json:"team_even"`
	TeamOdd      int              `json:"team_odd"`
	BidMade      bool             `json:"bid_made"`
}

package game

import (
	"encoding/json"
	"fmt"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/rules"
)

// engineState is the serialized form of every field needed to rebuild
// an Engine exactly. Seat-indexed slices keep their length even when a
// seat is empty.
type engineState struct {
	ID             string           `json:"id"`
	Config         Config           `json:"config"`
	State          State            `json:"state"`
	Players        []*PlayerInfo    `json:"players"`
	Dealer         int              `json:"dealer"`
	Leader         int              `json:"leader"`
	Turn           int              `json:"turn"`
	RoundNumber    int              `json:"round_number"`
	Hands          [][]deck.Card    `json:"hands"`
	Kitty          []deck.Card      `json:"kitty"`
	Bids           []int            `json:"bids"`
	HighBid        int              `json:"high_bid"`
	HighSeat       int              `json:"high_seat"`
	BidWinner      int              `json:"bid_winner"`
	BidValue       int              `json:"bid_value"`
	Trump          deck.Suit        `json:"trump"`
	TrumpRevealed  bool             `json:"trump_revealed"`
	CurrentTrick   []rules.Play     `json:"current_trick"`
	Captured       []CompletedTrick `json:"captured_tricks"`
	LastTrick      *CompletedTrick  `json:"last_trick,omitempty"`
	PointsBySeat   []int            `json:"points_by_seat"`
	Rounds         []RoundRecord    `json:"rounds"`
	RoundsAppended int              `json:"rounds_appended"`
	Revision       uint64           `json:"revision"`
}

// Snapshot serializes the complete engine state, private hands
// included. Snapshots live server-side only and are never sent to
// clients.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := engineState{
		ID:             e.id,
		Config:         e.cfg,
		State:          e.state,
		Players:        e.players,
		Dealer:         e.dealer,
		Leader:         e.leader,
		Turn:           e.turn,
		RoundNumber:    e.roundNumber,
		Hands:          e.hands,
		Kitty:          e.kitty,
		Bids:           e.bids,
		HighBid:        e.highBid,
		HighSeat:       e.highSeat,
		BidWinner:      e.bidWinner,
		BidValue:       e.bidValue,
		Trump:          e.trump,
		TrumpRevealed:  e.trumpRevealed,
		CurrentTrick:   e.currentTrick,
		Captured:       e.captured,
		LastTrick:      e.lastTrick,
		PointsBySeat:   e.pointsBySeat,
		Rounds:         e.rounds,
		RoundsAppended: e.roundsAppended,
		Revision:       e.revision,
	}
	return json.Marshal(st)
}

// Restore rebuilds an engine from a snapshot. The restored engine
// derives a fresh RNG from the session ID unless WithRNG overrides it;
// cards are only drawn when a round is dealt, so a mid-round restore
// replays identically to the engine that saved it.
func Restore(data []byte, opts ...Option) (*Engine, error) {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	e, err := New(st.ID, st.Config, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seats := e.cfg.Seats()
	if len(st.Players) != seats {
		return nil, fmt.Errorf("snapshot has %d seats, config wants %d", len(st.Players), seats)
	}
	if st.Bids == nil {
		st.Bids = make([]int, seats)
	}
	if st.PointsBySeat == nil {
		st.PointsBySeat = make([]int, seats)
	}

	e.state = st.State
	e.players = st.Players
	e.dealer = st.Dealer
	e.leader = st.Leader
	e.turn = st.Turn
	e.roundNumber = st.RoundNumber
	e.hands = st.Hands
	e.kitty = st.Kitty
	e.bids = st.Bids
	e.highBid = st.HighBid
	e.highSeat = st.HighSeat
	e.bidWinner = st.BidWinner
	e.bidValue = st.BidValue
	e.trump = st.Trump
	e.trumpRevealed = st.TrumpRevealed
	e.currentTrick = st.CurrentTrick
	e.captured = st.Captured
	e.lastTrick = st.LastTrick
	e.pointsBySeat = st.PointsBySeat
	e.rounds = st.Rounds
	e.roundsAppended = st.RoundsAppended
	e.revision = st.Revision
	return e, nil
}

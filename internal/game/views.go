package game

import (
	"time"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/rules"
)

// PublicState is the view broadcast to every subscriber. It never
// contains hands, the undealt deck, or the kitty, and the trump suit
// stays null until it is revealed.
type PublicState struct {
	SessionID     string           `json:"session_id"`
	Mode          rules.Mode       `json:"mode"`
	Seats         int              `json:"seats"`
	State         State            `json:"state"`
	TrumpMode     TrumpMode        `json:"trump_mode"`
	MinBid        int              `json:"min_bid"`
	MaxBid        int              `json:"max_bid"`
	Players       []PlayerInfo     `json:"players"`
	Dealer        int              `json:"dealer"`
	Leader        int              `json:"leader"`
	Turn          int              `json:"turn"`
	RoundNumber   int              `json:"round_number"`
	Bids          []int            `json:"bids"`
	BidWinner     int              `json:"bid_winner"`
	BidValue      int              `json:"bid_value"`
	Trump         *deck.Suit       `json:"trump"`
	TrumpRevealed bool             `json:"trump_revealed"`
	CurrentTrick  []rules.Play     `json:"current_trick"`
	LastTrick     *CompletedTrick  `json:"last_trick,omitempty"`
	HandCounts    []int            `json:"hand_counts"`
	PointsBySeat  []int            `json:"points_by_seat"`
	TeamEven      int              `json:"team_even"`
	TeamOdd       int              `json:"team_odd"`
	RoundsPlayed  int              `json:"rounds_played"`
	Revision      uint64           `json:"revision"`
}

// PublicState builds the shared view of the session.
func (e *Engine) PublicState() PublicState {
	e.mu.Lock()
	defer e.mu.Unlock()

	players := make([]PlayerInfo, 0, e.seatedCount())
	for _, p := range e.players {
		if p != nil {
			players = append(players, *p)
		}
	}
	handCounts := make([]int, len(e.players))
	for s, hand := range e.hands {
		handCounts[s] = len(hand)
	}
	even, odd := rules.TeamPoints(e.pointsBySeat)

	ps := PublicState{
		SessionID:     e.id,
		Mode:          e.cfg.Mode,
		Seats:         len(e.players),
		State:         e.state,
		TrumpMode:     e.cfg.TrumpMode,
		MinBid:        e.cfg.MinBid(),
		MaxBid:        e.cfg.MaxBid,
		Players:       players,
		Dealer:        e.dealer,
		Leader:        e.leader,
		Turn:          e.turn,
		RoundNumber:   e.roundNumber,
		Bids:          append([]int(nil), e.bids...),
		BidWinner:     e.bidWinner,
		BidValue:      e.bidValue,
		TrumpRevealed: e.trumpRevealed,
		CurrentTrick:  append([]rules.Play(nil), e.currentTrick...),
		HandCounts:    handCounts,
		PointsBySeat:  append([]int(nil), e.pointsBySeat...),
		TeamEven:      even,
		TeamOdd:       odd,
		RoundsPlayed:  len(e.rounds),
		Revision:      e.revision,
	}
	if e.trumpRevealed {
		trump := e.trump
		ps.Trump = &trump
	}
	if e.lastTrick != nil {
		trick := *e.lastTrick
		ps.LastTrick = &trick
	}
	return ps
}

// HandFor returns a copy of one seat's cards. Out-of-range seats get
// nil.
func (e *Engine) HandFor(seat int) []deck.Card {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seat < 0 || seat >= len(e.hands) {
		return nil
	}
	return append([]deck.Card(nil), e.hands[seat]...)
}

// PlayableFor returns the card IDs a seat may legally play right now.
// It is empty outside PLAY or when it is not the seat's turn.
func (e *Engine) PlayableFor(seat int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playableForLocked(seat)
}

func (e *Engine) playableForLocked(seat int) []string {
	if e.state != StatePlay || seat != e.turn || seat < 0 || seat >= len(e.hands) {
		return nil
	}
	lead := rules.LeadSuit(e.currentTrick)
	return deck.IDs(rules.Playable(e.hands[seat], lead, e.trump, e.trumpRevealed))
}

// Players lists the seated players in seat order.
func (e *Engine) Players() []PlayerInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PlayerInfo, 0, e.seatedCount())
	for _, p := range e.players {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// PlayerByID finds a seated player.
func (e *Engine) PlayerByID(playerID string) (PlayerInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			return *p, true
		}
	}
	return PlayerInfo{}, false
}

// Rounds returns the completed round history.
func (e *Engine) Rounds() []RoundRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RoundRecord(nil), e.rounds...)
}

// PendingRounds returns completed rounds not yet confirmed as written
// to round history storage.
func (e *Engine) PendingRounds() []RoundRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.roundsAppended >= len(e.rounds) {
		return nil
	}
	return append([]RoundRecord(nil), e.rounds[e.roundsAppended:]...)
}

// ConfirmAppended marks rounds up to and including number as durably
// appended. Smaller numbers are ignored, so confirmations are
// idempotent.
func (e *Engine) ConfirmAppended(number int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if number > e.roundsAppended {
		e.roundsAppended = number
	}
	if e.roundsAppended > len(e.rounds) {
		e.roundsAppended = len(e.rounds)
	}
}

// Revision returns the mutation counter. Subscribers use it to skip
// stale broadcasts.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// LastActivity returns when the last accepted mutation happened.
func (e *Engine) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// DriverView is the single locked read the bot driver needs to decide
// and submit its next action.
type DriverView struct {
	State     State
	Turn      int
	TurnIsBot bool
	BidWinner int
	HighBid   int
	MinBid    int
	MaxBid    int
	Hand      []deck.Card
	Playable  []string
	Revision  uint64
}

// DriverView snapshots everything the bot driver needs in one lock
// acquisition so its decision is made against a consistent state.
func (e *Engine) DriverView() DriverView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := DriverView{
		State:     e.state,
		Turn:      e.turn,
		BidWinner: e.bidWinner,
		HighBid:   e.highBid,
		MinBid:    e.cfg.MinBid(),
		MaxBid:    e.cfg.MaxBid,
		Revision:  e.revision,
	}
	actor := e.turn
	if e.state == StateChooseTrump {
		actor = e.bidWinner
	}
	if actor >= 0 && actor < len(e.players) && e.players[actor] != nil {
		v.TurnIsBot = e.players[actor].IsBot
	}
	if actor >= 0 && actor < len(e.hands) {
		v.Hand = append([]deck.Card(nil), e.hands[actor]...)
	}
	v.Playable = e.playableForLocked(e.turn)
	return v
}

package game

// State identifies where a session sits in the round lifecycle.
// DEALING and SCORING are transient: the engine passes through them
// inside a single operation and they are never observable between
// calls.
type State string

const (
	StateLobby       State = "LOBBY"
	StateDealing     State = "DEALING"
	StateBidding     State = "BIDDING"
	StateChooseTrump State = "CHOOSE_TRUMP"
	StatePlay        State = "PLAY"
	StateScoring     State = "SCORING"
	StateRoundEnd    State = "ROUND_END"
)

// TrumpMode controls when a hidden trump suit becomes public.
type TrumpMode string

const (
	// TrumpModeOpenImmediately reveals the suit the moment the bid
	// winner chooses it.
	TrumpModeOpenImmediately TrumpMode = "OPEN_IMMEDIATELY"
	// TrumpModeOnFirstNonFollow reveals when any seat plays off the
	// led suit.
	TrumpModeOnFirstNonFollow TrumpMode = "ON_FIRST_NONFOLLOW"
	// TrumpModeOnFirstTrumpPlay reveals when any card of the trump
	// suit hits the table.
	TrumpModeOnFirstTrumpPlay TrumpMode = "ON_FIRST_TRUMP_PLAY"
	// TrumpModeOnBidderNonFollow reveals only when the bid winner
	// plays off the led suit.
	TrumpModeOnBidderNonFollow TrumpMode = "ON_BIDDER_NONFOLLOW"
)

// Valid reports whether m names a known reveal policy.
func (m TrumpMode) Valid() bool {
	switch m {
	case TrumpModeOpenImmediately, TrumpModeOnFirstNonFollow,
		TrumpModeOnFirstTrumpPlay, TrumpModeOnBidderNonFollow:
		return true
	}
	return false
}

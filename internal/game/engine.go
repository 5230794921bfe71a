package game

import (
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/randutil"
	"github.com/trickwire/twentyeight/internal/rules"
)

// Pass is the bid value submitted to drop out of the auction.
const Pass = -1

// Engine drives one session through its round lifecycle: lobby,
// bidding, trump selection, trick play and scoring. Every method takes
// the engine lock; the command dispatcher is expected to be the only
// mutating caller.
type Engine struct {
	mu sync.Mutex

	id     string
	cfg    Config
	logger *log.Logger
	rng    *rand.Rand
	clock  quartz.Clock

	stacked []deck.Card

	state         State
	players       []*PlayerInfo
	dealer        int
	leader        int
	turn          int
	roundNumber   int
	hands         [][]deck.Card
	kitty         []deck.Card
	bids          []int
	highBid       int
	highSeat      int
	bidWinner     int
	bidValue      int
	trump         deck.Suit
	trumpRevealed bool
	currentTrick  []rules.Play
	captured      []CompletedTrick
	lastTrick     *CompletedTrick
	pointsBySeat  []int
	rounds        []RoundRecord

	// roundsAppended counts how many entries of rounds the persistence
	// layer has already written, giving round history at-most-once
	// append semantics across restarts.
	roundsAppended int

	revision     uint64
	lastActivity time.Time
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithRNG overrides the session RNG. The default derives
// deterministically from the session ID.
func WithRNG(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the wall clock used for activity stamps.
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithDeck stacks the deal. Every round deals from this exact order
// instead of shuffling, which makes scenario tests reproducible card
// for card.
func WithDeck(cards []deck.Card) Option {
	return func(e *Engine) { e.stacked = append([]deck.Card(nil), cards...) }
}

// New creates an engine waiting in the lobby.
func New(id string, cfg Config, opts ...Option) (*Engine, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		id:        id,
		cfg:       cfg,
		state:     StateLobby,
		players:   make([]*PlayerInfo, cfg.Seats()),
		bids:      make([]int, cfg.Seats()),
		highSeat:  -1,
		bidWinner: -1,
		trump:     deck.NoSuit,
	}
	e.pointsBySeat = make([]int, cfg.Seats())
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = randutil.NewFromString(id)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	e.lastActivity = e.clock.Now()
	return e, nil
}

// ID returns the session ID.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the session parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// Seats returns the fixed seat count.
func (e *Engine) Seats() int {
	return len(e.players)
}

// touch records an accepted mutation.
func (e *Engine) touch() {
	e.revision++
	e.lastActivity = e.clock.Now()
}

func (e *Engine) seatedCount() int {
	n := 0
	for _, p := range e.players {
		if p != nil {
			n++
		}
	}
	return n
}

// AddPlayer seats a player. Seat -1 takes the first free seat.
func (e *Engine) AddPlayer(playerID, name string, seat int) (PlayerInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLobby {
		return PlayerInfo{}, Errf(KindWrongState, "cannot join in state %s", e.state)
	}
	for _, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			return PlayerInfo{}, Errf(KindDuplicateAction, "player %s already seated at seat %d", playerID, p.Seat)
		}
	}
	if seat == -1 {
		for s, p := range e.players {
			if p == nil {
				seat = s
				break
			}
		}
		if seat == -1 {
			return PlayerInfo{}, Errf(KindSessionFull, "all %d seats are taken", len(e.players))
		}
	} else {
		if seat < 0 || seat >= len(e.players) {
			return PlayerInfo{}, Errf(KindInvalidValue, "seat %d out of range", seat)
		}
		if e.players[seat] != nil {
			return PlayerInfo{}, Errf(KindSessionFull, "seat %d is taken", seat)
		}
	}

	info := PlayerInfo{PlayerID: playerID, Name: name, Seat: seat}
	e.players[seat] = &info
	e.touch()
	e.logger.Debug("player joined", "player", playerID, "name", name, "seat", seat)
	return info, nil
}

// StartRound deals a new round. With fillBots set, empty seats are
// filled with bot players first. The dealer rotates on every round
// after the first.
func (e *Engine) StartRound(fillBots bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLobby && e.state != StateRoundEnd {
		return Errf(KindWrongState, "cannot start a round in state %s", e.state)
	}
	if e.seatedCount() < 2 {
		return Errf(KindInvalidValue, "need at least 2 players to start, have %d", e.seatedCount())
	}
	if fillBots {
		for s, p := range e.players {
			if p == nil {
				info := BotInfo(s)
				e.players[s] = &info
			}
		}
	} else if e.seatedCount() < len(e.players) {
		return Errf(KindInvalidValue, "%d seats are still empty", len(e.players)-e.seatedCount())
	}

	if e.roundNumber > 0 {
		e.dealer = rules.NextDealer(e.dealer, len(e.players))
	}
	e.roundNumber++
	e.deal()
	e.touch()
	e.logger.Info("round started",
		"round", e.roundNumber,
		"dealer", e.dealer,
		"leader", e.leader)
	return nil
}

// deal shuffles and distributes a fresh deck, then opens bidding. The
// DEALING state is only ever observable inside this call.
func (e *Engine) deal() {
	e.state = StateDealing
	var cards []deck.Card
	if e.stacked != nil {
		cards = append([]deck.Card(nil), e.stacked...)
	} else {
		cards = rules.MakeDeck(e.cfg.Mode)
		deck.Shuffle(cards, e.rng)
	}
	hands, kitty := rules.Deal(cards, len(e.players))
	e.hands = hands
	e.kitty = kitty
	e.leader = rules.NextSeat(e.dealer, len(e.players))
	e.turn = e.leader
	e.bids = make([]int, len(e.players))
	e.highBid = 0
	e.highSeat = -1
	e.bidWinner = -1
	e.bidValue = 0
	e.trump = deck.NoSuit
	e.trumpRevealed = false
	e.currentTrick = nil
	e.captured = nil
	e.lastTrick = nil
	e.pointsBySeat = make([]int, len(e.players))
	e.state = StateBidding
}

// PlaceBid records a bid, or a pass when value is Pass, for the seat
// whose turn it is. A seat that passed cannot act again this auction;
// a seat with a standing bid may raise when the turn returns to it.
func (e *Engine) PlaceBid(seat, value int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateBidding {
		return Errf(KindWrongState, "cannot bid in state %s", e.state)
	}
	if seat >= 0 && seat < len(e.bids) && e.bids[seat] == Pass {
		return Errf(KindAlreadyActed, "seat %d already passed", seat)
	}
	if seat != e.turn {
		return Errf(KindNotYourTurn, "seat %d bid out of turn, turn is %d", seat, e.turn)
	}

	if value == Pass {
		e.bids[seat] = Pass
	} else {
		if value < e.cfg.MinBid() {
			return Errf(KindBidTooLow, "bid %d is below the minimum %d", value, e.cfg.MinBid())
		}
		if value <= e.highBid {
			return Errf(KindBidTooLow, "bid %d does not beat %d", value, e.highBid)
		}
		if value > e.cfg.MaxBid {
			return Errf(KindInvalidValue, "bid %d is above the maximum %d", value, e.cfg.MaxBid)
		}
		e.bids[seat] = value
		e.highBid = value
		e.highSeat = seat
	}
	e.touch()
	e.logger.Debug("bid placed", "seat", seat, "value", value)
	e.resolveBidding()
	return nil
}

// resolveBidding closes the auction when a termination condition
// holds, otherwise advances the turn past seats that passed.
func (e *Engine) resolveBidding() {
	if e.highBid > 0 && e.highBid == e.cfg.MaxBid {
		e.closeBidding(e.highSeat)
		return
	}

	active := 0
	last := -1
	for s, b := range e.bids {
		if b != Pass {
			active++
			last = s
		}
	}
	if active == 0 {
		// Every seat passed; redeal with the same dealer.
		e.logger.Info("all seats passed, redealing", "round", e.roundNumber, "dealer", e.dealer)
		e.deal()
		return
	}
	if active == 1 && e.bids[last] > 0 {
		e.closeBidding(last)
		return
	}

	next := rules.NextSeat(e.turn, len(e.players))
	for e.bids[next] == Pass {
		next = rules.NextSeat(next, len(e.players))
	}
	e.turn = next
}

func (e *Engine) closeBidding(winner int) {
	e.bidWinner = winner
	e.bidValue = e.bids[winner]
	e.state = StateChooseTrump
	e.turn = winner
	e.logger.Info("bidding closed", "winner", winner, "value", e.bidValue)
}

// ChooseTrump lets the bid winner fix the trump suit and opens play.
// Under OPEN_IMMEDIATELY the suit is public at once; every other mode
// keeps it hidden until its reveal condition fires.
func (e *Engine) ChooseTrump(seat int, suit deck.Suit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateChooseTrump {
		return Errf(KindWrongState, "cannot choose trump in state %s", e.state)
	}
	if seat != e.bidWinner {
		return Errf(KindNotBidWinner, "seat %d is not the bid winner", seat)
	}
	if suit < deck.Spades || suit > deck.Clubs {
		return Errf(KindInvalidValue, "invalid trump suit")
	}

	e.trump = suit
	e.trumpRevealed = e.cfg.TrumpMode == TrumpModeOpenImmediately
	e.state = StatePlay
	e.turn = e.bidWinner
	e.currentTrick = nil
	e.touch()
	e.logger.Info("trump chosen", "seat", seat, "revealed", e.trumpRevealed)
	return nil
}

// PlayCard validates and applies one card play, resolving the trick
// and the round as they complete.
func (e *Engine) PlayCard(seat int, cardID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlay {
		return Errf(KindWrongState, "cannot play a card in state %s", e.state)
	}
	if seat != e.turn {
		return Errf(KindNotYourTurn, "seat %d played out of turn, turn is %d", seat, e.turn)
	}
	card, err := deck.ParseID(cardID)
	if err != nil {
		return Errf(KindInvalidValue, "bad card id %q", cardID)
	}
	if !deck.Contains(e.hands[seat], card) {
		return Errf(KindCardNotInHand, "seat %d does not hold %s", seat, cardID)
	}
	lead := rules.LeadSuit(e.currentTrick)
	playable := rules.Playable(e.hands[seat], lead, e.trump, e.trumpRevealed)
	if !deck.Contains(playable, card) {
		return Errf(KindMustFollowSuit, "%s is not a legal play", cardID)
	}

	e.hands[seat], _ = deck.Remove(e.hands[seat], card)
	e.currentTrick = append(e.currentTrick, rules.Play{Seat: seat, Card: card})
	e.maybeReveal(seat, card, lead)
	e.touch()
	e.logger.Debug("card played", "seat", seat, "card", cardID)

	if len(e.currentTrick) == len(e.players) {
		e.finishTrick()
	} else {
		e.turn = rules.NextSeat(seat, len(e.players))
	}
	return nil
}

// RevealTrump handles an explicit reveal request from a seat that
// cannot follow the led suit. The seat keeps the turn and still has to
// play a card, now restricted by the trump rules.
func (e *Engine) RevealTrump(seat int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlay {
		return Errf(KindWrongState, "cannot reveal trump in state %s", e.state)
	}
	if seat != e.turn {
		return Errf(KindNotYourTurn, "seat %d acted out of turn, turn is %d", seat, e.turn)
	}
	if e.trumpRevealed {
		return Errf(KindTrumpAlreadyRevealed, "trump is already revealed")
	}
	lead := rules.LeadSuit(e.currentTrick)
	if lead == deck.NoSuit {
		return Errf(KindWrongState, "cannot reveal trump when leading a trick")
	}
	if deck.BySuit(e.hands[seat])[lead] > 0 {
		return Errf(KindMustFollowSuit, "seat %d holds the led suit", seat)
	}

	e.reveal("requested")
	e.touch()
	return nil
}

// maybeReveal applies the hidden-trump policy to an accepted play.
// lead is the suit led before this play; off-suit means the card does
// not match an existing lead.
func (e *Engine) maybeReveal(seat int, card deck.Card, lead deck.Suit) {
	if e.trumpRevealed || e.trump == deck.NoSuit {
		return
	}
	offSuit := lead != deck.NoSuit && card.Suit != lead
	switch e.cfg.TrumpMode {
	case TrumpModeOnFirstNonFollow:
		if offSuit {
			e.reveal("non-follow")
		}
	case TrumpModeOnFirstTrumpPlay:
		if card.Suit == e.trump {
			e.reveal("trump played")
		}
	case TrumpModeOnBidderNonFollow:
		if seat == e.bidWinner && offSuit {
			e.reveal("bidder non-follow")
		}
	}
}

func (e *Engine) reveal(cause string) {
	e.trumpRevealed = true
	e.logger.Debug("trump revealed", "cause", cause)
}

func (e *Engine) finishTrick() {
	winner := rules.TrickWinner(e.currentTrick, e.trump, e.trumpRevealed)
	points := rules.TrickPoints(e.currentTrick)
	trick := CompletedTrick{Plays: e.currentTrick, Winner: winner, Points: points}
	e.captured = append(e.captured, trick)
	e.lastTrick = &trick
	e.currentTrick = nil
	e.pointsBySeat[winner] += points
	e.turn = winner
	e.logger.Debug("trick complete", "winner", winner, "points", points)

	for _, hand := range e.hands {
		if len(hand) > 0 {
			return
		}
	}
	e.finishRound()
}

// finishRound snapshots the completed round into history. The SCORING
// state is only ever observable inside this call.
func (e *Engine) finishRound() {
	e.state = StateScoring
	even, odd := rules.TeamPoints(e.pointsBySeat)
	bidTeam := even
	if rules.TeamOf(e.bidWinner) == 1 {
		bidTeam = odd
	}
	record := RoundRecord{
		Number:       e.roundNumber,
		Dealer:       e.dealer,
		BidWinner:    e.bidWinner,
		BidValue:     e.bidValue,
		Trump:        e.trump,
		Tricks:       e.captured,
		PointsBySeat: append([]int(nil), e.pointsBySeat...),
		TeamEven:     even,
		TeamOdd:      odd,
		BidMade:      bidTeam >= e.bidValue,
	}
	e.rounds = append(e.rounds, record)
	e.state = StateRoundEnd
	e.logger.Info("round complete",
		"round", e.roundNumber,
		"bidWinner", e.bidWinner,
		"bidValue", e.bidValue,
		"teamEven", even,
		"teamOdd", odd,
		"bidMade", record.BidMade)
}

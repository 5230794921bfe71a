package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/trickwire/twentyeight/internal/bot"
	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/randutil"
)

// Submitter is the slice of the dispatcher the bot driver submits
// through. Bot actions take the exact same path as human ones.
type Submitter interface {
	PlaceBid(ctx context.Context, sessionID string, seat, value int) error
	ChooseTrump(ctx context.Context, sessionID string, seat int, suit string) error
	PlayCard(ctx context.Context, sessionID string, seat int, cardID string) error
}

// DriverConfig sets the bot strategy and how long bots pretend to
// think before each kind of action.
type DriverConfig struct {
	Strategy   string
	BidDelay   time.Duration
	TrumpDelay time.Duration
	PlayDelay  time.Duration
}

// Driver watches sessions after every accepted action and plays the
// bot seats. At most one timer is armed per session; each firing
// submits at most one action, and the dispatcher's schedule callback
// arms the next one. Decisions re-read the engine at fire time, so a
// timer armed against a state that has since moved simply does
// whatever the current state needs.
type Driver struct {
	registry  *Registry
	submitter Submitter
	policy    bot.Policy
	cfg       DriverConfig
	clock     quartz.Clock
	logger    *log.Logger

	mu    sync.Mutex
	tasks map[string]*quartz.Timer
}

// NewDriver creates a driver. The submitter arrives via SetSubmitter
// because the dispatcher is constructed after the driver.
func NewDriver(registry *Registry, cfg DriverConfig, clock quartz.Clock, logger *log.Logger) *Driver {
	return &Driver{
		registry: registry,
		policy:   bot.Named(cfg.Strategy),
		cfg:      cfg,
		clock:    clock,
		logger:   logger.WithPrefix("driver"),
		tasks:    make(map[string]*quartz.Timer),
	}
}

// SetSubmitter installs the dispatcher the driver submits through.
func (dr *Driver) SetSubmitter(s Submitter) {
	dr.submitter = s
}

// Schedule arms a timer for the session's next bot action if one is
// due and none is already armed. Safe to call after every action; the
// no-bot and already-armed cases return immediately.
func (dr *Driver) Schedule(sessionID string) {
	sess, err := dr.registry.Get(context.Background(), sessionID)
	if err != nil {
		return
	}
	view := sess.Engine.DriverView()
	if !botTurn(view) {
		return
	}
	delay := dr.delayFor(view.State)

	dr.mu.Lock()
	defer dr.mu.Unlock()
	if _, armed := dr.tasks[sessionID]; armed {
		return
	}
	dr.tasks[sessionID] = dr.clock.AfterFunc(delay, func() {
		dr.runOnce(sessionID)
	})
}

// Cancel disarms any pending bot action for the session.
func (dr *Driver) Cancel(sessionID string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	if t, ok := dr.tasks[sessionID]; ok {
		t.Stop()
		delete(dr.tasks, sessionID)
	}
}

// Pending reports whether a bot action is armed for the session.
func (dr *Driver) Pending(sessionID string) bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	_, armed := dr.tasks[sessionID]
	return armed
}

// runOnce decides and submits one bot action. The task entry clears
// before the submit so the accept pipeline can arm the follow-up.
func (dr *Driver) runOnce(sessionID string) {
	dr.mu.Lock()
	delete(dr.tasks, sessionID)
	dr.mu.Unlock()

	ctx := context.Background()
	sess, err := dr.registry.Get(ctx, sessionID)
	if err != nil {
		return
	}
	view := sess.Engine.DriverView()
	if !botTurn(view) {
		return
	}

	// Seeding from session and revision keeps bot play reproducible:
	// replaying the same session makes the same choices.
	rng := randutil.NewFromString(fmt.Sprintf("%s:%d", sessionID, view.Revision))

	var action string
	switch view.State {
	case game.StateBidding:
		action = "place_bid"
		value := dr.policy.Bid(bot.BidView{
			HighBid: view.HighBid,
			MinBid:  view.MinBid,
			MaxBid:  view.MaxBid,
			Hand:    view.Hand,
		}, rng)
		err = dr.submitter.PlaceBid(ctx, sessionID, view.Turn, value)
	case game.StateChooseTrump:
		action = "choose_trump"
		suit := dr.policy.Trump(view.Hand)
		err = dr.submitter.ChooseTrump(ctx, sessionID, view.BidWinner, suit.String())
	case game.StatePlay:
		action = "play_card"
		cardID := dr.policy.Play(view.Playable, rng)
		err = dr.submitter.PlayCard(ctx, sessionID, view.Turn, cardID)
	default:
		return
	}

	if err != nil {
		dr.logger.Warn("bot action rejected",
			"session", sessionID, "action", action, "error", err)
		dr.Schedule(sessionID)
		return
	}
	botActions.Inc()
}

func botTurn(v game.DriverView) bool {
	switch v.State {
	case game.StateBidding, game.StateChooseTrump, game.StatePlay:
		return v.TurnIsBot
	default:
		return false
	}
}

func (dr *Driver) delayFor(state game.State) time.Duration {
	switch state {
	case game.StateBidding:
		return dr.cfg.BidDelay
	case game.StateChooseTrump:
		return dr.cfg.TrumpDelay
	default:
		return dr.cfg.PlayDelay
	}
}

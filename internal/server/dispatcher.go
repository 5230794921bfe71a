package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/store"
)

// errStructural marks requests malformed at the protocol level, before
// the rules ever see them. These surface as error envelopes rather than
// action_failed results.
var errStructural = errors.New("malformed request")

func structuralf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errStructural}, args...)...)
}

// Scheduler gets poked after every accepted action so bot turns run.
type Scheduler interface {
	Schedule(sessionID string)
	Cancel(sessionID string)
}

// RoundPublisher receives completed rounds for downstream consumers.
// Publishing must not block the action path.
type RoundPublisher interface {
	PublishRound(sessionID string, rec game.RoundRecord)
}

// Dispatcher is the only code that mutates engines. Every accepted
// action runs the same pipeline: apply, persist, broadcast, schedule
// bots. Keeping that in one place is what makes the ordering uniform
// across human play, bot play and REST calls.
type Dispatcher struct {
	registry  *Registry
	hub       *Hub
	store     store.Store
	publisher RoundPublisher
	scheduler Scheduler
	clock     quartz.Clock
	logger    *log.Logger
}

// NewDispatcher wires the mutation pipeline. The scheduler arrives via
// SetScheduler because the bot driver needs the dispatcher first.
func NewDispatcher(registry *Registry, hub *Hub, st store.Store, publisher RoundPublisher, clock quartz.Clock, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		hub:       hub,
		store:     st,
		publisher: publisher,
		clock:     clock,
		logger:    logger.WithPrefix("dispatch"),
	}
}

// SetScheduler installs the bot scheduler.
func (d *Dispatcher) SetScheduler(s Scheduler) {
	d.scheduler = s
}

// Join seats a player. Joining again with the same player ID returns
// the existing seat, so a client that re-sends its join after a flaky
// response does not error out.
func (d *Dispatcher) Join(ctx context.Context, sessionID, playerID, name string, seat int) (game.PlayerInfo, error) {
	if playerID == "" {
		return game.PlayerInfo{}, structuralf("player_id is required")
	}
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return game.PlayerInfo{}, err
	}
	if info, ok := sess.Engine.PlayerByID(playerID); ok {
		return info, nil
	}
	info, err := sess.Engine.AddPlayer(playerID, name, seat)
	if err != nil {
		d.reject("join", err)
		return game.PlayerInfo{}, err
	}
	d.commit(ctx, sess, "join")
	return info, nil
}

// StartRound deals the next round, filling empty seats with bots when
// asked.
func (d *Dispatcher) StartRound(ctx context.Context, sessionID string, fillBots bool) error {
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.Engine.StartRound(fillBots); err != nil {
		d.reject("start_round", err)
		return err
	}
	d.commit(ctx, sess, "start_round")
	return nil
}

// PlaceBid submits a bid. Any negative value counts as a pass.
func (d *Dispatcher) PlaceBid(ctx context.Context, sessionID string, seat, value int) error {
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := seatInRange(sess.Engine, seat); err != nil {
		return err
	}
	if value < 0 {
		value = game.Pass
	}
	if err := sess.Engine.PlaceBid(seat, value); err != nil {
		d.reject("place_bid", err)
		return err
	}
	d.commit(ctx, sess, "place_bid")
	return nil
}

// ChooseTrump sets the concealed trump suit.
func (d *Dispatcher) ChooseTrump(ctx context.Context, sessionID string, seat int, suit string) error {
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := seatInRange(sess.Engine, seat); err != nil {
		return err
	}
	parsed, err := deck.ParseSuit(suit)
	if err != nil {
		return structuralf("suit %q is not a suit", suit)
	}
	if err := sess.Engine.ChooseTrump(seat, parsed); err != nil {
		d.reject("choose_trump", err)
		return err
	}
	d.commit(ctx, sess, "choose_trump")
	return nil
}

// PlayCard plays one card into the current trick.
func (d *Dispatcher) PlayCard(ctx context.Context, sessionID string, seat int, cardID string) error {
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := seatInRange(sess.Engine, seat); err != nil {
		return err
	}
	if cardID == "" {
		return structuralf("card_id is required")
	}
	if err := sess.Engine.PlayCard(seat, cardID); err != nil {
		d.reject("play_card", err)
		return err
	}
	d.commit(ctx, sess, "play_card")
	return nil
}

// RevealTrump makes the concealed trump public on demand.
func (d *Dispatcher) RevealTrump(ctx context.Context, sessionID string, seat int) error {
	sess, err := d.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := seatInRange(sess.Engine, seat); err != nil {
		return err
	}
	if err := sess.Engine.RevealTrump(seat); err != nil {
		d.reject("reveal_trump", err)
		return err
	}
	d.commit(ctx, sess, "reveal_trump")
	return nil
}

func seatInRange(e *game.Engine, seat int) error {
	if seat < 0 || seat >= e.Seats() {
		return structuralf("seat %d out of range, session has %d seats", seat, e.Seats())
	}
	return nil
}

func (d *Dispatcher) reject(action string, err error) {
	kind := game.KindOf(err)
	if kind == "" {
		kind = "INTERNAL"
	}
	actionsRejected.WithLabelValues(string(kind)).Inc()
	d.logger.Debug("action rejected", "action", action, "kind", kind, "error", err)
}

// commit runs the post-accept pipeline: persist, broadcast, then give
// the bot driver a chance to act. A persistence failure is logged and
// the action stands; the next accepted action writes a fresh snapshot
// anyway.
func (d *Dispatcher) commit(ctx context.Context, sess *Session, action string) {
	actionsAccepted.WithLabelValues(action).Inc()
	if err := d.persist(ctx, sess, action); err != nil {
		persistFailures.Inc()
		d.logger.Error("persist failed",
			"session", sess.Engine.ID(), "action", action, "error", err)
	}
	d.hub.Broadcast(sess.Engine)
	if d.scheduler != nil {
		d.scheduler.Schedule(sess.Engine.ID())
	}
}

// persist writes the snapshot, the seated players and any rounds that
// finished since the last save. Rounds confirm one at a time so a
// partial failure retries only what never landed.
func (d *Dispatcher) persist(ctx context.Context, sess *Session, action string) error {
	e := sess.Engine
	state, err := e.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := d.store.SaveSnapshot(ctx, store.SnapshotRecord{
		SessionID: e.ID(),
		Revision:  e.Revision(),
		Phase:     e.State(),
		Reason:    action,
		State:     state,
		SavedAt:   d.clock.Now(),
	}); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	for _, p := range e.Players() {
		if err := d.store.UpsertPlayer(ctx, e.ID(), p, d.clock.Now()); err != nil {
			return fmt.Errorf("upsert player %s: %w", p.PlayerID, err)
		}
	}
	for _, rec := range e.PendingRounds() {
		if err := d.store.AppendRound(ctx, e.ID(), rec); err != nil {
			return fmt.Errorf("append round %d: %w", rec.Number, err)
		}
		e.ConfirmAppended(rec.Number)
		if d.publisher != nil {
			d.publisher.PublishRound(e.ID(), rec)
		}
	}
	return nil
}

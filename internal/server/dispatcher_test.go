package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/bot"
	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/randutil"
)

func TestJoinIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.newSession(t)
	id := sess.Engine.ID()

	first, err := env.dispatcher.Join(ctx, id, "alice", "Alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Seat)

	// Re-joining returns the original seat even when the request asks
	// for a different one.
	again, err := env.dispatcher.Join(ctx, id, "alice", "Alice", 3)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, sess.Engine.Players(), 1)
}

func TestJoinRequiresPlayerID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.newSession(t)
	_, err := env.dispatcher.Join(context.Background(), sess.Engine.ID(), "", "Ghost", -1)
	assert.ErrorIs(t, err, errStructural)
}

func TestDispatcherStructuralErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.newSession(t, "alice", "bob")
	id := sess.Engine.ID()
	require.NoError(t, env.dispatcher.StartRound(ctx, id, true))

	tests := []struct {
		name string
		err  error
	}{
		{"seat out of range", env.dispatcher.PlaceBid(ctx, id, 7, 16)},
		{"negative seat", env.dispatcher.RevealTrump(ctx, id, -1)},
		{"bad suit", env.dispatcher.ChooseTrump(ctx, id, 0, "purple")},
		{"empty card", env.dispatcher.PlayCard(ctx, id, 0, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, errStructural)
			assert.Empty(t, string(game.KindOf(tt.err)))
		})
	}
}

func TestDispatcherEngineRejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.newSession(t, "alice", "bob")
	id := sess.Engine.ID()

	// Bidding has not started yet.
	err := env.dispatcher.PlaceBid(ctx, id, 0, 16)
	assert.Equal(t, game.KindWrongState, game.KindOf(err))
	assert.False(t, errors.Is(err, errStructural))

	require.NoError(t, env.dispatcher.StartRound(ctx, id, true))

	// Seat 1 opens the bidding when seat 0 deals.
	err = env.dispatcher.PlaceBid(ctx, id, 0, 16)
	assert.Equal(t, game.KindNotYourTurn, game.KindOf(err))
}

func TestDispatcherSessionNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	err := env.dispatcher.PlaceBid(context.Background(), "missing", 0, 16)
	assert.Equal(t, game.KindSessionNotFound, game.KindOf(err))
}

func TestDispatcherPersistsOnCommit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.newSession(t, "alice", "bob")
	id := sess.Engine.ID()
	require.NoError(t, env.dispatcher.StartRound(ctx, id, true))

	snap, err := env.store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sess.Engine.Revision(), snap.Revision)
	assert.Equal(t, game.StateBidding, snap.Phase)
	assert.Equal(t, "start_round", snap.Reason)

	players, err := env.store.ListPlayers(ctx, id)
	require.NoError(t, err)
	assert.Len(t, players, 4)

	// A rejected action must not move the snapshot.
	before := snap.Revision
	_ = env.dispatcher.PlaceBid(ctx, id, 0, 16)
	snap, err = env.store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, snap.Revision)
}

func TestDispatcherFullRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.newSession(t, "alice", "bob")
	id := sess.Engine.ID()
	require.NoError(t, env.dispatcher.StartRound(ctx, id, true))

	// Drive every seat through the dispatcher until the round closes.
	pol := bot.DefaultPolicy()
	rng := randutil.New(99)
	for i := 0; i < 400; i++ {
		view := sess.Engine.DriverView()
		if view.State == game.StateRoundEnd {
			break
		}
		var err error
		switch view.State {
		case game.StateBidding:
			bid := pol.Bid(bot.BidView{
				HighBid: view.HighBid,
				MinBid:  view.MinBid,
				MaxBid:  view.MaxBid,
				Hand:    view.Hand,
			}, rng)
			err = env.dispatcher.PlaceBid(ctx, id, view.Turn, bid)
		case game.StateChooseTrump:
			err = env.dispatcher.ChooseTrump(ctx, id, view.BidWinner, pol.Trump(view.Hand).String())
		case game.StatePlay:
			err = env.dispatcher.PlayCard(ctx, id, view.Turn, pol.Play(view.Playable, rng))
		default:
			t.Fatalf("unexpected state %s", view.State)
		}
		require.NoError(t, err)
	}
	require.Equal(t, game.StateRoundEnd, sess.Engine.State())

	// The finished round reached the store and the analytics publisher,
	// and the engine's pending list drained.
	rounds, err := env.store.ListRounds(ctx, id)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, 1, rounds[0].Number)
	assert.Empty(t, sess.Engine.PendingRounds())

	published := env.publisher.Rounds()
	require.Len(t, published, 1)
	assert.Equal(t, rounds[0].Number, published[0].Number)

	snap, err := env.store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, game.StateRoundEnd, snap.Phase)
}

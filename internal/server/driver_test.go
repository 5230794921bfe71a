package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/game"
)

// startWithBots seats humans at 0 and 1 and fills 2 and 3 with bots.
// Seat 0 deals the first round, so seat 1 opens the bidding and the
// driver stays idle until the humans hand the turn to a bot.
func startWithBots(t *testing.T, env *testEnv) *Session {
	t.Helper()
	sess := env.newSession(t, "alice", "bob")
	require.NoError(t, env.dispatcher.StartRound(context.Background(), sess.Engine.ID(), true))
	return sess
}

func TestDriverActsOnBotTurns(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := startWithBots(t, env)
	id := sess.Engine.ID()
	assert.False(t, env.driver.Pending(id))

	// Bob passes; the turn lands on the bot at seat 2.
	require.NoError(t, env.dispatcher.PlaceBid(ctx, id, 1, game.Pass))
	require.True(t, env.driver.Pending(id))

	rev := sess.Engine.Revision()
	env.clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, rev+1, sess.Engine.Revision())

	// Seat 3 is a bot too, so acting rearmed the timer.
	require.True(t, env.driver.Pending(id))
	env.clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, rev+2, sess.Engine.Revision())

	// Back at the human in seat 0: nothing pending, nothing moves.
	assert.False(t, env.driver.Pending(id))
	view := sess.Engine.DriverView()
	assert.Equal(t, game.StateBidding, view.State)
	assert.Equal(t, 0, view.Turn)
	assert.False(t, view.TurnIsBot)
}

func TestDriverCancel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := startWithBots(t, env)
	id := sess.Engine.ID()

	require.NoError(t, env.dispatcher.PlaceBid(ctx, id, 1, game.Pass))
	require.True(t, env.driver.Pending(id))

	env.driver.Cancel(id)
	assert.False(t, env.driver.Pending(id))

	rev := sess.Engine.Revision()
	env.clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, rev, sess.Engine.Revision())
}

func TestDriverScheduleIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sess := startWithBots(t, env)
	id := sess.Engine.ID()

	require.NoError(t, env.dispatcher.PlaceBid(ctx, id, 1, game.Pass))
	env.driver.Schedule(id)
	env.driver.Schedule(id)

	// One armed timer means exactly one bot action per advance.
	rev := sess.Engine.Revision()
	env.clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, rev+1, sess.Engine.Revision())
}

func TestDriverIgnoresHumanTurnsAndUnknownSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := startWithBots(t, env)
	id := sess.Engine.ID()

	// Scheduling while a human is up is a no-op.
	env.driver.Schedule(id)
	assert.False(t, env.driver.Pending(id))

	// So is scheduling a session that does not exist.
	env.driver.Schedule("missing")
	assert.False(t, env.driver.Pending("missing"))
}

package server

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// testEnv wires a registry, hub, driver and dispatcher over an in-memory
// store with a mock clock, the same shape Server.New assembles for real.
type testEnv struct {
	store      *store.Memory
	clock      *quartz.Mock
	registry   *Registry
	hub        *Hub
	driver     *Driver
	dispatcher *Dispatcher
	publisher  *capturePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	clock := quartz.NewMock(t)
	mem := store.NewMemory()
	registry := NewRegistry(mem, clock, logger)
	hub := NewHub(logger)
	driver := NewDriver(registry, DriverConfig{
		Strategy:   "default",
		BidDelay:   time.Second,
		TrumpDelay: time.Second,
		PlayDelay:  time.Second,
	}, clock, logger)
	publisher := &capturePublisher{}
	dispatcher := NewDispatcher(registry, hub, mem, publisher, clock, logger)
	dispatcher.SetScheduler(driver)
	driver.SetSubmitter(dispatcher)
	return &testEnv{
		store:      mem,
		clock:      clock,
		registry:   registry,
		hub:        hub,
		driver:     driver,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

// newSession creates a session and seats the named players from seat 0 up.
func (env *testEnv) newSession(t *testing.T, players ...string) *Session {
	t.Helper()
	ctx := context.Background()
	sess, err := env.registry.Create(ctx, game.Config{})
	require.NoError(t, err)
	for i, name := range players {
		_, err := env.dispatcher.Join(ctx, sess.Engine.ID(), name, name, i)
		require.NoError(t, err)
	}
	return sess
}

// capturePublisher records published rounds for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	rounds []game.RoundRecord
}

func (p *capturePublisher) PublishRound(sessionID string, rec game.RoundRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rounds = append(p.rounds, rec)
}

func (p *capturePublisher) Rounds() []game.RoundRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]game.RoundRecord, len(p.rounds))
	copy(out, p.rounds)
	return out
}

package server

import (
	"context"
	"errors"
	"time"

	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/store"
)

// sweepBatch caps how many idle candidates one sweep inspects. The
// next sweep picks up where this one left off because deletions move
// the idle frontier.
const sweepBatch = 64

// idleTTLs sets how long a session may sit untouched before the sweep
// takes it, by lifecycle phase. Lobbies go fast, games mid-round get
// longer, finished games stay around so players can fetch history.
type idleTTLs struct {
	lobby    time.Duration
	active   time.Duration
	finished time.Duration
}

func (t idleTTLs) forPhase(phase game.State) time.Duration {
	switch phase {
	case game.StateLobby:
		return t.lobby
	case game.StateRoundEnd:
		return t.finished
	default:
		return t.active
	}
}

func (t idleTTLs) min() time.Duration {
	m := t.lobby
	if t.active < m {
		m = t.active
	}
	if t.finished < m {
		m = t.finished
	}
	return m
}

// armSweep schedules the next sweep. Each run re-arms itself, so the
// chain keeps going until stopSweep.
func (s *Server) armSweep() {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.sweepStopped {
		return
	}
	s.sweepTimer = s.clock.AfterFunc(s.sweepInterval, func() {
		s.sweepOnce(context.Background())
		s.armSweep()
	})
}

func (s *Server) stopSweep() {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	s.sweepStopped = true
	if s.sweepTimer != nil {
		s.sweepTimer.Stop()
	}
}

// sweepOnce deletes sessions idle past their phase TTL. Candidates
// come from the store, not memory, so sessions nobody revived since a
// restart still get cleaned up.
func (s *Server) sweepOnce(ctx context.Context) {
	now := s.clock.Now()
	cutoff := now.Add(-s.ttl.min())

	ids, err := s.store.ListIdleGames(ctx, cutoff, sweepBatch)
	if err != nil {
		s.logger.Error("idle scan failed", "error", err)
		return
	}

	for _, id := range ids {
		expired, phase, err := s.sessionExpired(ctx, id, now)
		if err != nil {
			s.logger.Warn("idle check failed", "session", id, "error", err)
			continue
		}
		if !expired {
			continue
		}
		if err := s.removeSession(ctx, id); err != nil {
			s.logger.Warn("sweep delete failed", "session", id, "error", err)
			continue
		}
		sessionsSwept.Inc()
		s.logger.Info("idle session swept", "session", id, "phase", phase)
	}
}

// sessionExpired compares a session's idle time against the TTL for
// its phase. A session with no snapshot yet counts as a lobby.
func (s *Server) sessionExpired(ctx context.Context, sessionID string, now time.Time) (bool, game.State, error) {
	rec, err := s.store.GetGame(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}

	phase := game.StateLobby
	snap, err := s.store.LoadSnapshot(ctx, sessionID)
	switch {
	case err == nil:
		phase = snap.Phase
	case errors.Is(err, store.ErrNotFound):
	default:
		return false, "", err
	}

	return now.Sub(rec.UpdatedAt) >= s.ttl.forPhase(phase), phase, nil
}

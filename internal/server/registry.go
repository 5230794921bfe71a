package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/shortcode"
	"github.com/trickwire/twentyeight/internal/store"
)

// codeAttempts bounds the short code retry loop on creation. The code
// space is large enough that hitting this means the store is lying.
const codeAttempts = 5

// Session pairs a live engine with its join code.
type Session struct {
	Engine *game.Engine
	Code   string
}

// SessionSummary is the listing view of a loaded session.
type SessionSummary struct {
	SessionID    string     `json:"session_id"`
	Code         string     `json:"code"`
	Phase        game.State `json:"phase"`
	Seats        int        `json:"seats"`
	Seated       int        `json:"seated"`
	LastActivity time.Time  `json:"last_activity"`
}

// Registry owns the in-memory session table. Sessions load lazily: a
// lookup that misses memory falls through to the store and revives the
// engine from its snapshot, so a restarted server picks games back up
// on first contact.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	group  singleflight.Group
	store  store.Store
	clock  quartz.Clock
	logger *log.Logger
}

// NewRegistry creates a registry over the given store.
func NewRegistry(st store.Store, clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    st,
		clock:    clock,
		logger:   logger.WithPrefix("registry"),
	}
}

// Create makes a new session, assigns it a join code and persists the
// game row before anyone can see it.
func (r *Registry) Create(ctx context.Context, cfg game.Config) (*Session, error) {
	id := uuid.NewString()
	engine, err := game.New(id, cfg,
		game.WithLogger(r.logger.With("session", id)),
		game.WithClock(r.clock))
	if err != nil {
		return nil, err
	}

	var code string
	for attempt := 0; ; attempt++ {
		code = shortcode.Generate()
		err := r.store.CreateGame(ctx, store.GameRecord{
			SessionID: id,
			ShortCode: code,
			Config:    engine.Config(),
			CreatedAt: r.clock.Now(),
			UpdatedAt: r.clock.Now(),
		})
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrCodeTaken) && attempt < codeAttempts-1 {
			continue
		}
		return nil, err
	}

	sess := &Session{Engine: engine, Code: code}

	// The lobby snapshot is best effort. A crash before the first real
	// mutation just revives an empty lobby from the game row.
	if err := r.saveInitialSnapshot(ctx, sess); err != nil {
		r.logger.Warn("initial snapshot failed", "session", id, "error", err)
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	sessionsCreated.Inc()
	sessionsActive.Inc()
	r.logger.Info("session created", "session", id, "code", code,
		"mode", engine.Config().Mode, "seats", engine.Seats())
	return sess, nil
}

func (r *Registry) saveInitialSnapshot(ctx context.Context, sess *Session) error {
	state, err := sess.Engine.Snapshot()
	if err != nil {
		return err
	}
	return r.store.SaveSnapshot(ctx, store.SnapshotRecord{
		SessionID: sess.Engine.ID(),
		Revision:  sess.Engine.Revision(),
		Phase:     sess.Engine.State(),
		Reason:    "create",
		State:     state,
		SavedAt:   r.clock.Now(),
	})
}

// Get returns the session for an ID, reviving it from the store if it
// is not in memory. Concurrent revivals of the same session collapse
// into one load.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	v, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		return r.load(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) load(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	rec, err := r.store.GetGame(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.Errf(game.KindSessionNotFound, "session %s not found", sessionID)
	}
	if err != nil {
		return nil, err
	}

	engine, err := r.revive(ctx, rec)
	if err != nil {
		return nil, err
	}

	sess = &Session{Engine: engine, Code: rec.ShortCode}
	r.mu.Lock()
	r.sessions[sessionID] = sess
	r.mu.Unlock()

	sessionsActive.Inc()
	r.logger.Info("session revived", "session", sessionID, "code", rec.ShortCode,
		"phase", engine.State())
	return sess, nil
}

// revive rebuilds the engine from the latest snapshot, or from the game
// row alone when no snapshot ever landed.
func (r *Registry) revive(ctx context.Context, rec store.GameRecord) (*game.Engine, error) {
	opts := []game.Option{
		game.WithLogger(r.logger.With("session", rec.SessionID)),
		game.WithClock(r.clock),
	}

	snap, err := r.store.LoadSnapshot(ctx, rec.SessionID)
	switch {
	case err == nil:
		return game.Restore(snap.State, opts...)
	case errors.Is(err, store.ErrNotFound):
		engine, err := game.New(rec.SessionID, rec.Config, opts...)
		if err != nil {
			return nil, err
		}
		players, err := r.store.ListPlayers(ctx, rec.SessionID)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			if p.IsBot {
				continue
			}
			if _, err := engine.AddPlayer(p.PlayerID, p.Name, p.Seat); err != nil {
				return nil, err
			}
		}
		return engine, nil
	default:
		return nil, err
	}
}

// Resolve turns a session reference into a session. A reference is
// either the session ID or the join code; IDs win when both could
// match.
func (r *Registry) Resolve(ctx context.Context, ref string) (*Session, error) {
	sess, err := r.Get(ctx, ref)
	if err == nil {
		return sess, nil
	}
	if game.KindOf(err) != game.KindSessionNotFound {
		return nil, err
	}

	rec, err := r.store.GetGameByCode(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.Errf(game.KindSessionNotFound, "no session with id or code %q", ref)
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, rec.SessionID)
}

// Delete drops a session from memory and the store.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	_, loaded := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if loaded {
		sessionsActive.Dec()
	}
	if err := r.store.DeleteGame(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	r.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Evict drops a session from memory only, leaving the store alone. The
// next lookup revives it.
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	_, loaded := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if loaded {
		sessionsActive.Dec()
	}
}

// List summarizes the sessions currently in memory.
func (r *Registry) List() []SessionSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SessionSummary, 0, len(r.sessions))
	for id, sess := range r.sessions {
		out = append(out, SessionSummary{
			SessionID:    id,
			Code:         sess.Code,
			Phase:        sess.Engine.State(),
			Seats:        sess.Engine.Seats(),
			Seated:       len(sess.Engine.Players()),
			LastActivity: sess.Engine.LastActivity(),
		})
	}
	return out
}

// Store exposes the backing store for read paths that bypass the
// engine, like round history listings.
func (r *Registry) Store() store.Store {
	return r.store
}

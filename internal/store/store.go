// Package store persists sessions across restarts: the game row with
// its join code, the seated players, per-revision engine snapshots and
// the append-only round history. Three backends implement the same
// contract; memory for tests and ephemeral servers, sqlite for single
// node deployments, postgres for everything else.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/trickwire/twentyeight/internal/game"
)

var (
	// ErrNotFound reports a missing game, snapshot or code.
	ErrNotFound = errors.New("store: not found")

	// ErrCodeTaken reports a short code collision on game creation.
	// Callers generate a new code and retry.
	ErrCodeTaken = errors.New("store: short code taken")

	// ErrGameExists reports a duplicate session ID on game creation.
	ErrGameExists = errors.New("store: game already exists")
)

// GameRecord is one row of the games table.
type GameRecord struct {
	SessionID string      `json:"session_id"`
	ShortCode string      `json:"short_code"`
	Config    game.Config `json:"config"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SnapshotRecord is the serialized engine state at one revision. Phase
// and Reason are metadata for operators poking at the history; recovery
// only reads the State of the newest record. Saving a snapshot also
// bumps the game's updated_at, which is what the idle sweep keys on.
type SnapshotRecord struct {
	SessionID string     `json:"session_id"`
	Revision  uint64     `json:"revision"`
	Phase     game.State `json:"phase"`
	Reason    string     `json:"reason"`
	State     []byte     `json:"state"`
	SavedAt   time.Time  `json:"saved_at"`
}

// Store is the persistence contract. All timestamps are supplied by the
// caller so the registry's clock stays the single source of time.
type Store interface {
	// CreateGame inserts a new game row. Returns ErrGameExists on a
	// session ID collision and ErrCodeTaken on a short code collision.
	CreateGame(ctx context.Context, rec GameRecord) error

	// GetGame loads a game row by session ID.
	GetGame(ctx context.Context, sessionID string) (GameRecord, error)

	// GetGameByCode loads a game row by its join code.
	GetGameByCode(ctx context.Context, shortCode string) (GameRecord, error)

	// UpsertPlayer records a seated player, replacing any earlier row
	// for the same player ID. The first write fixes joined_at; later
	// writes keep it.
	UpsertPlayer(ctx context.Context, sessionID string, p game.PlayerInfo, joinedAt time.Time) error

	// ListPlayers returns the seated players ordered by seat.
	ListPlayers(ctx context.Context, sessionID string) ([]game.PlayerInfo, error)

	// SaveSnapshot stores one snapshot per engine revision and bumps the
	// game's updated_at to rec.SavedAt. Re-saving a revision overwrites
	// that revision only, so earlier snapshots stay available as history.
	SaveSnapshot(ctx context.Context, rec SnapshotRecord) error

	// LoadSnapshot returns the highest-revision snapshot for a session.
	LoadSnapshot(ctx context.Context, sessionID string) (SnapshotRecord, error)

	// ListSnapshots returns every retained snapshot ordered by revision.
	ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotRecord, error)

	// AppendRound appends one completed round. Appending the same round
	// number twice is a no-op, so replays after a crash are safe.
	AppendRound(ctx context.Context, sessionID string, rec game.RoundRecord) error

	// ListRounds returns the round history ordered by round number.
	ListRounds(ctx context.Context, sessionID string) ([]game.RoundRecord, error)

	// ListIdleGames returns session IDs not updated since the cutoff,
	// oldest first, at most limit of them.
	ListIdleGames(ctx context.Context, updatedBefore time.Time, limit int) ([]string, error)

	// DeleteGame removes a game and everything hanging off it.
	DeleteGame(ctx context.Context, sessionID string) error

	Close() error
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/trickwire/twentyeight/internal/game"
)

// Postgres persists sessions in a shared database, which is what lets
// several server instances serve the same fleet of games. Timestamps
// are stored as UTC millisecond integers, same as the sqlite backend.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects and ensures the schema exists.
func NewPostgres(dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Postgres{db: db}, nil
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS games (
    session_id TEXT PRIMARY KEY,
    short_code TEXT NOT NULL,
    config_json TEXT NOT NULL,
    created_at_ms BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_games_short_code ON games(short_code)`,
		`CREATE INDEX IF NOT EXISTS idx_games_updated ON games(updated_at_ms)`,
		`
CREATE TABLE IF NOT EXISTS players (
    session_id TEXT NOT NULL REFERENCES games(session_id) ON DELETE CASCADE,
    player_id TEXT NOT NULL,
    name TEXT NOT NULL,
    seat INTEGER NOT NULL,
    is_bot BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at_ms BIGINT NOT NULL,
    PRIMARY KEY (session_id, player_id)
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_players_seat ON players(session_id, seat)`,
		`
CREATE TABLE IF NOT EXISTS snapshots (
    session_id TEXT NOT NULL REFERENCES games(session_id) ON DELETE CASCADE,
    revision BIGINT NOT NULL,
    phase TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    state_json TEXT NOT NULL,
    saved_at_ms BIGINT NOT NULL,
    PRIMARY KEY (session_id, revision)
)`,
		`
CREATE TABLE IF NOT EXISTS round_history (
    session_id TEXT NOT NULL REFERENCES games(session_id) ON DELETE CASCADE,
    round_number INTEGER NOT NULL,
    dealer INTEGER NOT NULL,
    bid_winner INTEGER NOT NULL,
    bid_value INTEGER NOT NULL,
    trump TEXT NOT NULL,
    record_json TEXT NOT NULL,
    PRIMARY KEY (session_id, round_number)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Postgres) CreateGame(ctx context.Context, rec GameRecord) error {
	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO games (session_id, short_code, config_json, created_at_ms, updated_at_ms)
VALUES ($1, $2, $3, $4, $5)
`, rec.SessionID, rec.ShortCode, string(cfg), rec.CreatedAt.UTC().UnixMilli(), rec.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		switch uniqueViolationConstraint(err) {
		case "games_pkey":
			return ErrGameExists
		case "uq_games_short_code":
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (s *Postgres) GetGame(ctx context.Context, sessionID string) (GameRecord, error) {
	return s.getGame(ctx, `WHERE session_id = $1`, sessionID)
}

func (s *Postgres) GetGameByCode(ctx context.Context, shortCode string) (GameRecord, error) {
	return s.getGame(ctx, `WHERE short_code = $1`, shortCode)
}

func (s *Postgres) getGame(ctx context.Context, where, arg string) (GameRecord, error) {
	var (
		rec       GameRecord
		cfgJSON   string
		createdMs int64
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT session_id, short_code, config_json, created_at_ms, updated_at_ms
FROM games `+where, arg).Scan(&rec.SessionID, &rec.ShortCode, &cfgJSON, &createdMs, &updatedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GameRecord{}, ErrNotFound
		}
		return GameRecord{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return GameRecord{}, fmt.Errorf("decode game config: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return rec, nil
}

func (s *Postgres) UpsertPlayer(ctx context.Context, sessionID string, p game.PlayerInfo, joinedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO players (session_id, player_id, name, seat, is_bot, joined_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, player_id) DO UPDATE SET
    name = EXCLUDED.name,
    seat = EXCLUDED.seat,
    is_bot = EXCLUDED.is_bot
`, sessionID, p.PlayerID, p.Name, p.Seat, p.IsBot, joinedAt.UTC().UnixMilli())
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (s *Postgres) ListPlayers(ctx context.Context, sessionID string) ([]game.PlayerInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, name, seat, is_bot
FROM players
WHERE session_id = $1
ORDER BY seat
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.PlayerInfo
	for rows.Next() {
		var p game.PlayerInfo
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Seat, &p.IsBot); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveSnapshot(ctx context.Context, rec SnapshotRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	savedMs := rec.SavedAt.UTC().UnixMilli()
	res, err := tx.ExecContext(ctx, `
UPDATE games SET updated_at_ms = $1 WHERE session_id = $2
`, savedMs, rec.SessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO snapshots (session_id, revision, phase, reason, state_json, saved_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, revision) DO UPDATE SET
    phase = EXCLUDED.phase,
    reason = EXCLUDED.reason,
    state_json = EXCLUDED.state_json,
    saved_at_ms = EXCLUDED.saved_at_ms
`, rec.SessionID, rec.Revision, string(rec.Phase), rec.Reason, string(rec.State), savedMs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Postgres) LoadSnapshot(ctx context.Context, sessionID string) (SnapshotRecord, error) {
	var (
		rec     SnapshotRecord
		phase   string
		state   string
		savedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT session_id, revision, phase, reason, state_json, saved_at_ms
FROM snapshots
WHERE session_id = $1
ORDER BY revision DESC
LIMIT 1
`, sessionID).Scan(&rec.SessionID, &rec.Revision, &phase, &rec.Reason, &state, &savedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SnapshotRecord{}, ErrNotFound
		}
		return SnapshotRecord{}, err
	}
	rec.Phase = game.State(phase)
	rec.State = []byte(state)
	rec.SavedAt = time.UnixMilli(savedMs).UTC()
	return rec, nil
}

func (s *Postgres) ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, revision, phase, reason, state_json, saved_at_ms
FROM snapshots
WHERE session_id = $1
ORDER BY revision ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var (
			rec     SnapshotRecord
			phase   string
			state   string
			savedMs int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Revision, &phase, &rec.Reason, &state, &savedMs); err != nil {
			return nil, err
		}
		rec.Phase = game.State(phase)
		rec.State = []byte(state)
		rec.SavedAt = time.UnixMilli(savedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Postgres) AppendRound(ctx context.Context, sessionID string, rec game.RoundRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO round_history (session_id, round_number, dealer, bid_winner, bid_value, trump, record_json)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, round_number) DO NOTHING
`, sessionID, rec.Number, rec.Dealer, rec.BidWinner, rec.BidValue, rec.Trump.String(), string(payload))
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (s *Postgres) ListRounds(ctx context.Context, sessionID string) ([]game.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT record_json
FROM round_history
WHERE session_id = $1
ORDER BY round_number
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.RoundRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec game.RoundRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode round record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Postgres) ListIdleGames(ctx context.Context, updatedBefore time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id
FROM games
WHERE updated_at_ms < $1
ORDER BY updated_at_ms
LIMIT $2
`, updatedBefore.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteGame(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// uniqueViolationConstraint returns the violated constraint's name, or
// "" when err is not a postgres unique violation.
func uniqueViolationConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trickwire/twentyeight/internal/game"
)

// SQLite persists sessions in a single-file database. One connection,
// WAL mode. Timestamps are stored as UTC millisecond integers.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at dbPath. ":memory:" gives a
// throwaway database for tests.
func NewSQLite(dbPath string) (*SQLite, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS games (
    session_id TEXT PRIMARY KEY,
    short_code TEXT NOT NULL,
    config_json TEXT NOT NULL,
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_games_short_code ON games(short_code)`,
		`CREATE INDEX IF NOT EXISTS idx_games_updated ON games(updated_at_ms)`,
		`
CREATE TABLE IF NOT EXISTS players (
    session_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    name TEXT NOT NULL,
    seat INTEGER NOT NULL,
    is_bot INTEGER NOT NULL DEFAULT 0,
    joined_at_ms INTEGER NOT NULL,
    PRIMARY KEY (session_id, player_id),
    FOREIGN KEY(session_id) REFERENCES games(session_id) ON DELETE CASCADE
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_players_seat ON players(session_id, seat)`,
		`
CREATE TABLE IF NOT EXISTS snapshots (
    session_id TEXT NOT NULL,
    revision INTEGER NOT NULL,
    phase TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    state_json TEXT NOT NULL,
    saved_at_ms INTEGER NOT NULL,
    PRIMARY KEY (session_id, revision),
    FOREIGN KEY(session_id) REFERENCES games(session_id) ON DELETE CASCADE
)`,
		`
CREATE TABLE IF NOT EXISTS round_history (
    session_id TEXT NOT NULL,
    round_number INTEGER NOT NULL,
    dealer INTEGER NOT NULL,
    bid_winner INTEGER NOT NULL,
    bid_value INTEGER NOT NULL,
    trump TEXT NOT NULL,
    record_json TEXT NOT NULL,
    PRIMARY KEY (session_id, round_number),
    FOREIGN KEY(session_id) REFERENCES games(session_id) ON DELETE CASCADE
)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) CreateGame(ctx context.Context, rec GameRecord) error {
	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO games (session_id, short_code, config_json, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
`, rec.SessionID, rec.ShortCode, string(cfg), rec.CreatedAt.UTC().UnixMilli(), rec.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		if isSQLiteUniqueViolation(err, "games.session_id") {
			return ErrGameExists
		}
		if isSQLiteUniqueViolation(err, "games.short_code") {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (s *SQLite) GetGame(ctx context.Context, sessionID string) (GameRecord, error) {
	return s.getGame(ctx, `WHERE session_id = ?`, sessionID)
}

func (s *SQLite) GetGameByCode(ctx context.Context, shortCode string) (GameRecord, error) {
	return s.getGame(ctx, `WHERE short_code = ?`, shortCode)
}

func (s *SQLite) getGame(ctx context.Context, where, arg string) (GameRecord, error) {
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

func (s *SQLite) UpsertPlayer(ctx context.Context, sessionID string, p game.PlayerInfo, joinedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO players (session_id, player_id, name, seat, is_bot, joined_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, player_id) DO UPDATE SET
    name = excluded.name,
    seat = excluded.seat,
    is_bot = excluded.is_bot
`, sessionID, p.PlayerID, p.Name, p.Seat, boolToInt(p.IsBot), joinedAt.UTC().UnixMilli())
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return ErrNotFound
	}
	return err
}

func (s *SQLite) ListPlayers(ctx context.Context, sessionID string) ([]game.PlayerInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, name, seat, is_bot
FROM players
WHERE session_id = ?
ORDER BY seat
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.PlayerInfo
	for rows.Next() {
		var (
			p     game.PlayerInfo
			isBot int
		)
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Seat, &isBot); err != nil {
			return nil, err
		}
		p.IsBot = isBot != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveSnapshot(ctx context.Context, rec SnapshotRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	savedMs := rec.SavedAt.UTC().UnixMilli()
	res, err := tx.ExecContext(ctx, `
UPDATE games SET updated_at_ms = ? WHERE session_id = ?
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
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, revision) DO UPDATE SET
    phase = excluded.phase,
    reason = excluded.reason,
    state_json = excluded.state_json,
    saved_at_ms = excluded.saved_at_ms
`, rec.SessionID, rec.Revision, string(rec.Phase), rec.Reason, string(rec.State), savedMs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) LoadSnapshot(ctx context.Context, sessionID string) (SnapshotRecord, error) {
	var (
		rec     SnapshotRecord
		phase   string
		state   string
		savedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT session_id, revision, phase, reason, state_json, saved_at_ms
FROM snapshots
WHERE session_id = ?
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

func (s *SQLite) ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, revision, phase, reason, state_json, saved_at_ms
FROM snapshots
WHERE session_id = ?
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

func (s *SQLite) AppendRound(ctx context.Context, sessionID string, rec game.RoundRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO round_history (session_id, round_number, dealer, bid_winner, bid_value, trump, record_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, round_number) DO NOTHING
`, sessionID, rec.Number, rec.Dealer, rec.BidWinner, rec.BidValue, rec.Trump.String(), string(payload))
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return ErrNotFound
	}
	return err
}

func (s *SQLite) ListRounds(ctx context.Context, sessionID string) ([]game.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT record_json
FROM round_history
WHERE session_id = ?
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

func (s *SQLite) ListIdleGames(ctx context.Context, updatedBefore time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id
FROM games
WHERE updated_at_ms < ?
ORDER BY updated_at_ms
LIMIT ?
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

func (s *SQLite) DeleteGame(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE session_id = ?`, sessionID)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isSQLiteUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, constraint)
}

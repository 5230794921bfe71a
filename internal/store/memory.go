package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trickwire/twentyeight/internal/game"
)

// Memory keeps everything in maps. It backs tests and servers that can
// afford to lose sessions on restart.
type Memory struct {
	mu        sync.RWMutex
	games     map[string]GameRecord
	byCode    map[string]string
	players   map[string]map[string]playerRow
	snapshots map[string][]SnapshotRecord
	rounds    map[string][]game.RoundRecord
}

type playerRow struct {
	info     game.PlayerInfo
	joinedAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games:     make(map[string]GameRecord),
		byCode:    make(map[string]string),
		players:   make(map[string]map[string]playerRow),
		snapshots: make(map[string][]SnapshotRecord),
		rounds:    make(map[string][]game.RoundRecord),
	}
}

func (m *Memory) CreateGame(_ context.Context, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.SessionID]; ok {
		return ErrGameExists
	}
	if _, ok := m.byCode[rec.ShortCode]; ok {
		return ErrCodeTaken
	}
	m.games[rec.SessionID] = rec
	m.byCode[rec.ShortCode] = rec.SessionID
	return nil
}

func (m *Memory) GetGame(_ context.Context, sessionID string) (GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[sessionID]
	if !ok {
		return GameRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) GetGameByCode(_ context.Context, shortCode string) (GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[shortCode]
	if !ok {
		return GameRecord{}, ErrNotFound
	}
	return m.games[id], nil
}

func (m *Memory) UpsertPlayer(_ context.Context, sessionID string, p game.PlayerInfo, joinedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[sessionID]; !ok {
		return ErrNotFound
	}
	seats, ok := m.players[sessionID]
	if !ok {
		seats = make(map[string]playerRow)
		m.players[sessionID] = seats
	}
	if prev, ok := seats[p.PlayerID]; ok {
		joinedAt = prev.joinedAt
	}
	seats[p.PlayerID] = playerRow{info: p, joinedAt: joinedAt}
	return nil
}

func (m *Memory) ListPlayers(_ context.Context, sessionID string) ([]game.PlayerInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.PlayerInfo, 0, len(m.players[sessionID]))
	for _, row := range m.players[sessionID] {
		out = append(out, row.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, rec SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gameRec, ok := m.games[rec.SessionID]
	if !ok {
		return ErrNotFound
	}
	rec.State = append([]byte(nil), rec.State...)
	snaps := m.snapshots[rec.SessionID]
	replaced := false
	for i := range snaps {
		if snaps[i].Revision == rec.Revision {
			snaps[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		snaps = append(snaps, rec)
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Revision < snaps[j].Revision })
	}
	m.snapshots[rec.SessionID] = snaps
	gameRec.UpdatedAt = rec.SavedAt
	m.games[rec.SessionID] = gameRec
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context, sessionID string) (SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots[sessionID]
	if len(snaps) == 0 {
		return SnapshotRecord{}, ErrNotFound
	}
	rec := snaps[len(snaps)-1]
	rec.State = append([]byte(nil), rec.State...)
	return rec, nil
}

func (m *Memory) ListSnapshots(_ context.Context, sessionID string) ([]SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SnapshotRecord
	for _, rec := range m.snapshots[sessionID] {
		rec.State = append([]byte(nil), rec.State...)
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) AppendRound(_ context.Context, sessionID string, rec game.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[sessionID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.rounds[sessionID] {
		if existing.Number == rec.Number {
			return nil
		}
	}
	m.rounds[sessionID] = append(m.rounds[sessionID], rec)
	return nil
}

func (m *Memory) ListRounds(_ context.Context, sessionID string) ([]game.RoundRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]game.RoundRecord(nil), m.rounds[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) ListIdleGames(_ context.Context, updatedBefore time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type idle struct {
		id string
		at time.Time
	}
	var idles []idle
	for id, rec := range m.games {
		if rec.UpdatedAt.Before(updatedBefore) {
			idles = append(idles, idle{id: id, at: rec.UpdatedAt})
		}
	}
	sort.Slice(idles, func(i, j int) bool { return idles[i].at.Before(idles[j].at) })
	var out []string
	for i, v := range idles {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, v.id)
	}
	return out, nil
}

func (m *Memory) DeleteGame(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[sessionID]
	if !ok {
		return ErrNotFound
	}
	delete(m.byCode, rec.ShortCode)
	delete(m.games, sessionID)
	delete(m.players, sessionID)
	delete(m.snapshots, sessionID)
	delete(m.rounds, sessionID)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

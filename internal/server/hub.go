package server

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/trickwire/twentyeight/internal/game"
)

// Hub tracks which connections subscribe to which session and fans
// state snapshots out to them. Every subscriber gets its own snapshot
// because each sees a different hand.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Connection]struct{}
	logger   *log.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Connection]struct{}),
		logger:   logger.WithPrefix("hub"),
	}
}

// Subscribe registers a connection under its session.
func (h *Hub) Subscribe(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.sessions[c.SessionID()]
	if !ok {
		conns = make(map[*Connection]struct{})
		h.sessions[c.SessionID()] = conns
	}
	conns[c] = struct{}{}
}

// Unsubscribe removes a connection. The last subscriber of a session
// takes the session's map entry with it.
func (h *Hub) Unsubscribe(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.sessions[c.SessionID()]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.sessions, c.SessionID())
	}
}

// Broadcast sends every subscriber of the engine's session a snapshot
// tailored to its seat. Connections that cannot keep up are closed
// rather than allowed to stall the rest.
func (h *Hub) Broadcast(e *game.Engine) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.sessions[e.ID()]))
	for c := range h.sessions[e.ID()] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	broadcastFanout.Observe(float64(len(conns)))

	var stalled []*Connection
	for _, c := range conns {
		msg, err := NewStateMessage(e, c.Seat())
		if err != nil {
			h.logger.Error("failed to build snapshot", "session", e.ID(), "error", err)
			continue
		}
		if err := c.Send(msg); err != nil {
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		h.logger.Warn("closing stalled connection", "session", c.SessionID(), "seat", c.Seat())
		c.Close()
	}
}

// CloseSession closes every subscriber of a session. Used when the
// session itself goes away.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// CloseAll closes every subscriber of every session. Shutdown calls
// this before the HTTP server drains so WebSockets do not hold it open.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var conns []*Connection
	for _, set := range h.sessions {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// Count reports the number of subscribers of one session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/trickwire/twentyeight/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Buffer size for outbound messages
	sendBufferSize = 256
)

// Connection is one WebSocket subscriber of one session. It starts
// anonymous; an identify message binds it to a seat, which is what
// entitles it to that seat's hand in snapshots.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	sessionID string
	logger    *log.Logger

	mu       sync.RWMutex
	seat     int
	playerID string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded WebSocket for one session.
func NewConnection(conn *websocket.Conn, server *Server, sessionID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:      conn,
		send:      make(chan *Message, sendBufferSize),
		server:    server,
		sessionID: sessionID,
		seat:      -1,
		logger: server.logger.WithPrefix("conn").With(
			"session", sessionID,
			"remote", conn.RemoteAddr().String()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Seat returns the bound seat, or -1 while anonymous.
func (c *Connection) Seat() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seat
}

// PlayerID returns the bound player ID, or "" while anonymous.
func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SessionID returns the session this connection subscribed to.
func (c *Connection) SessionID() string {
	return c.sessionID
}

func (c *Connection) bind(seat int, playerID string) {
	c.mu.Lock()
	c.seat = seat
	c.playerID = playerID
	c.mu.Unlock()
}

// Send queues a message without blocking. A full buffer means the
// client is not draining; the caller decides whether to drop it.
func (c *Connection) Send(msg *Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("connection closed")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close tears the connection down exactly once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.server.hub.Unsubscribe(c)
		_ = c.conn.Close()
		connectionsActive.Dec()
		c.logger.Debug("connection closed")
	})
}

// readPump reads messages from the WebSocket until the peer goes away.
// There is exactly one reader per connection.
func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump writes queued messages and keeps the connection alive with
// pings. There is exactly one writer per connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// A queued run of snapshots collapses to the newest one.
			// Anything the client would learn from the skipped ones is
			// already in the final state.
		collapse:
			for message.Type == MessageTypeStateSnapshot {
				select {
				case next, ok := <-c.send:
					if !ok {
						break collapse
					}
					if next.Type == MessageTypeStateSnapshot {
						message = next
						continue
					}
					if err := c.conn.WriteJSON(message); err != nil {
						return
					}
					message = next
					break collapse
				default:
					break collapse
				}
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one inbound message. Malformed payloads get
// an error envelope; everything else flows through the dispatcher.
func (c *Connection) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeIdentify:
		var payload IdentifyPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(fmt.Sprintf("invalid identify payload: %v", err))
			return
		}
		c.handleIdentify(payload)

	case MessageTypeRequestState:
		c.sendState()

	case MessageTypePlaceBid:
		var payload PlaceBidPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(fmt.Sprintf("invalid place_bid payload: %v", err))
			return
		}
		value := game.Pass
		if payload.Value != nil {
			value = *payload.Value
		}
		c.submit("place_bid", func() error {
			return c.server.dispatcher.PlaceBid(c.ctx, c.sessionID, payload.Seat, value)
		})

	case MessageTypeChooseTrump:
		var payload ChooseTrumpPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(fmt.Sprintf("invalid choose_trump payload: %v", err))
			return
		}
		c.submit("choose_trump", func() error {
			return c.server.dispatcher.ChooseTrump(c.ctx, c.sessionID, payload.Seat, payload.Suit)
		})

	case MessageTypePlayCard:
		var payload PlayCardPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(fmt.Sprintf("invalid play_card payload: %v", err))
			return
		}
		c.submit("play_card", func() error {
			return c.server.dispatcher.PlayCard(c.ctx, c.sessionID, payload.Seat, payload.CardID)
		})

	case MessageTypeRevealTrump:
		var payload RevealTrumpPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(fmt.Sprintf("invalid reveal_trump payload: %v", err))
			return
		}
		c.submit("reveal_trump", func() error {
			return c.server.dispatcher.RevealTrump(c.ctx, c.sessionID, payload.Seat)
		})

	default:
		c.sendError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// handleIdentify binds the connection to a seat after checking the
// claimed player actually sits there. Re-identifying rebinds, which is
// how a client that reconnected or switched seats recovers.
func (c *Connection) handleIdentify(payload IdentifyPayload) {
	sess, err := c.server.registry.Get(c.ctx, c.sessionID)
	if err != nil {
		c.sendResult(MessageTypeActionFailed, "identify", game.KindOf(err), err.Error())
		return
	}

	var seated *game.PlayerInfo
	for _, p := range sess.Engine.Players() {
		if p.Seat == payload.Seat {
			seated = &p
			break
		}
	}
	if seated == nil {
		c.sendResult(MessageTypeActionFailed, "identify", game.KindInvalidValue,
			fmt.Sprintf("no player at seat %d", payload.Seat))
		return
	}
	if seated.PlayerID != payload.PlayerID {
		c.sendResult(MessageTypeActionFailed, "identify", game.KindInvalidValue,
			fmt.Sprintf("player %q does not sit at seat %d", payload.PlayerID, payload.Seat))
		return
	}

	c.bind(payload.Seat, payload.PlayerID)
	c.logger.Info("connection identified", "seat", payload.Seat, "player", payload.PlayerID)
	c.sendResult(MessageTypeActionOK, "identify", "", fmt.Sprintf("bound to seat %d", payload.Seat))
	c.sendState()
}

// submit runs one dispatcher call and reports its outcome to this
// connection only. Accepted actions also reach everyone through the
// broadcast the dispatcher triggers.
func (c *Connection) submit(action string, call func() error) {
	err := call()
	switch {
	case err == nil:
		c.sendResult(MessageTypeActionOK, action, "", "accepted")
	case errors.Is(err, errStructural):
		c.sendError(err.Error())
	default:
		kind := game.KindOf(err)
		if kind == "" {
			c.logger.Error("action failed internally", "action", action, "error", err)
			c.sendError("internal error")
			return
		}
		c.sendResult(MessageTypeActionFailed, action, kind, err.Error())
	}
}

// sendState pushes a snapshot tailored to this connection's binding.
func (c *Connection) sendState() {
	sess, err := c.server.registry.Get(c.ctx, c.sessionID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	msg, err := NewStateMessage(sess.Engine, c.Seat())
	if err != nil {
		c.logger.Error("failed to build state snapshot", "error", err)
		return
	}
	if err := c.Send(msg); err != nil {
		c.logger.Warn("dropping slow connection", "error", err)
		c.Close()
	}
}

func (c *Connection) sendResult(msgType MessageType, action string, kind game.Kind, text string) {
	msg, err := NewMessage(msgType, ActionResultPayload{
		Action:  action,
		Code:    string(kind),
		Message: text,
	})
	if err != nil {
		c.logger.Error("failed to build result message", "error", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) sendError(text string) {
	msg, err := NewMessage(MessageTypeError, ErrorPayload{Message: text})
	if err != nil {
		c.logger.Error("failed to build error message", "error", err)
		return
	}
	_ = c.Send(msg)
}

package server

import (
	"encoding/json"
	"fmt"

	"github.com/trickwire/twentyeight/internal/deck"
	"github.com/trickwire/twentyeight/internal/game"
)

// Message is the duplex WebSocket envelope. Both directions use the
// same shape: a type tag and a payload object.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a message with the given type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message payload: %w", err)
		}
		raw = data
	}
	return &Message{Type: msgType, Payload: raw}, nil
}

// ParsePayload unmarshals the message payload into the provided struct
func (m *Message) ParsePayload(v interface{}) error {
	if m.Payload == nil {
		return fmt.Errorf("message has no payload")
	}
	return json.Unmarshal(m.Payload, v)
}

// IdentifyPayload binds a connection to a seat. Re-sending rebinds,
// which is how a reconnecting client recovers its private view.
type IdentifyPayload struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
}

// PlaceBidPayload carries a bid. A null or negative value means pass.
type PlaceBidPayload struct {
	Seat  int  `json:"seat"`
	Value *int `json:"value"`
}

// ChooseTrumpPayload names the concealed suit, as a glyph ("♠").
type ChooseTrumpPayload struct {
	Seat int    `json:"seat"`
	Suit string `json:"suit"`
}

// PlayCardPayload plays one card by its ID, e.g. "J♣#1".
type PlayCardPayload struct {
	Seat   int    `json:"seat"`
	CardID string `json:"card_id"`
}

// RevealTrumpPayload is an explicit reveal request by the seat to act.
type RevealTrumpPayload struct {
	Seat int `json:"seat"`
}

// ActionResultPayload reports the outcome of a submitted action. Code
// is the stable rejection kind, empty on action_ok.
type ActionResultPayload struct {
	Action  string `json:"action"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorPayload reports a structurally invalid message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// StateSnapshotPayload is the public state, plus the private fields a
// subscriber is entitled to once identified: its own hand and, on its
// turn, the legally playable card IDs. Nobody ever receives another
// seat's hand, the undealt deck, or the kitty.
type StateSnapshotPayload struct {
	game.PublicState
	OwnerSeat *int        `json:"owner_seat,omitempty"`
	OwnerHand []deck.Card `json:"owner_hand,omitempty"`
	Playable  []string    `json:"playable,omitempty"`
}

// stateFor tailors a snapshot payload to one seat. ownerSeat < 0 means
// an unidentified viewer and yields a purely public payload. REST and
// the websocket path share this so the two surfaces can never drift.
func stateFor(e *game.Engine, ownerSeat int) StateSnapshotPayload {
	payload := StateSnapshotPayload{PublicState: e.PublicState()}
	if ownerSeat >= 0 && ownerSeat < payload.Seats {
		seat := ownerSeat
		payload.OwnerSeat = &seat
		payload.OwnerHand = e.HandFor(seat)
		payload.Playable = e.PlayableFor(seat)
	}
	return payload
}

// NewStateMessage builds a state_snapshot tailored to one subscriber.
func NewStateMessage(e *game.Engine, ownerSeat int) (*Message, error) {
	return NewMessage(MessageTypeStateSnapshot, stateFor(e, ownerSeat))
}

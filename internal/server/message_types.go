package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeIdentify     MessageType = "identify"
	MessageTypeRequestState MessageType = "request_state"
	MessageTypePlaceBid     MessageType = "place_bid"
	MessageTypeChooseTrump  MessageType = "choose_trump"
	MessageTypePlayCard     MessageType = "play_card"
	MessageTypeRevealTrump  MessageType = "reveal_trump"

	// Server to client messages
	MessageTypeStateSnapshot MessageType = "state_snapshot"
	MessageTypeActionOK      MessageType = "action_ok"
	MessageTypeActionFailed  MessageType = "action_failed"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

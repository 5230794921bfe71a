package game

import (
	"errors"
	"fmt"
)

// Kind classifies an engine rejection. The values are stable and cross
// the wire verbatim so clients can branch on them.
type Kind string

const (
	KindWrongState           Kind = "WRONG_STATE"
	KindNotYourTurn          Kind = "NOT_YOUR_TURN"
	KindNotBidWinner         Kind = "NOT_BID_WINNER"
	KindInvalidValue         Kind = "INVALID_VALUE"
	KindBidTooLow            Kind = "BID_TOO_LOW"
	KindMustFollowSuit       Kind = "MUST_FOLLOW_SUIT"
	KindCardNotInHand        Kind = "CARD_NOT_IN_HAND"
	KindTrumpAlreadyRevealed Kind = "TRUMP_ALREADY_REVEALED"
	KindDuplicateAction      Kind = "DUPLICATE_ACTION"
	KindAlreadyActed         Kind = "ALREADY_ACTED"
	KindSessionFull          Kind = "SESSION_FULL"
	KindSessionNotFound      Kind = "SESSION_NOT_FOUND"
)

// Error is a rejected operation. The engine never partially applies a
// mutation that returns one of these.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errf builds an Error with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an engine error. Non-engine errors
// report an empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

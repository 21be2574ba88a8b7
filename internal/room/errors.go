package room

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed    = errors.New("peer session closed")
	ErrSessionNotFound  = errors.New("no session for participant")
	ErrBadNegotiation   = errors.New("unexpected negotiation state")
	ErrMediaUnavailable = errors.New("local media unavailable")
	ErrLeft             = errors.New("room session already left")
)

// RoomError wraps a failure with the operation and the remote participant it
// concerned. Negotiation failures stay scoped to one participant.
type RoomError struct {
	Op          string
	Participant string
	Err         error
}

func (e *RoomError) Error() string {
	if e.Participant != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Participant, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *RoomError {
	return &RoomError{Op: op, Err: err}
}

func NewPeerError(op, participant string, err error) *RoomError {
	return &RoomError{Op: op, Participant: participant, Err: err}
}

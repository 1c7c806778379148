package session

import (
	"fmt"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/go-faster/errors"
)

var (
	ErrUnexpectedKind = errors.New("unexpected kind")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrNotConnecting  = errors.New("not connecting")
	ErrAlreadyRunning = errors.New("already connecting or connected")
)

// ProtocolStateError is returned when the server sends something that is not
// valid in the current state. It means client and server disagree about the
// protocol and is always fatal.
type ProtocolStateError struct {
	State State
	Kind  protocol.Kind
	Err   error
}

func (e *ProtocolStateError) Error() string {
	return fmt.Sprintf("protocol state %s, kind %s: %v", e.State, e.Kind, e.Err)
}

func (e *ProtocolStateError) Unwrap() error {
	return e.Err
}

// Rejection is an expected, server initiated disconnect.
type Rejection struct {
	Reason DisconnectReason
	// Kick is set when Reason is ReasonKicked.
	Kick protocol.KickReason
}

func (e *Rejection) Error() string {
	if e.Reason == ReasonKicked {
		return fmt.Sprintf("rejected by server: kicked (%s)", e.Kick)
	}
	return fmt.Sprintf("rejected by server: %s", e.Reason)
}

package transport

import (
	"fmt"

	"github.com/go-faster/errors"
)

var ErrClosed = errors.New("transport closed")

// TransportError is a failure of the underlying connection: dial, read or
// write. It always ends the connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

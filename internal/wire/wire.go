// Package wire converts a complete, already framed payload to and from the
// primitive field types of the game protocol. It does no I/O and keeps no
// state beyond the cursor position.
package wire

import (
	"encoding/hex"

	"github.com/go-faster/errors"
)

var (
	ErrUnexpectedEndOfPayload = errors.New("unexpected end of payload")
	ErrInvalidEncoding        = errors.New("invalid utf-8 encoding")
	ErrStringTooLong          = errors.New("string too long")
)

const (
	MaxShortString = 1<<8 - 1
	MaxLongString  = 1<<16 - 1
)

// DigestSize is the size of md5 digests (map checksums) and of the protocol
// id.
const DigestSize = 16

type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Width is the size of the raw integer behind a fixed-point field.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
)

func (w Width) max() uint16 {
	if w == Width8 {
		return 1<<8 - 1
	}
	return 1<<16 - 1
}

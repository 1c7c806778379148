package protocol

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrUnsupportedKind  = errors.New("unsupported kind")
	ErrInvalidEnumValue = errors.New("invalid enum value")
	ErrTrailingBytes    = errors.New("trailing bytes after message")
	ErrPluginCount      = errors.New("plugin count does not match plugin list")
	ErrPluginName       = errors.New("plugin name is empty or contains a comma")
	ErrShape            = errors.New("per-player field length does not match player count")
	ErrUnsafeMapName    = errors.New("unsafe map name")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// EnumError reports an enum-valued byte outside of its closed range.
type EnumError struct {
	Enum  string
	Value uint8
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("invalid %s value %d", e.Enum, e.Value)
}

func (e *EnumError) Unwrap() error {
	return ErrInvalidEnumValue
}

// DecodeError is returned for any payload that could not be turned into a
// typed message. Framing trust is lost after one, so it is fatal for the
// connection.
type DecodeError struct {
	Side Side
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s %s: %v", e.Side, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FramingError is returned when the stream could not be split into frames.
type FramingError struct {
	Err error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing: %v", e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

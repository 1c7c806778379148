package protocol

import (
	"io"

	"github.com/blukai/gangnet/internal/byteorder"
	"github.com/go-faster/errors"
)

const (
	// FrameHeaderSize is the size of the length prefix of stream frames.
	FrameHeaderSize = 4
	// MaxFrameSize bounds the length prefix, kind byte included. It fits the
	// largest message the codec produces: a full update of 255 players, and
	// comfortably a long string of 65535 bytes.
	MaxFrameSize = 1 << 18
)

// AppendFrame appends length ++ kind ++ payload to dst.
func AppendFrame(dst []byte, kind Kind, payload []byte) ([]byte, error) {
	length := 1 + len(payload)
	if length > MaxFrameSize {
		return dst, errors.Wrapf(ErrFrameTooLarge, "%d bytes", length)
	}
	dst = byteorder.AppendHtonl(dst, uint32(length))
	dst = append(dst, byte(kind))
	return append(dst, payload...), nil
}

// WriteFrame writes a single frame with one call to w.Write.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	buf, err := AppendFrame(make([]byte, 0, FrameHeaderSize+1+len(payload)), kind, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame reads the next frame from r. io.EOF is returned as is when r ends
// on a frame boundary. A stream ending mid-frame or carrying an out of range
// length is reported as *FramingError; other read errors pass through.
func ReadFrame(r io.Reader) (Kind, []byte, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, &FramingError{Err: err}
		}
		return 0, nil, err
	}

	length := byteorder.Ntohl(header[:])
	if length == 0 {
		return 0, nil, &FramingError{Err: errors.New("empty frame")}
	}
	if length > MaxFrameSize {
		return 0, nil, &FramingError{Err: errors.Wrapf(ErrFrameTooLarge, "%d bytes", length)}
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, &FramingError{Err: io.ErrUnexpectedEOF}
		}
		return 0, nil, err
	}
	return Kind(buf[0]), buf[1:], nil
}

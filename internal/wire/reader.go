package wire

import (
	"math"
	"unicode/utf8"

	"github.com/blukai/gangnet/internal/byteorder"
	"github.com/blukai/gangnet/internal/zigzag"
	"github.com/go-faster/errors"
)

// Reader is a cursor over a payload. Slices handed out by ReadN and
// ReadDigest reference the payload, nothing is copied.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// ReadN reads a raw run of n bytes.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, ErrUnexpectedEndOfPayload
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrUnexpectedEndOfPayload
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadN(2)
	if err != nil {
		return 0, err
	}
	return byteorder.Ntohs(b), nil
}

// ReadBool treats any nonzero byte as true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) readRaw(width Width) (uint16, error) {
	if width == Width8 {
		b, err := r.ReadU8()
		return uint16(b), err
	}
	return r.ReadU16()
}

// ReadFixedPoint reads an unsigned raw integer of the given width and returns
// raw / 2^scale.
func (r *Reader) ReadFixedPoint(width Width, scale uint8) (float64, error) {
	raw, err := r.readRaw(width)
	if err != nil {
		return 0, err
	}
	return math.Ldexp(float64(raw), -int(scale)), nil
}

// ReadSignedFixedPoint is ReadFixedPoint for fields whose raw integer is
// zigzag mapped.
func (r *Reader) ReadSignedFixedPoint(width Width, scale uint8) (float64, error) {
	raw, err := r.readRaw(width)
	if err != nil {
		return 0, err
	}
	var n int
	if width == Width8 {
		n = int(zigzag.Decode8(uint8(raw)))
	} else {
		n = int(zigzag.Decode16(raw))
	}
	return math.Ldexp(float64(n), -int(scale)), nil
}

func (r *Reader) readString(n int) (string, error) {
	b, err := r.ReadN(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidEncoding
	}
	return string(b), nil
}

// ReadShortString reads a string with a 1 byte length prefix.
func (r *Reader) ReadShortString() (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	return r.readString(int(n))
}

// ReadLongString reads a string with a 2 byte length prefix.
func (r *Reader) ReadLongString() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	return r.readString(int(n))
}

func (r *Reader) ReadDigest() (Digest, error) {
	var d Digest
	b, err := r.ReadN(DigestSize)
	if err != nil {
		return d, errors.Wrap(err, "digest")
	}
	copy(d[:], b)
	return d, nil
}

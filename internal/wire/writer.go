package wire

import (
	"math"

	"github.com/blukai/gangnet/internal/byteorder"
	"github.com/blukai/gangnet/internal/zigzag"
)

// Writer appends fields to a growing buffer. Only length-prefixed strings can
// fail to encode.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded payload. It is valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteN(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = byteorder.AppendHtons(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) writeRaw(width Width, raw uint16) {
	if width == Width8 {
		w.WriteU8(uint8(raw))
	} else {
		w.WriteU16(raw)
	}
}

// WriteFixedPoint writes round(v * 2^scale), saturated to the width's range.
func (w *Writer) WriteFixedPoint(width Width, scale uint8, v float64) {
	raw := math.Round(math.Ldexp(v, int(scale)))
	switch {
	case math.IsNaN(raw) || raw < 0:
		raw = 0
	case raw > float64(width.max()):
		raw = float64(width.max())
	}
	w.writeRaw(width, uint16(raw))
}

// WriteSignedFixedPoint writes round(v * 2^scale) zigzag mapped, saturated to
// the signed range of the width.
func (w *Writer) WriteSignedFixedPoint(width Width, scale uint8, v float64) {
	raw := math.Round(math.Ldexp(v, int(scale)))
	lo, hi := float64(math.MinInt16), float64(math.MaxInt16)
	if width == Width8 {
		lo, hi = math.MinInt8, math.MaxInt8
	}
	switch {
	case math.IsNaN(raw):
		raw = 0
	case raw < lo:
		raw = lo
	case raw > hi:
		raw = hi
	}
	if width == Width8 {
		w.WriteU8(zigzag.Encode8(int8(raw)))
	} else {
		w.WriteU16(zigzag.Encode16(int16(raw)))
	}
}

// WriteShortString writes s with a 1 byte length prefix.
func (w *Writer) WriteShortString(s string) error {
	if len(s) > MaxShortString {
		return ErrStringTooLong
	}
	w.WriteU8(uint8(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// WriteLongString writes s with a 2 byte length prefix.
func (w *Writer) WriteLongString(s string) error {
	if len(s) > MaxLongString {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

func (w *Writer) WriteDigest(d Digest) {
	w.buf = append(w.buf, d[:]...)
}

package byteorder

import (
	"encoding/binary"
)

// https://linux.die.net/man/3/ntohs
//
// everything that crosses the wire (frame length prefix, u16 fields) is in
// network byte order.

// decrypt names:
// h  = host
// n  = network
// s  = short     = 16 bit
// l  = long      = 32 bit

// AppendHtonl appends val in network order to dst and returns the extended
// buffer.
func AppendHtonl(dst []byte, val uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, val)
}

// AppendHtons appends val in network order to dst and returns the extended
// buffer.
func AppendHtons(dst []byte, val uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, val)
}

func Ntohl(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

func Ntohs(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

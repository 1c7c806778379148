package zigzag

// NOTE(blukai): this is stolen from valve's tier1/bitbuf.h

// ZigZag Transform: maps signed integers to unsigned ones so that values with
// a small magnitude stay small. Velocities travel as unsigned fixed-point raw
// values on the wire, the zigzag mapping is what lets them be negative.
//
//	int8 ->  uint8
//	-------------
//	   0 ->    0
//	  -1 ->    1
//	   1 ->    2
//	  -2 ->    3
//	 ... ->  ...
//	 127 ->  254
//	-128 ->  255
//
//	>> encode >>
//	<< decode <<

func Encode8(n int8) uint8 {
	return uint8((n << 1) ^ (n >> 7))
}

func Decode8(n uint8) int8 {
	return int8(n>>1) ^ -int8(n&1)
}

func Encode16(n int16) uint16 {
	return uint16((n << 1) ^ (n >> 15))
}

func Decode16(n uint16) int16 {
	return int16(n>>1) ^ -int16(n&1)
}

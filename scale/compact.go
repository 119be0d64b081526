package scale

import (
	"encoding/binary"
	"math/big"
)

// Compact integer modes, selected by the two low bits of the first byte:
//
//	0b00 single byte, value in the upper six bits
//	0b01 two bytes, 14 bit value
//	0b10 four bytes, 30 bit value
//	0b11 big integer, upper six bits + 4 = number of following bytes
const (
	maxSingleMode   = 1<<6 - 1
	maxTwoByteMode  = 1<<14 - 1
	maxFourByteMode = 1<<30 - 1
)

// AppendCompact appends the minimal compact encoding of v.
func AppendCompact(dst []byte, v uint64) []byte {
	switch {
	case v <= maxSingleMode:
		return append(dst, byte(v)<<2)
	case v <= maxTwoByteMode:
		return binary.LittleEndian.AppendUint16(dst, uint16(v)<<2|0b01)
	case v <= maxFourByteMode:
		return binary.LittleEndian.AppendUint32(dst, uint32(v)<<2|0b10)
	}
	n := 8
	for v>>(8*(n-1)) == 0 {
		n--
	}
	dst = append(dst, byte(n-4)<<2|0b11)
	for i := 0; i < n; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// EncodeCompact returns the compact encoding of v.
func EncodeCompact(v uint64) []byte {
	return AppendCompact(nil, v)
}

// AppendCompactBig appends the compact encoding of a non-negative integer of
// up to 536 bits.
func AppendCompactBig(dst []byte, v *big.Int) ([]byte, error) {
	if v.Sign() < 0 {
		return dst, ErrCompactOverflow
	}
	if v.IsUint64() {
		return AppendCompact(dst, v.Uint64()), nil
	}
	be := v.Bytes()
	n := len(be)
	if n > 67 {
		return dst, ErrCompactOverflow
	}
	dst = append(dst, byte(n-4)<<2|0b11)
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, be[i])
	}
	return dst, nil
}

// CompactLen returns the length of the compact encoding of v.
func CompactLen(v uint64) int {
	switch {
	case v <= maxSingleMode:
		return 1
	case v <= maxTwoByteMode:
		return 2
	case v <= maxFourByteMode:
		return 4
	}
	n := 8
	for v>>(8*(n-1)) == 0 {
		n--
	}
	return 1 + n
}

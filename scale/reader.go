package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"unicode/utf8"
)

// Reader is a forward-only cursor over SCALE encoded bytes. Reader errors
// are bare sentinels; the type-aware decoder attaches the type id.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Read returns the next n bytes. The result aliases the input.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: 0x%02x", ErrBadBool, b)
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadUint128 reads a 16 byte little-endian unsigned integer.
func (r *Reader) ReadUint128() (*big.Int, error) {
	b, err := r.Read(16)
	if err != nil {
		return nil, err
	}
	return leToBig(b), nil
}

// ReadInt128 reads a 16 byte little-endian two's complement integer.
func (r *Reader) ReadInt128() (*big.Int, error) {
	b, err := r.Read(16)
	if err != nil {
		return nil, err
	}
	v := leToBig(b)
	if b[15]&0x80 != 0 {
		v.Sub(v, two128)
	}
	return v, nil
}

// ReadCompact reads a compact integer that fits in 64 bits.
func (r *Reader) ReadCompact() (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b & 0b11 {
	case 0b00:
		return uint64(b >> 2), nil
	case 0b01:
		n, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v := uint64(b)>>2 | uint64(n)<<6
		if v <= maxSingleMode {
			return 0, ErrNonCanonical
		}
		return v, nil
	case 0b10:
		rest, err := r.Read(3)
		if err != nil {
			return 0, err
		}
		v := (uint64(b) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24) >> 2
		if v <= maxTwoByteMode {
			return 0, ErrNonCanonical
		}
		return v, nil
	}
	n := int(b>>2) + 4
	if n > 8 {
		return 0, ErrCompactOverflow
	}
	raw, err := r.Read(n)
	if err != nil {
		return 0, err
	}
	if raw[n-1] == 0 {
		return 0, ErrNonCanonical
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	if v <= maxFourByteMode {
		return 0, ErrNonCanonical
	}
	return v, nil
}

// ReadCompactBig reads a compact integer of any width.
func (r *Reader) ReadCompactBig() (*big.Int, error) {
	if r.Remaining() < 1 {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off]
	if b&0b11 != 0b11 || int(b>>2)+4 <= 8 {
		v, err := r.ReadCompact()
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(v), nil
	}
	r.off++
	n := int(b>>2) + 4
	raw, err := r.Read(n)
	if err != nil {
		return nil, err
	}
	if raw[n-1] == 0 {
		return nil, ErrNonCanonical
	}
	return leToBig(raw), nil
}

// ReadBytes reads a compact length prefixed byte string.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadCompact()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ErrShortBuffer
	}
	return r.Read(int(n))
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

func leToBig(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

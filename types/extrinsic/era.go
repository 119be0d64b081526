package extrinsic

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

const (
	minPeriod = 4
	maxPeriod = 1 << 16
)

// Era is the validity window of a transaction. A zero Period means the
// transaction is immortal.
type Era struct {
	Period uint64
	Phase  uint64
}

func Immortal() Era { return Era{} }

// Mortal returns an era starting at block current and lasting at least
// period blocks. The period is rounded up to a power of two in [4, 65536]
// and the phase quantized the way the runtime encodes it.
func Mortal(period, current uint64) Era {
	p := uint64(maxPeriod)
	if period <= maxPeriod {
		p = 1
		for p < period {
			p <<= 1
		}
	}
	if p < minPeriod {
		p = minPeriod
	}
	phase := current % p
	q := quantize(p)
	return Era{Period: p, Phase: phase / q * q}
}

func quantize(period uint64) uint64 {
	if q := period >> 12; q > 1 {
		return q
	}
	return 1
}

func (e Era) IsImmortal() bool { return e.Period == 0 }

// Encode returns one zero byte for immortal eras, two bytes otherwise.
func (e Era) Encode() []byte {
	if e.IsImmortal() {
		return []byte{0}
	}
	tz := uint64(bits.TrailingZeros64(e.Period))
	low := tz - 1
	if tz < 2 {
		low = 1
	}
	if low > 15 {
		low = 15
	}
	enc := uint16(low) | uint16(e.Phase/quantize(e.Period))<<4
	return []byte{byte(enc), byte(enc >> 8)}
}

// DecodeEra reads an era from the front of b and returns the bytes used.
func DecodeEra(b []byte) (Era, int, error) {
	if len(b) == 0 {
		return Era{}, 0, scale.ErrShortBuffer
	}
	if b[0] == 0 {
		return Immortal(), 1, nil
	}
	if len(b) < 2 {
		return Era{}, 0, scale.ErrShortBuffer
	}
	enc := uint64(b[0]) | uint64(b[1])<<8
	period := uint64(2) << (enc % 16)
	phase := (enc >> 4) * quantize(period)
	if period < minPeriod || phase >= period {
		return Era{}, 0, fmt.Errorf("%w: era 0x%04x", ErrMalformed, enc)
	}
	return Era{Period: period, Phase: phase}, 2, nil
}

// Birth returns the first block of the era that contains current.
func (e Era) Birth(current uint64) uint64 {
	if e.IsImmortal() {
		return 0
	}
	if current < e.Phase {
		current = e.Phase
	}
	return (current-e.Phase)/e.Period*e.Period + e.Phase
}

// Death returns the first block at which the transaction is no longer
// valid.
func (e Era) Death(current uint64) uint64 {
	if e.IsImmortal() {
		return math.MaxUint64
	}
	return e.Birth(current) + e.Period
}

// Value returns the era as a generic value of the runtime's Era enum, whose
// variants are Immortal and Mortal1 to Mortal255 keyed by the first byte.
func (e Era) Value() scale.Value {
	b := e.Encode()
	if len(b) == 1 {
		return scale.Variant{Name: "Immortal"}
	}
	return scale.Variant{Name: fmt.Sprintf("Mortal%d", b[0]), Value: b[1]}
}

func (e Era) String() string {
	if e.IsImmortal() {
		return "immortal"
	}
	return fmt.Sprintf("mortal(period %d, phase %d)", e.Period, e.Phase)
}

package scale

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Value is a generically decoded SCALE value. The concrete types are:
//
//	Unit                 zero-field composites and tuples
//	map[string]Value     named composites
//	[]Value              positional composites, tuples, sequences, arrays
//	[]byte               sequences and arrays of u8
//	[]bool               bit sequences
//	Variant              tagged unions
//	nil                  Option::None (Some decodes to the inner value)
//	bool, rune (char), string, uint8..uint64, int8..int64
//	*big.Int             u128 and i128
type Value = any

// Unit is the value of a type without fields.
type Unit struct{}

func (Unit) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Variant is a decoded tagged union. Value is nil for variants without
// fields, the field value for a single unnamed field, []Value for several
// unnamed fields and map[string]Value for named fields.
type Variant struct {
	Name  string
	Value Value
}

// MarshalJSON renders a unit variant as its name and other variants as
// {"Name": value}.
func (v Variant) MarshalJSON() ([]byte, error) {
	if v.Value == nil {
		return json.Marshal(v.Name)
	}
	return json.Marshal(map[string]any{v.Name: Pretty(v.Value)})
}

// Pretty converts a value into a form suited for JSON output: byte strings
// become 0x-prefixed hex and big integers decimal strings.
func Pretty(v Value) any {
	switch val := v.(type) {
	case []byte:
		return hexutil.Bytes(val)
	case *big.Int:
		return val.String()
	case []Value:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Pretty(e)
		}
		return out
	case map[string]Value:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Pretty(e)
		}
		return out
	default:
		return v
	}
}

package scale

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"unicode/utf8"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

// Encode encodes v as type id. v uses the shapes produced by Decode; in
// addition any Go integer kind and *big.Int are accepted for integer types,
// a string names a unit variant, and any slice or array may stand in for
// []Value. Option takes nil for None and the inner value for Some.
func Encode(reg *registry.Registry, id registry.TypeID, v Value) ([]byte, error) {
	return Append(reg, nil, id, v)
}

// Append appends the encoding of v as type id to dst.
func Append(reg *registry.Registry, dst []byte, id registry.TypeID, v Value) ([]byte, error) {
	e := &encoder{reg: reg, buf: dst}
	if err := e.encode(id, v, false); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	reg *registry.Registry
	buf []byte
}

func (e *encoder) fail(id registry.TypeID, err error) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return err
	}
	return &EncodeError{TypeID: id, Err: err}
}

func (e *encoder) mismatch(id registry.TypeID, v Value, want string) error {
	return e.fail(id, fmt.Errorf("%w: %T for %s", ErrShapeMismatch, v, want))
}

func (e *encoder) encode(id registry.TypeID, v Value, compact bool) error {
	t, ok := e.reg.Resolve(id)
	if !ok {
		return e.fail(id, ErrUnknownType)
	}
	if compact {
		switch t.Def.Kind {
		case registry.KindComposite, registry.KindTuple, registry.KindPrimitive:
		default:
			return e.fail(id, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
		}
	}
	switch t.Def.Kind {
	case registry.KindComposite:
		return e.encodeFields(t, t.Def.Fields, v, compact)
	case registry.KindTuple:
		return e.encodeFields(t, tupleFields(t.Def.Elems), v, compact)
	case registry.KindVariant:
		return e.encodeVariant(t, v)
	case registry.KindSequence:
		return e.encodeElems(t, t.Def.Elem, v, -1)
	case registry.KindArray:
		return e.encodeElems(t, t.Def.Elem, v, int(t.Def.Len))
	case registry.KindPrimitive:
		return e.encodePrimitive(t, v, compact)
	case registry.KindCompact:
		return e.encode(t.Def.Elem, v, true)
	case registry.KindBitSequence:
		return e.encodeBitSequence(t, v)
	}
	return e.fail(id, fmt.Errorf("%w: kind %s", ErrUnsupported, t.Def.Kind))
}

func isUnit(v Value) bool {
	switch val := v.(type) {
	case nil, Unit:
		return true
	case []Value:
		return len(val) == 0
	case map[string]Value:
		return len(val) == 0
	}
	return false
}

func (e *encoder) encodeFields(t *registry.Type, fields []registry.Field, v Value, compact bool) error {
	switch {
	case len(fields) == 0:
		if !isUnit(v) {
			return e.mismatch(t.ID, v, t.String())
		}
		return nil
	case len(fields) == 1 && fields[0].Name == "":
		return e.encode(fields[0].Type, v, compact)
	case compact:
		return e.fail(t.ID, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
	case registry.Named(fields):
		m, ok := v.(map[string]Value)
		if !ok {
			return e.mismatch(t.ID, v, t.String())
		}
		for _, f := range fields {
			fv, ok := m[f.Name]
			if !ok {
				return e.fail(t.ID, fmt.Errorf("%w: missing field %q", ErrShapeMismatch, f.Name))
			}
			if err := e.encode(f.Type, fv, false); err != nil {
				return err
			}
		}
		return nil
	}
	list, ok := asList(v)
	if !ok || len(list) != len(fields) {
		return e.fail(t.ID, fmt.Errorf("%w: want %d fields for %s", ErrShapeMismatch, len(fields), t))
	}
	for i, f := range fields {
		if err := e.encode(f.Type, list[i], false); err != nil {
			return err
		}
	}
	return nil
}

// asList converts any slice or array into []Value.
func asList(v Value) ([]Value, bool) {
	if list, ok := v.([]Value); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]Value, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

func (e *encoder) encodeVariant(t *registry.Type, v Value) error {
	if t.IsOption() {
		if v == nil {
			e.buf = append(e.buf, 0)
			return nil
		}
		some, ok := t.Def.VariantByIndex(1)
		if !ok || len(some.Fields) != 1 {
			return e.fail(t.ID, ErrBadDiscriminant)
		}
		e.buf = append(e.buf, 1)
		return e.encode(some.Fields[0].Type, v, false)
	}
	if len(t.Def.Variants) == 0 {
		if !isUnit(v) {
			return e.mismatch(t.ID, v, t.String())
		}
		e.buf = append(e.buf, 0)
		return nil
	}

	var (
		name    string
		payload Value
	)
	switch val := v.(type) {
	case Variant:
		name, payload = val.Name, val.Value
	case *Variant:
		name, payload = val.Name, val.Value
	case string:
		name = val
	default:
		return e.mismatch(t.ID, v, t.String())
	}
	vr, ok := t.Def.VariantByName(name)
	if !ok {
		return e.fail(t.ID, fmt.Errorf("%w: no variant %q in %s", ErrBadDiscriminant, name, t))
	}
	e.buf = append(e.buf, vr.Index)
	return e.encodeFields(t, vr.Fields, payload, false)
}

func (e *encoder) isByte(id registry.TypeID) bool {
	t, ok := e.reg.Resolve(id)
	return ok && t.Def.Kind == registry.KindPrimitive && t.Def.Primitive == registry.U8
}

// encodeElems encodes a sequence when n < 0 and an array of n elements
// otherwise.
func (e *encoder) encodeElems(t *registry.Type, elem registry.TypeID, v Value, n int) error {
	if e.isByte(elem) {
		var b []byte
		switch val := v.(type) {
		case []byte:
			b = val
		case string:
			b = []byte(val)
		}
		if b != nil || v == nil {
			if n >= 0 && len(b) != n {
				return e.fail(t.ID, fmt.Errorf("%w: want %d bytes, have %d", ErrShapeMismatch, n, len(b)))
			}
			if n < 0 {
				e.buf = AppendCompact(e.buf, uint64(len(b)))
			}
			e.buf = append(e.buf, b...)
			return nil
		}
	}
	list, ok := asList(v)
	if !ok && v != nil {
		return e.mismatch(t.ID, v, t.String())
	}
	if n >= 0 && len(list) != n {
		return e.fail(t.ID, fmt.Errorf("%w: want %d elements, have %d", ErrShapeMismatch, n, len(list)))
	}
	if n < 0 {
		e.buf = AppendCompact(e.buf, uint64(len(list)))
	}
	for _, item := range list {
		if err := e.encode(elem, item, false); err != nil {
			return err
		}
	}
	return nil
}

func toBig(v Value) (*big.Int, bool) {
	switch val := v.(type) {
	case *big.Int:
		if val == nil {
			return nil, false
		}
		return val, true
	case big.Int:
		return &val, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

func (e *encoder) encodePrimitive(t *registry.Type, v Value, compact bool) error {
	p := t.Def.Primitive
	if compact && (!p.Unsigned() || p == registry.U256) {
		return e.fail(t.ID, fmt.Errorf("%w: compact %s", ErrUnsupported, p))
	}
	switch p {
	case registry.Bool:
		b, ok := v.(bool)
		if !ok {
			return e.mismatch(t.ID, v, "bool")
		}
		if b {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
		return nil
	case registry.Char:
		r, ok := v.(rune)
		if s, isStr := v.(string); isStr && utf8.RuneCountInString(s) == 1 {
			r, _ = utf8.DecodeRuneInString(s)
			ok = true
		}
		if !ok || !utf8.ValidRune(r) {
			return e.mismatch(t.ID, v, "char")
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(r))
		return nil
	case registry.Str:
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case []byte:
			s = string(val)
		default:
			return e.mismatch(t.ID, v, "str")
		}
		e.buf = AppendCompact(e.buf, uint64(len(s)))
		e.buf = append(e.buf, s...)
		return nil
	case registry.U256, registry.I256:
		return e.fail(t.ID, fmt.Errorf("%w: %s", ErrUnsupported, p))
	}

	n, ok := toBig(v)
	if !ok {
		return e.mismatch(t.ID, v, p.String())
	}
	bits := 8 * p.Size()
	if p.Unsigned() {
		if n.Sign() < 0 || n.BitLen() > bits {
			return e.fail(t.ID, fmt.Errorf("%w: %s out of range for %s", ErrShapeMismatch, n, p))
		}
		if compact {
			var err error
			if e.buf, err = AppendCompactBig(e.buf, n); err != nil {
				return e.fail(t.ID, err)
			}
			return nil
		}
		e.appendLE(n, p.Size())
		return nil
	}
	lo, hi := minInt128, maxInt128
	if p != registry.I128 {
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
		hi = new(big.Int).Sub(new(big.Int).Neg(lo), big.NewInt(1))
	}
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return e.fail(t.ID, fmt.Errorf("%w: %s out of range for %s", ErrShapeMismatch, n, p))
	}
	if n.Sign() < 0 {
		n = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	e.appendLE(n, p.Size())
	return nil
}

// appendLE appends the low size bytes of a non-negative n in little-endian
// order.
func (e *encoder) appendLE(n *big.Int, size int) {
	be := n.FillBytes(make([]byte, size))
	for i := size - 1; i >= 0; i-- {
		e.buf = append(e.buf, be[i])
	}
}

func (e *encoder) encodeBitSequence(t *registry.Type, v Value) error {
	width, msb, err := bitLayout(e.reg, t)
	if err != nil {
		return e.fail(t.ID, err)
	}
	bits, ok := v.([]bool)
	if !ok && v != nil {
		return e.mismatch(t.ID, v, "bit sequence")
	}
	wordBits := width * 8
	words := (len(bits) + wordBits - 1) / wordBits
	e.buf = AppendCompact(e.buf, uint64(len(bits)))
	for w := 0; w < words; w++ {
		var word uint64
		for j := 0; j < wordBits; j++ {
			i := w*wordBits + j
			if i >= len(bits) || !bits[i] {
				continue
			}
			shift := j
			if msb {
				shift = wordBits - 1 - j
			}
			word |= 1 << shift
		}
		for k := 0; k < width; k++ {
			e.buf = append(e.buf, byte(word>>(8*k)))
		}
	}
	return nil
}

package scale

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

// Decode decodes data as type id into a generic Value. All of data must be
// consumed.
func Decode(reg *registry.Registry, id registry.TypeID, data []byte) (Value, error) {
	var v Value
	if err := Unmarshal(reg, id, data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes data as type id into the value pointed to by v. Go
// structs, slices, arrays, maps, strings, integers and *big.Int are
// populated directly; a Value (any) target receives the generic form. All
// of data must be consumed.
//
// Struct fields are matched to named fields by name, ignoring case and
// underscores, or by a `scale:"name"` tag. Positional composites and tuples
// fill exported fields in order. A variant decodes into a string (unit
// variants only) or into a struct holding one pointer or bool field per
// variant name, of which exactly one is set.
func Unmarshal(reg *registry.Registry, id registry.TypeID, data []byte, v any) error {
	d := NewDecoder(reg, data)
	if err := d.Decode(id, v); err != nil {
		return err
	}
	if n := d.Remaining(); n > 0 {
		return &DecodeError{TypeID: id, Offset: d.r.Offset(), Err: fmt.Errorf("%w: %d bytes", ErrLeftoverBytes, n)}
	}
	return nil
}

// Decoder reads consecutive values from one input.
type Decoder struct {
	reg   *registry.Registry
	r     *Reader
	sizes map[registry.TypeID]uint64 // minSize of element types seen
}

func NewDecoder(reg *registry.Registry, data []byte) *Decoder {
	return &Decoder{reg: reg, r: NewReader(data)}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return d.r.Remaining() }

// Offset returns the number of bytes consumed.
func (d *Decoder) Offset() int { return d.r.Offset() }

// Decode decodes the next value of type id into v, which must be a non-nil
// pointer. Unlike Unmarshal it does not require the input to be exhausted.
func (d *Decoder) Decode(id registry.TypeID, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &InvalidUnmarshalError{Target: fmt.Sprintf("%T", v)}
	}
	return d.decode(id, rv.Elem(), false)
}

// Skip consumes the next value of type id.
func (d *Decoder) Skip(id registry.TypeID) error {
	var discard Value
	return d.decode(id, reflect.ValueOf(&discard).Elem(), false)
}

func (d *Decoder) fail(id registry.TypeID, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{TypeID: id, Offset: d.r.Offset(), Err: err}
}

func (d *Decoder) mismatch(id registry.TypeID, v reflect.Value, format string, args ...any) error {
	return d.fail(id, fmt.Errorf("%w: %s into %s", ErrShapeMismatch, fmt.Sprintf(format, args...), v.Type()))
}

var (
	bigIntType  = reflect.TypeOf(big.Int{})
	variantType = reflect.TypeOf(Variant{})
)

func isAny(v reflect.Value) bool {
	return v.Kind() == reflect.Interface && v.NumMethod() == 0
}

func (d *Decoder) decode(id registry.TypeID, v reflect.Value, compact bool) error {
	t, ok := d.reg.Resolve(id)
	if !ok {
		return d.fail(id, ErrUnknownType)
	}
	if v.Kind() == reflect.Pointer && !t.IsOption() {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return d.decode(id, v.Elem(), compact)
	}
	if v.Kind() == reflect.Struct && v.Type() != bigIntType && wrapsValue(t.Def.Kind) {
		if info := structInfo(v.Type()); len(info.order) == 1 {
			return d.decode(id, v.Field(info.order[0]), compact)
		}
	}

	switch t.Def.Kind {
	case registry.KindComposite:
		return d.decodeFields(t, t.Def.Fields, v, compact)
	case registry.KindTuple:
		return d.decodeFields(t, tupleFields(t.Def.Elems), v, compact)
	case registry.KindVariant:
		if compact {
			return d.fail(id, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
		}
		return d.decodeVariant(t, v)
	case registry.KindSequence:
		if compact {
			return d.fail(id, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
		}
		n, err := d.r.ReadCompact()
		if err != nil {
			return d.fail(id, err)
		}
		return d.decodeElems(t, t.Def.Elem, n, v)
	case registry.KindArray:
		if compact {
			return d.fail(id, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
		}
		return d.decodeElems(t, t.Def.Elem, uint64(t.Def.Len), v)
	case registry.KindPrimitive:
		return d.decodePrimitive(t, v, compact)
	case registry.KindCompact:
		return d.decode(t.Def.Elem, v, true)
	case registry.KindBitSequence:
		return d.decodeBitSequence(t, v)
	}
	return d.fail(id, fmt.Errorf("%w: kind %s", ErrUnsupported, t.Def.Kind))
}

// wrapsValue reports whether a one-field Go struct should be treated as a
// newtype around a value of this kind.
func wrapsValue(k registry.Kind) bool {
	switch k {
	case registry.KindSequence, registry.KindArray, registry.KindPrimitive, registry.KindCompact, registry.KindBitSequence:
		return true
	}
	return false
}

func tupleFields(elems []registry.TypeID) []registry.Field {
	fields := make([]registry.Field, len(elems))
	for i, e := range elems {
		fields[i].Type = e
	}
	return fields
}

func fieldTypes(fields []registry.Field) []registry.TypeID {
	ids := make([]registry.TypeID, len(fields))
	for i, f := range fields {
		ids[i] = f.Type
	}
	return ids
}

func setUnit(v reflect.Value) {
	if isAny(v) {
		v.Set(reflect.ValueOf(Unit{}))
	}
}

func (d *Decoder) decodeFields(t *registry.Type, fields []registry.Field, v reflect.Value, compact bool) error {
	switch {
	case len(fields) == 0:
		setUnit(v)
		return nil
	case len(fields) == 1 && fields[0].Name == "":
		return d.decode(fields[0].Type, v, compact)
	case compact:
		return d.fail(t.ID, fmt.Errorf("%w: compact %s", ErrUnsupported, t))
	case registry.Named(fields):
		return d.decodeNamed(t.ID, fields, v)
	default:
		return d.decodePositional(t.ID, fieldTypes(fields), v)
	}
}

func (d *Decoder) decodeNamed(id registry.TypeID, fields []registry.Field, v reflect.Value) error {
	switch {
	case isAny(v):
		m := make(map[string]Value, len(fields))
		for _, f := range fields {
			var fv Value
			if err := d.decode(f.Type, reflect.ValueOf(&fv).Elem(), false); err != nil {
				return err
			}
			m[f.Name] = fv
		}
		v.Set(reflect.ValueOf(m))
	case v.Kind() == reflect.Struct:
		info := structInfo(v.Type())
		for _, f := range fields {
			i, ok := info.byName[normalize(f.Name)]
			if !ok {
				if err := d.Skip(f.Type); err != nil {
					return err
				}
				continue
			}
			if err := d.decode(f.Type, v.Field(i), false); err != nil {
				return err
			}
		}
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		if v.IsNil() {
			v.Set(reflect.MakeMapWithSize(v.Type(), len(fields)))
		}
		for _, f := range fields {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := d.decode(f.Type, elem, false); err != nil {
				return err
			}
			v.SetMapIndex(reflect.ValueOf(f.Name).Convert(v.Type().Key()), elem)
		}
	default:
		return d.mismatch(id, v, "named fields")
	}
	return nil
}

func (d *Decoder) decodePositional(id registry.TypeID, types []registry.TypeID, v reflect.Value) error {
	switch {
	case isAny(v):
		list := make([]Value, len(types))
		for i, ty := range types {
			if err := d.decode(ty, reflect.ValueOf(&list[i]).Elem(), false); err != nil {
				return err
			}
		}
		v.Set(reflect.ValueOf(list))
	case v.Kind() == reflect.Slice:
		s := reflect.MakeSlice(v.Type(), len(types), len(types))
		for i, ty := range types {
			if err := d.decode(ty, s.Index(i), false); err != nil {
				return err
			}
		}
		v.Set(s)
	case v.Kind() == reflect.Array:
		if v.Len() != len(types) {
			return d.mismatch(id, v, "%d positional fields", len(types))
		}
		for i, ty := range types {
			if err := d.decode(ty, v.Index(i), false); err != nil {
				return err
			}
		}
	case v.Kind() == reflect.Struct:
		info := structInfo(v.Type())
		if len(info.order) != len(types) {
			return d.mismatch(id, v, "%d positional fields", len(types))
		}
		for i, ty := range types {
			if err := d.decode(ty, v.Field(info.order[i]), false); err != nil {
				return err
			}
		}
	default:
		return d.mismatch(id, v, "%d positional fields", len(types))
	}
	return nil
}

type shape uint8

const (
	shapeUnit shape = iota
	shapeSingle
	shapeTuple
	shapeNamed
)

func shapeOf(fields []registry.Field) shape {
	switch {
	case len(fields) == 0:
		return shapeUnit
	case registry.Named(fields):
		return shapeNamed
	case len(fields) == 1:
		return shapeSingle
	default:
		return shapeTuple
	}
}

func (d *Decoder) decodeVariant(t *registry.Type, v reflect.Value) error {
	b, err := d.r.ReadByte()
	if err != nil {
		return d.fail(t.ID, err)
	}
	if t.IsOption() {
		return d.decodeOption(t, b, v)
	}
	if len(t.Def.Variants) == 0 && b == 0 {
		setUnit(v)
		return nil
	}
	vr, ok := t.Def.VariantByIndex(b)
	if !ok {
		return d.fail(t.ID, fmt.Errorf("%w: 0x%02x", ErrBadDiscriminant, b))
	}

	s := shapeOf(vr.Fields)
	switch {
	case isAny(v) || v.Type() == variantType:
		var payload Value
		if s != shapeUnit {
			if err := d.decodePayload(t, vr, s, reflect.ValueOf(&payload).Elem()); err != nil {
				return err
			}
		}
		v.Set(reflect.ValueOf(Variant{Name: vr.Name, Value: payload}))
		return nil
	case v.Kind() == reflect.String:
		if s != shapeUnit {
			return d.mismatch(t.ID, v, "variant %s with fields", vr.Name)
		}
		v.SetString(vr.Name)
		return nil
	case v.Kind() == reflect.Struct:
		info := structInfo(v.Type())
		i, ok := info.byName[normalize(vr.Name)]
		if !ok {
			return d.mismatch(t.ID, v, "variant %s", vr.Name)
		}
		v.Set(reflect.Zero(v.Type()))
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Bool:
			if s != shapeUnit {
				return d.mismatch(t.ID, f, "variant %s with fields", vr.Name)
			}
			f.SetBool(true)
			return nil
		case reflect.Pointer:
			elem := reflect.New(f.Type().Elem())
			if err := d.decodePayload(t, vr, s, elem.Elem()); err != nil {
				return err
			}
			f.Set(elem)
			return nil
		default:
			return d.decodePayload(t, vr, s, f)
		}
	}
	return d.mismatch(t.ID, v, "variant %s", vr.Name)
}

func (d *Decoder) decodePayload(t *registry.Type, vr *registry.Variant, s shape, v reflect.Value) error {
	unitTarget := v.Kind() == reflect.Struct && v.NumField() == 0
	if s == shapeUnit {
		if !unitTarget && !isAny(v) {
			return d.mismatch(t.ID, v, "unit variant %s", vr.Name)
		}
		setUnit(v)
		return nil
	}
	if unitTarget {
		return d.mismatch(t.ID, v, "variant %s with fields", vr.Name)
	}
	switch s {
	case shapeSingle:
		return d.decode(vr.Fields[0].Type, v, false)
	case shapeTuple:
		return d.decodePositional(t.ID, fieldTypes(vr.Fields), v)
	default:
		return d.decodeNamed(t.ID, vr.Fields, v)
	}
}

func (d *Decoder) decodeOption(t *registry.Type, b byte, v reflect.Value) error {
	switch b {
	case 0:
		switch v.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		return d.mismatch(t.ID, v, "Option")
	case 1:
		some, ok := t.Def.VariantByIndex(1)
		if !ok || len(some.Fields) != 1 {
			return d.fail(t.ID, fmt.Errorf("%w: 0x%02x", ErrBadDiscriminant, b))
		}
		switch v.Kind() {
		case reflect.Pointer:
			elem := reflect.New(v.Type().Elem())
			if err := d.decode(some.Fields[0].Type, elem.Elem(), false); err != nil {
				return err
			}
			v.Set(elem)
			return nil
		case reflect.Slice, reflect.Map, reflect.Interface:
			return d.decode(some.Fields[0].Type, v, false)
		}
		return d.mismatch(t.ID, v, "Option")
	}
	return d.fail(t.ID, fmt.Errorf("%w: 0x%02x", ErrBadDiscriminant, b))
}

func (d *Decoder) isByte(id registry.TypeID) bool {
	t, ok := d.reg.Resolve(id)
	return ok && t.Def.Kind == registry.KindPrimitive && t.Def.Primitive == registry.U8
}

func (d *Decoder) decodeElems(t *registry.Type, elem registry.TypeID, n uint64, v reflect.Value) error {
	if d.isByte(elem) && byteTarget(v) {
		if n > uint64(d.r.Remaining()) {
			return d.fail(t.ID, ErrShortBuffer)
		}
		b, _ := d.r.Read(int(n))
		return d.setBytes(t, b, v)
	}

	size, ok := d.sizes[elem]
	if !ok {
		size = minSize(d.reg, elem, nil)
		if d.sizes == nil {
			d.sizes = make(map[registry.TypeID]uint64)
		}
		d.sizes[elem] = size
	}
	if size > 0 {
		if n > uint64(d.r.Remaining())/size {
			return d.fail(t.ID, ErrShortBuffer)
		}
	} else if n > MaxZeroSizeElems {
		return d.fail(t.ID, fmt.Errorf("%w: %d", ErrTooManyElems, n))
	}
	hint := n
	if rem := uint64(d.r.Remaining()); hint > rem {
		hint = rem
	}
	switch {
	case isAny(v):
		list := make([]Value, 0, hint)
		for i := uint64(0); i < n; i++ {
			var e Value
			if err := d.decode(elem, reflect.ValueOf(&e).Elem(), false); err != nil {
				return err
			}
			list = append(list, e)
		}
		v.Set(reflect.ValueOf(list))
	case v.Kind() == reflect.Slice:
		s := reflect.MakeSlice(v.Type(), 0, int(hint))
		for i := uint64(0); i < n; i++ {
			e := reflect.New(v.Type().Elem()).Elem()
			if err := d.decode(elem, e, false); err != nil {
				return err
			}
			s = reflect.Append(s, e)
		}
		v.Set(s)
	case v.Kind() == reflect.Array:
		if uint64(v.Len()) != n {
			return d.mismatch(t.ID, v, "%d elements", n)
		}
		for i := 0; i < v.Len(); i++ {
			if err := d.decode(elem, v.Index(i), false); err != nil {
				return err
			}
		}
	default:
		return d.mismatch(t.ID, v, "%d elements", n)
	}
	return nil
}

// MaxZeroSizeElems bounds sequences and arrays whose element can encode to
// no bytes at all, since the input length does not limit them.
const MaxZeroSizeElems = 1 << 16

// minSize returns the fewest bytes any value of id encodes to.
func minSize(reg *registry.Registry, id registry.TypeID, seen map[registry.TypeID]bool) uint64 {
	t, ok := reg.Resolve(id)
	if !ok || seen[id] {
		return 0
	}
	switch t.Def.Kind {
	case registry.KindComposite, registry.KindTuple:
		if seen == nil {
			seen = make(map[registry.TypeID]bool)
		}
		seen[id] = true
		defer delete(seen, id)
		var sum uint64
		if t.Def.Kind == registry.KindTuple {
			for _, e := range t.Def.Elems {
				sum += minSize(reg, e, seen)
			}
		} else {
			for _, f := range t.Def.Fields {
				sum += minSize(reg, f.Type, seen)
			}
		}
		return sum
	case registry.KindArray:
		if seen == nil {
			seen = make(map[registry.TypeID]bool)
		}
		seen[id] = true
		defer delete(seen, id)
		return uint64(t.Def.Len) * minSize(reg, t.Def.Elem, seen)
	case registry.KindPrimitive:
		if t.Def.Primitive == registry.Str {
			return 1
		}
		return uint64(t.Def.Primitive.Size())
	case registry.KindVariant, registry.KindSequence, registry.KindCompact, registry.KindBitSequence:
		return 1
	}
	return 0
}

func byteTarget(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.NumMethod() == 0
	case reflect.String:
		return true
	case reflect.Slice, reflect.Array:
		return v.Type().Elem().Kind() == reflect.Uint8
	}
	return false
}

func (d *Decoder) setBytes(t *registry.Type, b []byte, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface:
		v.Set(reflect.ValueOf(bytes.Clone(b)))
	case reflect.String:
		v.SetString(string(b))
	case reflect.Slice:
		v.SetBytes(bytes.Clone(b))
	case reflect.Array:
		if v.Len() != len(b) {
			return d.mismatch(t.ID, v, "%d bytes", len(b))
		}
		for i, c := range b {
			v.Index(i).SetUint(uint64(c))
		}
	}
	return nil
}

func (d *Decoder) decodePrimitive(t *registry.Type, v reflect.Value, compact bool) error {
	p := t.Def.Primitive
	if compact {
		switch {
		case p == registry.U128:
			b, err := d.r.ReadCompactBig()
			if err != nil {
				return d.fail(t.ID, err)
			}
			if b.BitLen() > 128 {
				return d.fail(t.ID, ErrCompactOverflow)
			}
			return d.setBig(t, b, v)
		case p.Unsigned() && p != registry.U256:
			u, err := d.r.ReadCompact()
			if err != nil {
				return d.fail(t.ID, err)
			}
			if p.Size() < 8 && u>>(8*p.Size()) != 0 {
				return d.fail(t.ID, fmt.Errorf("%w: %d for %s", ErrCompactOverflow, u, p))
			}
			return d.setUint(t, u, v)
		}
		return d.fail(t.ID, fmt.Errorf("%w: compact %s", ErrUnsupported, p))
	}

	switch p {
	case registry.Bool:
		b, err := d.r.ReadBool()
		if err != nil {
			return d.fail(t.ID, err)
		}
		switch {
		case isAny(v):
			v.Set(reflect.ValueOf(b))
		case v.Kind() == reflect.Bool:
			v.SetBool(b)
		default:
			return d.mismatch(t.ID, v, "bool")
		}
		return nil
	case registry.Char:
		u, err := d.r.ReadUint32()
		if err != nil {
			return d.fail(t.ID, err)
		}
		r := rune(u)
		if u > math.MaxInt32 || !utf8.ValidRune(r) {
			return d.fail(t.ID, fmt.Errorf("%w: 0x%x", ErrBadChar, u))
		}
		switch {
		case isAny(v):
			v.Set(reflect.ValueOf(r))
		case v.Kind() == reflect.Int32:
			v.SetInt(int64(r))
		case v.Kind() == reflect.String:
			v.SetString(string(r))
		default:
			return d.mismatch(t.ID, v, "char")
		}
		return nil
	case registry.Str:
		s, err := d.r.ReadString()
		if err != nil {
			return d.fail(t.ID, err)
		}
		switch {
		case isAny(v):
			v.Set(reflect.ValueOf(s))
		case v.Kind() == reflect.String:
			v.SetString(s)
		case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
			v.SetBytes([]byte(s))
		default:
			return d.mismatch(t.ID, v, "str")
		}
		return nil
	case registry.U8:
		b, err := d.r.ReadByte()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setUint(t, uint64(b), v)
	case registry.U16:
		u, err := d.r.ReadUint16()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setUint(t, uint64(u), v)
	case registry.U32:
		u, err := d.r.ReadUint32()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setUint(t, uint64(u), v)
	case registry.U64:
		u, err := d.r.ReadUint64()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setUint(t, u, v)
	case registry.U128:
		b, err := d.r.ReadUint128()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setBig(t, b, v)
	case registry.I8:
		b, err := d.r.ReadByte()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setInt(t, int64(int8(b)), v)
	case registry.I16:
		u, err := d.r.ReadUint16()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setInt(t, int64(int16(u)), v)
	case registry.I32:
		u, err := d.r.ReadUint32()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setInt(t, int64(int32(u)), v)
	case registry.I64:
		u, err := d.r.ReadUint64()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setInt(t, int64(u), v)
	case registry.I128:
		b, err := d.r.ReadInt128()
		if err != nil {
			return d.fail(t.ID, err)
		}
		return d.setBig(t, b, v)
	}
	return d.fail(t.ID, fmt.Errorf("%w: %s", ErrUnsupported, p))
}

func typedUint(p registry.Primitive, u uint64) Value {
	switch p {
	case registry.U8:
		return uint8(u)
	case registry.U16:
		return uint16(u)
	case registry.U32:
		return uint32(u)
	}
	return u
}

func typedInt(p registry.Primitive, i int64) Value {
	switch p {
	case registry.I8:
		return int8(i)
	case registry.I16:
		return int16(i)
	case registry.I32:
		return int32(i)
	}
	return i
}

func (d *Decoder) setUint(t *registry.Type, u uint64, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface:
		if !isAny(v) {
			break
		}
		v.Set(reflect.ValueOf(typedUint(t.Def.Primitive, u)))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.OverflowUint(u) {
			return d.mismatch(t.ID, v, "value %d", u)
		}
		v.SetUint(u)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if u > math.MaxInt64 || v.OverflowInt(int64(u)) {
			return d.mismatch(t.ID, v, "value %d", u)
		}
		v.SetInt(int64(u))
		return nil
	case reflect.Struct:
		if v.Type() == bigIntType {
			v.Addr().Interface().(*big.Int).SetUint64(u)
			return nil
		}
	}
	return d.mismatch(t.ID, v, "%s", t.Def.Primitive)
}

func (d *Decoder) setInt(t *registry.Type, i int64, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface:
		if !isAny(v) {
			break
		}
		v.Set(reflect.ValueOf(typedInt(t.Def.Primitive, i)))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.OverflowInt(i) {
			return d.mismatch(t.ID, v, "value %d", i)
		}
		v.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i < 0 || v.OverflowUint(uint64(i)) {
			return d.mismatch(t.ID, v, "value %d", i)
		}
		v.SetUint(uint64(i))
		return nil
	case reflect.Struct:
		if v.Type() == bigIntType {
			v.Addr().Interface().(*big.Int).SetInt64(i)
			return nil
		}
	}
	return d.mismatch(t.ID, v, "%s", t.Def.Primitive)
}

func (d *Decoder) setBig(t *registry.Type, b *big.Int, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface:
		if !isAny(v) {
			break
		}
		v.Set(reflect.ValueOf(b))
		return nil
	case reflect.Struct:
		if v.Type() == bigIntType {
			v.Addr().Interface().(*big.Int).Set(b)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if b.Sign() < 0 || !b.IsUint64() || v.OverflowUint(b.Uint64()) {
			return d.mismatch(t.ID, v, "value %s", b)
		}
		v.SetUint(b.Uint64())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !b.IsInt64() || v.OverflowInt(b.Int64()) {
			return d.mismatch(t.ID, v, "value %s", b)
		}
		v.SetInt(b.Int64())
		return nil
	}
	return d.mismatch(t.ID, v, "%s", t.Def.Primitive)
}

// bitLayout returns the store width in bytes and whether the most
// significant bit comes first.
func bitLayout(reg *registry.Registry, t *registry.Type) (int, bool, error) {
	store, ok := reg.Resolve(t.Def.BitStore)
	if !ok || store.Def.Kind != registry.KindPrimitive {
		return 0, false, fmt.Errorf("%w: bit store of %s", ErrUnsupported, t)
	}
	width := store.Def.Primitive.Size()
	switch store.Def.Primitive {
	case registry.U8, registry.U16, registry.U32, registry.U64:
	default:
		return 0, false, fmt.Errorf("%w: bit store %s", ErrUnsupported, store.Def.Primitive)
	}
	order, ok := reg.Resolve(t.Def.BitOrder)
	if !ok {
		return 0, false, ErrUnknownType
	}
	switch order.Name() {
	case "Lsb0":
		return width, false, nil
	case "Msb0":
		return width, true, nil
	}
	return 0, false, fmt.Errorf("%w: bit order %s", ErrUnsupported, order)
}

func (d *Decoder) decodeBitSequence(t *registry.Type, v reflect.Value) error {
	width, msb, err := bitLayout(d.reg, t)
	if err != nil {
		return d.fail(t.ID, err)
	}
	n, err := d.r.ReadCompact()
	if err != nil {
		return d.fail(t.ID, err)
	}
	if n > uint64(d.r.Remaining())*8 {
		return d.fail(t.ID, ErrShortBuffer)
	}
	wordBits := uint64(width * 8)
	words := (n + wordBits - 1) / wordBits
	if words*uint64(width) > uint64(d.r.Remaining()) {
		return d.fail(t.ID, ErrShortBuffer)
	}
	raw, _ := d.r.Read(int(words) * width)
	bits := make([]bool, n)
	for i := range bits {
		w, j := uint64(i)/wordBits, uint64(i)%wordBits
		var word uint64
		for k := width - 1; k >= 0; k-- {
			word = word<<8 | uint64(raw[int(w)*width+k])
		}
		if msb {
			j = wordBits - 1 - j
		}
		bits[i] = word>>j&1 == 1
	}
	switch {
	case isAny(v):
		v.Set(reflect.ValueOf(bits))
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Bool:
		v.Set(reflect.ValueOf(bits).Convert(v.Type()))
	default:
		return d.mismatch(t.ID, v, "bit sequence")
	}
	return nil
}

type fieldInfo struct {
	byName map[string]int
	order  []int
}

var fieldCache sync.Map // reflect.Type -> *fieldInfo

func structInfo(t reflect.Type) *fieldInfo {
	if fi, ok := fieldCache.Load(t); ok {
		return fi.(*fieldInfo)
	}
	fi := &fieldInfo{byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("scale"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fi.byName[normalize(name)] = i
		fi.order = append(fi.order, i)
	}
	actual, _ := fieldCache.LoadOrStore(t, fi)
	return actual.(*fieldInfo)
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

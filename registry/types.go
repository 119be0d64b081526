package registry

import (
	"fmt"
	"strings"
)

// TypeID is a handle into a Registry. Ids are only meaningful for the
// registry (and therefore the runtime) that issued them.
type TypeID uint32

// Kind of a type definition.
type Kind uint8

const (
	KindComposite Kind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindVariant:
		return "variant"
	case KindSequence:
		return "sequence"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindPrimitive:
		return "primitive"
	case KindCompact:
		return "compact"
	case KindBitSequence:
		return "bitsequence"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Primitive type kinds, in metadata order.
type Primitive uint8

const (
	Bool Primitive = iota
	Char
	Str
	U8
	U16
	U32
	U64
	U128
	U256
	I8
	I16
	I32
	I64
	I128
	I256
)

var primitiveNames = [...]string{"bool", "char", "str", "u8", "u16", "u32", "u64", "u128", "u256", "i8", "i16", "i32", "i64", "i128", "i256"}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("primitive(%d)", uint8(p))
}

// Valid reports whether p is a known primitive.
func (p Primitive) Valid() bool {
	return int(p) < len(primitiveNames)
}

// Unsigned reports whether p is an unsigned integer.
func (p Primitive) Unsigned() bool {
	return p >= U8 && p <= U256
}

// Signed reports whether p is a signed integer.
func (p Primitive) Signed() bool {
	return p >= I8 && p <= I256
}

// Size returns the fixed encoded width in bytes of integer and bool
// primitives, 0 for str.
func (p Primitive) Size() int {
	switch p {
	case Bool, U8, I8:
		return 1
	case U16, I16:
		return 2
	case Char, U32, I32:
		return 4
	case U64, I64:
		return 8
	case U128, I128:
		return 16
	case U256, I256:
		return 32
	default:
		return 0
	}
}

type Field struct {
	Name     string // empty for unnamed fields
	Type     TypeID
	TypeName string
	Docs     []string
}

type Variant struct {
	Name   string
	Fields []Field
	Index  uint8
	Docs   []string
}

type TypeParam struct {
	Name string
	Type *TypeID
}

// TypeDef is a closed tagged union over the type definition kinds. Only the
// members belonging to Kind are meaningful.
type TypeDef struct {
	Kind Kind

	Fields    []Field   // composite
	Variants  []Variant // variant
	Elem      TypeID    // sequence, array, compact
	Len       uint32    // array
	Elems     []TypeID  // tuple
	Primitive Primitive // primitive
	BitStore  TypeID    // bit sequence
	BitOrder  TypeID    // bit sequence
}

// VariantByIndex finds the variant with the given discriminant. Variants are
// usually stored in discriminant order, so the position is tried first.
func (d *TypeDef) VariantByIndex(index uint8) (*Variant, bool) {
	if int(index) < len(d.Variants) && d.Variants[index].Index == index {
		return &d.Variants[index], true
	}
	for i := range d.Variants {
		if d.Variants[i].Index == index {
			return &d.Variants[i], true
		}
	}
	return nil, false
}

// VariantByName finds the variant with the given name.
func (d *TypeDef) VariantByName(name string) (*Variant, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return &d.Variants[i], true
		}
	}
	return nil, false
}

// Named reports whether fields are named. Fields are either all named or all
// unnamed.
func Named(fields []Field) bool {
	return len(fields) > 0 && fields[0].Name != ""
}

type Type struct {
	ID     TypeID
	Path   []string
	Params []TypeParam
	Def    TypeDef
	Docs   []string
}

// IsOption reports whether t is the conventional Option<T> wrapper.
func (t *Type) IsOption() bool {
	return len(t.Path) == 1 && t.Path[0] == "Option" && t.Def.Kind == KindVariant
}

// Param returns the type argument bound to the named parameter.
func (t *Type) Param(name string) (TypeID, bool) {
	for _, p := range t.Params {
		if p.Name == name && p.Type != nil {
			return *p.Type, true
		}
	}
	return 0, false
}

// Name returns the last path segment, or the kind for anonymous types.
func (t *Type) Name() string {
	if len(t.Path) > 0 {
		return t.Path[len(t.Path)-1]
	}
	if t.Def.Kind == KindPrimitive {
		return t.Def.Primitive.String()
	}
	return t.Def.Kind.String()
}

func (t *Type) String() string {
	if len(t.Path) > 0 {
		return strings.Join(t.Path, "::")
	}
	return t.Name()
}

// refs lists the ids t refers to.
func (t *Type) refs() []TypeID {
	var ids []TypeID
	for _, p := range t.Params {
		if p.Type != nil {
			ids = append(ids, *p.Type)
		}
	}
	d := &t.Def
	switch d.Kind {
	case KindComposite:
		for _, f := range d.Fields {
			ids = append(ids, f.Type)
		}
	case KindVariant:
		for _, v := range d.Variants {
			for _, f := range v.Fields {
				ids = append(ids, f.Type)
			}
		}
	case KindSequence, KindArray, KindCompact:
		ids = append(ids, d.Elem)
	case KindTuple:
		ids = append(ids, d.Elems...)
	case KindBitSequence:
		ids = append(ids, d.BitStore, d.BitOrder)
	}
	return ids
}

// Package testutil holds fixtures shared by package tests: a type registry
// builder, a small sample runtime and a scripted fake transport.
package testutil

import (
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

// Builder assigns consecutive type ids to the types added to it.
type Builder struct {
	types []registry.Type
	prims map[registry.Primitive]registry.TypeID
}

func NewBuilder() *Builder {
	return &Builder{prims: make(map[registry.Primitive]registry.TypeID)}
}

func (b *Builder) add(path []string, def registry.TypeDef) registry.TypeID {
	id := registry.TypeID(len(b.types))
	b.types = append(b.types, registry.Type{ID: id, Path: path, Def: def})
	return id
}

// Primitive returns the id of a primitive, adding it once.
func (b *Builder) Primitive(p registry.Primitive) registry.TypeID {
	if id, ok := b.prims[p]; ok {
		return id
	}
	id := b.add(nil, registry.TypeDef{Kind: registry.KindPrimitive, Primitive: p})
	b.prims[p] = id
	return id
}

func (b *Builder) Composite(path []string, fields ...registry.Field) registry.TypeID {
	return b.add(path, registry.TypeDef{Kind: registry.KindComposite, Fields: fields})
}

func (b *Builder) Variant(path []string, variants ...registry.Variant) registry.TypeID {
	return b.add(path, registry.TypeDef{Kind: registry.KindVariant, Variants: variants})
}

func (b *Builder) Sequence(elem registry.TypeID) registry.TypeID {
	return b.add(nil, registry.TypeDef{Kind: registry.KindSequence, Elem: elem})
}

func (b *Builder) Array(elem registry.TypeID, n uint32) registry.TypeID {
	return b.add(nil, registry.TypeDef{Kind: registry.KindArray, Elem: elem, Len: n})
}

func (b *Builder) Tuple(elems ...registry.TypeID) registry.TypeID {
	return b.add(nil, registry.TypeDef{Kind: registry.KindTuple, Elems: elems})
}

func (b *Builder) Compact(elem registry.TypeID) registry.TypeID {
	return b.add(nil, registry.TypeDef{Kind: registry.KindCompact, Elem: elem})
}

func (b *Builder) BitSequence(store, order registry.TypeID) registry.TypeID {
	return b.add(nil, registry.TypeDef{Kind: registry.KindBitSequence, BitStore: store, BitOrder: order})
}

// Option adds Option<elem>.
func (b *Builder) Option(elem registry.TypeID) registry.TypeID {
	id := b.Variant([]string{"Option"},
		registry.Variant{Name: "None", Index: 0},
		registry.Variant{Name: "Some", Index: 1, Fields: []registry.Field{Unnamed(elem)}},
	)
	b.Param(id, "T", elem)
	return id
}

// Param binds a named type parameter on an already added type.
func (b *Builder) Param(id registry.TypeID, name string, ty registry.TypeID) {
	b.types[id].Params = append(b.types[id].Params, registry.TypeParam{Name: name, Type: &ty})
}

// Types returns a copy of the types added so far.
func (b *Builder) Types() []registry.Type {
	return append([]registry.Type(nil), b.types...)
}

func (b *Builder) Registry() (*registry.Registry, error) {
	return registry.New(b.Types())
}

func Named(name string, ty registry.TypeID) registry.Field {
	return registry.Field{Name: name, Type: ty}
}

func Unnamed(ty registry.TypeID) registry.Field {
	return registry.Field{Type: ty}
}

// Case builds a variant.
func Case(name string, index uint8, fields ...registry.Field) registry.Variant {
	return registry.Variant{Name: name, Index: index, Fields: fields}
}

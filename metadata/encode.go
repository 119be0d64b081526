package metadata

import (
	"encoding/binary"
	"sort"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// Encode returns the V14 encoding of m. Parse(m.Encode()) yields an
// equivalent Metadata.
func (m *Metadata) Encode() []byte {
	w := &writer{buf: binary.LittleEndian.AppendUint32(nil, Magic)}
	w.u8(Version)

	var types []*registry.Type
	m.Types.Types(func(t *registry.Type) bool {
		types = append(types, t)
		return true
	})
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	w.compact(len(types))
	for _, t := range types {
		w.id(t.ID)
		w.strs(t.Path)
		w.compact(len(t.Params))
		for _, tp := range t.Params {
			w.str(tp.Name)
			w.optID(tp.Type)
		}
		w.typeDef(&t.Def)
		w.strs(t.Docs)
	}

	w.compact(len(m.Pallets))
	for i := range m.Pallets {
		w.pallet(&m.Pallets[i])
	}

	w.id(m.Extrinsic.Type)
	w.u8(m.Extrinsic.Version)
	w.compact(len(m.Extrinsic.SignedExtensions))
	for _, ext := range m.Extrinsic.SignedExtensions {
		w.str(ext.Identifier)
		w.id(ext.Type)
		w.id(ext.AdditionalSigned)
	}
	w.id(m.RuntimeType)
	return w.buf
}

type writer struct {
	buf []byte
}

func (w *writer) u8(b uint8)            { w.buf = append(w.buf, b) }
func (w *writer) compact(n int)         { w.buf = scale.AppendCompact(w.buf, uint64(n)) }
func (w *writer) id(id registry.TypeID) { w.buf = scale.AppendCompact(w.buf, uint64(id)) }

func (w *writer) bytes(b []byte) {
	w.compact(len(b))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) {
	w.compact(len(s))
	w.buf = append(w.buf, s...)
}

func (w *writer) strs(ss []string) {
	w.compact(len(ss))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) optStr(s string) {
	if s == "" {
		w.u8(0)
		return
	}
	w.u8(1)
	w.str(s)
}

func (w *writer) optID(id *registry.TypeID) {
	if id == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.id(*id)
}

func (w *writer) fields(fields []registry.Field) {
	w.compact(len(fields))
	for _, f := range fields {
		w.optStr(f.Name)
		w.id(f.Type)
		w.optStr(f.TypeName)
		w.strs(f.Docs)
	}
}

func (w *writer) typeDef(d *registry.TypeDef) {
	w.u8(uint8(d.Kind))
	switch d.Kind {
	case registry.KindComposite:
		w.fields(d.Fields)
	case registry.KindVariant:
		w.compact(len(d.Variants))
		for _, v := range d.Variants {
			w.str(v.Name)
			w.fields(v.Fields)
			w.u8(v.Index)
			w.strs(v.Docs)
		}
	case registry.KindSequence, registry.KindCompact:
		w.id(d.Elem)
	case registry.KindArray:
		w.buf = binary.LittleEndian.AppendUint32(w.buf, d.Len)
		w.id(d.Elem)
	case registry.KindTuple:
		w.compact(len(d.Elems))
		for _, e := range d.Elems {
			w.id(e)
		}
	case registry.KindPrimitive:
		w.u8(uint8(d.Primitive))
	case registry.KindBitSequence:
		w.id(d.BitStore)
		w.id(d.BitOrder)
	}
}

func (w *writer) pallet(p *Pallet) {
	w.str(p.Name)
	if p.Storage == nil {
		w.u8(0)
	} else {
		w.u8(1)
		w.str(p.Storage.Prefix)
		w.compact(len(p.Storage.Entries))
		for _, e := range p.Storage.Entries {
			w.str(e.Name)
			w.u8(uint8(e.Modifier))
			if e.Map {
				w.u8(1)
				w.compact(len(e.Hashers))
				for _, h := range e.Hashers {
					w.u8(uint8(h))
				}
				w.id(e.Key)
				w.id(e.Value)
			} else {
				w.u8(0)
				w.id(e.Value)
			}
			w.bytes(e.Default)
			w.strs(e.Docs)
		}
	}
	w.optID(p.Calls)
	w.optID(p.Event)
	w.compact(len(p.Constants))
	for _, c := range p.Constants {
		w.str(c.Name)
		w.id(c.Type)
		w.bytes(c.Value)
		w.strs(c.Docs)
	}
	w.optID(p.Error)
	w.u8(p.Index)
}

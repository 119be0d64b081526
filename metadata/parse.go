package metadata

import (
	"fmt"
	"math"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// Parse decodes encoded runtime metadata. Only schema version 14 is
// accepted.
func Parse(data []byte) (*Metadata, error) {
	p := &parser{r: scale.NewReader(data)}
	magic := p.u32()
	version := p.u8()
	if p.err != nil {
		return nil, p.err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	types := p.types()
	m := &Metadata{Pallets: p.pallets()}
	m.Extrinsic = p.extrinsic()
	m.RuntimeType = p.id()
	if p.err != nil {
		return nil, p.err
	}
	if n := p.r.Remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, n)
	}

	reg, err := registry.New(types)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	m.Types = reg
	for _, id := range m.refs() {
		if _, ok := reg.Resolve(id); !ok {
			return nil, fmt.Errorf("%w: unknown type id %d", ErrMalformed, id)
		}
	}
	m.index()
	return m, nil
}

// parser reads metadata structures. The first error is kept and all later
// reads return zero values.
type parser struct {
	r   *scale.Reader
	err error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: offset %d: %w", ErrMalformed, p.r.Offset(), err)
	}
}

func (p *parser) u8() uint8 {
	if p.err != nil {
		return 0
	}
	b, err := p.r.ReadByte()
	if err != nil {
		p.fail(err)
	}
	return b
}

func (p *parser) u32() uint32 {
	if p.err != nil {
		return 0
	}
	v, err := p.r.ReadUint32()
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) compact() uint64 {
	if p.err != nil {
		return 0
	}
	v, err := p.r.ReadCompact()
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) id() registry.TypeID {
	v := p.compact()
	if v > math.MaxUint32 {
		p.fail(fmt.Errorf("type id %d out of range", v))
		return 0
	}
	return registry.TypeID(v)
}

// count reads a sequence length. Every element takes at least one byte, so
// a length beyond the remaining input is rejected before allocating.
func (p *parser) count() int {
	n := p.compact()
	if n > uint64(p.r.Remaining()) {
		p.fail(fmt.Errorf("sequence length %d exceeds input", n))
		return 0
	}
	return int(n)
}

func (p *parser) flag() bool {
	switch b := p.u8(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		p.fail(fmt.Errorf("invalid option byte 0x%02x", b))
		return false
	}
}

func (p *parser) bytes() []byte {
	if p.err != nil {
		return nil
	}
	b, err := p.r.ReadBytes()
	if err != nil {
		p.fail(err)
		return nil
	}
	return append([]byte(nil), b...)
}

func (p *parser) str() string {
	if p.err != nil {
		return ""
	}
	s, err := p.r.ReadString()
	if err != nil {
		p.fail(err)
	}
	return s
}

func (p *parser) optStr() string {
	if p.flag() {
		return p.str()
	}
	return ""
}

func (p *parser) strs() []string {
	n := p.count()
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && p.err == nil; i++ {
		out = append(out, p.str())
	}
	return out
}

func (p *parser) optID() *registry.TypeID {
	if !p.flag() {
		return nil
	}
	id := p.id()
	return &id
}

func (p *parser) types() []registry.Type {
	n := p.count()
	types := make([]registry.Type, 0, n)
	for i := 0; i < n && p.err == nil; i++ {
		t := registry.Type{ID: p.id(), Path: p.strs()}
		np := p.count()
		for j := 0; j < np && p.err == nil; j++ {
			t.Params = append(t.Params, registry.TypeParam{Name: p.str(), Type: p.optID()})
		}
		t.Def = p.typeDef()
		t.Docs = p.strs()
		types = append(types, t)
	}
	return types
}

func (p *parser) typeDef() registry.TypeDef {
	var d registry.TypeDef
	tag := p.u8()
	if p.err != nil {
		return d
	}
	d.Kind = registry.Kind(tag)
	switch d.Kind {
	case registry.KindComposite:
		d.Fields = p.fields()
	case registry.KindVariant:
		n := p.count()
		for i := 0; i < n && p.err == nil; i++ {
			d.Variants = append(d.Variants, registry.Variant{
				Name:   p.str(),
				Fields: p.fields(),
				Index:  p.u8(),
				Docs:   p.strs(),
			})
		}
	case registry.KindSequence, registry.KindCompact:
		d.Elem = p.id()
	case registry.KindArray:
		d.Len = p.u32()
		d.Elem = p.id()
	case registry.KindTuple:
		n := p.count()
		for i := 0; i < n && p.err == nil; i++ {
			d.Elems = append(d.Elems, p.id())
		}
	case registry.KindPrimitive:
		d.Primitive = registry.Primitive(p.u8())
	case registry.KindBitSequence:
		d.BitStore = p.id()
		d.BitOrder = p.id()
	default:
		p.fail(fmt.Errorf("unknown type def tag %d", tag))
	}
	return d
}

func (p *parser) fields() []registry.Field {
	n := p.count()
	var fields []registry.Field
	for i := 0; i < n && p.err == nil; i++ {
		fields = append(fields, registry.Field{
			Name:     p.optStr(),
			Type:     p.id(),
			TypeName: p.optStr(),
			Docs:     p.strs(),
		})
	}
	return fields
}

func (p *parser) pallets() []Pallet {
	n := p.count()
	pallets := make([]Pallet, 0, n)
	for i := 0; i < n && p.err == nil; i++ {
		pl := Pallet{Name: p.str()}
		if p.flag() {
			pl.Storage = p.storage()
		}
		pl.Calls = p.optID()
		pl.Event = p.optID()
		nc := p.count()
		for j := 0; j < nc && p.err == nil; j++ {
			pl.Constants = append(pl.Constants, Constant{
				Name:  p.str(),
				Type:  p.id(),
				Value: p.bytes(),
				Docs:  p.strs(),
			})
		}
		pl.Error = p.optID()
		pl.Index = p.u8()
		pallets = append(pallets, pl)
	}
	return pallets
}

func (p *parser) storage() *PalletStorage {
	s := &PalletStorage{Prefix: p.str()}
	n := p.count()
	for i := 0; i < n && p.err == nil; i++ {
		e := StorageEntry{Name: p.str(), Modifier: Modifier(p.u8())}
		if e.Modifier > Default {
			p.fail(fmt.Errorf("unknown storage modifier %d", e.Modifier))
		}
		switch kind := p.u8(); kind {
		case 0:
			e.Value = p.id()
		case 1:
			e.Map = true
			nh := p.count()
			for j := 0; j < nh && p.err == nil; j++ {
				h := Hasher(p.u8())
				if h > Identity {
					p.fail(fmt.Errorf("unknown storage hasher %d", h))
				}
				e.Hashers = append(e.Hashers, h)
			}
			e.Key = p.id()
			e.Value = p.id()
		default:
			p.fail(fmt.Errorf("unknown storage entry kind %d", kind))
		}
		e.Default = p.bytes()
		e.Docs = p.strs()
		s.Entries = append(s.Entries, e)
	}
	return s
}

func (p *parser) extrinsic() ExtrinsicInfo {
	x := ExtrinsicInfo{Type: p.id(), Version: p.u8()}
	n := p.count()
	for i := 0; i < n && p.err == nil; i++ {
		x.SignedExtensions = append(x.SignedExtensions, SignedExtension{
			Identifier:       p.str(),
			Type:             p.id(),
			AdditionalSigned: p.id(),
		})
	}
	return x
}

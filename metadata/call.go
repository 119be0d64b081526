package metadata

import (
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// EncodeCall encodes a runtime call: the pallet index followed by the call
// variant of that pallet. args is the variant payload in the generic value
// form accepted by scale.Encode, nil for calls without arguments.
func (m *Metadata) EncodeCall(pallet, call string, args scale.Value) ([]byte, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	if p.Calls == nil {
		return nil, fmt.Errorf("%w: %s has no calls", ErrCallNotFound, pallet)
	}
	t, _ := m.Types.Resolve(*p.Calls)
	if _, ok := t.Def.VariantByName(call); !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrCallNotFound, pallet, call)
	}
	return scale.Append(m.Types, []byte{p.Index}, *p.Calls, scale.Variant{Name: call, Value: args})
}

// DecodeCall splits an encoded call into its pallet and decoded call variant.
func (m *Metadata) DecodeCall(data []byte) (*Pallet, scale.Variant, error) {
	if len(data) == 0 {
		return nil, scale.Variant{}, scale.ErrShortBuffer
	}
	p, ok := m.PalletByIndex(data[0])
	if !ok || p.Calls == nil {
		return nil, scale.Variant{}, fmt.Errorf("%w: pallet index %d", ErrCallNotFound, data[0])
	}
	var call scale.Variant
	if err := scale.Unmarshal(m.Types, *p.Calls, data[1:], &call); err != nil {
		return nil, scale.Variant{}, err
	}
	return p, call, nil
}

// ConstantValue decodes the value of a pallet constant.
func (m *Metadata) ConstantValue(pallet, name string) (scale.Value, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	c, err := p.Constant(name)
	if err != nil {
		return nil, err
	}
	return scale.Decode(m.Types, c.Type, c.Value)
}

// Package extrinsic encodes and decodes the transaction envelope: version
// header, optional signature block and the encoded call.
package extrinsic

import (
	"errors"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

// Version is the supported envelope version.
const Version = 4

const signedBit = 0x80

var (
	ErrUnsupportedVersion = errors.New("extrinsic: unsupported version")
	ErrMalformed          = errors.New("extrinsic: malformed")
	ErrMissingLayout      = errors.New("extrinsic: signed envelope needs a layout")
	ErrUnknownExtension   = errors.New("extrinsic: unknown signed extension")
)

// Signature is the signed part of an envelope. Each field holds SCALE
// encoded bytes of the runtime's address, signature and extra types.
type Signature struct {
	Address   []byte
	Signature []byte
	Extra     []byte
}

// Envelope is an extrinsic split into its parts. Signature is nil for
// unsigned extrinsics.
type Envelope struct {
	Signature *Signature
	Call      []byte
}

func (e *Envelope) IsSigned() bool { return e.Signature != nil }

// Encode returns the length-prefixed envelope as submitted to the node.
func (e *Envelope) Encode() []byte {
	n := 1 + len(e.Call)
	if e.Signature != nil {
		n += len(e.Signature.Address) + len(e.Signature.Signature) + len(e.Signature.Extra)
	}
	buf := scale.AppendCompact(make([]byte, 0, n+5), uint64(n))
	if e.Signature == nil {
		buf = append(buf, Version)
	} else {
		buf = append(buf, Version|signedBit)
		buf = append(buf, e.Signature.Address...)
		buf = append(buf, e.Signature.Signature...)
		buf = append(buf, e.Signature.Extra...)
	}
	return append(buf, e.Call...)
}

// Hash returns the content hash of an encoded envelope, the key the node
// uses for the transaction.
func Hash(encoded []byte) types.Hash {
	return types.Blake2b256(encoded)
}

// Layout names the types making up a signed envelope.
type Layout struct {
	Types     *registry.Registry
	Address   registry.TypeID
	Signature registry.TypeID
	Extra     registry.TypeID
}

// LayoutFromMetadata reads the layout from the type parameters of the
// runtime's extrinsic type.
func LayoutFromMetadata(m *metadata.Metadata) (*Layout, error) {
	if m.Extrinsic.Version != Version {
		return nil, fmt.Errorf("%w: metadata declares %d", ErrUnsupportedVersion, m.Extrinsic.Version)
	}
	t, ok := m.Types.Resolve(m.Extrinsic.Type)
	if !ok {
		return nil, fmt.Errorf("%w: extrinsic type %d", scale.ErrUnknownType, m.Extrinsic.Type)
	}
	l := &Layout{Types: m.Types}
	for name, dst := range map[string]*registry.TypeID{"Address": &l.Address, "Signature": &l.Signature, "Extra": &l.Extra} {
		id, ok := t.Param(name)
		if !ok {
			return nil, fmt.Errorf("%w: extrinsic type has no %s parameter", ErrMalformed, name)
		}
		*dst = id
	}
	return l, nil
}

// Decode splits an encoded envelope. layout may be nil when only unsigned
// envelopes are expected.
func Decode(data []byte, layout *Layout) (*Envelope, error) {
	r := scale.NewReader(data)
	n, err := r.ReadCompact()
	if err != nil {
		return nil, fmt.Errorf("%w: length: %w", ErrMalformed, err)
	}
	if n != uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: length prefix %d, %d bytes follow", ErrMalformed, n, r.Remaining())
	}
	body, _ := r.Read(int(n))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	header, rest := body[0], body[1:]
	if v := header &^ signedBit; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if header&signedBit == 0 {
		return &Envelope{Call: rest}, nil
	}
	if layout == nil {
		return nil, ErrMissingLayout
	}

	d := scale.NewDecoder(layout.Types, rest)
	var bounds [3]int
	for i, id := range []registry.TypeID{layout.Address, layout.Signature, layout.Extra} {
		if err := d.Skip(id); err != nil {
			return nil, fmt.Errorf("%w: signature block: %w", ErrMalformed, err)
		}
		bounds[i] = d.Offset()
	}
	return &Envelope{
		Signature: &Signature{
			Address:   rest[:bounds[0]],
			Signature: rest[bounds[0]:bounds[1]],
			Extra:     rest[bounds[1]:bounds[2]],
		},
		Call: rest[bounds[2]:],
	}, nil
}

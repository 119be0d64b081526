// Package metadata parses runtime metadata (schema V14) into a type registry
// plus the pallet, storage, call, event and signed extension descriptions
// that index into it.
package metadata

import (
	"errors"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

// Magic is the little-endian "meta" prefix of encoded metadata.
const Magic uint32 = 0x6174656d

// Version is the only supported metadata schema version.
const Version uint8 = 14

var (
	ErrBadMagic           = errors.New("metadata: bad magic")
	ErrUnsupportedVersion = errors.New("metadata: unsupported version")
	ErrMalformed          = errors.New("metadata: malformed")
	ErrPalletNotFound     = errors.New("metadata: pallet not found")
	ErrEntryNotFound      = errors.New("metadata: storage entry not found")
	ErrCallNotFound       = errors.New("metadata: call not found")
	ErrConstantNotFound   = errors.New("metadata: constant not found")
	ErrKeyCount           = errors.New("metadata: wrong number of storage keys")
)

type Metadata struct {
	Types       *registry.Registry
	Pallets     []Pallet
	Extrinsic   ExtrinsicInfo
	RuntimeType registry.TypeID

	byName map[string]int
}

type Pallet struct {
	Name      string
	Storage   *PalletStorage
	Calls     *registry.TypeID
	Event     *registry.TypeID
	Constants []Constant
	Error     *registry.TypeID
	Index     uint8
}

type PalletStorage struct {
	Prefix  string
	Entries []StorageEntry
}

// Modifier says what a storage read of a missing key returns.
type Modifier uint8

const (
	Optional Modifier = iota
	Default
)

type StorageEntry struct {
	Name     string
	Modifier Modifier
	Map      bool
	Hashers  []Hasher // map entries only
	Key      registry.TypeID
	Value    registry.TypeID
	Default  []byte
	Docs     []string
}

type Constant struct {
	Name  string
	Type  registry.TypeID
	Value []byte
	Docs  []string
}

type ExtrinsicInfo struct {
	Type             registry.TypeID
	Version          uint8
	SignedExtensions []SignedExtension
}

// SignedExtension describes one extension: Type is the data carried in the
// extrinsic, AdditionalSigned the data only included in the signing payload.
type SignedExtension struct {
	Identifier       string
	Type             registry.TypeID
	AdditionalSigned registry.TypeID
}

func (m *Metadata) index() {
	m.byName = make(map[string]int, len(m.Pallets))
	for i := range m.Pallets {
		m.byName[m.Pallets[i].Name] = i
	}
}

// Pallet looks up a pallet by name.
func (m *Metadata) Pallet(name string) (*Pallet, error) {
	i, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPalletNotFound, name)
	}
	return &m.Pallets[i], nil
}

// PalletByIndex looks up a pallet by its call/event index.
func (m *Metadata) PalletByIndex(index uint8) (*Pallet, bool) {
	for i := range m.Pallets {
		if m.Pallets[i].Index == index {
			return &m.Pallets[i], true
		}
	}
	return nil, false
}

// StorageEntry looks up a storage entry of a pallet.
func (p *Pallet) StorageEntry(name string) (*StorageEntry, error) {
	if p.Storage != nil {
		for i := range p.Storage.Entries {
			if p.Storage.Entries[i].Name == name {
				return &p.Storage.Entries[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrEntryNotFound, p.Name, name)
}

func (p *Pallet) Constant(name string) (*Constant, error) {
	for i := range p.Constants {
		if p.Constants[i].Name == name {
			return &p.Constants[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrConstantNotFound, p.Name, name)
}

// HasExtension reports whether the runtime uses the named signed extension.
func (m *Metadata) HasExtension(identifier string) bool {
	for _, ext := range m.Extrinsic.SignedExtensions {
		if ext.Identifier == identifier {
			return true
		}
	}
	return false
}

// refs lists every type id referenced outside the registry itself.
func (m *Metadata) refs() []registry.TypeID {
	ids := []registry.TypeID{m.RuntimeType, m.Extrinsic.Type}
	for _, ext := range m.Extrinsic.SignedExtensions {
		ids = append(ids, ext.Type, ext.AdditionalSigned)
	}
	for _, p := range m.Pallets {
		if p.Storage != nil {
			for _, e := range p.Storage.Entries {
				if e.Map {
					ids = append(ids, e.Key)
				}
				ids = append(ids, e.Value)
			}
		}
		for _, id := range []*registry.TypeID{p.Calls, p.Event, p.Error} {
			if id != nil {
				ids = append(ids, *id)
			}
		}
		for _, c := range p.Constants {
			ids = append(ids, c.Type)
		}
	}
	return ids
}

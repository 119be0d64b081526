package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// Hasher is a storage key hashing scheme.
type Hasher uint8

const (
	Blake2_128 Hasher = iota
	Blake2_256
	Blake2_128Concat
	Twox128
	Twox256
	Twox64Concat
	Identity
)

var hasherNames = [...]string{"Blake2_128", "Blake2_256", "Blake2_128Concat", "Twox128", "Twox256", "Twox64Concat", "Identity"}

func (h Hasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return fmt.Sprintf("Hasher(%d)", uint8(h))
}

// Hash hashes one encoded key part.
func (h Hasher) Hash(data []byte) []byte {
	switch h {
	case Blake2_128:
		return Blake2b128(data)
	case Blake2_256:
		sum := blake2b.Sum256(data)
		return sum[:]
	case Blake2_128Concat:
		return append(Blake2b128(data), data...)
	case Twox128:
		return Twox(data, 2)
	case Twox256:
		return Twox(data, 4)
	case Twox64Concat:
		return append(Twox(data, 1), data...)
	default:
		return append([]byte(nil), data...)
	}
}

// KeyHashLen returns the length of the hash that precedes the original key
// in a hashed key part. ok is false for hashers that do not keep the key.
func (h Hasher) KeyHashLen() (n int, ok bool) {
	switch h {
	case Blake2_128Concat:
		return 16, true
	case Twox64Concat:
		return 8, true
	case Identity:
		return 0, true
	}
	return 0, false
}

// Twox concatenates n little-endian xxh64 digests of data seeded 0..n-1.
func Twox(data []byte, n int) []byte {
	out := make([]byte, 0, 8*n)
	for seed := 0; seed < n; seed++ {
		d := xxhash.NewWithSeed(uint64(seed))
		d.Write(data)
		out = binary.LittleEndian.AppendUint64(out, d.Sum64())
	}
	return out
}

func Blake2b128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}

// StoragePrefix returns twox128(pallet) ++ twox128(entry).
func StoragePrefix(pallet, entry string) []byte {
	return append(Twox([]byte(pallet), 2), Twox([]byte(entry), 2)...)
}

// StorageKey builds the key of a storage entry from SCALE-encoded key parts.
// Supplying fewer parts than the entry has hashers yields a prefix that
// matches every key sharing those parts.
func (m *Metadata) StorageKey(pallet, entry string, parts ...[]byte) ([]byte, *StorageEntry, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, nil, err
	}
	e, err := p.StorageEntry(entry)
	if err != nil {
		return nil, nil, err
	}
	if len(parts) > len(e.Hashers) {
		return nil, nil, fmt.Errorf("%w: %s.%s takes %d, got %d", ErrKeyCount, pallet, entry, len(e.Hashers), len(parts))
	}
	key := StoragePrefix(p.Storage.Prefix, e.Name)
	for i, part := range parts {
		key = append(key, e.Hashers[i].Hash(part)...)
	}
	return key, e, nil
}

// KeyTypes returns the type of each key part of a map entry.
func (m *Metadata) KeyTypes(e *StorageEntry) ([]registry.TypeID, error) {
	switch len(e.Hashers) {
	case 0:
		return nil, nil
	case 1:
		return []registry.TypeID{e.Key}, nil
	}
	t, ok := m.Types.Resolve(e.Key)
	if !ok || t.Def.Kind != registry.KindTuple || len(t.Def.Elems) != len(e.Hashers) {
		return nil, fmt.Errorf("%w: key of %s does not match its %d hashers", ErrMalformed, e.Name, len(e.Hashers))
	}
	return t.Def.Elems, nil
}

// EncodeKey encodes generic key values and builds the storage key.
func (m *Metadata) EncodeKey(pallet, entry string, keys ...scale.Value) ([]byte, *StorageEntry, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, nil, err
	}
	e, err := p.StorageEntry(entry)
	if err != nil {
		return nil, nil, err
	}
	types, err := m.KeyTypes(e)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) > len(types) {
		return nil, nil, fmt.Errorf("%w: %s.%s takes %d, got %d", ErrKeyCount, pallet, entry, len(types), len(keys))
	}
	parts := make([][]byte, len(keys))
	for i, k := range keys {
		if parts[i], err = scale.Encode(m.Types, types[i], k); err != nil {
			return nil, nil, err
		}
	}
	return m.StorageKey(pallet, entry, parts...)
}

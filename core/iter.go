package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

var (
	ErrNoValueType = errors.New("storage iterator has no value type")
	ErrShortKey    = errors.New("storage key shorter than prefix and hash")
)

// IterOptions configures a StorageIter.
type IterOptions struct {
	// PageSize overrides the configured page size.
	PageSize uint32
	// HashLen is the length of the hash that precedes the original key in
	// the key tail; nil when the hasher does not keep the key.
	HashLen *int
	// Value is the type of the stored values, needed by Value and Decode.
	Value *registry.TypeID
	// Types resolves Value.
	Types *registry.Registry
	// At pins the iteration to a block. When nil the best block at the time
	// of the first page is used for every page.
	At *types.Hash
}

// StorageIter walks every key under a prefix page by page, fetching the
// values of each page in one state_queryStorageAt call. It only moves
// forward; Reset starts over.
type StorageIter struct {
	chain  *Chain
	prefix []byte
	opts   IterOptions

	at    *types.Hash
	start types.Bytes
	page  []types.Bytes
	vals  map[string]types.Bytes
	pos   int
	last  bool
	err   error

	key   []byte
	value []byte
}

// StorageIter returns an iterator over the keys starting with prefix.
func (c *Chain) StorageIter(prefix []byte, opts IterOptions) *StorageIter {
	if opts.PageSize == 0 {
		opts.PageSize = c.config.PageSize
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultConfig.PageSize
	}
	return &StorageIter{chain: c, prefix: prefix, opts: opts, at: opts.At, pos: -1}
}

// MapIter iterates all entries of a map storage entry of rt, with key
// tails and value decoding set up from the metadata.
func (c *Chain) MapIter(rt *Runtime, pallet, entry string, at *types.Hash) (*StorageIter, error) {
	prefix, e, err := rt.Metadata.StorageKey(pallet, entry)
	if err != nil {
		return nil, err
	}
	opts := IterOptions{Value: &e.Value, Types: rt.Types(), At: at}
	if len(e.Hashers) == 1 {
		if n, ok := e.Hashers[0].KeyHashLen(); ok {
			opts.HashLen = &n
		}
	}
	return c.StorageIter(prefix, opts), nil
}

// Next advances to the next entry. It returns false when the keys are
// exhausted or a call failed; check Err.
func (it *StorageIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	it.pos++
	if it.pos >= len(it.page) {
		if it.last {
			return false
		}
		if it.err = it.fetch(ctx); it.err != nil {
			return false
		}
		if len(it.page) == 0 {
			return false
		}
	}
	it.key = it.page[it.pos]
	it.value = it.vals[string(it.key)]
	return true
}

func (it *StorageIter) fetch(ctx context.Context) error {
	if it.at == nil {
		head, err := it.chain.BlockHash(ctx, nil)
		if err != nil {
			return err
		}
		it.at = &head
	}
	var start any
	if it.start != nil {
		start = it.start
	}
	var keys []types.Bytes
	err := it.chain.client.Call(ctx, &keys, "state_getKeysPaged", types.Bytes(it.prefix), it.opts.PageSize, start, *it.at)
	if err != nil {
		return err
	}
	it.page, it.pos = keys, 0
	it.last = uint32(len(keys)) < it.opts.PageSize
	it.vals = make(map[string]types.Bytes, len(keys))
	if len(keys) == 0 {
		return nil
	}
	it.start = keys[len(keys)-1]

	var sets []types.StorageChangeSet
	if err := it.chain.client.Call(ctx, &sets, "state_queryStorageAt", keys, *it.at); err != nil {
		return err
	}
	for _, set := range sets {
		for _, change := range set.Changes {
			if v, ok := change.Value(); ok {
				it.vals[string(change.Key())] = v
			}
		}
	}
	return nil
}

// Key returns the full storage key of the current entry.
func (it *StorageIter) Key() []byte { return it.key }

// KeyTail returns the original key bytes of the current entry.
func (it *StorageIter) KeyTail() ([]byte, error) {
	if it.opts.HashLen == nil {
		return nil, ErrNonInvertibleKey
	}
	start := len(it.prefix) + *it.opts.HashLen
	if *it.opts.HashLen < 0 || start > len(it.key) {
		return nil, fmt.Errorf("%w: key 0x%x", ErrShortKey, it.key)
	}
	return it.key[start:], nil
}

// Raw returns the encoded value of the current entry, nil when the key was
// removed between listing and reading.
func (it *StorageIter) Raw() []byte { return it.value }

// Value decodes the current value generically.
func (it *StorageIter) Value() (scale.Value, error) {
	var v scale.Value
	err := it.Decode(&v)
	return v, err
}

// Decode unmarshals the current value into v.
func (it *StorageIter) Decode(v any) error {
	if it.opts.Value == nil || it.opts.Types == nil {
		return ErrNoValueType
	}
	return scale.Unmarshal(it.opts.Types, *it.opts.Value, it.value, v)
}

func (it *StorageIter) Err() error { return it.err }

// Reset rewinds the iterator to the first key. A block picked for an
// unpinned iteration is forgotten.
func (it *StorageIter) Reset() {
	*it = StorageIter{chain: it.chain, prefix: it.prefix, opts: it.opts, at: it.opts.At, pos: -1}
}

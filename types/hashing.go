package types

import (
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// hasherPool holds blake2b-256 hashers for Blake2b256.
var hasherPool = sync.Pool{
	New: func() interface{} {
		h, _ := blake2b.New256(nil)
		return h
	},
}

// Blake2b256 hashes the concatenation of data.
func Blake2b256(data ...[]byte) Hash {
	h := hasherPool.Get().(hash.Hash)
	defer hasherPool.Put(h)
	h.Reset()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

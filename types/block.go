package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// Digest holds the header's digest items, each already SCALE encoded.
type Digest struct {
	Logs []Bytes `json:"logs"`
}

type Header struct {
	ParentHash     Hash           `json:"parentHash"`
	Number         hexutil.Uint64 `json:"number"`
	StateRoot      Hash           `json:"stateRoot"`
	ExtrinsicsRoot Hash           `json:"extrinsicsRoot"`
	Digest         Digest         `json:"digest"`
}

// Encode returns the SCALE encoding of the header, with the block number
// compact encoded.
func (h *Header) Encode() []byte {
	buf := make([]byte, 0, 32*3+9+64)
	buf = append(buf, h.ParentHash[:]...)
	buf = scale.AppendCompact(buf, uint64(h.Number))
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.ExtrinsicsRoot[:]...)
	buf = scale.AppendCompact(buf, uint64(len(h.Digest.Logs)))
	for _, l := range h.Digest.Logs {
		buf = append(buf, l...)
	}
	return buf
}

// Hash is the block hash: blake2b-256 of the encoded header.
func (h *Header) Hash() Hash {
	return Blake2b256(h.Encode())
}

// Block is a block body as returned by chain_getBlock. Extrinsics are the
// encoded envelopes in block order.
type Block struct {
	Header     Header  `json:"header"`
	Extrinsics []Bytes `json:"extrinsics"`
}

type SignedBlock struct {
	Block          Block           `json:"block"`
	Justifications json.RawMessage `json:"justifications,omitempty"`
}

// StorageChange is a [key, value] pair; a nil value means the key is unset.
type StorageChange [2]*Bytes

func (c StorageChange) Key() Bytes {
	if c[0] == nil {
		return nil
	}
	return *c[0]
}

func (c StorageChange) Value() (Bytes, bool) {
	if c[1] == nil {
		return nil, false
	}
	return *c[1], true
}

// StorageChangeSet is one entry of a state_queryStorageAt result.
type StorageChangeSet struct {
	Block   Hash            `json:"block"`
	Changes []StorageChange `json:"changes"`
}

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hash is a 32 byte block or extrinsic hash, hex encoded in JSON.
type Hash = common.Hash

// Bytes is a byte slice hex encoded in JSON.
type Bytes = hexutil.Bytes

// HexToHash parses s, with or without 0x prefix.
func HexToHash(s string) Hash {
	return common.HexToHash(s)
}

// ParseHash parses a 0x-prefixed hash of exactly 32 bytes.
func ParseHash(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != common.HashLength {
		return Hash{}, ErrInvalidHash
	}
	return common.BytesToHash(b), nil
}

// RuntimeVersion identifies the runtime a block executes under. Metadata
// only changes along with SpecVersion.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	AuthoringVersion   uint32 `json:"authoringVersion"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
	StateVersion       uint8  `json:"stateVersion"`
}

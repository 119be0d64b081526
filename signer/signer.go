// Package signer holds local keys that satisfy transactor.Signer.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ed25519"

	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var ErrUnknownScheme = errors.New("unknown key scheme")

// nonces remembers the next nonce between submissions.
type nonces struct {
	mu   sync.Mutex
	next *uint64
}

func (n *nonces) NextNonce() (uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.next == nil {
		return 0, false
	}
	return *n.next, true
}

func (n *nonces) SetNonce(nonce uint64) {
	n.mu.Lock()
	n.next = &nonce
	n.mu.Unlock()
}

// ResetNonce forgets the cached nonce, so the next transaction asks the
// node again.
func (n *nonces) ResetNonce() {
	n.mu.Lock()
	n.next = nil
	n.mu.Unlock()
}

// Ed25519 signs with an ed25519 key. The account id is the public key.
type Ed25519 struct {
	nonces
	key ed25519.PrivateKey
}

// NewEd25519 creates a signer from a 32-byte seed.
func NewEd25519(seed []byte) (*Ed25519, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519) AccountID() types.AccountID {
	id, _ := types.NewAccountID(s.key.Public().(ed25519.PublicKey))
	return id
}

func (s *Ed25519) Kind() extrinsic.SignatureKind { return extrinsic.Ed25519 }

func (s *Ed25519) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.key, payload), nil
}

// Ecdsa signs with a secp256k1 key. The account id is the blake2b-256 hash
// of the compressed public key, and payloads are hashed with blake2b-256
// before signing.
type Ecdsa struct {
	nonces
	key *ecdsa.PrivateKey
}

func NewEcdsa(secret []byte) (*Ecdsa, error) {
	key, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, err
	}
	return &Ecdsa{key: key}, nil
}

func (s *Ecdsa) AccountID() types.AccountID {
	return types.AccountID(types.Blake2b256(crypto.CompressPubkey(&s.key.PublicKey)))
}

func (s *Ecdsa) Kind() extrinsic.SignatureKind { return extrinsic.Ecdsa }

// Sign returns r, s and the recovery id.
func (s *Ecdsa) Sign(payload []byte) ([]byte, error) {
	digest := types.Blake2b256(payload)
	return crypto.Sign(digest[:], s.key)
}

// Key is a signer with a nonce cache.
type Key interface {
	AccountID() types.AccountID
	Kind() extrinsic.SignatureKind
	Sign(payload []byte) ([]byte, error)
	NextNonce() (uint64, bool)
	SetNonce(nonce uint64)
	ResetNonce()
}

var (
	_ Key = (*Ed25519)(nil)
	_ Key = (*Ecdsa)(nil)
)

// Parse reads a key of the form "<scheme>:<hex secret>", where scheme is
// ed25519 or ecdsa. A bare hex secret is an ed25519 seed.
func Parse(s string) (Key, error) {
	scheme, secret, found := strings.Cut(s, ":")
	if !found {
		scheme, secret = "ed25519", s
	}
	raw, err := hexutil.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("key secret: %w", err)
	}
	switch strings.ToLower(scheme) {
	case "ed25519":
		return NewEd25519(raw)
	case "ecdsa":
		return NewEcdsa(raw)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
}

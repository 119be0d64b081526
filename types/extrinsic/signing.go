package extrinsic

import (
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

// maxPayload is the longest signing payload signed as is; longer payloads
// are signed by their blake2b-256 hash.
const maxPayload = 256

// SigningPayload returns the bytes a signer signs: call, extra and
// additional data concatenated.
func SigningPayload(call, extra, additional []byte) []byte {
	payload := make([]byte, 0, len(call)+len(extra)+len(additional))
	payload = append(payload, call...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > maxPayload {
		h := types.Blake2b256(payload)
		return h[:]
	}
	return payload
}

// SignatureKind is the MultiSignature variant of a signature scheme.
type SignatureKind uint8

const (
	Ed25519 SignatureKind = iota
	Sr25519
	Ecdsa
)

func (k SignatureKind) String() string {
	switch k {
	case Ed25519:
		return "Ed25519"
	case Sr25519:
		return "Sr25519"
	case Ecdsa:
		return "Ecdsa"
	}
	return "Unknown"
}

// MultiSignature encodes sig as the MultiSignature variant of kind.
func MultiSignature(kind SignatureKind, sig []byte) []byte {
	return append([]byte{byte(kind)}, sig...)
}

// MultiAddress encodes an account as MultiAddress::Id.
func MultiAddress(id types.AccountID) []byte {
	return append([]byte{0}, id[:]...)
}

// NewSigned assembles a signed envelope.
func NewSigned(address, signature, extra, call []byte) *Envelope {
	return &Envelope{
		Signature: &Signature{Address: address, Signature: signature, Extra: extra},
		Call:      call,
	}
}

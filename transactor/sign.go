package transactor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

// DefaultMortality is the era period used when Options leaves it unset.
const DefaultMortality = 64

var ErrNoRuntime = errors.New("chain has no runtime")

// Signer signs payloads for one account.
type Signer interface {
	AccountID() types.AccountID
	Kind() extrinsic.SignatureKind
	Sign(payload []byte) ([]byte, error)
}

// NonceCache is implemented by signers that remember the next nonce, so
// consecutive transactions do not wait for the pool to catch up.
type NonceCache interface {
	NextNonce() (uint64, bool)
	SetNonce(nonce uint64)
}

type Options struct {
	// Nonce overrides the cached or queried nonce.
	Nonce *uint64
	Tip   *big.Int
	// Mortality is the era period in blocks, counted from the finalized
	// head. Zero uses DefaultMortality.
	Mortality uint64
	Immortal  bool
}

// Sign builds a signed envelope of call for the chain's current runtime.
func Sign(ctx context.Context, chain *core.Chain, signer Signer, call []byte, opts Options) ([]byte, error) {
	rt := chain.Current()
	if rt == nil {
		return nil, ErrNoRuntime
	}
	nonce, err := nextNonce(ctx, chain, signer, opts)
	if err != nil {
		return nil, err
	}
	x := extrinsic.Extensions{
		Era:                extrinsic.Immortal(),
		Nonce:              nonce,
		Tip:                opts.Tip,
		SpecVersion:        rt.Version.SpecVersion,
		TransactionVersion: rt.Version.TransactionVersion,
		Genesis:            chain.Genesis(),
	}
	if !opts.Immortal {
		if x.Era, x.Checkpoint, err = mortality(ctx, chain, opts.Mortality); err != nil {
			return nil, err
		}
	}
	extra, additional, err := x.Build(rt.Metadata)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(extrinsic.SigningPayload(call, extra, additional))
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	address, signature := encodeSigner(rt, signer, sig)
	if cache, ok := signer.(NonceCache); ok {
		cache.SetNonce(nonce + 1)
	}
	return extrinsic.NewSigned(address, signature, extra, call).Encode(), nil
}

// SignAndSubmit signs call and submits it for tracking.
func SignAndSubmit(ctx context.Context, chain *core.Chain, signer Signer, call []byte, opts Options) (*Transaction, error) {
	encoded, err := Sign(ctx, chain, signer, call, opts)
	if err != nil {
		return nil, err
	}
	return Submit(ctx, chain, encoded)
}

func nextNonce(ctx context.Context, chain *core.Chain, signer Signer, opts Options) (uint64, error) {
	if opts.Nonce != nil {
		return *opts.Nonce, nil
	}
	if cache, ok := signer.(NonceCache); ok {
		if n, ok := cache.NextNonce(); ok {
			return n, nil
		}
	}
	return chain.AccountNextIndex(ctx, signer.AccountID())
}

// mortality anchors the era at the finalized head.
func mortality(ctx context.Context, chain *core.Chain, period uint64) (extrinsic.Era, types.Hash, error) {
	if period == 0 {
		period = DefaultMortality
	}
	finalized, err := chain.FinalizedHead(ctx)
	if err != nil {
		return extrinsic.Era{}, types.Hash{}, err
	}
	header, err := chain.Header(ctx, &finalized)
	if err != nil {
		return extrinsic.Era{}, types.Hash{}, err
	}
	number := uint64(header.Number)
	era := extrinsic.Mortal(period, number)
	birth := era.Birth(number)
	if birth == number {
		return era, finalized, nil
	}
	checkpoint, err := chain.BlockHash(ctx, &birth)
	if err != nil {
		return extrinsic.Era{}, types.Hash{}, err
	}
	return era, checkpoint, nil
}

// encodeSigner encodes the address and signature in the shapes the runtime
// declares: MultiAddress/MultiSignature enums or the bare values.
func encodeSigner(rt *core.Runtime, signer Signer, sig []byte) (address, signature []byte) {
	id := signer.AccountID()
	if isVariant(rt.Types(), rt.Layout.Address) {
		address = extrinsic.MultiAddress(id)
	} else {
		address = id.Bytes()
	}
	if isVariant(rt.Types(), rt.Layout.Signature) {
		signature = extrinsic.MultiSignature(signer.Kind(), sig)
	} else {
		signature = sig
	}
	return address, signature
}

func isVariant(reg *registry.Registry, id registry.TypeID) bool {
	t, ok := reg.Resolve(id)
	return ok && t.Def.Kind == registry.KindVariant
}

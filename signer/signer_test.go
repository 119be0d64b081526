package signer_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/signer"
	"github.com/PolymeshAssociation/polymesh-api-sub001/transactor"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var (
	_ transactor.Signer     = (*signer.Ed25519)(nil)
	_ transactor.NonceCache = (*signer.Ecdsa)(nil)
)

// RFC 8032 test 1
const (
	edSeed = "0x9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	edPub  = "0xd75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	edSig  = "0xe5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"
)

func TestEd25519(t *testing.T) {
	key, err := signer.Parse(edSeed)
	require.NoError(t, err)
	assert.Equal(t, extrinsic.Ed25519, key.Kind())
	assert.Equal(t, edPub, key.AccountID().Hex())

	sig, err := key.Sign(nil)
	require.NoError(t, err)
	assert.Equal(t, edSig, hexutil.Encode(sig))

	_, err = signer.NewEd25519(make([]byte, 31))
	assert.Error(t, err)
}

func TestEcdsa(t *testing.T) {
	secret := "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	key, err := signer.Parse("ecdsa:" + secret)
	require.NoError(t, err)
	assert.Equal(t, extrinsic.Ecdsa, key.Kind())

	priv, err := crypto.HexToECDSA(secret[2:])
	require.NoError(t, err)
	compressed := crypto.CompressPubkey(&priv.PublicKey)
	assert.Equal(t, types.AccountID(types.Blake2b256(compressed)), key.AccountID())

	payload := []byte("payload")
	sig, err := key.Sign(payload)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	digest := types.Blake2b256(payload)
	pub, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), crypto.PubkeyToAddress(*pub))
}

func TestParseErrors(t *testing.T) {
	_, err := signer.Parse("sr25519:0x00")
	assert.ErrorIs(t, err, signer.ErrUnknownScheme)
	_, err = signer.Parse("ed25519:zz")
	assert.Error(t, err)
	_, err = signer.Parse("ecdsa:0x00")
	assert.Error(t, err)
}

func TestNonceCache(t *testing.T) {
	key, err := signer.Parse(edSeed)
	require.NoError(t, err)
	_, ok := key.NextNonce()
	assert.False(t, ok)
	key.SetNonce(4)
	n, ok := key.NextNonce()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), n)
	key.ResetNonce()
	_, ok = key.NextNonce()
	assert.False(t, ok)
}

package metadata_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/testutil"
)

var alice, _ = hex.DecodeString("d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")

func TestParseRoundTrip(t *testing.T) {
	rt := testutil.SampleRuntime()
	m, err := metadata.Parse(rt.Encoded)
	require.NoError(t, err)
	assert.Equal(t, rt.Encoded, m.Encode())

	require.Len(t, m.Pallets, 2)
	assert.Equal(t, "System", m.Pallets[0].Name)
	assert.Equal(t, uint8(5), m.Pallets[1].Index)
	assert.Equal(t, uint8(4), m.Extrinsic.Version)
	require.Len(t, m.Extrinsic.SignedExtensions, len(testutil.SampleExtensions))
	for i, ext := range m.Extrinsic.SignedExtensions {
		assert.Equal(t, testutil.SampleExtensions[i], ext.Identifier)
	}
	assert.True(t, m.HasExtension("CheckNonce"))
	assert.False(t, m.HasExtension("CheckMetadataHash"))

	typ, ok := m.Types.FindByPath("sp_runtime", "MultiSignature")
	require.True(t, ok)
	assert.Equal(t, rt.MultiSignature, typ.ID)
}

func TestParseErrors(t *testing.T) {
	enc := testutil.SampleRuntime().Encoded

	bad := append([]byte{}, enc...)
	bad[0] = 'x'
	_, err := metadata.Parse(bad)
	assert.ErrorIs(t, err, metadata.ErrBadMagic)

	v13 := append([]byte{}, enc...)
	v13[4] = 13
	_, err = metadata.Parse(v13)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedVersion)

	_, err = metadata.Parse(enc[:len(enc)/2])
	assert.ErrorIs(t, err, metadata.ErrMalformed)

	_, err = metadata.Parse(append(append([]byte{}, enc...), 0))
	assert.ErrorIs(t, err, metadata.ErrMalformed)

	_, err = metadata.Parse(enc[:3])
	assert.ErrorIs(t, err, metadata.ErrMalformed)
}

func TestHashers(t *testing.T) {
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef7", hex.EncodeToString(metadata.Twox([]byte("System"), 2)))
	assert.Equal(t, "c2261276cc9d1f8598ea4b6a74b15c2f", hex.EncodeToString(metadata.Twox128.Hash([]byte("Balances"))))
	assert.Len(t, metadata.Twox256.Hash([]byte("x")), 32)
	assert.Len(t, metadata.Blake2_128.Hash([]byte("x")), 16)
	assert.Len(t, metadata.Blake2_256.Hash([]byte("x")), 32)
	assert.Equal(t, []byte("x"), metadata.Identity.Hash([]byte("x")))

	tests := []struct {
		h  metadata.Hasher
		n  int
		ok bool
	}{
		{metadata.Blake2_128, 0, false},
		{metadata.Blake2_256, 0, false},
		{metadata.Blake2_128Concat, 16, true},
		{metadata.Twox128, 0, false},
		{metadata.Twox256, 0, false},
		{metadata.Twox64Concat, 8, true},
		{metadata.Identity, 0, true},
	}
	for _, tt := range tests {
		n, ok := tt.h.KeyHashLen()
		assert.Equal(t, tt.n, n, tt.h.String())
		assert.Equal(t, tt.ok, ok, tt.h.String())
	}
}

func TestStorageKey(t *testing.T) {
	m := testutil.SampleRuntime().Meta

	key, e, err := m.StorageKey("System", "Events")
	require.NoError(t, err)
	assert.False(t, e.Map)
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7", hex.EncodeToString(key))

	key, _, err = m.StorageKey("Balances", "TotalIssuance")
	require.NoError(t, err)
	assert.Equal(t, "c2261276cc9d1f8598ea4b6a74b15c2f57c875e4cff74148e4628f264b974c80", hex.EncodeToString(key))

	prefix, _, err := m.StorageKey("System", "Account")
	require.NoError(t, err)
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9", hex.EncodeToString(prefix))

	key, _, err = m.StorageKey("System", "Account", alice)
	require.NoError(t, err)
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9"+
		"de1e86a9a8c739864cf3cc5ec2bea59f"+
		"d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d", hex.EncodeToString(key))

	_, _, err = m.StorageKey("System", "Account", alice, alice)
	assert.ErrorIs(t, err, metadata.ErrKeyCount)
	_, _, err = m.StorageKey("System", "Nope")
	assert.ErrorIs(t, err, metadata.ErrEntryNotFound)
	_, _, err = m.StorageKey("Nope", "Account")
	assert.ErrorIs(t, err, metadata.ErrPalletNotFound)
}

func TestEncodeKey(t *testing.T) {
	m := testutil.SampleRuntime().Meta

	fromValue, _, err := m.EncodeKey("System", "Account", alice)
	require.NoError(t, err)
	fromBytes, _, err := m.StorageKey("System", "Account", alice)
	require.NoError(t, err)
	assert.Equal(t, fromBytes, fromValue)

	key, _, err := m.EncodeKey("System", "BlockHash", uint32(1))
	require.NoError(t, err)
	prefix := metadata.StoragePrefix("System", "BlockHash")
	require.Len(t, key, len(prefix)+8+4)
	assert.Equal(t, prefix, key[:len(prefix)])
	assert.Equal(t, []byte{1, 0, 0, 0}, key[len(key)-4:])

	_, _, err = m.EncodeKey("System", "BlockHash", uint32(1), uint32(2))
	assert.ErrorIs(t, err, metadata.ErrKeyCount)
}

func TestEncodeCall(t *testing.T) {
	m := testutil.SampleRuntime().Meta

	call, err := m.EncodeCall("Balances", "transfer_keep_alive", map[string]scale.Value{
		"dest":  scale.Variant{Name: "Id", Value: alice},
		"value": uint64(1000),
	})
	require.NoError(t, err)
	want := append([]byte{0x05, 0x03, 0x00}, alice...)
	want = append(want, 0xa1, 0x0f)
	assert.Equal(t, want, call)

	p, v, err := m.DecodeCall(call)
	require.NoError(t, err)
	assert.Equal(t, "Balances", p.Name)
	assert.Equal(t, "transfer_keep_alive", v.Name)
	args := v.Value.(map[string]scale.Value)
	assert.Equal(t, scale.Variant{Name: "Id", Value: alice}, args["dest"])
	assert.Equal(t, big.NewInt(1000), args["value"])

	remark, err := m.EncodeCall("System", "remark", map[string]scale.Value{"remark": []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x08, 'h', 'i'}, remark)

	_, err = m.EncodeCall("Balances", "burn", nil)
	assert.ErrorIs(t, err, metadata.ErrCallNotFound)
	_, _, err = m.DecodeCall([]byte{0x09, 0x00})
	assert.ErrorIs(t, err, metadata.ErrCallNotFound)
}

func TestConstantValue(t *testing.T) {
	m := testutil.SampleRuntime().Meta

	v, err := m.ConstantValue("System", "SS58Prefix")
	require.NoError(t, err)
	assert.Equal(t, uint16(42), v)

	v, err = m.ConstantValue("System", "BlockHashCount")
	require.NoError(t, err)
	assert.Equal(t, uint32(2400), v)

	v, err = m.ConstantValue("Balances", "ExistentialDeposit")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), v)

	_, err = m.ConstantValue("Balances", "Nope")
	assert.ErrorIs(t, err, metadata.ErrConstantNotFound)
}

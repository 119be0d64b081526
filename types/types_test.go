package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

const (
	aliceHex  = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func TestBlake2b256(t *testing.T) {
	assert.Equal(t, "0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", types.Blake2b256().Hex())
	assert.Equal(t, types.Blake2b256([]byte("abc")), types.Blake2b256([]byte("a"), []byte("bc")))
}

func TestAccountSS58(t *testing.T) {
	alice, err := types.ParseAccountID(aliceHex)
	require.NoError(t, err)
	assert.Equal(t, aliceSS58, alice.String())
	assert.Equal(t, aliceHex, alice.Hex())

	parsed, err := types.ParseAccountID(aliceSS58)
	require.NoError(t, err)
	assert.Equal(t, alice, parsed)

	for _, prefix := range []uint16{0, 12, 42, 63, 64, 1000, 16383} {
		addr := alice.SS58(prefix)
		got, pub, err := types.DecodeSS58(addr)
		require.NoError(t, err, "prefix %d", prefix)
		assert.Equal(t, prefix, got)
		assert.Equal(t, alice.Bytes(), pub)
	}
}

func TestAccountSS58Errors(t *testing.T) {
	_, _, err := types.DecodeSS58("0OIl")
	assert.ErrorIs(t, err, types.ErrInvalidAddress)

	tampered := []byte(aliceSS58)
	tampered[10] = 'x'
	_, _, err = types.DecodeSS58(string(tampered))
	assert.ErrorIs(t, err, types.ErrBadChecksum)

	_, err = types.ParseAccountID("0x0102")
	assert.ErrorIs(t, err, types.ErrInvalidAccount)
}

func TestAccountText(t *testing.T) {
	var v struct {
		Who types.AccountID `json:"who"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"who":"`+aliceSS58+`"}`), &v))
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"who":"`+aliceSS58+`"}`, string(out))
}

func TestTxStatusJSON(t *testing.T) {
	block := types.HexToHash("0x01")
	tests := []struct {
		in       string
		want     types.TxStatus
		terminal bool
		failure  bool
	}{
		{`"future"`, types.TxStatus{Kind: types.Future}, false, false},
		{`"ready"`, types.TxStatus{Kind: types.Ready}, false, false},
		{`{"broadcast":["peer1","peer2"]}`, types.TxStatus{Kind: types.Broadcast, Peers: []string{"peer1", "peer2"}}, false, false},
		{`{"inBlock":"` + block.Hex() + `"}`, types.TxStatus{Kind: types.InBlock, Hash: block}, false, false},
		{`{"retracted":"` + block.Hex() + `"}`, types.TxStatus{Kind: types.Retracted, Hash: block}, false, false},
		{`{"finalityTimeout":"` + block.Hex() + `"}`, types.TxStatus{Kind: types.FinalityTimeout, Hash: block}, true, true},
		{`{"finalized":"` + block.Hex() + `"}`, types.TxStatus{Kind: types.Finalized, Hash: block}, true, false},
		{`{"usurped":"` + block.Hex() + `"}`, types.TxStatus{Kind: types.Usurped, Hash: block}, true, true},
		{`"dropped"`, types.TxStatus{Kind: types.Dropped}, true, true},
		{`"invalid"`, types.TxStatus{Kind: types.Invalid}, true, true},
	}
	for _, tt := range tests {
		var st types.TxStatus
		require.NoError(t, json.Unmarshal([]byte(tt.in), &st), tt.in)
		assert.Equal(t, tt.want, st, tt.in)
		assert.Equal(t, tt.terminal, st.IsTerminal(), tt.in)
		assert.Equal(t, tt.failure, st.IsFailure(), tt.in)

		out, err := json.Marshal(st)
		require.NoError(t, err)
		assert.JSONEq(t, tt.in, string(out))
	}
}

func TestTxStatusUnknown(t *testing.T) {
	for _, in := range []string{`"submitted"`, `"pending"`, `{"ready":null}`, `{"inBlock":"0x01","finalized":"0x01"}`} {
		var st types.TxStatus
		assert.ErrorIs(t, json.Unmarshal([]byte(in), &st), types.ErrUnknownTxStatus, in)
	}
}

func TestHeaderJSON(t *testing.T) {
	in := `{
		"parentHash": "0x0101010101010101010101010101010101010101010101010101010101010101",
		"number": "0x1b4",
		"stateRoot": "0x0202020202020202020202020202020202020202020202020202020202020202",
		"extrinsicsRoot": "0x0303030303030303030303030303030303030303030303030303030303030303",
		"digest": {"logs": ["0x0642414245"]}
	}`
	var h types.Header
	require.NoError(t, json.Unmarshal([]byte(in), &h))
	assert.Equal(t, uint64(436), uint64(h.Number))

	enc := h.Encode()
	require.Len(t, enc, 32+2+32+32+1+5)
	assert.Equal(t, []byte{0xd1, 0x06}, enc[32:34])
	assert.Equal(t, byte(0x04), enc[98])
	assert.Equal(t, types.Blake2b256(enc), h.Hash())
}

func TestStorageChangeSetJSON(t *testing.T) {
	in := `[{"block":"0x0000000000000000000000000000000000000000000000000000000000000007","changes":[["0x01","0x0a0b"],["0x02",null]]}]`
	var sets []types.StorageChangeSet
	require.NoError(t, json.Unmarshal([]byte(in), &sets))
	require.Len(t, sets, 1)
	require.Len(t, sets[0].Changes, 2)

	v, ok := sets[0].Changes[0].Value()
	assert.True(t, ok)
	assert.Equal(t, types.Bytes{0x0a, 0x0b}, v)
	assert.Equal(t, types.Bytes{0x02}, sets[0].Changes[1].Key())
	_, ok = sets[0].Changes[1].Value()
	assert.False(t, ok)
}

func applyExtrinsic(i uint32) types.Phase {
	return types.Phase{ApplyExtrinsic: &i}
}

func event(pallet, name string, fields scale.Value) scale.Value {
	return scale.Variant{Name: pallet, Value: scale.Variant{Name: name, Value: fields}}
}

func TestFilterExtrinsicEvents(t *testing.T) {
	records := []types.EventRecord{
		{Phase: types.Phase{Initialization: true}, Event: event("System", "NewAccount", nil)},
		{Phase: applyExtrinsic(0), Event: event("System", "ExtrinsicSuccess", nil)},
		{Phase: applyExtrinsic(1), Event: event("Balances", "Transfer", map[string]scale.Value{"amount": uint64(5)})},
		{Phase: applyExtrinsic(1), Event: event("System", "ExtrinsicFailed", map[string]scale.Value{
			"dispatch_error": scale.Variant{Name: "BadOrigin"},
			"dispatch_info":  scale.Unit{},
		})},
		{Phase: types.Phase{Finalization: true}, Event: event("System", "NewAccount", nil)},
	}

	got := types.FilterExtrinsicEvents(records, 1)
	require.Len(t, got, 2)
	assert.True(t, got[0].Is("Balances", "Transfer"))
	assert.Equal(t, map[string]scale.Value{"amount": uint64(5)}, got[0].Fields())

	dispatchErr, failed := types.DispatchError(got)
	assert.True(t, failed)
	assert.Equal(t, scale.Variant{Name: "BadOrigin"}, dispatchErr)

	_, failed = types.DispatchError(types.FilterExtrinsicEvents(records, 0))
	assert.False(t, failed)
	assert.Empty(t, types.FilterExtrinsicEvents(records, 7))

	out, err := json.Marshal(records[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":{"applyExtrinsic":0},"event":{"System":"ExtrinsicSuccess"},"topics":null}`, string(out))
}

func TestParseHash(t *testing.T) {
	want := types.HexToHash("0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8")
	got, err := types.ParseHash(want.Hex())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = types.ParseHash("0x0e57")
	assert.ErrorIs(t, err, types.ErrInvalidHash)
	_, err = types.ParseHash(want.Hex()[2:])
	assert.Error(t, err)
}

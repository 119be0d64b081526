package transactor_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/events"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/testutil"
	"github.com/PolymeshAssociation/polymesh-api-sub001/transactor"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var (
	genesis   = types.HexToHash("0x6e")
	head      = types.HexToHash("0x4ead")
	finalized = types.HexToHash("0xf1")
	birth     = types.HexToHash("0xb1")
	block1    = types.HexToHash("0x01")
	block2    = types.HexToHash("0x02")
	alice     = types.AccountID{0xd4, 0x35, 0x93, 0xc7}
)

func fakeNode(rt *testutil.Runtime) *testutil.FakeClient {
	c := testutil.NewFakeClient()
	c.Handle("chain_getBlockHash", func(params []any) (any, error) {
		if len(params) == 1 {
			switch params[0] {
			case float64(0):
				return genesis, nil
			case float64(100):
				return birth, nil
			}
		}
		return head, nil
	})
	c.HandleValue("state_getRuntimeVersion", types.RuntimeVersion{SpecName: "sample", SpecVersion: 100, TransactionVersion: 1})
	c.HandleValue("state_getMetadata", types.Bytes(rt.Encoded))
	c.HandleValue("chain_getFinalizedHead", finalized)
	c.HandleValue("chain_getHeader", types.Header{Number: 101})
	return c
}

func startChain(t *testing.T, client *testutil.FakeClient) *core.Chain {
	t.Helper()
	cfg := core.DefaultConfig
	chain := core.NewChain(client, &cfg, log.NewNopLogger())
	require.NoError(t, chain.Start())
	t.Cleanup(func() { chain.Stop() })
	return chain
}

// watch makes the node accept submissions on sub.
func watch(client *testutil.FakeClient, sub *testutil.FakeSubscription) {
	client.HandleSubscribe("author_submitAndWatchExtrinsic", func([]any) (*testutil.FakeSubscription, error) {
		return sub, nil
	})
}

func status(kind types.TxStatusKind, hash types.Hash) types.TxStatus {
	return types.TxStatus{Kind: kind, Hash: hash}
}

func record(index uint32, pallet, name string, fields scale.Value) scale.Value {
	return map[string]scale.Value{
		"phase":  scale.Variant{Name: "ApplyExtrinsic", Value: index},
		"event":  scale.Variant{Name: pallet, Value: scale.Variant{Name: name, Value: fields}},
		"topics": []scale.Value{},
	}
}

func successFields() scale.Value {
	return map[string]scale.Value{"dispatch_info": map[string]scale.Value{
		"weight":   uint64(10),
		"class":    scale.Variant{Name: "Normal"},
		"pays_fee": scale.Variant{Name: "Yes"},
	}}
}

// serveBlocks serves blocks by hash, each with its own System.Events.
func serveBlocks(t *testing.T, rt *testutil.Runtime, client *testutil.FakeClient, blocks map[types.Hash][][]byte, records map[types.Hash][]scale.Value) {
	t.Helper()
	key, _, err := rt.Meta.StorageKey("System", "Events")
	require.NoError(t, err)
	encoded := make(map[string]types.Bytes)
	for hash, recs := range records {
		data, err := scale.Encode(rt.Meta.Types, rt.EventRecords, recs)
		require.NoError(t, err)
		encoded[hash.Hex()] = data
	}
	client.Handle("chain_getBlock", func(params []any) (any, error) {
		for hash, exts := range blocks {
			if params[0] == hash.Hex() {
				block := types.SignedBlock{Block: types.Block{Header: types.Header{Number: 7}}}
				for _, ext := range exts {
					block.Block.Extrinsics = append(block.Block.Extrinsics, ext)
				}
				return block, nil
			}
		}
		return nil, nil
	})
	client.Handle("state_getStorage", func(params []any) (any, error) {
		if params[0] != hexutil.Encode(key) || len(params) < 2 {
			return nil, nil
		}
		if data, ok := encoded[params[1].(string)]; ok {
			return data, nil
		}
		return nil, nil
	})
}

func TestTransactionLifecycle(t *testing.T) {
	rt := testutil.SampleRuntime()
	client := fakeNode(rt)
	chain := startChain(t, client)

	other := (&extrinsic.Envelope{Call: []byte{0x00, 0x00, 0x00}}).Encode()
	ext := (&extrinsic.Envelope{Call: []byte{0x00, 0x00, 0x08, 'h', 'i'}}).Encode()
	serveBlocks(t, rt, client,
		map[types.Hash][][]byte{block1: {ext}, block2: {other, ext}},
		map[types.Hash][]scale.Value{
			block1: {record(0, "System", "ExtrinsicFailed", map[string]scale.Value{
				"dispatch_error": scale.Variant{Name: "BadOrigin"},
				"dispatch_info":  successFields().(map[string]scale.Value)["dispatch_info"],
			})},
			block2: {
				record(0, "System", "ExtrinsicSuccess", successFields()),
				record(1, "Balances", "Deposit", map[string]scale.Value{"who": alice[:], "amount": uint64(5)}),
				record(1, "System", "ExtrinsicSuccess", successFields()),
			},
		})

	sub := testutil.NewFakeSubscription()
	watch(client, sub)

	updates := make(chan events.TxUpdate, 8)
	events.TxStatus.Subscribe("TestTransactionLifecycle", func(u events.TxUpdate) { updates <- u })
	defer events.TxStatus.Unsubscribe("TestTransactionLifecycle")

	ctx := context.Background()
	tx, err := transactor.Submit(ctx, chain, ext)
	require.NoError(t, err)
	assert.Equal(t, extrinsic.Hash(ext), tx.Hash())
	calls := client.Calls("author_submitAndWatchExtrinsic")
	require.Len(t, calls, 1)
	assert.Equal(t, hexutil.Encode(ext), calls[0].Params[0])

	_, err = tx.Events(ctx)
	assert.ErrorIs(t, err, transactor.ErrEventsNotAvailable)

	sub.Push(status(types.Ready, types.Hash{}))
	sub.Push(status(types.InBlock, block1))
	st, err := tx.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Ready, st.Kind)
	got, err := tx.WaitInBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, block1, got)

	sub.Push(status(types.Retracted, block1))
	st, err = tx.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Retracted, st.Kind)
	_, ok := tx.BlockHash()
	assert.False(t, ok)
	_, err = tx.Events(ctx)
	assert.ErrorIs(t, err, transactor.ErrEventsNotAvailable)

	sub.Push(status(types.InBlock, block2))
	sub.Push(status(types.Finalized, block2))
	final, err := tx.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, block2, final)
	assert.Equal(t, []string{"author_unwatchExtrinsic"}, client.Unwatched())

	records, err := tx.Events(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Is("Balances", "Deposit"))
	assert.True(t, records[1].Is("System", "ExtrinsicSuccess"))
	_, failed := types.DispatchError(records)
	assert.False(t, failed)

	// cached per block, and never looked up in the retracted block
	_, err = tx.Events(ctx)
	require.NoError(t, err)
	for _, call := range client.Calls("chain_getBlock") {
		assert.Equal(t, block2.Hex(), call.Params[0])
	}
	assert.Len(t, client.Calls("chain_getBlock"), 1)

	// terminal status repeats without blocking
	st, err = tx.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Finalized, st.Kind)

	var kinds []types.TxStatusKind
	timeout := time.After(time.Second)
	for len(kinds) < 5 {
		select {
		case u := <-updates:
			assert.Equal(t, tx.Hash(), u.Hash)
			kinds = append(kinds, u.Status.Kind)
		case <-timeout:
			t.Fatalf("got updates %v", kinds)
		}
	}
	assert.Equal(t, []types.TxStatusKind{types.Ready, types.InBlock, types.Retracted, types.InBlock, types.Finalized}, kinds)
}

func TestTransactionFailure(t *testing.T) {
	for _, kind := range []types.TxStatusKind{types.Usurped, types.Dropped, types.Invalid, types.FinalityTimeout} {
		t.Run(kind.String(), func(t *testing.T) {
			client := fakeNode(testutil.SampleRuntime())
			chain := startChain(t, client)
			sub := testutil.NewFakeSubscription()
			watch(client, sub)

			ctx := context.Background()
			tx, err := transactor.Submit(ctx, chain, []byte{0x0c, 0x04, 0x00, 0x00})
			require.NoError(t, err)
			sub.Push(status(types.Ready, types.Hash{}))
			sub.Push(status(kind, block1))

			_, err = tx.Wait(ctx)
			require.ErrorIs(t, err, transactor.ErrWillNotComplete)
			var se *transactor.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, kind, se.Status.Kind)
			assert.Equal(t, kind, tx.Status().Kind)

			_, err = tx.Next(ctx)
			assert.Same(t, se, err)
			_, err = tx.Events(ctx)
			assert.ErrorAs(t, err, &se)
			assert.Equal(t, []string{"author_unwatchExtrinsic"}, client.Unwatched())
		})
	}
}

func TestTransactionSubscriptionEnds(t *testing.T) {
	client := fakeNode(testutil.SampleRuntime())
	chain := startChain(t, client)
	sub := testutil.NewFakeSubscription()
	watch(client, sub)

	ctx := context.Background()
	tx, err := transactor.Submit(ctx, chain, []byte{0x0c, 0x04, 0x00, 0x00})
	require.NoError(t, err)
	sub.Push(status(types.Ready, types.Hash{}))
	sub.End()

	_, err = tx.Wait(ctx)
	assert.ErrorIs(t, err, transactor.ErrWillNotComplete)
	assert.Equal(t, types.Ready, tx.Status().Kind)
	_, err = tx.Events(ctx)
	assert.ErrorIs(t, err, transactor.ErrEventsNotAvailable)
}

func TestTransactionTransportError(t *testing.T) {
	client := fakeNode(testutil.SampleRuntime())
	chain := startChain(t, client)
	sub := testutil.NewFakeSubscription()
	watch(client, sub)

	ctx := context.Background()
	tx, err := transactor.Submit(ctx, chain, []byte{0x0c, 0x04, 0x00, 0x00})
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tx.Next(canceled)
	assert.ErrorIs(t, err, context.Canceled)

	// cancellation does not end the transaction
	sub.Push(status(types.Future, types.Hash{}))
	st, err := tx.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Future, st.Kind)

	reset := errors.New("connection reset")
	sub.PushErr(reset)
	_, err = tx.Next(ctx)
	assert.ErrorIs(t, err, transactor.ErrWillNotComplete)
	assert.ErrorIs(t, err, reset)
	_, again := tx.Next(ctx)
	assert.Equal(t, err, again)
}

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) AccountID() types.AccountID { return alice }

func (m *mockSigner) Kind() extrinsic.SignatureKind { return extrinsic.Ed25519 }

func (m *mockSigner) Sign(payload []byte) ([]byte, error) {
	args := m.Called(payload)
	return args.Get(0).([]byte), args.Error(1)
}

type cachingSigner struct {
	mockSigner
	next *uint64
}

func (s *cachingSigner) NextNonce() (uint64, bool) {
	if s.next == nil {
		return 0, false
	}
	return *s.next, true
}

func (s *cachingSigner) SetNonce(n uint64) { s.next = &n }

func TestSignImmortal(t *testing.T) {
	rt := testutil.SampleRuntime()
	client := fakeNode(rt)
	chain := startChain(t, client)

	call, err := rt.Meta.EncodeCall("System", "remark", map[string]scale.Value{"remark": []byte("hi")})
	require.NoError(t, err)
	x := extrinsic.Extensions{
		Era:                extrinsic.Immortal(),
		Nonce:              5,
		Tip:                big.NewInt(1),
		SpecVersion:        100,
		TransactionVersion: 1,
		Genesis:            genesis,
	}
	extra, additional, err := x.Build(rt.Meta)
	require.NoError(t, err)

	sig := make([]byte, 64)
	sig[0] = 0x5a
	signer := &mockSigner{}
	signer.On("Sign", extrinsic.SigningPayload(call, extra, additional)).Return(sig, nil).Once()

	nonce := uint64(5)
	encoded, err := transactor.Sign(context.Background(), chain, signer, call, transactor.Options{Nonce: &nonce, Tip: big.NewInt(1), Immortal: true})
	require.NoError(t, err)
	signer.AssertExpectations(t)
	assert.Empty(t, client.Calls("system_accountNextIndex"))
	assert.Empty(t, client.Calls("chain_getFinalizedHead"))

	env, err := extrinsic.Decode(encoded, chain.Current().Layout)
	require.NoError(t, err)
	require.True(t, env.IsSigned())
	assert.Equal(t, extrinsic.MultiAddress(alice), env.Signature.Address)
	assert.Equal(t, extrinsic.MultiSignature(extrinsic.Ed25519, sig), env.Signature.Signature)
	assert.Equal(t, extra, env.Signature.Extra)
	assert.Equal(t, call, env.Call)
}

func TestSignMortal(t *testing.T) {
	rt := testutil.SampleRuntime()
	client := fakeNode(rt)
	chain := startChain(t, client)
	client.HandleValue("system_accountNextIndex", 7)

	call := []byte{0x00, 0x00, 0x00}
	signer := &cachingSigner{}
	signer.On("Sign", mock.Anything).Return(make([]byte, 64), nil)

	// period 8192 quantizes the phase of block 101 down to 100
	encoded, err := transactor.Sign(context.Background(), chain, signer, call, transactor.Options{Mortality: 8192})
	require.NoError(t, err)
	hashCalls := client.Calls("chain_getBlockHash")
	assert.Equal(t, float64(100), hashCalls[len(hashCalls)-1].Params[0])
	header := client.Calls("chain_getHeader")
	require.Len(t, header, 1)
	assert.Equal(t, finalized.Hex(), header[0].Params[0])

	era := extrinsic.Mortal(8192, 101)
	x := extrinsic.Extensions{Era: era, Nonce: 7, SpecVersion: 100, TransactionVersion: 1, Genesis: genesis, Checkpoint: birth}
	extra, additional, err := x.Build(rt.Meta)
	require.NoError(t, err)
	signer.AssertCalled(t, "Sign", extrinsic.SigningPayload(call, extra, additional))

	env, err := extrinsic.Decode(encoded, chain.Current().Layout)
	require.NoError(t, err)
	assert.Equal(t, extra, env.Signature.Extra)

	next, ok := signer.NextNonce()
	require.True(t, ok)
	assert.Equal(t, uint64(8), next)

	// the cached nonce is used without asking the node
	_, err = transactor.Sign(context.Background(), chain, signer, call, transactor.Options{})
	require.NoError(t, err)
	assert.Len(t, client.Calls("system_accountNextIndex"), 1)
	next, _ = signer.NextNonce()
	assert.Equal(t, uint64(9), next)
}

func TestSignError(t *testing.T) {
	client := fakeNode(testutil.SampleRuntime())
	chain := startChain(t, client)
	signer := &cachingSigner{}
	signer.On("Sign", mock.Anything).Return([]byte(nil), errors.New("locked"))

	nonce := uint64(1)
	_, err := transactor.Sign(context.Background(), chain, signer, []byte{0}, transactor.Options{Nonce: &nonce})
	assert.ErrorContains(t, err, "locked")
	_, cached := signer.NextNonce()
	assert.False(t, cached)
}

func TestSignAndSubmit(t *testing.T) {
	client := fakeNode(testutil.SampleRuntime())
	chain := startChain(t, client)
	sub := testutil.NewFakeSubscription()
	watch(client, sub)
	signer := &mockSigner{}
	signer.On("Sign", mock.Anything).Return(make([]byte, 64), nil)

	nonce := uint64(0)
	tx, err := transactor.SignAndSubmit(context.Background(), chain, signer, []byte{0x00, 0x00, 0x00}, transactor.Options{Nonce: &nonce})
	require.NoError(t, err)
	calls := client.Calls("author_submitAndWatchExtrinsic")
	require.Len(t, calls, 1)
	raw, err := hexutil.Decode(calls[0].Params[0].(string))
	require.NoError(t, err)
	assert.Equal(t, extrinsic.Hash(raw), tx.Hash())
	tx.Close()
	assert.Equal(t, []string{"author_unwatchExtrinsic"}, client.Unwatched())
}

func TestTransactionSlowStatusSubscriber(t *testing.T) {
	client := fakeNode(testutil.SampleRuntime())
	chain := startChain(t, client)
	sub := testutil.NewFakeSubscription()
	watch(client, sub)

	release := make(chan struct{})
	events.TxStatus.Subscribe("TestTransactionSlowStatusSubscriber", func(events.TxUpdate) { <-release })
	defer func() {
		close(release)
		events.TxStatus.Unsubscribe("TestTransactionSlowStatusSubscriber").Wait()
	}()

	ctx := context.Background()
	tx, err := transactor.Submit(ctx, chain, []byte{0x0c, 0x04, 0x00, 0x00})
	require.NoError(t, err)
	sub.Push(status(types.Ready, types.Hash{}))
	sub.Push(status(types.InBlock, block1))

	done := make(chan error, 1)
	go func() {
		_, err := tx.WaitInBlock(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("status updates held up by a blocked subscriber")
	}
	got, ok := tx.BlockHash()
	assert.True(t, ok)
	assert.Equal(t, block1, got)
}

package node_test

import (
	"context"
	"testing"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/config"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
	"github.com/PolymeshAssociation/polymesh-api-sub001/testutil"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

func TestNodeLifecycle(t *testing.T) {
	rt := testutil.SampleRuntime()
	client := testutil.NewFakeClient()
	client.HandleValue("chain_getBlockHash", types.HexToHash("0x6e"))
	client.HandleValue("state_getRuntimeVersion", types.RuntimeVersion{SpecName: "sample", SpecVersion: 1})
	client.HandleValue("state_getMetadata", types.Bytes(rt.Encoded))

	n, err := node.NewNode(config.Default(), log.NewNopLogger(), node.WithClient(client))
	require.NoError(t, err)
	require.NoError(t, n.Start())
	assert.True(t, n.Chain().IsRunning())
	assert.Equal(t, types.HexToHash("0x6e"), n.Chain().Genesis())

	require.NoError(t, n.Stop())
	assert.False(t, n.Chain().IsRunning())
	assert.ErrorIs(t, client.Call(context.Background(), nil, "system_health"), rpc.ErrClosed)
}

func TestNodeStartFailure(t *testing.T) {
	client := testutil.NewFakeClient()
	n, err := node.NewNode(config.Default(), log.NewNopLogger(), node.WithClient(client))
	require.NoError(t, err)
	assert.Error(t, n.Start())
	assert.ErrorIs(t, client.Call(context.Background(), nil, "system_health"), rpc.ErrClosed)
}

func TestNodeBadURL(t *testing.T) {
	cfg := config.Default()
	cfg.RPC.URL = "ftp://example"
	_, err := node.NewNode(cfg, log.NewNopLogger())
	assert.ErrorIs(t, err, rpc.ErrUnsupportedScheme)
}

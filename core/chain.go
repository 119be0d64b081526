package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	lru "github.com/hashicorp/golang-lru"

	"github.com/PolymeshAssociation/polymesh-api-sub001/events"
	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var (
	ErrBlockNotFound     = errors.New("block not found")
	ErrExtrinsicNotFound = errors.New("extrinsic not in block")
	ErrNonInvertibleKey  = errors.New("storage key hasher is not invertible")
)

// Chain is the read side of a node connection. It tracks metadata epochs
// and decodes blocks, storage and events against the epoch of the block
// they belong to.
type Chain struct {
	service.BaseService
	client rpc.Client
	config *Config

	genesis  types.Hash
	current  atomic.Pointer[Runtime]
	runtimes *lru.Cache // spec version -> *Runtime
	fetchMu  sync.Mutex
}

func NewChain(client rpc.Client, cfg *Config, logger log.Logger) *Chain {
	size := cfg.RuntimeCache
	if size <= 0 {
		size = DefaultConfig.RuntimeCache
	}
	runtimes, _ := lru.New(size)
	c := &Chain{
		client:   client,
		config:   cfg,
		runtimes: runtimes,
	}
	c.BaseService = *service.NewBaseService(logger.With("module", "chain"), "Chain", c)
	return c
}

func (c *Chain) OnStart() error {
	ctx := context.Background()
	zero := uint64(0)
	genesis, err := c.BlockHash(ctx, &zero)
	if err != nil {
		return fmt.Errorf("genesis hash: %w", err)
	}
	c.genesis = genesis
	rt, err := c.RuntimeAt(ctx, nil)
	if err != nil {
		return err
	}
	c.Logger.Info("chain ready", "genesis", genesis.Hex(), "spec", rt.Version.SpecName, "specVersion", rt.Version.SpecVersion)
	return nil
}

func (c *Chain) Client() rpc.Client { return c.client }

func (c *Chain) Genesis() types.Hash { return c.genesis }

// Current returns the newest runtime seen so far.
func (c *Chain) Current() *Runtime { return c.current.Load() }

// atParams appends the optional block hash parameter.
func atParams(at *types.Hash, params ...any) []any {
	if at != nil {
		params = append(params, *at)
	}
	return params
}

// RuntimeAt returns the runtime of block at, or of the best block when at
// is nil. Metadata is only fetched for spec versions not seen before.
func (c *Chain) RuntimeAt(ctx context.Context, at *types.Hash) (*Runtime, error) {
	var version types.RuntimeVersion
	if err := c.client.Call(ctx, &version, "state_getRuntimeVersion", atParams(at)...); err != nil {
		return nil, err
	}
	rt, err := c.runtime(ctx, version, at)
	if err != nil {
		return nil, err
	}
	c.promote(rt)
	return rt, nil
}

func (c *Chain) runtime(ctx context.Context, version types.RuntimeVersion, at *types.Hash) (*Runtime, error) {
	if cached, ok := c.runtimes.Get(version.SpecVersion); ok {
		return cached.(*Runtime), nil
	}
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if cached, ok := c.runtimes.Get(version.SpecVersion); ok {
		return cached.(*Runtime), nil
	}

	var encoded types.Bytes
	if err := c.client.Call(ctx, &encoded, "state_getMetadata", atParams(at)...); err != nil {
		return nil, err
	}
	rt, err := NewRuntime(version, encoded)
	if err != nil {
		c.Logger.Error("unusable metadata", "specVersion", version.SpecVersion, "err", err)
		return nil, err
	}
	c.Logger.Debug("loaded metadata", "specVersion", version.SpecVersion, "types", rt.Types().Len(), "size", len(encoded))
	c.runtimes.Add(version.SpecVersion, rt)
	return rt, nil
}

// promote makes rt current when it is newer than the current runtime.
func (c *Chain) promote(rt *Runtime) {
	for {
		cur := c.current.Load()
		if cur != nil && cur.Version.SpecVersion >= rt.Version.SpecVersion {
			return
		}
		if c.current.CompareAndSwap(cur, rt) {
			upgrade := events.RuntimeUpgrade{Current: rt.Version}
			if cur != nil {
				prev := cur.Version
				upgrade.Previous = &prev
				c.Logger.Info("runtime upgraded", "from", prev.SpecVersion, "to", rt.Version.SpecVersion)
			}
			events.RuntimeUpgraded.Send(upgrade)
			return
		}
	}
}

// BlockHash returns the hash of block number, or of the best block when
// number is nil.
func (c *Chain) BlockHash(ctx context.Context, number *uint64) (types.Hash, error) {
	var params []any
	if number != nil {
		params = append(params, *number)
	}
	var hash *types.Hash
	if err := c.client.Call(ctx, &hash, "chain_getBlockHash", params...); err != nil {
		return types.Hash{}, err
	}
	if hash == nil {
		return types.Hash{}, ErrBlockNotFound
	}
	return *hash, nil
}

func (c *Chain) FinalizedHead(ctx context.Context) (types.Hash, error) {
	var hash types.Hash
	err := c.client.Call(ctx, &hash, "chain_getFinalizedHead")
	return hash, err
}

func (c *Chain) Header(ctx context.Context, at *types.Hash) (*types.Header, error) {
	var header *types.Header
	if err := c.client.Call(ctx, &header, "chain_getHeader", atParams(at)...); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, ErrBlockNotFound
	}
	return header, nil
}

func (c *Chain) Block(ctx context.Context, at *types.Hash) (*types.SignedBlock, error) {
	var block *types.SignedBlock
	if err := c.client.Call(ctx, &block, "chain_getBlock", atParams(at)...); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, ErrBlockNotFound
	}
	return block, nil
}

// Storage reads a raw storage value. It returns nil without error when the
// key is unset.
func (c *Chain) Storage(ctx context.Context, key []byte, at *types.Hash) ([]byte, error) {
	var value *types.Bytes
	if err := c.client.Call(ctx, &value, "state_getStorage", atParams(at, types.Bytes(key))...); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return *value, nil
}

// StorageValue reads pallet.entry under keys and decodes it into v. Unset
// entries with a default decode the default; found is false for unset
// optional entries.
func (c *Chain) StorageValue(ctx context.Context, rt *Runtime, pallet, entry string, keys []scale.Value, at *types.Hash, v any) (found bool, err error) {
	key, e, err := rt.Metadata.EncodeKey(pallet, entry, keys...)
	if err != nil {
		return false, err
	}
	raw, err := c.Storage(ctx, key, at)
	if err != nil {
		return false, err
	}
	if raw == nil {
		if e.Modifier != metadata.Default {
			return false, nil
		}
		raw = e.Default
	}
	if err := scale.Unmarshal(rt.Types(), e.Value, raw, v); err != nil {
		return false, fmt.Errorf("%s.%s: %w", pallet, entry, err)
	}
	return true, nil
}

// AccountNextIndex returns the next nonce of account, counting transactions
// in the pool.
func (c *Chain) AccountNextIndex(ctx context.Context, account types.AccountID) (uint64, error) {
	var nonce uint64
	err := c.client.Call(ctx, &nonce, "system_accountNextIndex", account.String())
	return nonce, err
}

// SubmitExtrinsic submits an encoded envelope without tracking it.
func (c *Chain) SubmitExtrinsic(ctx context.Context, encoded []byte) (types.Hash, error) {
	var hash types.Hash
	if err := c.client.Call(ctx, &hash, "author_submitExtrinsic", types.Bytes(encoded)); err != nil {
		return types.Hash{}, err
	}
	return hash, nil
}

// Events decodes System.Events of block at with the block's own runtime.
func (c *Chain) Events(ctx context.Context, at types.Hash) ([]types.EventRecord, error) {
	rt, err := c.RuntimeAt(ctx, &at)
	if err != nil {
		return nil, err
	}
	var records []types.EventRecord
	if _, err := c.StorageValue(ctx, rt, "System", "Events", nil, &at, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ExtrinsicIndex finds the position of the extrinsic with content hash
// extHash in block at.
func (c *Chain) ExtrinsicIndex(ctx context.Context, at, extHash types.Hash) (uint32, error) {
	block, err := c.Block(ctx, &at)
	if err != nil {
		return 0, err
	}
	for i, ext := range block.Block.Extrinsics {
		if extrinsic.Hash(ext) == extHash {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrExtrinsicNotFound, extHash.Hex(), at.Hex())
}

// ExtrinsicEvents returns the events emitted while applying the extrinsic
// with content hash extHash in block at.
func (c *Chain) ExtrinsicEvents(ctx context.Context, at, extHash types.Hash) ([]types.EventRecord, error) {
	index, err := c.ExtrinsicIndex(ctx, at, extHash)
	if err != nil {
		return nil, err
	}
	records, err := c.Events(ctx, at)
	if err != nil {
		return nil, err
	}
	return types.FilterExtrinsicEvents(records, index), nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

var storageLimit int

type storageItem struct {
	Key   types.Bytes `json:"key"`
	Tail  types.Bytes `json:"keyTail,omitempty"`
	Value any         `json:"value"`
}

// StorageCmd reads a storage entry, or lists the map entries under the
// given leading keys.
var StorageCmd = &cobra.Command{
	Use:   "storage <pallet> <entry> [key...]",
	Short: "Read a storage entry; keys are SCALE hex or SS58 addresses",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pallet, entry := args[0], args[1]
		parts, err := keyParts(args[2:])
		if err != nil {
			return err
		}
		at, err := blockParam()
		if err != nil {
			return err
		}
		return withNode(func(n *node.Node) error {
			ctx := cmd.Context()
			chain := n.Chain()
			rt, err := chain.RuntimeAt(ctx, at)
			if err != nil {
				return err
			}
			key, e, err := rt.Metadata.StorageKey(pallet, entry, parts...)
			if err != nil {
				return err
			}
			if e.Map && len(parts) < len(e.Hashers) {
				opts := core.IterOptions{Value: &e.Value, Types: rt.Types(), At: at}
				if len(parts)+1 == len(e.Hashers) {
					if n, ok := e.Hashers[len(parts)].KeyHashLen(); ok {
						opts.HashLen = &n
					}
				}
				it := chain.StorageIter(key, opts)
				var items []storageItem
				for (storageLimit <= 0 || len(items) < storageLimit) && it.Next(ctx) {
					v, err := it.Value()
					if err != nil {
						return err
					}
					item := storageItem{Key: it.Key(), Value: scale.Pretty(v)}
					if tail, err := it.KeyTail(); err == nil {
						item.Tail = tail
					}
					items = append(items, item)
				}
				if err := it.Err(); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			}
			raw, err := chain.Storage(ctx, key, at)
			if err != nil {
				return err
			}
			if raw == nil {
				if e.Modifier != metadata.Default {
					return printJSON(cmd.OutOrStdout(), nil)
				}
				raw = e.Default
			}
			v, err := scale.Decode(rt.Types(), e.Value, raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), storageItem{Key: key, Value: scale.Pretty(v)})
		})
	},
}

func init() {
	StorageCmd.Flags().StringVar(&atBlock, "at", "", "block hash, best block when empty")
	StorageCmd.Flags().IntVar(&storageLimit, "limit", 100, "most map entries listed, 0 for all")
}

func keyParts(args []string) ([][]byte, error) {
	parts := make([][]byte, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "0x") {
			b, err := hexutil.Decode(arg)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			parts[i] = b
			continue
		}
		id, err := types.ParseAccountID(arg)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		parts[i] = id.Bytes()
	}
	return parts, nil
}

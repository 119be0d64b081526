package commands

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var decodeExtrinsic bool

// DecodeCmd decodes SCALE bytes with the runtime's type registry.
var DecodeCmd = &cobra.Command{
	Use:   "decode [type-id] <hex>",
	Short: "Decode a value of a registry type, or an extrinsic with --extrinsic",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !decodeExtrinsic && len(args) != 2 {
			return fmt.Errorf("need a type id and the hex data")
		}
		data, err := hexutil.Decode(args[len(args)-1])
		if err != nil {
			return err
		}
		return withNode(func(n *node.Node) error {
			rt, err := runtimeAt(cmd.Context(), n.Chain())
			if err != nil {
				return err
			}
			if decodeExtrinsic {
				out, err := describeExtrinsic(rt, data)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("type id: %w", err)
			}
			v, err := scale.Decode(rt.Types(), registry.TypeID(id), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), scale.Pretty(v))
		})
	},
}

func init() {
	DecodeCmd.Flags().BoolVar(&decodeExtrinsic, "extrinsic", false, "decode an extrinsic envelope and its call")
	DecodeCmd.Flags().StringVar(&atBlock, "at", "", "block hash whose runtime decodes, best block when empty")
}

type extrinsicSummary struct {
	Hash      types.Hash  `json:"hash"`
	Signed    bool        `json:"signed"`
	Address   any         `json:"address,omitempty"`
	Signature any         `json:"signature,omitempty"`
	Extra     any         `json:"extra,omitempty"`
	Pallet    string      `json:"pallet"`
	Call      scale.Value `json:"call"`
}

func describeExtrinsic(rt *core.Runtime, data []byte) (*extrinsicSummary, error) {
	env, err := extrinsic.Decode(data, rt.Layout)
	if err != nil {
		return nil, err
	}
	pallet, call, err := rt.Metadata.DecodeCall(env.Call)
	if err != nil {
		return nil, err
	}
	out := &extrinsicSummary{
		Hash:   extrinsic.Hash(data),
		Signed: env.IsSigned(),
		Pallet: pallet.Name,
		Call:   call,
	}
	if sig := env.Signature; sig != nil {
		reg := rt.Types()
		if out.Address, err = decodePretty(reg, rt.Layout.Address, sig.Address); err != nil {
			return nil, err
		}
		if out.Signature, err = decodePretty(reg, rt.Layout.Signature, sig.Signature); err != nil {
			return nil, err
		}
		if out.Extra, err = decodePretty(reg, rt.Layout.Extra, sig.Extra); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodePretty(reg *registry.Registry, id registry.TypeID, data []byte) (any, error) {
	v, err := scale.Decode(reg, id, data)
	if err != nil {
		return nil, err
	}
	return scale.Pretty(v), nil
}

package commands

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/events"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/signer"
	"github.com/PolymeshAssociation/polymesh-api-sub001/transactor"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

var (
	watchKey     string
	watchRemark  string
	watchTip     string
	watchInBlock bool
)

// WatchCmd submits an extrinsic and follows it until it is finalized or
// will never be.
var WatchCmd = &cobra.Command{
	Use:     "watch [extrinsic-hex]",
	Aliases: []string{"submit"},
	Short:   "Submit an extrinsic, or sign a System.remark with --key, and follow its status",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var encoded []byte
		switch {
		case len(args) == 1:
			b, err := hexutil.Decode(args[0])
			if err != nil {
				return err
			}
			encoded = b
		case watchKey == "":
			return errors.New("need an encoded extrinsic or --key")
		}
		return withNode(func(n *node.Node) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if encoded == nil {
				var err error
				if encoded, err = signRemark(cmd, n); err != nil {
					return err
				}
			}
			tx, err := transactor.Submit(ctx, n.Chain(), encoded)
			if err != nil {
				return err
			}
			defer tx.Close()
			events.TxStatus.SubscribeWhere("watch", func(u events.TxUpdate) bool { return u.Hash == tx.Hash() }, func(u events.TxUpdate) {
				logger.Debug("transaction status", "hash", u.Hash.Hex(), "status", u.Status)
			})
			defer events.TxStatus.Unsubscribe("watch")
			fmt.Fprintln(out, "hash:", tx.Hash().Hex())
			for {
				st, err := tx.Next(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "status:", st)
				if st.Kind == types.Finalized || (watchInBlock && st.Kind == types.InBlock) {
					break
				}
			}
			records, err := tx.Events(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(out, records); err != nil {
				return err
			}
			if dispatchErr, failed := types.DispatchError(records); failed {
				return fmt.Errorf("dispatch failed: %v", scale.Pretty(dispatchErr))
			}
			return nil
		})
	},
}

func init() {
	WatchCmd.Flags().StringVar(&watchKey, "key", "", "signing key, [ed25519:|ecdsa:]<hex secret>")
	WatchCmd.Flags().StringVar(&watchRemark, "remark", "", "remark text of the signed System.remark")
	WatchCmd.Flags().StringVar(&watchTip, "tip", "0", "tip in the chain's smallest unit")
	WatchCmd.Flags().BoolVar(&watchInBlock, "in-block", false, "stop once the extrinsic is in a block")
}

func signRemark(cmd *cobra.Command, n *node.Node) ([]byte, error) {
	key, err := signer.Parse(watchKey)
	if err != nil {
		return nil, err
	}
	tip, ok := new(big.Int).SetString(watchTip, 10)
	if !ok || tip.Sign() < 0 {
		return nil, fmt.Errorf("--tip: invalid amount %q", watchTip)
	}
	rt := n.Chain().Current()
	call, err := rt.Metadata.EncodeCall("System", "remark", map[string]scale.Value{"remark": []byte(watchRemark)})
	if err != nil {
		return nil, err
	}
	mortality := n.Config().Tx.Mortality
	opts := transactor.Options{Tip: tip, Mortality: mortality, Immortal: mortality == 0}
	logger.Info("signing remark", "account", key.AccountID().SS58(rt.SS58Prefix()), "mortality", mortality)
	return transactor.Sign(cmd.Context(), n.Chain(), key, call, opts)
}

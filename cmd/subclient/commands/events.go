package commands

import (
	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

var eventsExtrinsic int

// EventsCmd prints the events of a block.
var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the events of a block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := blockParam()
		if err != nil {
			return err
		}
		return withNode(func(n *node.Node) error {
			ctx := cmd.Context()
			if at == nil {
				head, err := n.Chain().BlockHash(ctx, nil)
				if err != nil {
					return err
				}
				at = &head
			}
			records, err := n.Chain().Events(ctx, *at)
			if err != nil {
				return err
			}
			if eventsExtrinsic >= 0 {
				records = types.FilterExtrinsicEvents(records, uint32(eventsExtrinsic))
			}
			return printJSON(cmd.OutOrStdout(), records)
		})
	},
}

func init() {
	EventsCmd.Flags().StringVar(&atBlock, "at", "", "block hash, best block when empty")
	EventsCmd.Flags().IntVar(&eventsExtrinsic, "extrinsic", -1, "only events of the extrinsic at this index")
}

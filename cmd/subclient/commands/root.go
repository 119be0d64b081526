package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cometbft/cometbft/libs/cli"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	"github.com/cometbft/cometbft/libs/log"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PolymeshAssociation/polymesh-api-sub001/config"
	"github.com/PolymeshAssociation/polymesh-api-sub001/events"
	"github.com/PolymeshAssociation/polymesh-api-sub001/flags"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
)

var (
	logger  = log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	verbose bool
)

// RootCmd is the root command for subclient. It is called once in the main
// function.
var RootCmd = &cobra.Command{
	Use:   "subclient",
	Short: "Substrate node client",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		viper.AddConfigPath(".")
		if viper.GetBool(flags.Trace) {
			logger = log.NewTracingLogger(logger)
		}

		logger, err = cmtflags.ParseLogLevel(viper.GetString(flags.Log_Level), logger.With("module", "main"), cmd.Flag(flags.Log_Level).DefValue)
		return err
	},
}

func init() {
	defaults := config.Default()
	RootCmd.PersistentFlags().String(flags.Log_Level, "info", "level of logging, can be debug, info, error, none or comma-separated list of module:level pairs with an optional *:level pair (* means all other modules). e.g. 'chain:debug,*:error'")
	RootCmd.PersistentFlags().String(flags.RPC_URL, defaults.RPC.URL, "node endpoint, ws(s):// or http(s)://")
	RootCmd.PersistentFlags().Duration(flags.RPC_Timeout, defaults.RPC.Timeout, "dial and call timeout")
	RootCmd.PersistentFlags().Uint32(flags.Storage_PageSize, defaults.Storage.PageSize, "keys fetched per storage page")
	RootCmd.AddCommand(
		MetadataCmd,
		DecodeCmd,
		EventsCmd,
		StorageCmd,
		WatchCmd,
		VersionCmd,
		cli.NewCompletionCmd(RootCmd, true),
	)
}

// withNode starts a node from the configuration, runs fn and stops the node.
// An interrupt stops the node before the process exits.
func withNode(fn func(n *node.Node) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	n, err := node.NewNode(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	events.RuntimeUpgraded.SubscribeWhere("subclient", func(u events.RuntimeUpgrade) bool { return u.Previous != nil }, func(u events.RuntimeUpgrade) {
		logger.Info("runtime upgraded", "spec", u.Current.SpecName, "from", u.Previous.SpecVersion, "to", u.Current.SpecVersion)
	})
	defer events.RuntimeUpgraded.Unsubscribe("subclient")
	if err := n.Start(); err != nil {
		return fmt.Errorf("failed to start node: %w", err)
	}
	cmtos.TrapSignal(logger, func() {
		if n.IsRunning() {
			if err := n.Stop(); err != nil {
				logger.Error("unable to stop the node", "error", err)
			}
		}
	})
	defer n.Stop()
	return fn(n)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

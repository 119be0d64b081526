package main

import (
	"os"
	"path/filepath"

	"github.com/cometbft/cometbft/libs/cli"

	"github.com/PolymeshAssociation/polymesh-api-sub001/cmd/subclient/commands"
)

func main() {
	cmd := cli.PrepareBaseCmd(commands.RootCmd, "SUBCLIENT", os.ExpandEnv(filepath.Join("$HOME", ".subclient")))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

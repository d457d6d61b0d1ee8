package commands

import (
	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for the cluster orchestrator
var RootCmd = &cobra.Command{
	Use:              "cluster",
	Short:            "hypercube test-cluster orchestrator",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(
		NewLeaderCmd(),
		NewValidatorCmd(),
		NewDroneCmd(),
		NewBenchCmd(),
		NewKeygenCmd(),
		NewVersionCmd(),
	)
}

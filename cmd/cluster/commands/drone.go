package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/gossip"
	"github.com/hypercube-lab/hypercube/src/supervise"
)

//NewDroneCmd returns the command that runs the airdrop drone
func NewDroneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drone [host[:port]]",
		Short:   "Run the airdrop drone against a live network",
		PreRunE: loadConfig,
		RunE:    runDrone,
	}
	AddRunFlags(cmd)
	return cmd
}

func runDrone(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	leader, rest, err := gossip.Resolve(args, config.DefaultGossipPort)
	if err != nil {
		cmd.Usage()
		return err
	}
	if len(rest) > 0 {
		cmd.Usage()
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	mint := _config.MintKeyfile()

	code, err := supervise.New(logger).Run(cmd.Context(), supervise.Spec{
		Role:   supervise.RoleDrone,
		Binary: _config.Bin(config.DroneBin),
		Args: []string{
			"--keypair", mint,
			"--network", leader.Addr,
		},
		Preconditions: []supervise.Precondition{
			{Path: mint, Remedy: "cluster keygen --outfile " + mint},
		},
	})
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

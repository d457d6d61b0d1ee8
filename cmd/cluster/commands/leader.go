package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/supervise"
	"github.com/hypercube-lab/hypercube/src/syncer"
)

//NewLeaderCmd returns the command that runs the leader node
func NewLeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leader",
		Short:   "Run the leader node",
		PreRunE: loadConfig,
		RunE:    runLeader,
	}
	AddRunFlags(cmd)
	return cmd
}

func runLeader(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	// The leader bootstraps the cluster from its own ledger; an empty one
	// means the genesis setup step has not been run.
	if err := syncer.VerifyLedger(_config.ConfigDir); err != nil {
		return fmt.Errorf("%w; run the genesis setup first", err)
	}

	keyfile := _config.LeaderKeyfile()

	sup := supervise.New(logger)
	code, err := sup.Run(cmd.Context(), supervise.Spec{
		Role:   supervise.RoleLeader,
		Binary: _config.FullnodeBinary(),
		Args: []string{
			"--identity", keyfile,
			"--ledger", config.LedgerDir(_config.ConfigDir),
		},
		Preconditions: []supervise.Precondition{
			{Path: keyfile, Remedy: "cluster keygen --outfile " + keyfile},
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

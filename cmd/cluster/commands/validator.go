package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/gossip"
	"github.com/hypercube-lab/hypercube/src/provision"
	"github.com/hypercube-lab/hypercube/src/supervise"
	"github.com/hypercube-lab/hypercube/src/syncer"
)

var selfConfigure bool

//NewValidatorCmd returns the command that runs a validator node
func NewValidatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validator [host[:port]]",
		Short:   "Run a validator node joined to an existing network",
		PreRunE: loadConfig,
		RunE:    runValidator,
	}
	cmd.Flags().BoolVarP(&selfConfigure, "self-configure", "x", false,
		"Generate a fresh identity and node config instead of using pre-provisioned files")
	AddRunFlags(cmd)
	return cmd
}

func runValidator(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()
	ctx := cmd.Context()

	leader, rest, err := gossip.Resolve(args, config.DefaultGossipPort)
	if err != nil {
		cmd.Usage()
		return err
	}
	if len(rest) > 0 {
		cmd.Usage()
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	// The ledger must be on disk before the node reads it. Transfer
	// failures here abort the startup; nothing has been spawned yet.
	s := syncer.New(_config, logger)
	retrier := syncer.NewRetrier(_config.SyncMaxElapsed, logger)

	err = retrier.Do(ctx, func() error {
		return s.Sync(ctx, leader.ConfigURL, _config.ValidatorDir)
	})
	if err != nil {
		return fmt.Errorf("synchronizing config from %s: %w", leader.ConfigURL, err)
	}

	var prov *provision.Provisioned
	if selfConfigure {
		prov, err = provision.New(_config, logger).Provision(ctx)
		if err != nil {
			return err
		}
	}

	code, err := supervise.New(logger).Run(ctx, validatorSpec(_config, leader.Addr, prov))
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// validatorSpec builds the supervised-child spec for a validator. With a
// provisioned identity the freshly-written files are used; otherwise the
// pre-provisioned keyfile is a precondition. Either way the leader's
// published descriptor must have arrived with the config sync.
func validatorSpec(conf *config.Config, leaderAddr string, prov *provision.Provisioned) supervise.Spec {
	spec := supervise.Spec{
		Role:   supervise.RoleValidator,
		Binary: conf.FullnodeBinary(),
	}

	if prov != nil {
		spec.Args = []string{
			"--identity", prov.Keyfile,
			"--config", prov.NodeConfig,
			"--ledger", config.LedgerDir(conf.ValidatorDir),
			"--leader", leaderAddr,
		}
	} else {
		keyfile := conf.ValidatorKeyfile()
		spec.Args = []string{
			"--identity", keyfile,
			"--ledger", config.LedgerDir(conf.ValidatorDir),
			"--leader", leaderAddr,
		}
		spec.Preconditions = []supervise.Precondition{
			{Path: keyfile, Remedy: "cluster keygen --outfile " + keyfile},
		}
	}

	spec.Preconditions = append(spec.Preconditions, supervise.Precondition{
		Path:   config.LeaderConfig(conf.ValidatorDir),
		Remedy: "cluster leader (on the leader host)",
	})

	return spec
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/gossip"
	"github.com/hypercube-lab/hypercube/src/harness"
	"github.com/hypercube-lab/hypercube/src/metrics"
)

//NewBenchCmd returns the command that runs the benchmark load harness
func NewBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bench [host[:port]] [-- client args...]",
		Short:   "Continuously exercise a live network with the bench client",
		PreRunE: loadConfig,
		RunE:    runBench,
	}

	cmd.Flags().Duration("bench-duration", _config.BenchDuration, "Duration of one client iteration")
	cmd.Flags().Int("bench-threads", _config.BenchThreads, "Client thread count (capped)")
	cmd.Flags().Int("bench-nodes", _config.BenchNodeCount, "Number of nodes the client expects to discover")
	cmd.Flags().String("tmux-session", _config.TmuxSession, "Name of the detachable session")
	cmd.Flags().Bool("no-tmux", _config.NoTmux, "Run in the invoking terminal instead of a tmux session")

	AddRunFlags(cmd)
	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	leader, rest, err := gossip.Resolve(args, config.DefaultGossipPort)
	if err != nil {
		cmd.Usage()
		return err
	}

	// Detach into tmux unless already inside one, so the loop survives
	// the invoking shell's disconnection.
	if !_config.NoTmux && os.Getenv("TMUX") == "" {
		tm := harness.NewTmux(_config)

		argv := append([]string{}, os.Args...)
		argv = append(argv, "--no-tmux")

		if err := tm.Spawn(argv); err != nil {
			return err
		}

		fmt.Printf("bench harness started; attach with: tmux attach -t %s\n", tm.Session())
		return nil
	}

	reporter, err := metrics.NewReporter(_config, logger)
	if err != nil {
		return err
	}
	defer reporter.Close()

	// Crashes of the harness surface as a datapoint before the process
	// dies.
	logger.Logger.Hooks.Add(metrics.NewPanicHook(reporter, "bench"))

	h := harness.New(_config, logger, reporter, leader.Addr, rest)

	return h.Run(cmd.Context())
}

package harness

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/provision"
)

// Recorder is the datapoint sink the harness publishes iteration
// boundaries to. *metrics.Reporter satisfies it.
type Recorder interface {
	Submit(measurement string, tags map[string]string, fields map[string]interface{})
}

// Harness continuously exercises a live network with the bench client.
// Iterations are independent: a failing client run is logged, counted and
// superseded by the next iteration. The loop only stops when its context
// is cancelled; there is no other termination condition.
type Harness struct {
	conf       *config.Config
	logger     *logrus.Entry
	rec        Recorder
	leaderAddr string
	extraArgs  []string
}

// New returns a Harness targeting the leader at leaderAddr. extraArgs are
// forwarded verbatim to every bench client invocation.
func New(conf *config.Config, logger *logrus.Entry, rec Recorder, leaderAddr string, extraArgs []string) *Harness {
	return &Harness{
		conf:       conf,
		logger:     logger,
		rec:        rec,
		leaderAddr: leaderAddr,
		extraArgs:  extraArgs,
	}
}

// EnsureClientIdentity generates the client keypair on first run only.
// An existing identity is never regenerated: the network may already
// know and have funded its address.
func (h *Harness) EnsureClientIdentity() error {
	path := h.conf.ClientKeyfile()
	if _, err := os.Stat(path); err == nil {
		h.logger.WithField("keyfile", path).Debug("client identity already exists")
		return nil
	}

	h.logger.WithField("keyfile", path).Info("generating client identity")
	return provision.GenKeypairFile(path)
}

// Run executes the benchmark loop until ctx is cancelled. The two host
// monitors run for the lifetime of the loop and are joined before Run
// returns.
func (h *Harness) Run(ctx context.Context) error {
	if err := h.EnsureClientIdentity(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	h.startMonitors(ctx, &wg)
	defer wg.Wait()

	for iteration := 0; ; iteration++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		h.rec.Submit("bench-begin", nil, map[string]interface{}{
			"iteration": iteration,
		})

		start := time.Now()
		err := h.runClient(ctx, iteration)
		elapsed := time.Since(start)

		success := err == nil
		if !success {
			h.logger.WithFields(logrus.Fields{
				"iteration": iteration,
				"error":     err,
			}).Warn("bench client failed")
		}

		h.rec.Submit("bench-complete", nil, map[string]interface{}{
			"iteration":  iteration,
			"success":    success,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}
}

func (h *Harness) runClient(ctx context.Context, iteration int) error {
	threads := h.conf.BenchThreads
	if threads > config.DefaultBenchThreads {
		threads = config.DefaultBenchThreads
	}

	args := []string{
		"--keypair", h.conf.ClientKeyfile(),
		"--network", h.leaderAddr,
		"--nodes", strconv.Itoa(h.conf.BenchNodeCount),
		"--duration", strconv.Itoa(int(h.conf.BenchDuration.Seconds())),
		"--threads", strconv.Itoa(threads),
	}
	args = append(args, h.extraArgs...)

	cmd := exec.CommandContext(ctx, h.conf.Bin(config.BenchBin), args...)

	stdout := h.logger.WithField("prefix", "bench").WriterLevel(logrus.InfoLevel)
	stderr := h.logger.WithField("prefix", "bench").WriterLevel(logrus.ErrorLevel)
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	h.logger.WithField("iteration", iteration).Info("bench client starting")

	return cmd.Run()
}

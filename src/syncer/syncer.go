package syncer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/config"
)

// ErrEmptyLedger is returned when a transfer completes but leaves no
// ledger behind, which means the leader is unreachable or misconfigured.
// A node must never start against an empty ledger.
var ErrEmptyLedger = fmt.Errorf("ledger subtree missing or empty after transfer")

// Syncer replicates a leader's published config tree to a local
// directory. One call is one transfer attempt; retry policy belongs to
// the Retrier collaborator.
type Syncer struct {
	rsyncBin string
	logger   *logrus.Entry
}

// New returns a Syncer using the rsync binary resolved from conf.
func New(conf *config.Config, logger *logrus.Entry) *Syncer {
	return &Syncer{
		rsyncBin: conf.Bin(config.RsyncBin),
		logger:   logger,
	}
}

// Sync performs a single incremental transfer of url into dest and then
// verifies the ledger postcondition. The transfer is recursive and
// deletes local files that disappeared upstream, so partial re-runs
// converge on the leader's tree.
func (s *Syncer) Sync(ctx context.Context, url, dest string) error {
	// Only the parent is created here; rsync creates dest itself on a
	// successful transfer, so a failed sync against an absent dest leaves
	// no empty directory behind.
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dest, err)
	}

	cmd := exec.CommandContext(ctx, s.rsyncBin, "-az", "--delete", url+"/", dest+"/")

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		s.logger.WithField("prefix", "rsync").Debug(string(out))
	}
	if err != nil {
		return fmt.Errorf("rsync %s: %w", url, err)
	}

	return VerifyLedger(dest)
}

// VerifyLedger checks that the ledger subtree exists under dir and is
// non-empty. Its absence after a transfer is fatal for node startup.
func VerifyLedger(dir string) error {
	ledger := config.LedgerDir(dir)

	entries, err := os.ReadDir(ledger)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEmptyLedger, ledger)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyLedger, ledger)
	}

	return nil
}

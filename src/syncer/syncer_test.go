package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/common"
	"github.com/hypercube-lab/hypercube/src/config"
)

func TestVerifyLedgerMissing(t *testing.T) {
	dir := t.TempDir()

	if err := VerifyLedger(dir); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("err: %v", err)
	}
}

func TestVerifyLedgerEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(config.LedgerDir(dir), 0755); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := VerifyLedger(dir); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("err: %v", err)
	}
}

func TestVerifyLedgerPopulated(t *testing.T) {
	dir := t.TempDir()
	ledger := config.LedgerDir(dir)
	if err := os.MkdirAll(ledger, 0755); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ledger, "genesis.log"), []byte("genesis"), 0644); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := VerifyLedger(dir); err != nil {
		t.Fatalf("err: %v", err)
	}
}

func TestSyncUnreachableLeavesDestUnchanged(t *testing.T) {
	dir := t.TempDir()

	conf := config.NewDefaultConfig()
	s := New(conf, common.NewTestEntry(t, logrus.DebugLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Sync(ctx, "rsync://127.0.0.1:1/config", dir)
	if err == nil {
		t.Fatalf("sync against unreachable source should fail")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("err: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("destination should be unchanged, got %v", entries)
	}
}

func TestSyncFailureLeavesDestAbsent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mirror")

	conf := config.NewDefaultConfig()
	s := New(conf, common.NewTestEntry(t, logrus.DebugLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Sync(ctx, "rsync://127.0.0.1:1/config", dest)
	if err == nil {
		t.Fatalf("sync against unreachable source should fail")
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("failed sync should not create %s: %v", dest, statErr)
	}
}

func TestRetrierStopsOnSuccess(t *testing.T) {
	r := NewRetrier(time.Minute, common.NewTestEntry(t, logrus.DebugLevel))

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: %d", calls)
	}
}

func TestRetrierHonorsContext(t *testing.T) {
	r := NewRetrier(time.Hour, common.NewTestEntry(t, logrus.DebugLevel))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func() error { return fmt.Errorf("always") })
	if err == nil {
		t.Fatalf("cancelled retrier should report failure")
	}
}

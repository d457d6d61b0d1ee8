package syncer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Retrier wraps transfer attempts with exponential backoff. It exists so
// that retry policy stays configurable in one place instead of leaking
// into the Syncer.
type Retrier struct {
	maxElapsed time.Duration
	logger     *logrus.Entry
}

// NewRetrier returns a Retrier that gives up after maxElapsed of
// cumulative backoff. A zero maxElapsed retries indefinitely.
func NewRetrier(maxElapsed time.Duration, logger *logrus.Entry) *Retrier {
	return &Retrier{
		maxElapsed: maxElapsed,
		logger:     logger,
	}
}

// Do runs op until it succeeds, the backoff budget is exhausted, or ctx
// is cancelled. The last error is returned.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = r.maxElapsed

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err,
			}).Warn("transfer attempt failed")
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(policy, ctx))
}

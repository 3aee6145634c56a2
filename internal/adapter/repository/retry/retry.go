// Package retry re-runs store operations that failed on lock contention.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/domain"
)

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	retryable       func(error) bool
	logger          zerolog.Logger
}

// New creates a Retrier that retries errors accepted by retryable.
func New(retryable func(error) bool, logger zerolog.Logger) *Retrier {
	return &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		retryable:       retryable,
		logger:          logger,
	}
}

// WithMaxRetries overrides the number of retries after the first attempt.
func (r *Retrier) WithMaxRetries(n int) *Retrier {
	r.maxRetries = n
	return r
}

// WithIntervals overrides the backoff timing.
func (r *Retrier) WithIntervals(initial, ceiling, maxElapsed time.Duration) *Retrier {
	r.initialInterval = initial
	r.maxInterval = ceiling
	r.maxElapsedTime = maxElapsed
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
// A retryable error that outlives the retries becomes ErrConcurrencyConflict.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0

	err := backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !r.retryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Int("retry", retryCount).
			Msg("retryable database error, retrying")

		return err
	}, backoff.WithContext(b, ctx))

	if err != nil && r.retryable(err) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
	}
	return err
}

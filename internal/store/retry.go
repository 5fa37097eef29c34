package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// RetryPolicy controls how a write that hits a locked database is retried.
// Attempt n (1-based) that fails busy waits Backoff*n before the next one.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration

	// Sleep waits for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns 3 attempts with 100ms linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  100 * time.Millisecond,
		Sleep:    SleepContext,
	}
}

// SleepContext blocks for d or until ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsBusy reports whether err is SQLite lock contention.
func IsBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs fn until it succeeds, fails with a non-busy error, or the
// policy's attempts are used up.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := s.retry.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !IsBusy(err) {
			return err
		}
		if attempt >= attempts {
			break
		}
		wait := s.retry.Backoff * time.Duration(attempt)
		s.log.Warn("database locked, retrying",
			"op", op,
			"attempt", attempt,
			"backoff", wait,
		)
		if serr := sleep(ctx, wait); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}

	s.log.Error("database locked, giving up", "op", op, "attempts", attempts)
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrStoreBusy, attempts, err)
}

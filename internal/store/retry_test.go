package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/testutil"
)

// busyBegin fails the first n begins with SQLITE_BUSY, then delegates.
func busyBegin(s *Store, n int) *int {
	calls := 0
	next := s.begin
	s.begin = func(ctx context.Context) (*sqlx.Tx, error) {
		calls++
		if calls <= n {
			return nil, sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return next(ctx)
	}
	return &calls
}

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, IsBusy(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsBusy(errors.New("busy")))
	assert.False(t, IsBusy(nil))
}

func TestUpsert_RetriesTransientLock(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	s := createTestStore(t, WithRetryPolicy(RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond, Sleep: sleeper.Sleep}))
	calls := busyBegin(s, 2)

	res, err := s.Upsert(context.Background(), "ITM-1", map[string]string{"Title": "A"}, SourceImport)

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.Calls(),
		"backoff grows linearly with the attempt number")
}

func TestUpsert_RetryExhaustedReturnsStoreBusy(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	s := createTestStore(t, WithRetryPolicy(RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond, Sleep: sleeper.Sleep}))
	calls := busyBegin(s, 100)

	_, err := s.Upsert(context.Background(), "ITM-1", map[string]string{"Title": "A"}, SourceImport)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreBusy)
	assert.True(t, IsBusy(err), "the underlying lock error stays inspectable")
	assert.Equal(t, 3, *calls)
	assert.Len(t, sleeper.Calls(), 2, "no sleep after the final attempt")

	_, err = s.Get(context.Background(), "ITM-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsert_NonBusyErrorNotRetried(t *testing.T) {
	s := createTestStore(t)
	calls := 0
	s.begin = func(ctx context.Context) (*sqlx.Tx, error) {
		calls++
		return nil, errors.New("disk on fire")
	}

	_, err := s.Upsert(context.Background(), "ITM-1", map[string]string{"Title": "A"}, SourceImport)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreBusy)
	assert.Equal(t, 1, calls)
}

func TestUpsert_RetryStopsOnCancelledContext(t *testing.T) {
	s := createTestStore(t, WithRetryPolicy(RetryPolicy{Attempts: 3, Backoff: time.Hour, Sleep: SleepContext}))
	busyBegin(s, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upsert(ctx, "ITM-1", map[string]string{"Title": "A"}, SourceImport)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestChecklist_RetriesTransientLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	s, err := Open(path, WithBusyTimeout(time.Millisecond))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Upsert(ctx, "ITM-1", map[string]string{"Title": "A"}, SourceManual)
	require.NoError(t, err)

	// Hold the write lock from a second connection and release it once
	// the first attempt has failed.
	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()
	lock, err := other.db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	released := false
	s.retry = RetryPolicy{Attempts: 3, Backoff: time.Millisecond, Sleep: func(context.Context, time.Duration) error {
		if !released {
			released = true
			return lock.Rollback()
		}
		return nil
	}}

	id, err := s.AddChecklistEntry(ctx, "ITM-1", "call supplier")
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.True(t, released, "first attempt must have hit the held lock")
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

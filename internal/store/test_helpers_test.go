package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/testutil"
)

// createTestStore opens a fresh store under t.TempDir with a deterministic
// clock and a no-wait retry sleeper.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	base := []Option{
		WithClock(testutil.NewDeterministicClock().Now),
		WithRetryPolicy(RetryPolicy{Attempts: 3, Backoff: 0, Sleep: (&testutil.RecordingSleeper{}).Sleep}),
	}
	s, err := Open(path, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// logFor returns itemID's change log oldest first.
func logFor(t *testing.T, s *Store, itemID string) []model.ChangeLogEntry {
	t.Helper()
	entries, err := s.ChangeLog(context.Background(), ChangeLogFilter{ItemID: itemID, Limit: 1000})
	require.NoError(t, err)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// fieldEntries drops sentinel entries.
func fieldEntries(entries []model.ChangeLogEntry) []model.ChangeLogEntry {
	out := []model.ChangeLogEntry{}
	for _, e := range entries {
		if e.FieldName == model.FieldItemCreated || e.FieldName == model.FieldItemDeleted {
			continue
		}
		out = append(out, e)
	}
	return out
}

package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Tx is a write transaction handed to InTx callbacks. Change log entries
// written through it commit or roll back together with everything else
// in the transaction.
type Tx struct {
	tx *sqlx.Tx
	s  *Store
}

// InTx runs fn inside one exclusive transaction. If fn returns an error
// the transaction is rolled back and the error comes back wrapped in an
// *IntegrityError. Lock contention at begin is retried per the store's
// RetryPolicy, re-running fn from scratch.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	return s.withRetry(ctx, "transaction", func() error {
		return s.runTx(ctx, "transaction", "", fn)
	})
}

func (s *Store) runTx(ctx context.Context, op, itemID string, fn func(*Tx) error) (retErr error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if retErr == nil {
			return
		}
		_ = tx.Rollback()
		s.log.Debug("transaction rolled back", "op", op, "item_id", itemID, "error", retErr)
	}()

	if err := fn(&Tx{tx: tx, s: s}); err != nil {
		return &IntegrityError{Op: op, ItemID: itemID, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &IntegrityError{Op: op, ItemID: itemID, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

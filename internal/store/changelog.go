package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vpcr/internal/model"
)

// DefaultChangeLogLimit caps ChangeLog when the filter sets no limit.
const DefaultChangeLogLimit = 100

// ChangeLogFilter selects change log entries. An empty ItemID means all
// items.
type ChangeLogFilter struct {
	ItemID string
	Limit  int
}

// changeLogRow is the database row shape for change_log.
type changeLogRow struct {
	ID         int64  `db:"id"`
	ItemID     string `db:"item_id"`
	FieldName  string `db:"field_name"`
	OldValue   string `db:"old_value"`
	NewValue   string `db:"new_value"`
	ChangeDate string `db:"change_date"`
	ChangeType string `db:"change_type"`
}

// LogChange appends one change log entry in its own transaction. It is a
// no-op returning false when the normalized old and new values are equal.
// An empty ChangeType defaults to update.
//
// The store holds a single connection, so LogChange must not be called
// from inside an InTx callback: it waits for the connection the
// transaction holds until ctx is done. Use (*Tx).LogChange there.
func (s *Store) LogChange(ctx context.Context, e model.ChangeLogEntry) (bool, error) {
	var written bool
	err := s.withRetry(ctx, "log change", func() error {
		var err error
		written, err = logChange(ctx, s.db, s.timestamp(), e)
		return err
	})
	return written, err
}

// LogChange appends one change log entry inside the caller's transaction.
// Same rules as Store.LogChange.
func (t *Tx) LogChange(ctx context.Context, e model.ChangeLogEntry) (bool, error) {
	return logChange(ctx, t.tx, t.s.timestamp(), e)
}

func logChange(ctx context.Context, ex sqlx.ExecerContext, stamp string, e model.ChangeLogEntry) (bool, error) {
	itemID := NormalizeValue(e.ItemID)
	if itemID == "" || e.FieldName == "" {
		return false, fmt.Errorf("log change: %w: item id and field name are required", ErrValidation)
	}
	ct := e.ChangeType
	if ct == "" {
		ct = model.ChangeUpdate
	}
	if !ct.Valid() {
		return false, fmt.Errorf("log change: %w: change type %q", ErrValidation, ct)
	}

	oldValue, newValue := NormalizeValue(e.OldValue), NormalizeValue(e.NewValue)
	if oldValue == newValue {
		return false, nil
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO change_log (item_id, field_name, old_value, new_value, change_date, change_type)
		VALUES (?, ?, ?, ?, ?, ?)
	`, itemID, e.FieldName, oldValue, newValue, stamp, string(ct))
	if err != nil {
		return false, fmt.Errorf("log change %s/%s: %w", itemID, e.FieldName, err)
	}
	return true, nil
}

// ChangeLog returns entries most recent first (change_date DESC, id DESC).
func (s *Store) ChangeLog(ctx context.Context, f ChangeLogFilter) ([]model.ChangeLogEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultChangeLogLimit
	}

	query := `
		SELECT id, item_id, field_name, old_value, new_value, change_date, change_type
		FROM change_log`
	args := []any{}
	if itemID := NormalizeValue(f.ItemID); itemID != "" {
		query += " WHERE item_id = ?"
		args = append(args, itemID)
	}
	query += " ORDER BY change_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var rows []changeLogRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}

	entries := make([]model.ChangeLogEntry, 0, len(rows))
	for _, r := range rows {
		at, err := parseTimestamp(r.ChangeDate)
		if err != nil {
			return nil, fmt.Errorf("query change log: entry %d: %w", r.ID, err)
		}
		entries = append(entries, model.ChangeLogEntry{
			ID:         r.ID,
			ItemID:     r.ItemID,
			FieldName:  r.FieldName,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			ChangeType: model.ChangeType(r.ChangeType),
			ChangedAt:  at,
		})
	}
	return entries, nil
}

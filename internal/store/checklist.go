package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/vpcr/internal/model"
)

// ChecklistUpdate carries the optional fields of UpdateChecklistEntry.
// Nil means "leave unchanged".
type ChecklistUpdate struct {
	Description *string
	Completed   *bool
}

type checklistRow struct {
	ID          int64  `db:"id"`
	ItemID      string `db:"item_id"`
	Description string `db:"description"`
	Completed   bool   `db:"completed"`
	CreatedAt   string `db:"created_at"`
}

// AddChecklistEntry appends an open entry to itemID's checklist and
// returns its id. The item must exist.
func (s *Store) AddChecklistEntry(ctx context.Context, itemID, description string) (int64, error) {
	itemID = NormalizeValue(itemID)
	description = NormalizeValue(description)
	if description == "" {
		return 0, fmt.Errorf("add checklist entry: %w: description is required", ErrValidation)
	}

	var id int64
	err := s.withRetry(ctx, "add checklist entry", func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO checklist (item_id, description, completed, created_at)
			VALUES (?, ?, 0, ?)
		`, itemID, description, s.timestamp())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if isForeignKeyViolation(err) {
		return 0, fmt.Errorf("add checklist entry: item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("add checklist entry: %w", err)
	}
	return id, nil
}

// UpdateChecklistEntry changes the description and/or completed flag.
func (s *Store) UpdateChecklistEntry(ctx context.Context, id int64, u ChecklistUpdate) error {
	var sets []string
	var args []any
	if u.Description != nil {
		d := NormalizeValue(*u.Description)
		if d == "" {
			return fmt.Errorf("update checklist entry %d: %w: description is required", id, ErrValidation)
		}
		sets = append(sets, "description = ?")
		args = append(args, d)
	}
	if u.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *u.Completed)
	}
	if len(sets) == 0 {
		return fmt.Errorf("update checklist entry %d: %w: nothing to update", id, ErrValidation)
	}
	args = append(args, id)

	query := "UPDATE checklist SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	return s.execChecklist(ctx, fmt.Sprintf("update checklist entry %d", id), query, args...)
}

// ToggleChecklistEntry flips the completed flag.
func (s *Store) ToggleChecklistEntry(ctx context.Context, id int64) error {
	return s.execChecklist(ctx, fmt.Sprintf("toggle checklist entry %d", id),
		"UPDATE checklist SET completed = CASE WHEN completed = 0 THEN 1 ELSE 0 END WHERE id = ?", id)
}

// DeleteChecklistEntry removes one entry. The owning item is untouched.
func (s *Store) DeleteChecklistEntry(ctx context.Context, id int64) error {
	return s.execChecklist(ctx, fmt.Sprintf("delete checklist entry %d", id),
		"DELETE FROM checklist WHERE id = ?", id)
}

// execChecklist runs a single-row statement and reports ErrNotFound when
// it matched nothing.
func (s *Store) execChecklist(ctx context.Context, op, query string, args ...any) error {
	var affected int64
	err := s.withRetry(ctx, op, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListChecklistEntries returns itemID's entries in creation order.
func (s *Store) ListChecklistEntries(ctx context.Context, itemID string) ([]model.ChecklistEntry, error) {
	var rows []checklistRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, item_id, description, completed, created_at
		FROM checklist
		WHERE item_id = ?
		ORDER BY created_at ASC, id ASC
	`, NormalizeValue(itemID))
	if err != nil {
		return nil, fmt.Errorf("list checklist entries: %w", err)
	}

	entries := make([]model.ChecklistEntry, 0, len(rows))
	for _, r := range rows {
		at, err := parseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list checklist entries: entry %d: %w", r.ID, err)
		}
		entries = append(entries, model.ChecklistEntry{
			ID:          r.ID,
			ItemID:      r.ItemID,
			Description: r.Description,
			Completed:   r.Completed,
			CreatedAt:   at,
		})
	}
	return entries, nil
}

// CountChecklistEntries returns the total and completed counts for itemID.
func (s *Store) CountChecklistEntries(ctx context.Context, itemID string) (model.ChecklistCount, error) {
	var c model.ChecklistCount
	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM checklist
		WHERE item_id = ?
	`, NormalizeValue(itemID)).Scan(&c.Total, &c.Completed)
	if err != nil {
		return model.ChecklistCount{}, fmt.Errorf("count checklist entries: %w", err)
	}
	return c, nil
}

// HasIncompleteChecklist reports whether itemID has any open entry.
func (s *Store) HasIncompleteChecklist(ctx context.Context, itemID string) (bool, error) {
	var open bool
	err := s.db.GetContext(ctx, &open, `
		SELECT EXISTS(SELECT 1 FROM checklist WHERE item_id = ? AND completed = 0)
	`, NormalizeValue(itemID))
	if err != nil {
		return false, fmt.Errorf("check incomplete checklist: %w", err)
	}
	return open, nil
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
)

// Source identifies who is writing an item and selects the change types
// recorded for it.
type Source int

const (
	// SourceManual is an interactive edit; every entry is manual_update.
	SourceManual Source = iota
	// SourceImport is a spreadsheet row; entries are import_create or
	// import_update.
	SourceImport
)

func (src Source) String() string {
	if src == SourceImport {
		return "import"
	}
	return "manual"
}

func (src Source) createType() model.ChangeType {
	if src == SourceImport {
		return model.ChangeImportCreate
	}
	return model.ChangeManualUpdate
}

func (src Source) updateType() model.ChangeType {
	if src == SourceImport {
		return model.ChangeImportUpdate
	}
	return model.ChangeManualUpdate
}

// UpsertResult reports what an Upsert did. Changed counts field entries
// written to the change log (the ITEM_CREATED sentinel is not counted).
type UpsertResult struct {
	Created bool `json:"created" yaml:"created"`
	Changed int  `json:"changed" yaml:"changed"`
}

// columnValue is one supplied field resolved to its column, value already
// normalized.
type columnValue struct {
	field schema.Field
	value string
}

// Get returns the item with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, itemID string) (model.Item, error) {
	itemID = NormalizeValue(itemID)
	row := s.db.QueryRowxContext(ctx, selectItemsSQL()+" WHERE "+schema.IDColumn+" = ?", itemID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return it, nil
}

// GetAll returns every stored item. Callers must not depend on the order.
func (s *Store) GetAll(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryxContext(ctx, selectItemsSQL()+" ORDER BY "+schema.IDColumn)
	if err != nil {
		return nil, fmt.Errorf("get all items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("get all items: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get all items: %w", err)
	}
	return items, nil
}

// Upsert inserts or updates one item and logs every field it changes, all
// in one exclusive transaction.
//
// fields is keyed by canonical field name or column name. Fields not
// supplied are left untouched. An ID entry is accepted only if it matches
// itemID. On insert one entry is logged per non-empty field plus an
// ITEM_CREATED sentinel; on update one entry per field whose normalized
// value differs from the stored one.
//
// Lock contention retries the whole read-diff-write per the store's
// RetryPolicy. Failures inside the transaction come back as
// *IntegrityError after rollback.
func (s *Store) Upsert(ctx context.Context, itemID string, fields map[string]string, src Source) (UpsertResult, error) {
	itemID = NormalizeValue(itemID)
	if itemID == "" {
		return UpsertResult{}, fmt.Errorf("upsert item: %w: item id is required", ErrValidation)
	}
	values, err := resolveFields(itemID, fields)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert item %s: %w", itemID, err)
	}

	var res UpsertResult
	err = s.withRetry(ctx, "upsert item "+itemID, func() error {
		return s.runTx(ctx, "upsert item", itemID, func(tx *Tx) error {
			r, err := tx.upsert(ctx, itemID, values, src)
			res = r
			return err
		})
	})
	if err != nil {
		return UpsertResult{}, err
	}

	s.log.Debug("item upserted",
		"item_id", itemID,
		"source", src.String(),
		"created", res.Created,
		"changed", res.Changed,
	)
	return res, nil
}

func (t *Tx) upsert(ctx context.Context, itemID string, values []columnValue, src Source) (UpsertResult, error) {
	current, found, err := t.readItemRow(ctx, itemID)
	if err != nil {
		return UpsertResult{}, err
	}

	if !found {
		return t.insertItem(ctx, itemID, values, src)
	}

	var changed []columnValue
	for _, v := range values {
		if NormalizeValue(current[v.field.Column]) != v.value {
			changed = append(changed, v)
		}
	}
	if len(changed) == 0 {
		return UpsertResult{}, nil
	}

	sets := make([]string, len(changed))
	args := make([]any, 0, len(changed)+1)
	for i, v := range changed {
		sets[i] = v.field.Column + " = ?"
		args = append(args, v.value)
	}
	args = append(args, itemID)
	query := fmt.Sprintf("UPDATE items SET %s WHERE %s = ?", strings.Join(sets, ", "), schema.IDColumn)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return UpsertResult{}, fmt.Errorf("update item row: %w", err)
	}
	if err := t.afterItemWrite(itemID); err != nil {
		return UpsertResult{}, err
	}

	n := 0
	for _, v := range changed {
		ok, err := t.LogChange(ctx, model.ChangeLogEntry{
			ItemID:     itemID,
			FieldName:  v.field.Column,
			OldValue:   current[v.field.Column],
			NewValue:   v.value,
			ChangeType: src.updateType(),
		})
		if err != nil {
			return UpsertResult{}, err
		}
		if ok {
			n++
		}
	}
	return UpsertResult{Changed: n}, nil
}

func (t *Tx) insertItem(ctx context.Context, itemID string, values []columnValue, src Source) (UpsertResult, error) {
	cols := []string{schema.IDColumn}
	args := []any{itemID}
	for _, v := range values {
		cols = append(cols, v.field.Column)
		args = append(args, v.value)
	}
	query := fmt.Sprintf("INSERT INTO items (%s) VALUES (?%s)",
		strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)-1))
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return UpsertResult{}, fmt.Errorf("insert item row: %w", err)
	}
	if err := t.afterItemWrite(itemID); err != nil {
		return UpsertResult{}, err
	}

	if _, err := t.LogChange(ctx, model.ChangeLogEntry{
		ItemID:     itemID,
		FieldName:  model.FieldItemCreated,
		NewValue:   itemID,
		ChangeType: src.createType(),
	}); err != nil {
		return UpsertResult{}, err
	}

	n := 0
	for _, v := range values {
		ok, err := t.LogChange(ctx, model.ChangeLogEntry{
			ItemID:     itemID,
			FieldName:  v.field.Column,
			NewValue:   v.value,
			ChangeType: src.createType(),
		})
		if err != nil {
			return UpsertResult{}, err
		}
		if ok {
			n++
		}
	}
	return UpsertResult{Created: true, Changed: n}, nil
}

func (t *Tx) afterItemWrite(itemID string) error {
	if t.s.afterItemWrite == nil {
		return nil
	}
	return t.s.afterItemWrite(itemID)
}

// readItemRow returns the stored columns of itemID keyed by column name.
func (t *Tx) readItemRow(ctx context.Context, itemID string) (map[string]string, bool, error) {
	row := t.tx.QueryRowxContext(ctx, selectItemsSQL()+" WHERE "+schema.IDColumn+" = ?", itemID)
	cols := schema.Columns()
	dest := make([]string, len(cols)+1)
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read item row: %w", err)
	}
	current := make(map[string]string, len(cols))
	for i, c := range cols {
		current[c] = dest[i+1]
	}
	return current, true, nil
}

// Delete removes an item and its checklist entries and logs an
// ITEM_DELETED sentinel. Not used during normal operation.
func (s *Store) Delete(ctx context.Context, itemID string) error {
	itemID = NormalizeValue(itemID)
	return s.withRetry(ctx, "delete item "+itemID, func() error {
		return s.runTx(ctx, "delete item", itemID, func(tx *Tx) error {
			res, err := tx.tx.ExecContext(ctx, "DELETE FROM items WHERE "+schema.IDColumn+" = ?", itemID)
			if err != nil {
				return fmt.Errorf("delete item row: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete item row: %w", err)
			}
			if n == 0 {
				return ErrNotFound
			}
			_, err = tx.LogChange(ctx, model.ChangeLogEntry{
				ItemID:     itemID,
				FieldName:  model.FieldItemDeleted,
				OldValue:   itemID,
				ChangeType: model.ChangeUpdate,
			})
			return err
		})
	})
}

// resolveFields maps caller field names to columns in field-table order.
func resolveFields(itemID string, fields map[string]string) ([]columnValue, error) {
	byColumn := make(map[string]string, len(fields))
	for name, raw := range fields {
		f, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		v := NormalizeValue(raw)
		if f.Column == schema.IDColumn {
			if v != itemID {
				return nil, fmt.Errorf("%w: item id is immutable (got %q)", ErrValidation, v)
			}
			continue
		}
		if prev, dup := byColumn[f.Column]; dup && prev != v {
			return nil, fmt.Errorf("%w: conflicting values for %s", ErrValidation, f.Name)
		}
		byColumn[f.Column] = v
	}

	values := make([]columnValue, 0, len(byColumn))
	for _, f := range schema.DataFields() {
		if v, ok := byColumn[f.Column]; ok {
			values = append(values, columnValue{field: f, value: v})
		}
	}
	return values, nil
}

func selectItemsSQL() string {
	cols := append([]string{schema.IDColumn}, schema.Columns()...)
	return "SELECT " + strings.Join(cols, ", ") + " FROM items"
}

// scanItem reads one items row into the canonical shape. Every mapped field
// is present in Fields, empty when unset.
func scanItem(row interface{ Scan(...any) error }) (model.Item, error) {
	fields := schema.DataFields()
	dest := make([]string, len(fields)+1)
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return model.Item{}, err
	}
	it := model.Item{ID: dest[0], Fields: make(map[string]string, len(fields))}
	for i, f := range fields {
		it.Fields[f.Name] = dest[i+1]
	}
	return it, nil
}

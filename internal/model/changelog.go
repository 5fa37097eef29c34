package model

import "time"

// ChangeType classifies a change log entry.
type ChangeType string

const (
	ChangeUpdate       ChangeType = "update"
	ChangeImportCreate ChangeType = "import_create"
	ChangeImportUpdate ChangeType = "import_update"
	ChangeManualUpdate ChangeType = "manual_update"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeUpdate, ChangeImportCreate, ChangeImportUpdate, ChangeManualUpdate:
		return true
	}
	return false
}

// Sentinel field names for whole-item events.
const (
	FieldItemCreated = "ITEM_CREATED"
	FieldItemDeleted = "ITEM_DELETED"
)

// ChangeLogEntry is one append-only audit record. FieldName is the persisted
// column name, or one of the sentinel names above.
type ChangeLogEntry struct {
	ID         int64      `json:"id" yaml:"id"`
	ItemID     string     `json:"item_id" yaml:"item_id"`
	FieldName  string     `json:"field_name" yaml:"field_name"`
	OldValue   string     `json:"old_value" yaml:"old_value"`
	NewValue   string     `json:"new_value" yaml:"new_value"`
	ChangeType ChangeType `json:"change_type" yaml:"change_type"`
	ChangedAt  time.Time  `json:"changed_at" yaml:"changed_at"`
}

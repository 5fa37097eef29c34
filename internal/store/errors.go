package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested item or checklist entry
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreBusy is returned when a write transaction could not start
	// within the retry policy.
	ErrStoreBusy = errors.New("store busy")

	// ErrValidation is returned for malformed input rejected before any
	// storage work happens.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownField is returned when an upsert names a field the field
	// table does not know.
	ErrUnknownField = errors.New("unknown field")
)

// IntegrityError reports a failure inside a write transaction. The
// transaction has been rolled back: neither the item nor the change log
// reflect any part of the operation.
type IntegrityError struct {
	Op     string
	ItemID string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s: rolled back: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: rolled back: %v", e.Op, e.ItemID, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

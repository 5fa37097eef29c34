package importer

import (
	"fmt"
	"path/filepath"
	"time"
)

// Outcome classifies a finished import.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// RowError is a data row that could not be imported. Row is the 1-based
// data row (the first row under the header is 1); SheetRow is the row
// number as shown by a spreadsheet application.
type RowError struct {
	File     string `json:"file" yaml:"file"`
	Row      int    `json:"row" yaml:"row"`
	SheetRow int    `json:"sheet_row" yaml:"sheet_row"`
	ItemID   string `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	Message  string `json:"message" yaml:"message"`
	Err      error  `json:"-" yaml:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", filepath.Base(e.File), e.Row, e.Message)
}

func (e RowError) Unwrap() error { return e.Err }

// FileError is a file that was not imported: unsupported format, a header
// that failed validation, or a read failure.
type FileError struct {
	File   string   `json:"file" yaml:"file"`
	Errors []string `json:"errors" yaml:"errors"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", filepath.Base(e.File), e.Errors)
}

// ImportBatchResult aggregates one Execute call across all files. Every
// imported row counts as Created or Updated; Unchanged is the subset of
// Updated rows whose stored values already matched.
type ImportBatchResult struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Files      int           `json:"files" yaml:"files"`
	Rows       int           `json:"rows" yaml:"rows"`
	Created    int           `json:"created" yaml:"created"`
	Updated    int           `json:"updated" yaml:"updated"`
	Unchanged  int           `json:"unchanged" yaml:"unchanged"`
	Errors     []RowError    `json:"errors" yaml:"errors"`
	FileErrors []FileError   `json:"file_errors" yaml:"file_errors"`
	Cancelled  bool          `json:"cancelled" yaml:"cancelled"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Succeeded is the number of rows that reached the store.
func (r ImportBatchResult) Succeeded() int {
	return r.Created + r.Updated
}

// Outcome distinguishes a clean run, a run with some failures, and a run
// where nothing could be imported.
func (r ImportBatchResult) Outcome() Outcome {
	failures := len(r.Errors) + len(r.FileErrors)
	switch {
	case failures == 0 && !r.Cancelled:
		return OutcomeSucceeded
	case r.Succeeded() == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Package engine is the API surface the application layer uses to read,
// edit and import VPCR items.
//
// The engine owns no state of its own beyond wiring: every read goes to
// the store, every write goes through store.Upsert or the checklist
// methods, and imports run through an importer.Pipeline. Callers that keep
// unsaved edits track them with a Draft, whose EditState (Clean, Dirty,
// Saving) belongs to the caller and is never persisted.
//
// Thread-safety model:
//   - All Engine methods are safe from any goroutine; the store serializes
//     writers.
//   - ImportSpreadsheets returns importer.ErrImportInProgress while another
//     import is active. ValidateSpreadsheet only reads the file and never
//     touches the pipeline, so it can run during an import.
//   - A Draft is safe for concurrent use but models one editor.
package engine

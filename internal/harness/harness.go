package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/vpcr/internal/engine"
	"github.com/roach88/vpcr/internal/importer"
	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
	"github.com/roach88/vpcr/internal/testutil"
)

// traceLimit bounds the change log read after each step.
const traceLimit = 100000

// Harness executes scenario steps against one engine.
type Harness struct {
	dir    string
	store  *store.Store
	engine *engine.Engine
	lastID int64
}

// stepOutcome carries whatever a step returned.
type stepOutcome struct {
	upsert store.UpsertResult
	imp    importer.ImportBatchResult
	entry  int64
}

func noSleep(context.Context, time.Duration) error { return nil }

// Run executes a scenario in a fresh database and returns the result.
// The error is non-nil only when the scenario could not be executed at all
// (fixture or setup failure); failed expectations are in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "vpcr-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(dir)
	if err != nil {
		return nil, err
	}
	defer h.close()

	if err := h.writeWorkbooks(scenario.Workbooks); err != nil {
		return nil, err
	}

	for i, step := range scenario.Setup {
		if _, err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Action, err)
		}
	}
	if _, err := h.newChanges(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		out, stepErr := h.execute(ctx, step)
		result.add(TraceEvent{
			Kind:    EventStep,
			Action:  step.Action,
			ItemID:  step.Item,
			Outcome: describe(step, out, stepErr),
		})
		checkExpect(result, fmt.Sprintf("flow[%d] %s", i, step.Action), step, out, stepErr)

		changes, err := h.newChanges(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range changes {
			result.add(TraceEvent{
				Kind:       EventChange,
				ItemID:     c.ItemID,
				Field:      c.FieldName,
				OldValue:   c.OldValue,
				NewValue:   c.NewValue,
				ChangeType: string(c.ChangeType),
			})
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.check(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func newHarness(dir string) (*Harness, error) {
	clock := testutil.NewDeterministicClock()
	quiet := slog.New(slog.DiscardHandler)

	st, err := store.Open(filepath.Join(dir, "vpcr.db"),
		store.WithClock(clock.Now),
		store.WithLogger(quiet),
		store.WithRetryPolicy(store.RetryPolicy{Attempts: 3, Sleep: noSleep}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario store: %w", err)
	}

	eng := engine.New(st,
		engine.WithLogger(quiet),
		engine.WithImporterOptions(
			importer.WithBatchPause(0),
			importer.WithSleeper(noSleep),
		),
	)
	return &Harness{dir: dir, store: st, engine: eng}, nil
}

func (h *Harness) close() {
	h.engine.Close()
	h.store.Close()
}

// writeWorkbooks saves every fixture under the scenario directory.
func (h *Harness) writeWorkbooks(books map[string]Workbook) error {
	names := make([]string, 0, len(books))
	for name := range books {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeWorkbook(filepath.Join(h.dir, name), books[name]); err != nil {
			return fmt.Errorf("write workbook %s: %w", name, err)
		}
	}
	return nil
}

func writeWorkbook(path string, wb Workbook) error {
	header := wb.Header
	if header == nil {
		header = schema.ExpectedHeader()
	}
	rows := [][]string{header}
	for _, r := range wb.Rows {
		rows = append(rows, testutil.DataRow(header, r))
	}

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(testutil.DefaultSheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// execute runs one step.
func (h *Harness) execute(ctx context.Context, step Step) (stepOutcome, error) {
	var out stepOutcome
	var err error

	switch step.Action {
	case ActionSet:
		fields := make(map[string]string, len(step.Fields)+1)
		for k, v := range step.Fields {
			fields[k] = v
		}
		fields[schema.IDName] = step.Item
		out.upsert, err = h.engine.UpsertItem(ctx, fields)
	case ActionDelete:
		err = h.engine.DeleteItem(ctx, step.Item)
	case ActionImport:
		paths := make([]string, len(step.Files))
		for i, f := range step.Files {
			paths[i] = filepath.Join(h.dir, f)
		}
		out.imp, err = h.engine.ImportSpreadsheets(ctx, paths)
	case ActionChecklistAdd:
		out.entry, err = h.engine.AddChecklistEntry(ctx, step.Item, step.Description)
	case ActionChecklistToggle:
		err = h.engine.ToggleChecklistEntry(ctx, step.Entry)
	default:
		err = fmt.Errorf("unknown action %q", step.Action)
	}
	return out, err
}

// newChanges returns change log entries written since the last call,
// oldest first.
func (h *Harness) newChanges(ctx context.Context) ([]model.ChangeLogEntry, error) {
	entries, err := h.engine.GetChangeLog(ctx, "", traceLimit)
	if err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}

	var fresh []model.ChangeLogEntry
	for _, e := range entries {
		if e.ID > h.lastID {
			fresh = append(fresh, e)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })
	if len(fresh) > 0 {
		h.lastID = fresh[len(fresh)-1].ID
	}
	return fresh, nil
}

// errorClass names the sentinel behind err, or "" when there is none.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNotFound):
		return ErrorNotFound
	case errors.Is(err, store.ErrUnknownField):
		return ErrorUnknownField
	case errors.Is(err, store.ErrValidation):
		return ErrorValidation
	case errors.Is(err, store.ErrStoreBusy):
		return ErrorBusy
	}
	return "error"
}

// describe renders a step outcome for the trace.
func describe(step Step, out stepOutcome, err error) string {
	if err != nil {
		return "error=" + errorClass(err)
	}
	switch step.Action {
	case ActionSet:
		switch {
		case out.upsert.Created:
			return fmt.Sprintf("created changed=%d", out.upsert.Changed)
		case out.upsert.Changed == 0:
			return "unchanged"
		default:
			return fmt.Sprintf("updated changed=%d", out.upsert.Changed)
		}
	case ActionImport:
		r := out.imp
		return fmt.Sprintf("%s rows=%d created=%d updated=%d unchanged=%d row_errors=%d file_errors=%d",
			r.Outcome(), r.Rows, r.Created, r.Updated, r.Unchanged, len(r.Errors), len(r.FileErrors))
	case ActionChecklistAdd:
		return fmt.Sprintf("entry=%d", out.entry)
	case ActionDelete:
		return "deleted"
	case ActionChecklistToggle:
		return "toggled"
	}
	return "ok"
}

// checkExpect records every way out/err misses step.Expect.
func checkExpect(result *Result, label string, step Step, out stepOutcome, err error) {
	e := step.Expect
	if e != nil && e.Error != "" {
		if got := errorClass(err); got != e.Error {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %q", label, e.Error, got))
		}
		return
	}
	if err != nil {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		return
	}
	if e == nil {
		return
	}

	if e.Created != nil && out.upsert.Created != *e.Created {
		result.AddError(fmt.Sprintf("%s: expected created=%t, got %t", label, *e.Created, out.upsert.Created))
	}
	if e.Changed != nil && out.upsert.Changed != *e.Changed {
		result.AddError(fmt.Sprintf("%s: expected changed=%d, got %d", label, *e.Changed, out.upsert.Changed))
	}
	if e.Outcome != "" && string(out.imp.Outcome()) != e.Outcome {
		result.AddError(fmt.Sprintf("%s: expected outcome %s, got %s", label, e.Outcome, out.imp.Outcome()))
	}
	if e.Rows != nil && out.imp.Rows != *e.Rows {
		result.AddError(fmt.Sprintf("%s: expected rows=%d, got %d", label, *e.Rows, out.imp.Rows))
	}
	if e.RowErrors != nil && len(out.imp.Errors) != *e.RowErrors {
		result.AddError(fmt.Sprintf("%s: expected row_errors=%d, got %d", label, *e.RowErrors, len(out.imp.Errors)))
	}
}

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/vpcr/internal/config"
	"github.com/roach88/vpcr/internal/importer"
	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/sheet"
	"github.com/roach88/vpcr/internal/store"
)

// Engine combines the record store, the checklist store and the import
// pipeline behind one API.
type Engine struct {
	store    *store.Store
	pipeline *importer.Pipeline
	log      *slog.Logger
	sheet    string
	owned    bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*engineOptions)

type engineOptions struct {
	log         *slog.Logger
	sheet       string
	importerOps []importer.Option
}

// WithLogger sets the logger passed to the import pipeline.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *engineOptions) { o.log = l }
}

// WithSheet selects the worksheet read by both validation and import.
func WithSheet(name string) EngineOption {
	return func(o *engineOptions) { o.sheet = name }
}

// WithImporterOptions configures the import pipeline (batch size, pause,
// sheet name, sleeper).
func WithImporterOptions(opts ...importer.Option) EngineOption {
	return func(o *engineOptions) { o.importerOps = append(o.importerOps, opts...) }
}

// New creates an Engine over an open store. The caller keeps ownership of
// s; Close on this Engine does not close it.
func New(s *store.Store, opts ...EngineOption) *Engine {
	o := engineOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	ops := append([]importer.Option{importer.WithLogger(o.log), importer.WithSheet(o.sheet)}, o.importerOps...)
	return &Engine{
		store:    s,
		pipeline: importer.New(s, ops...),
		log:      o.log,
		sheet:    o.sheet,
	}
}

// Open opens the store described by cfg and builds an Engine that owns it.
func Open(cfg config.Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	s, err := store.Open(cfg.Database.Path,
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
		store.WithRetryPolicy(store.RetryPolicy{
			Attempts: cfg.Retry.Attempts,
			Backoff:  cfg.Retry.Backoff,
			Sleep:    store.SleepContext,
		}),
		store.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Database.Path, err)
	}

	e := New(s,
		WithLogger(log),
		WithSheet(cfg.Import.Sheet),
		WithImporterOptions(
			importer.WithBatchSize(cfg.Import.BatchSize),
			importer.WithBatchPause(cfg.Import.BatchPause),
		),
	)
	e.owned = true
	return e, nil
}

// Close releases the store if this Engine opened it.
func (e *Engine) Close() error {
	if !e.owned {
		return nil
	}
	return e.store.Close()
}

// GetItem returns one item or store.ErrNotFound.
func (e *Engine) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	return e.store.Get(ctx, itemID)
}

// GetAllItems returns every item. Order is unspecified.
func (e *Engine) GetAllItems(ctx context.Context) ([]model.Item, error) {
	return e.store.GetAll(ctx)
}

// UpsertItem saves an interactive edit. fields must carry the item id
// under "ID" (or "item_id"); every other key is a field name.
func (e *Engine) UpsertItem(ctx context.Context, fields map[string]string) (store.UpsertResult, error) {
	itemID, rest := splitID(fields)
	if itemID == "" {
		return store.UpsertResult{}, fmt.Errorf("upsert item: %w: %s is required", store.ErrValidation, schema.IDName)
	}
	return e.store.Upsert(ctx, itemID, rest, store.SourceManual)
}

// DeleteItem removes an item, its checklist, and logs ITEM_DELETED.
func (e *Engine) DeleteItem(ctx context.Context, itemID string) error {
	return e.store.Delete(ctx, itemID)
}

// GetChangeLog returns up to limit entries, most recent first. An empty
// itemID returns entries for all items.
func (e *Engine) GetChangeLog(ctx context.Context, itemID string, limit int) ([]model.ChangeLogEntry, error) {
	return e.store.ChangeLog(ctx, store.ChangeLogFilter{ItemID: itemID, Limit: limit})
}

func (e *Engine) AddChecklistEntry(ctx context.Context, itemID, description string) (int64, error) {
	return e.store.AddChecklistEntry(ctx, itemID, description)
}

func (e *Engine) UpdateChecklistEntry(ctx context.Context, id int64, u store.ChecklistUpdate) error {
	return e.store.UpdateChecklistEntry(ctx, id, u)
}

func (e *Engine) ToggleChecklistEntry(ctx context.Context, id int64) error {
	return e.store.ToggleChecklistEntry(ctx, id)
}

func (e *Engine) DeleteChecklistEntry(ctx context.Context, id int64) error {
	return e.store.DeleteChecklistEntry(ctx, id)
}

func (e *Engine) ListChecklistEntries(ctx context.Context, itemID string) ([]model.ChecklistEntry, error) {
	return e.store.ListChecklistEntries(ctx, itemID)
}

func (e *Engine) HasIncompleteChecklist(ctx context.Context, itemID string) (bool, error) {
	return e.store.HasIncompleteChecklist(ctx, itemID)
}

func (e *Engine) ChecklistCount(ctx context.Context, itemID string) (model.ChecklistCount, error) {
	return e.store.CountChecklistEntries(ctx, itemID)
}

// ValidateSpreadsheet checks one file's header without importing it. It
// is stateless and does not wait for a running import.
func (e *Engine) ValidateSpreadsheet(path string) sheet.ValidationResult {
	var opts []sheet.Option
	if e.sheet != "" {
		opts = append(opts, sheet.WithSheet(e.sheet))
	}
	return sheet.Validate(path, schema.ExpectedHeader(), opts...)
}

// ImportSpreadsheets validates and imports paths. Row and file failures
// are in the result; the error is non-nil only for cancellation or a
// concurrent import.
func (e *Engine) ImportSpreadsheets(ctx context.Context, paths []string) (importer.ImportBatchResult, error) {
	return e.pipeline.Execute(ctx, paths)
}

// ImportState reports the pipeline's current state.
func (e *Engine) ImportState() importer.State {
	return e.pipeline.State()
}

// splitID pulls the identifier out of a field map.
func splitID(fields map[string]string) (string, map[string]string) {
	var itemID string
	rest := make(map[string]string, len(fields))
	for k, v := range fields {
		if f, ok := schema.Lookup(k); ok && f.Column == schema.IDColumn {
			itemID = store.NormalizeValue(v)
			continue
		}
		rest[k] = v
	}
	return itemID, rest
}

package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/sheet"
	"github.com/roach88/vpcr/internal/store"
)

// ErrImportInProgress is returned when Validate or Execute is called while
// the same pipeline is already running.
var ErrImportInProgress = errors.New("import already in progress")

const (
	DefaultBatchSize  = 10
	DefaultBatchPause = 50 * time.Millisecond
)

// State is the lifecycle of a pipeline run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateValid
	StateInvalid
	StateImporting
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateImporting:
		return "importing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Upserter is the store surface the pipeline writes through.
type Upserter interface {
	Upsert(ctx context.Context, itemID string, fields map[string]string, src store.Source) (store.UpsertResult, error)
}

// Pipeline imports spreadsheets into a store. It is safe to share between
// goroutines but runs one Validate or Execute at a time.
type Pipeline struct {
	store      Upserter
	batchSize  int
	batchPause time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	sheetName  string
	header     []string
	log        *slog.Logger

	mu      sync.Mutex
	running bool
	state   State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many rows are upserted between pauses.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchPause sets the pause between batches.
func WithBatchPause(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.batchPause = d
		}
	}
}

// WithSleeper replaces the function used for the pause between batches.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithSheet reads the named worksheet instead of the first one.
func WithSheet(name string) Option {
	return func(p *Pipeline) { p.sheetName = name }
}

// WithLogger sets the logger for batch progress and the run summary.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a pipeline writing to s.
func New(s Upserter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      s,
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
		sleep:      store.SleepContext,
		header:     schema.ExpectedHeader(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the state of the current or most recent run.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *Pipeline) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrImportInProgress
	}
	p.running = true
	return nil
}

func (p *Pipeline) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

func (p *Pipeline) sheetOpts() []sheet.Option {
	if p.sheetName == "" {
		return nil
	}
	return []sheet.Option{sheet.WithSheet(p.sheetName)}
}

// readOpts adds the date columns of the expected header to sheetOpts.
func (p *Pipeline) readOpts() []sheet.Option {
	var dates []int
	for i, h := range p.header {
		if f, ok := schema.ByHeader(h); ok && f.Kind == schema.KindDate {
			dates = append(dates, i)
		}
	}
	return append(p.sheetOpts(), sheet.WithDateColumns(dates...))
}

// Validate checks the header of every file. The pipeline ends in StateValid
// when all files pass and StateInvalid otherwise.
func (p *Pipeline) Validate(ctx context.Context, paths []string) ([]sheet.ValidationResult, error) {
	if err := p.acquire(); err != nil {
		return nil, err
	}
	defer p.release()

	results, ok := p.validate(ctx, paths)
	if ok {
		p.setState(StateValid)
	} else {
		p.setState(StateInvalid)
	}
	return results, nil
}

func (p *Pipeline) validate(ctx context.Context, paths []string) ([]sheet.ValidationResult, bool) {
	p.setState(StateValidating)
	results := make([]sheet.ValidationResult, 0, len(paths))
	ok := len(paths) > 0
	for _, path := range paths {
		res := sheet.Validate(path, p.header, p.sheetOpts()...)
		if !res.HeaderOK {
			ok = false
			p.log.WarnContext(ctx, "spreadsheet rejected", "file", filepath.Base(path), "errors", res.Errors)
		}
		results = append(results, res)
	}
	return results, ok
}

// Execute validates and imports every file. Files that fail validation are
// recorded as FileErrors and skipped; rows that fail are recorded as
// RowErrors and the run continues.
//
// Cancelling ctx stops the run before the next batch starts. The partial
// result is returned with Cancelled set, together with an error wrapping
// ctx.Err().
func (p *Pipeline) Execute(ctx context.Context, paths []string) (ImportBatchResult, error) {
	if err := p.acquire(); err != nil {
		return ImportBatchResult{}, err
	}
	defer p.release()

	started := time.Now()
	res := ImportBatchResult{
		RunID:      newRunID(),
		Errors:     []RowError{},
		FileErrors: []FileError{},
	}
	log := p.log.With("run_id", res.RunID)

	validations, _ := p.validate(ctx, paths)
	p.setState(StateImporting)

	var runErr error
	for _, v := range validations {
		if !v.HeaderOK {
			res.FileErrors = append(res.FileErrors, FileError{File: v.Path, Errors: v.Errors})
			continue
		}
		if err := p.importFile(ctx, log, v.Path, &res); err != nil {
			runErr = err
			break
		}
	}
	res.Duration = time.Since(started)

	if runErr != nil {
		res.Cancelled = true
		p.setState(StateCancelled)
		log.WarnContext(ctx, "import cancelled",
			"created", res.Created,
			"updated", res.Updated,
			"errors", len(res.Errors),
		)
		return res, fmt.Errorf("import cancelled: %w", runErr)
	}

	p.setState(StateCompleted)
	log.InfoContext(ctx, "import finished",
		"outcome", res.Outcome(),
		"files", res.Files,
		"rows", res.Rows,
		"created", res.Created,
		"updated", res.Updated,
		"row_errors", len(res.Errors),
		"file_errors", len(res.FileErrors),
		"duration", res.Duration,
	)
	return res, nil
}

// importFile processes one validated file. It returns an error only when
// ctx is done between batches.
func (p *Pipeline) importFile(ctx context.Context, log *slog.Logger, path string, res *ImportBatchResult) error {
	rows, err := sheet.ReadRows(path, len(p.header), p.readOpts()...)
	if err != nil {
		res.FileErrors = append(res.FileErrors, FileError{File: path, Errors: []string{err.Error()}})
		return nil
	}
	res.Files++

	// A batch, once started, runs to completion even if ctx is cancelled
	// meanwhile; cancellation is observed at batch boundaries.
	rowCtx := context.WithoutCancel(ctx)
	name := filepath.Base(path)

	for start := 0; start < len(rows); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if start > 0 && p.batchPause > 0 {
			if err := p.sleep(ctx, p.batchPause); err != nil {
				return err
			}
		}

		end := min(start+p.batchSize, len(rows))
		log.DebugContext(ctx, "importing batch", "file", name, "from", start+1, "to", end)
		for i := start; i < end; i++ {
			p.importRow(rowCtx, log, path, i+1, rows[i], res)
		}
	}
	return nil
}

func (p *Pipeline) importRow(ctx context.Context, log *slog.Logger, path string, dataRow int, row sheet.Row, res *ImportBatchResult) {
	if row.Blank() {
		return
	}
	res.Rows++

	itemID, fields := convertRow(p.header, row.Cells)
	if itemID == "" {
		p.rowError(ctx, log, res, RowError{
			File:     path,
			Row:      dataRow,
			SheetRow: row.Number,
			Message:  fmt.Sprintf("missing %s", schema.IDHeader),
		})
		return
	}

	up, err := p.store.Upsert(ctx, itemID, fields, store.SourceImport)
	if err != nil {
		p.rowError(ctx, log, res, RowError{
			File:     path,
			Row:      dataRow,
			SheetRow: row.Number,
			ItemID:   itemID,
			Message:  err.Error(),
			Err:      err,
		})
		return
	}

	switch {
	case up.Created:
		res.Created++
	case up.Changed == 0:
		res.Updated++
		res.Unchanged++
	default:
		res.Updated++
	}
}

func (p *Pipeline) rowError(ctx context.Context, log *slog.Logger, res *ImportBatchResult, e RowError) {
	res.Errors = append(res.Errors, e)
	log.WarnContext(ctx, "row skipped",
		"file", filepath.Base(e.File),
		"row", e.Row,
		"item_id", e.ItemID,
		"error", e.Message,
	)
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vpcr/internal/config"
	"github.com/roach88/vpcr/internal/importer"
	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
	"github.com/roach88/vpcr/internal/testutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, WithLogger(quiet), WithImporterOptions(importer.WithBatchPause(0)))
}

func TestEngine_UpsertAndGet(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()

	res, err := e.UpsertItem(ctx, map[string]string{"ID": "ITM-1", "Title": "Alpha", "Status": "Open"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	it, err := e.GetItem(ctx, "ITM-1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", it.Get("Title"))

	res, err = e.UpsertItem(ctx, map[string]string{"item_id": "ITM-1", "Status": "Closed"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 1, res.Changed)

	log, err := e.GetChangeLog(ctx, "ITM-1", 1)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "status", log[0].FieldName)
	assert.Equal(t, model.ChangeManualUpdate, log[0].ChangeType)

	all, err := e.GetAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEngine_UpsertRequiresID(t *testing.T) {
	e := setupTestEngine(t)

	_, err := e.UpsertItem(context.Background(), map[string]string{"Title": "orphan"})

	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestEngine_Checklist(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	_, err := e.UpsertItem(ctx, map[string]string{"ID": "ITM-1"})
	require.NoError(t, err)

	id, err := e.AddChecklistEntry(ctx, "ITM-1", "get quote")
	require.NoError(t, err)
	_, err = e.AddChecklistEntry(ctx, "ITM-1", "approve")
	require.NoError(t, err)

	require.NoError(t, e.ToggleChecklistEntry(ctx, id))
	desc := "get two quotes"
	require.NoError(t, e.UpdateChecklistEntry(ctx, id, store.ChecklistUpdate{Description: &desc}))

	entries, err := e.ListChecklistEntries(ctx, "ITM-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "get two quotes", entries[0].Description)

	c, err := e.ChecklistCount(ctx, "ITM-1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Incomplete())

	open, err := e.HasIncompleteChecklist(ctx, "ITM-1")
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, e.DeleteChecklistEntry(ctx, entries[1].ID))
	open, err = e.HasIncompleteChecklist(ctx, "ITM-1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestEngine_ValidateAndImport(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	header := schema.ExpectedHeader()
	path := testutil.WriteWorkbook(t, t.TempDir(), "vpcr.xlsx", [][]string{
		header,
		testutil.DataRow(header, map[string]string{"VPCR Project ID": "ITM-9", "Title": "Imported"}),
	})

	v := e.ValidateSpreadsheet(path)
	assert.True(t, v.HeaderOK)
	assert.Equal(t, importer.StateIdle, e.ImportState(), "validation leaves the pipeline alone")

	res, err := e.ImportSpreadsheets(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, importer.StateCompleted, e.ImportState())

	it, err := e.GetItem(ctx, "ITM-9")
	require.NoError(t, err)
	assert.Equal(t, "Imported", it.Get("Title"))
}

func TestEngine_ValidateDuringImport(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	paused := make(chan struct{})
	resume := make(chan struct{})
	e := New(s, WithLogger(quiet), WithImporterOptions(
		importer.WithBatchSize(1),
		importer.WithBatchPause(time.Millisecond),
		importer.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			close(paused)
			<-resume
			return nil
		}),
	))

	header := schema.ExpectedHeader()
	path := testutil.WriteWorkbook(t, t.TempDir(), "vpcr.xlsx", [][]string{
		header,
		testutil.DataRow(header, map[string]string{"VPCR Project ID": "ITM-1"}),
		testutil.DataRow(header, map[string]string{"VPCR Project ID": "ITM-2"}),
	})

	done := make(chan error, 1)
	go func() {
		_, err := e.ImportSpreadsheets(context.Background(), []string{path})
		done <- err
	}()
	<-paused

	v := e.ValidateSpreadsheet(path)
	assert.True(t, v.HeaderOK)
	assert.Empty(t, v.Errors)
	assert.Equal(t, importer.StateImporting, e.ImportState())

	close(resume)
	require.NoError(t, <-done)
	assert.Equal(t, importer.StateCompleted, e.ImportState())
}

func TestEngine_DeleteItem(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	_, err := e.UpsertItem(ctx, map[string]string{"ID": "ITM-1"})
	require.NoError(t, err)

	require.NoError(t, e.DeleteItem(ctx, "ITM-1"))

	_, err = e.GetItem(ctx, "ITM-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpen_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "cfg.db")
	cfg.Database.BusyTimeout = 2 * time.Second

	e, err := Open(cfg, quiet)
	require.NoError(t, err)

	_, err = e.UpsertItem(context.Background(), map[string]string{"ID": "ITM-1"})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	// The store was closed with the engine; reopening sees the data.
	e2, err := Open(cfg, nil)
	require.NoError(t, err)
	defer e2.Close()
	_, err = e2.GetItem(context.Background(), "ITM-1")
	assert.NoError(t, err)
}

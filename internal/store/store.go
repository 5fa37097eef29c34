package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/vpcr/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - items columns reconciled against the field table
const currentSchemaVersion = 1

// DefaultBusyTimeout is how long SQLite waits on a held lock before
// reporting SQLITE_BUSY.
const DefaultBusyTimeout = 30 * time.Second

// timeLayout is fixed-width so that lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides durable storage for items, their change history and
// their checklists.
type Store struct {
	db          *sqlx.DB
	log         *slog.Logger
	retry       RetryPolicy
	now         func() time.Time
	busyTimeout time.Duration

	// begin starts a write transaction. Replaced in tests to simulate
	// lock contention.
	begin func(ctx context.Context) (*sqlx.Tx, error)

	// afterItemWrite runs between the items write and the change log
	// write. Tests use it to force a mid-transaction failure.
	afterItemWrite func(itemID string) error
}

// Option configures a Store.
type Option func(*Store)

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithRetryPolicy sets the policy used when a write transaction cannot start.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithLogger sets the logger used for retry and rollback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used to stamp change log and checklist entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		log:         slog.New(slog.DiscardHandler),
		retry:       DefaultRetryPolicy(),
		now:         time.Now,
		busyTimeout: DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Open("sqlite3", dsn(path, s.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	s.begin = func(ctx context.Context) (*sqlx.Tx, error) {
		return s.db.BeginTxx(ctx, nil)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// dsn builds the go-sqlite3 connection string. _txlock=exclusive makes
// BEGIN take the write lock immediately, so contention surfaces at the
// start of a transaction where it can be retried as a whole.
func dsn(path string, busy time.Duration) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=exclusive&_foreign_keys=on",
		path, busy.Milliseconds())
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(itemsDDL()); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// itemsDDL derives the items table from the field table. Every mapped
// column is TEXT NOT NULL with an empty default, so a missing value reads as empty.
func itemsDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS items (\n")
	fmt.Fprintf(&b, "    %s TEXT PRIMARY KEY NOT NULL", schema.IDColumn)
	for _, col := range schema.Columns() {
		fmt.Fprintf(&b, ",\n    %s TEXT NOT NULL DEFAULT ''", col)
	}
	b.WriteString("\n)")
	return b.String()
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds any mapped column an older items table lacks.
// New databases already have every column from itemsDDL.
func migrateToV1(db *sqlx.DB) error {
	existing, err := tableColumns(db, "items")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	for _, col := range schema.Columns() {
		if existing[col] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE items ADD COLUMN %s TEXT NOT NULL DEFAULT ''", col)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: add column %s: %w", col, err)
		}
	}
	return nil
}

func tableColumns(db *sqlx.DB, table string) (map[string]bool, error) {
	var names []string
	if err := db.Select(&names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Parse(time.RFC3339Nano, v)
	}
	return t, nil
}

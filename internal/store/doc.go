// Package store provides SQLite-backed durable storage for VPCR records.
//
// The store owns three tables:
//   - items: one row per VPCR, one column per mapped field
//   - change_log: append-only history of field transitions
//   - checklist: per-item task entries
//
// # Write Discipline
//
// Every item write runs inside a single exclusive transaction that covers
// both the item row and the change log entries it produces. If any part
// fails the whole transaction rolls back, so an item never carries a value
// that the log does not account for.
//
// A transaction that cannot start because another writer holds the
// database lock is retried with linear backoff (see RetryPolicy). When the
// attempts run out the caller gets ErrStoreBusy.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for locks before reporting SQLITE_BUSY (default 30s)
//   - _txlock=exclusive: every transaction takes the write lock up front
//   - foreign_keys=ON: checklist entries cascade with their item
//
// Stored values are NFC-normalized and trimmed so that equality checks used
// for change detection are stable across input sources.
package store

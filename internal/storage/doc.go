// Package storage implements address.Store.
//
// SQLiteStore persists records with modernc.org/sqlite. A partial unique index
// keeps at most one enabled row per address string, and Claim is a single
// conditional UPDATE (owner_id IS NULL AND is_enabled = 1), so the database
// settles races between concurrent allocators.
//
// MockStore is an in-memory implementation with per-method call counters and
// injectable failures, used by the pool tests.
package storage

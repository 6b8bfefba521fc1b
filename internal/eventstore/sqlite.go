package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/walletpool/internal/events"
)

// SQLiteStore implements Store using SQLite. It also satisfies
// events.Publisher, so it can sit next to the NATS publisher.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store            = (*SQLiteStore)(nil)
	_ events.Publisher = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite-based event journal.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS address_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_address_events_address ON address_events(address);
	CREATE INDEX IF NOT EXISTS idx_address_events_occurred ON address_events(occurred_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the journal. Appending an event id twice is a no-op.
func (s *SQLiteStore) Append(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return wrap(ErrEventAppendFailed, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO address_events (event_id, event_type, address, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(event_id) DO NOTHING`,
		e.ID, string(e.Type), e.Address, e.OccurredAt.UnixNano(), payload,
	)
	if err != nil {
		return wrap(ErrEventAppendFailed, err)
	}
	return nil
}

// Publish implements events.Publisher.
func (s *SQLiteStore) Publish(ctx context.Context, e events.Event) error {
	return s.Append(ctx, e)
}

// ByAddress retrieves all events for addr.
func (s *SQLiteStore) ByAddress(ctx context.Context, addr string) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM address_events WHERE address = ? ORDER BY seq",
		addr,
	)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Range retrieves events within a time range.
func (s *SQLiteStore) Range(ctx context.Context, start, end time.Time) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM address_events WHERE occurred_at >= ? AND occurred_at <= ? ORDER BY seq",
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]events.Event, error) {
	out := []events.Event{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, wrap(ErrEventQueryFailed, err)
		}
		var e events.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, wrap(ErrEventQueryFailed, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Prune deletes events that occurred before cutoff and reports how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM address_events WHERE occurred_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, wrap(ErrEventAppendFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(ErrEventAppendFailed, err)
	}
	return n, nil
}

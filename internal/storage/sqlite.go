package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"git.home.luguber.info/inful/walletpool/internal/address"
)

const selectColumns = `id, owner_id, address, spend_public_key, spend_secret_key,
	created_at, updated_at, is_enabled, balance_available, balance_locked`

// SQLiteStore implements address.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ address.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, "open", err)
	}
	// Every connection to ":memory:" is a separate database, and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrInitializeSchemaFailed, "initialize", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS addresses (
		id TEXT PRIMARY KEY,
		owner_id TEXT,
		address TEXT NOT NULL,
		spend_public_key TEXT NOT NULL,
		spend_secret_key TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,
		is_enabled INTEGER NOT NULL DEFAULT 1,
		balance_available INTEGER NOT NULL DEFAULT 0,
		balance_locked INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_enabled_address ON addresses(address) WHERE is_enabled = 1;
	CREATE INDEX IF NOT EXISTS idx_addresses_free ON addresses(is_enabled, owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_addresses_owner ON addresses(owner_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetAll returns records matching filter.
func (s *SQLiteStore) GetAll(ctx context.Context, filter address.Filter, page *address.Page, sort address.Sort) ([]*address.Address, error) {
	var (
		where []string
		args  []any
	)
	if filter.ID != "" {
		where = append(where, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Address != "" {
		where = append(where, "address = ?")
		args = append(args, filter.Address)
	}
	if filter.FreeOnly {
		where = append(where, "owner_id IS NULL")
	} else if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.IsEnabled != nil {
		where = append(where, "is_enabled = ?")
		args = append(args, *filter.IsEnabled)
	}

	var q strings.Builder
	q.WriteString("SELECT " + selectColumns + " FROM addresses")
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY " + orderBy(sort))
	if page != nil && page.Limit > 0 {
		q.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, page.Limit, max(page.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, wrap(ErrQueryFailed, "get_all", err)
	}
	defer rows.Close()

	out := []*address.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, wrap(ErrQueryFailed, "scan", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, "iterate", err)
	}
	return out, nil
}

func orderBy(sort address.Sort) string {
	column := "rowid"
	switch sort.Field {
	case address.SortCreatedAt:
		column = "created_at"
	case address.SortUpdatedAt:
		column = "updated_at"
	case address.SortAddress:
		column = "address"
	}
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	if column == "rowid" {
		return "rowid " + dir
	}
	return fmt.Sprintf("%s %s, rowid %s", column, dir, dir)
}

// Save inserts a new record, assigning an ID when none is set.
func (s *SQLiteStore) Save(ctx context.Context, a *address.Address) (*address.Address, error) {
	rec := address.ToRecord(a)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Address, rec.SpendPublicKey, rec.SpendSecretKey,
		rec.CreatedAt, rec.UpdatedAt, rec.IsEnabled, rec.BalanceAvailable, rec.BalanceLocked,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, address.ErrDuplicate.WithContext("address", a.Address)
		}
		return nil, wrap(ErrWriteFailed, "save", err)
	}
	return s.get(ctx, rec.ID)
}

// UpdateBalance writes the balance of an enabled record. Owner and enabled
// flag are left to Claim and Disable.
func (s *SQLiteStore) UpdateBalance(ctx context.Context, id string, bal address.Balance, at time.Time) (*address.Address, error) {
	if !bal.Storable() {
		return nil, address.ErrBalanceOutOfRange.WithContext("id", id)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE addresses
		SET balance_available = ?, balance_locked = ?, updated_at = ?
		WHERE id = ? AND is_enabled = 1`,
		int64(bal.Available), int64(bal.Locked), at.UnixNano(), id,
	)
	if err != nil {
		return nil, wrap(ErrWriteFailed, "update_balance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.get(ctx, id); err != nil {
			return nil, err
		}
		return nil, address.ErrDisabled.WithContext("id", id)
	}
	return s.get(ctx, id)
}

// Claim assigns ownerID only while the record is still enabled and unowned.
func (s *SQLiteStore) Claim(ctx context.Context, id, ownerID string, at time.Time) (*address.Address, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE addresses SET owner_id = ?, updated_at = ?
		WHERE id = ? AND owner_id IS NULL AND is_enabled = 1`,
		ownerID, at.UnixNano(), id,
	)
	if err != nil {
		return nil, wrap(ErrWriteFailed, "claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.get(ctx, id); err != nil {
			return nil, err
		}
		return nil, address.ErrConflict.WithContext("id", id)
	}
	return s.get(ctx, id)
}

// Disable marks the record as not enabled. Rows are never deleted.
func (s *SQLiteStore) Disable(ctx context.Context, id string, at time.Time) (*address.Address, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE addresses SET is_enabled = 0, updated_at = ? WHERE id = ?`,
		at.UnixNano(), id,
	)
	if err != nil {
		return nil, wrap(ErrWriteFailed, "disable", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, address.ErrNotFound.WithContext("id", id)
	}
	return s.get(ctx, id)
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM addresses`); err != nil {
		return wrap(ErrWriteFailed, "clear", err)
	}
	return nil
}

// Ping checks database connectivity for health reporting.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, id string) (*address.Address, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM addresses WHERE id = ?", id)
	a, err := scanAddress(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, address.ErrNotFound.WithContext("id", id)
	}
	if err != nil {
		return nil, wrap(ErrQueryFailed, "get", err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(row scanner) (*address.Address, error) {
	var r address.Record
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Address, &r.SpendPublicKey, &r.SpendSecretKey,
		&r.CreatedAt, &r.UpdatedAt, &r.IsEnabled, &r.BalanceAvailable, &r.BalanceLocked); err != nil {
		return nil, err
	}
	return address.FromRecord(r), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if stderrors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

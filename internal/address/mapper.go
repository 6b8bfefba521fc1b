package address

import (
	"database/sql"
	"strings"
	"time"
)

// Record is the raw persisted shape of an address row.
type Record struct {
	ID               string
	OwnerID          sql.NullString
	Address          string
	SpendPublicKey   string
	SpendSecretKey   string
	CreatedAt        int64
	UpdatedAt        sql.NullInt64
	IsEnabled        sql.NullBool
	BalanceAvailable int64
	BalanceLocked    int64
}

// FromRecord translates a persisted row into an Address: the id is trimmed,
// a null owner becomes empty, timestamps are decoded from unix nanoseconds and
// a missing enabled flag means the record is enabled and negative balances
// (never written by this package) are clamped to zero.
func FromRecord(r Record) *Address {
	a := &Address{
		ID:      strings.TrimSpace(r.ID),
		Address: r.Address,
		Keys: Keys{
			SpendPublicKey: r.SpendPublicKey,
			SpendSecretKey: r.SpendSecretKey,
		},
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		IsEnabled: !r.IsEnabled.Valid || r.IsEnabled.Bool,
		Balance: Balance{
			Available: clampUnsigned(r.BalanceAvailable),
			Locked:    clampUnsigned(r.BalanceLocked),
		},
	}
	if r.OwnerID.Valid {
		a.OwnerID = r.OwnerID.String
	}
	if r.UpdatedAt.Valid && r.UpdatedAt.Int64 != 0 {
		a.Touch(time.Unix(0, r.UpdatedAt.Int64).UTC())
	}
	return a
}

// ToRecord is the inverse of FromRecord. Callers check Balance.Storable first.
func ToRecord(a *Address) Record {
	r := Record{
		ID:               a.ID,
		OwnerID:          sql.NullString{String: a.OwnerID, Valid: a.OwnerID != ""},
		Address:          a.Address,
		SpendPublicKey:   a.Keys.SpendPublicKey,
		SpendSecretKey:   a.Keys.SpendSecretKey,
		CreatedAt:        a.CreatedAt.UnixNano(),
		IsEnabled:        sql.NullBool{Bool: a.IsEnabled, Valid: true},
		BalanceAvailable: int64(a.Balance.Available),
		BalanceLocked:    int64(a.Balance.Locked),
	}
	if a.UpdatedAt != nil && !a.UpdatedAt.IsZero() {
		r.UpdatedAt = sql.NullInt64{Int64: a.UpdatedAt.UnixNano(), Valid: true}
	}
	return r
}

func clampUnsigned(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

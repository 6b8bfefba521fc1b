package address

import (
	"context"
	"strings"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.NotFoundError("address record not found").Build()

	// ErrDuplicate is returned when saving a second enabled record for the same address string.
	ErrDuplicate = errors.AlreadyExistsError("an enabled record already exists for this address").Build()

	// ErrConflict is returned by Claim when the record is no longer free.
	ErrConflict = errors.ConflictError("address record is no longer free").Build()

	// ErrDisabled is returned by UpdateBalance when the record has been disabled.
	ErrDisabled = errors.ConflictError("address record is disabled").Build()

	// ErrBalanceOutOfRange is returned when an amount exceeds MaxStoredBalance.
	ErrBalanceOutOfRange = errors.ValidationError("balance exceeds the storable range").Build()
)

// Filter selects records. Zero-valued fields do not filter.
type Filter struct {
	ID      string
	Address string
	OwnerID string
	// FreeOnly restricts to records whose owner is null. It overrides OwnerID.
	FreeOnly  bool
	IsEnabled *bool
}

// Enabled returns a pointer for Filter.IsEnabled.
func Enabled(v bool) *bool { return &v }

// Page bounds the result set. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// SortField names a sortable column.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortAddress   SortField = "address"
)

// Sort orders the result set. The zero value means store order (insertion).
type Sort struct {
	Field      SortField
	Descending bool
}

// ByCreatedAt is the ordering used to pick the oldest free address first.
var ByCreatedAt = Sort{Field: SortCreatedAt}

// ParseSort reads the "+field" / "-field" syntax; a bare field sorts ascending.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{}, nil
	}
	s := Sort{}
	switch raw[0] {
	case '-':
		s.Descending = true
		raw = raw[1:]
	case '+':
		raw = raw[1:]
	}
	switch f := SortField(raw); f {
	case SortCreatedAt, SortUpdatedAt, SortAddress:
		s.Field = f
		return s, nil
	default:
		return Sort{}, errors.ValidationError("unsupported sort field").
			WithContext("field", raw).
			Build()
	}
}

// String renders the sort back to "+field" form.
func (s Sort) String() string {
	if s.Field == "" {
		return ""
	}
	if s.Descending {
		return "-" + string(s.Field)
	}
	return "+" + string(s.Field)
}

// Store persists address records.
type Store interface {
	// GetAll returns records matching filter, optionally paginated and sorted.
	GetAll(ctx context.Context, filter Filter, page *Page, sort Sort) ([]*Address, error)

	// Save persists a new record and returns it with its assigned ID.
	Save(ctx context.Context, a *Address) (*Address, error)

	// UpdateBalance writes balance and updatedAt of an enabled record and
	// nothing else. It returns ErrDisabled for a disabled record, ErrNotFound
	// for an unknown id and ErrBalanceOutOfRange when bal is not Storable.
	UpdateBalance(ctx context.Context, id string, bal Balance, at time.Time) (*Address, error)

	// Claim atomically assigns ownerID to the record when it is still enabled and
	// unowned, returning ErrConflict otherwise.
	Claim(ctx context.Context, id, ownerID string, at time.Time) (*Address, error)

	// Disable soft-deletes the record.
	Disable(ctx context.Context, id string, at time.Time) (*Address, error)

	// Clear removes every record. Intended for tests and resets.
	Clear(ctx context.Context) error
}

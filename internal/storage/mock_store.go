package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/walletpool/internal/address"
)

// Method names a MockStore operation for failure injection.
type Method string

const (
	MethodGetAll        Method = "GetAll"
	MethodSave          Method = "Save"
	MethodUpdateBalance Method = "UpdateBalance"
	MethodClaim         Method = "Claim"
	MethodDisable       Method = "Disable"
	MethodClear         Method = "Clear"
)

// MockStore is an in-memory implementation of address.Store for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]*address.Address
	order   []string
	calls   MockCalls
	fail    map[Method]error

	// BeforeClaim, when set, runs at the start of every Claim without the
	// store lock held. Tests use it to interleave a competing claim.
	BeforeClaim func(id, ownerID string)
}

// MockCalls tracks method invocations for test verification.
type MockCalls struct {
	GetAll        int
	Save          int
	UpdateBalance int
	Claim         int
	Disable       int
	Clear         int
}

var _ address.Store = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]*address.Address),
		fail:    make(map[Method]error),
	}
}

// FailWith makes every subsequent call to method return err. A nil err clears it.
func (m *MockStore) FailWith(method Method, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Seed inserts records directly, bypassing counters and uniqueness checks.
func (m *MockStore) Seed(records ...*address.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range records {
		cp := a.Clone()
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		if _, ok := m.records[cp.ID]; !ok {
			m.order = append(m.order, cp.ID)
		}
		m.records[cp.ID] = cp
	}
}

// GetAll returns records matching filter.
func (m *MockStore) GetAll(ctx context.Context, filter address.Filter, page *address.Page, sort address.Sort) ([]*address.Address, error) {
	m.mu.Lock()
	m.calls.GetAll++
	err := m.fail[MethodGetAll]
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*address.Address{}
	for _, id := range m.order {
		a := m.records[id]
		if matches(a, filter) {
			out = append(out, a.Clone())
		}
	}

	if sort.Field != "" {
		slices.SortStableFunc(out, func(x, y *address.Address) int {
			c := compare(x, y, sort.Field)
			if sort.Descending {
				return -c
			}
			return c
		})
	}

	if page != nil && page.Limit > 0 {
		start := min(max(page.Offset, 0), len(out))
		end := min(start+page.Limit, len(out))
		out = out[start:end]
	}
	return out, nil
}

// Save inserts a new record.
func (m *MockStore) Save(ctx context.Context, a *address.Address) (*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Save++
	if err := m.fail[MethodSave]; err != nil {
		return nil, err
	}

	if a.IsEnabled {
		for _, existing := range m.records {
			if existing.IsEnabled && existing.Address == a.Address {
				return nil, address.ErrDuplicate.WithContext("address", a.Address)
			}
		}
	}

	stored := a.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, ok := m.records[stored.ID]; ok {
		return nil, address.ErrDuplicate.WithContext("id", stored.ID)
	}
	m.records[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	return stored.Clone(), nil
}

// UpdateBalance writes the balance of an enabled record.
func (m *MockStore) UpdateBalance(ctx context.Context, id string, bal address.Balance, at time.Time) (*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.UpdateBalance++
	if err := m.fail[MethodUpdateBalance]; err != nil {
		return nil, err
	}
	if !bal.Storable() {
		return nil, address.ErrBalanceOutOfRange.WithContext("id", id)
	}

	existing, ok := m.records[id]
	if !ok {
		return nil, address.ErrNotFound.WithContext("id", id)
	}
	if !existing.IsEnabled {
		return nil, address.ErrDisabled.WithContext("id", id)
	}
	existing.Balance = bal
	existing.Touch(at)
	return existing.Clone(), nil
}

// Claim assigns ownerID when the record is still enabled and unowned.
func (m *MockStore) Claim(ctx context.Context, id, ownerID string, at time.Time) (*address.Address, error) {
	if hook := m.BeforeClaim; hook != nil {
		hook(id, ownerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Claim++
	if err := m.fail[MethodClaim]; err != nil {
		return nil, err
	}

	existing, ok := m.records[id]
	if !ok {
		return nil, address.ErrNotFound.WithContext("id", id)
	}
	if !existing.IsFree() {
		return nil, address.ErrConflict.WithContext("id", id)
	}
	existing.OwnerID = ownerID
	existing.Touch(at)
	return existing.Clone(), nil
}

// Disable marks the record as not enabled.
func (m *MockStore) Disable(ctx context.Context, id string, at time.Time) (*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Disable++
	if err := m.fail[MethodDisable]; err != nil {
		return nil, err
	}

	existing, ok := m.records[id]
	if !ok {
		return nil, address.ErrNotFound.WithContext("id", id)
	}
	existing.IsEnabled = false
	existing.Touch(at)
	return existing.Clone(), nil
}

// Clear removes every record.
func (m *MockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Clear++
	if err := m.fail[MethodClear]; err != nil {
		return err
	}
	m.records = make(map[string]*address.Address)
	m.order = nil
	return nil
}

// GetCalls returns the method call counts.
func (m *MockStore) GetCalls() MockCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Reset clears records, counters and injected failures.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*address.Address)
	m.order = nil
	m.calls = MockCalls{}
	m.fail = make(map[Method]error)
}

// Len returns the number of records, enabled or not.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func matches(a *address.Address, f address.Filter) bool {
	if f.ID != "" && a.ID != f.ID {
		return false
	}
	if f.Address != "" && a.Address != f.Address {
		return false
	}
	if f.FreeOnly {
		if a.OwnerID != "" {
			return false
		}
	} else if f.OwnerID != "" && a.OwnerID != f.OwnerID {
		return false
	}
	if f.IsEnabled != nil && a.IsEnabled != *f.IsEnabled {
		return false
	}
	return true
}

func compare(x, y *address.Address, field address.SortField) int {
	switch field {
	case address.SortCreatedAt:
		return x.CreatedAt.Compare(y.CreatedAt)
	case address.SortUpdatedAt:
		return timeOf(x.UpdatedAt).Compare(timeOf(y.UpdatedAt))
	case address.SortAddress:
		switch {
		case x.Address < y.Address:
			return -1
		case x.Address > y.Address:
			return 1
		}
	}
	return 0
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

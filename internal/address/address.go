package address

import (
	"math"
	"time"
)

// Keys is the spend key pair the daemon returns when an address is minted.
// It is stored once at creation and never regenerated.
type Keys struct {
	SpendPublicKey string `json:"spendPublicKey"`
	SpendSecretKey string `json:"spendSecretKey"`
}

// Balance mirrors the daemon's last reported figures, in atomic units.
type Balance struct {
	Available uint64 `json:"available"`
	Locked    uint64 `json:"locked"`
}

// MaxStoredBalance is the largest amount a store column can hold.
const MaxStoredBalance = math.MaxInt64

// Storable reports whether both amounts fit the store's signed 64-bit columns.
func (b Balance) Storable() bool {
	return b.Available <= MaxStoredBalance && b.Locked <= MaxStoredBalance
}

// Address is a deposit address record.
type Address struct {
	ID string `json:"id"`
	// OwnerID is empty when the record is in the free pool.
	OwnerID   string     `json:"ownerId,omitempty"`
	Address   string     `json:"address"`
	Keys      Keys       `json:"keys"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	IsEnabled bool       `json:"isEnabled"`
	Balance   Balance    `json:"balance"`
}

// IsFree reports whether the record is enabled and unowned.
func (a *Address) IsFree() bool {
	return a.IsEnabled && a.OwnerID == ""
}

// Clone returns a deep copy so callers cannot mutate store-held state.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	cp := *a
	if a.UpdatedAt != nil {
		t := *a.UpdatedAt
		cp.UpdatedAt = &t
	}
	return &cp
}

// Touch sets UpdatedAt to at.
func (a *Address) Touch(at time.Time) {
	a.UpdatedAt = &at
}

// Public returns a copy without secret key material, for rendering to API clients.
func (a *Address) Public() *Address {
	cp := a.Clone()
	cp.Keys.SpendSecretKey = ""
	return cp
}

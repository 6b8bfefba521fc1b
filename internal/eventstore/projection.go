package eventstore

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// Allocation records one hand-out of an address.
type Allocation struct {
	OwnerID string    `json:"ownerId"`
	At      time.Time `json:"at"`
	Source  string    `json:"source,omitempty"`
}

// Timeline is a read model of one address's lifecycle, reconstructed from
// journaled events.
type Timeline struct {
	Address           string       `json:"address"`
	AddressIDs        []string     `json:"addressIds"`
	MintedAt          *time.Time   `json:"mintedAt,omitempty"`
	Allocations       []Allocation `json:"allocations"`
	ReleasedAt        *time.Time   `json:"releasedAt,omitempty"`
	ReleaseIncomplete bool         `json:"releaseIncomplete"`
	LastReconciledAt  *time.Time   `json:"lastReconciledAt,omitempty"`
	Available         uint64       `json:"available"`
	Locked            uint64       `json:"locked"`
	ReconcileFailures int          `json:"reconcileFailures"`
	EventCount        int          `json:"eventCount"`
}

// BuildTimeline folds evs, oldest first, into a timeline for addr.
func BuildTimeline(addr string, evs []events.Event) *Timeline {
	t := &Timeline{Address: addr, AddressIDs: []string{}, Allocations: []Allocation{}}
	for _, e := range evs {
		if e.Address != addr {
			continue
		}
		t.apply(e)
	}
	return t
}

func (t *Timeline) apply(e events.Event) {
	t.EventCount++
	if e.AddressID != "" && !contains(t.AddressIDs, e.AddressID) {
		t.AddressIDs = append(t.AddressIDs, e.AddressID)
	}
	at := e.OccurredAt

	switch e.Type {
	case events.AddressMinted:
		t.MintedAt = &at
		// A re-minted address starts a new life.
		t.ReleasedAt = nil
		t.ReleaseIncomplete = false
	case events.AddressAllocated:
		t.Allocations = append(t.Allocations, Allocation{OwnerID: e.OwnerID, At: at, Source: e.Attributes["source"]})
	case events.AddressReleased:
		t.ReleasedAt = &at
		t.ReleaseIncomplete = false
	case events.AddressReleaseIncomplete:
		t.ReleasedAt = &at
		t.ReleaseIncomplete = true
	case events.BalanceReconciled:
		t.LastReconciledAt = &at
		if e.Available != nil {
			t.Available = *e.Available
		}
		if e.Locked != nil {
			t.Locked = *e.Locked
		}
	case events.BalanceReconcileFailed:
		t.ReconcileFailures++
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// TimelineProjection answers timeline queries from a Store.
type TimelineProjection struct {
	store Store
}

// NewTimelineProjection creates a projection backed by store.
func NewTimelineProjection(store Store) *TimelineProjection {
	return &TimelineProjection{store: store}
}

// Timeline returns the lifecycle of addr. An address with no journaled
// events yields a NotFoundError.
func (p *TimelineProjection) Timeline(ctx context.Context, addr string) (*Timeline, error) {
	evs, err := p.store.ByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, errors.NotFoundError(fmt.Sprintf("No history for address %s", addr)).
			WithContext("address", addr).
			Build()
	}
	return BuildTimeline(addr, evs), nil
}

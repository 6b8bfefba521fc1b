package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event.
type Type string

const (
	AddressMinted            Type = "address.minted"
	AddressAllocated         Type = "address.allocated"
	AddressReleased          Type = "address.released"
	AddressReleaseIncomplete Type = "address.release_incomplete"
	BalanceReconciled        Type = "balance.reconciled"
	BalanceReconcileFailed   Type = "balance.reconcile_failed"
	AuditDrift               Type = "audit.drift"
)

// Event is the JSON payload published for every lifecycle change.
// It never carries key material.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	OwnerID    string            `json:"ownerId,omitempty"`
	Address    string            `json:"address,omitempty"`
	AddressID  string            `json:"addressId,omitempty"`
	Available  *uint64           `json:"available,omitempty"`
	Locked     *uint64           `json:"locked,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New returns an event of type t stamped with at and a fresh id.
func New(t Type, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

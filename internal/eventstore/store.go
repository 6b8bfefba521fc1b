// Package eventstore journals address lifecycle events in SQLite and folds
// them into per-address timelines.
package eventstore

import (
	"context"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/events"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e events.Event) error

	// ByAddress retrieves every event recorded for addr, oldest first.
	ByAddress(ctx context.Context, addr string) ([]events.Event, error)

	// Range retrieves events that occurred within [start, end], oldest first.
	Range(ctx context.Context, start, end time.Time) ([]events.Event, error)

	// Close closes the store and releases resources.
	Close() error
}

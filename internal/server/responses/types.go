// Package responses defines API response types used by the address API handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/pool"
)

// AddressResponse wraps a single address. Secret keys are never included.
type AddressResponse struct {
	Address *address.Address `json:"address"`
}

// AddressListResponse lists addresses.
type AddressListResponse struct {
	Addresses []*address.Address `json:"addresses"`
	Count     int                `json:"count"`
}

// NewAddressList strips secret material from every record.
func NewAddressList(list []*address.Address) AddressListResponse {
	out := make([]*address.Address, 0, len(list))
	for _, a := range list {
		out = append(out, a.Public())
	}
	return AddressListResponse{Addresses: out, Count: len(out)}
}

// ReconcileFailure describes one address that could not be reconciled.
type ReconcileFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// ReconcileResponse is the result of a balance sync.
type ReconcileResponse struct {
	Updated   []*address.Address `json:"updated"`
	Failures  []ReconcileFailure `json:"failures"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewReconcileResponse renders a reconcile run stamped with at.
func NewReconcileResponse(res *pool.ReconcileResult, at time.Time) ReconcileResponse {
	resp := ReconcileResponse{
		Updated:   NewAddressList(res.Updated).Addresses,
		Failures:  make([]ReconcileFailure, 0, len(res.Failures)),
		Timestamp: at,
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, ReconcileFailure{Address: f.Address, Reason: f.Reason})
	}
	return resp
}

// AuditResponse reports drift between daemon and store.
type AuditResponse struct {
	Consistent        bool      `json:"consistent"`
	UntrackedByStore  []string  `json:"untrackedByStore"`
	UntrackedByDaemon []string  `json:"untrackedByDaemon"`
	DaemonCount       int       `json:"daemonCount"`
	StoreCount        int       `json:"storeCount"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewAuditResponse renders an audit report stamped with at.
func NewAuditResponse(report *pool.AuditReport, at time.Time) AuditResponse {
	return AuditResponse{
		Consistent:        report.Consistent(),
		UntrackedByStore:  report.UntrackedByStore,
		UntrackedByDaemon: report.UntrackedByDaemon,
		DaemonCount:       report.DaemonCount,
		StoreCount:        report.StoreCount,
		Timestamp:         at,
	}
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    float64           `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Package address defines the deposit address entity and the persistence
// contract the pool core depends on.
//
// An Address is in one of three states:
//
//   - free: enabled with no owner; available for (re)assignment
//   - owned: enabled with an owner; never returns to free
//   - disabled: soft-deleted; kept for audit, never hard-deleted
//
// Store implementations must enforce that at most one enabled record exists per
// address string, and must implement Claim as an atomic compare-and-swap so two
// concurrent allocators can never take the same free record.
package address

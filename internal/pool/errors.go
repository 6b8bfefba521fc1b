package pool

import (
	"fmt"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// Reasons attached to a ReconcileError.
const (
	ReasonRecordNotFound     = "record_not_found"
	ReasonLookupFailed       = "lookup_failed"
	ReasonBalanceUnavailable = "balance_unavailable"
	ReasonUpdateFailed       = "update_failed"
	ReasonRecordDisabled     = "record_disabled"
	ReasonBalanceOutOfRange  = "balance_out_of_range"
)

// ReconcileError is a per-address reconciliation failure. It never aborts the
// batch it belongs to.
type ReconcileError struct {
	Address string
	Reason  string
	Err     error
}

func (e *ReconcileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reconcile %s: %s", e.Address, e.Reason)
	}
	return fmt.Sprintf("reconcile %s: %s: %v", e.Address, e.Reason, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

func newReconcileError(addr, reason string, cause error) *ReconcileError {
	if cause == nil {
		cause = errors.ReconcileError("no enabled record for daemon address").
			WithContext("address", addr).
			Warning().
			Build()
	}
	return &ReconcileError{Address: addr, Reason: reason, Err: cause}
}

// daemonErr keeps classified daemon errors as they are and classifies anything else.
func daemonErr(err error, op, addr string) error {
	if errors.IsDaemon(err) {
		return err
	}
	return errors.WrapError(err, errors.CategoryDaemon, "daemon call failed").
		WithContext("rpc_method", op).
		WithContext("address", addr).
		Build()
}

// storeErr keeps classified store errors as they are and classifies anything else.
func storeErr(err error, op string) error {
	if _, ok := errors.AsClassified(err); ok {
		return err
	}
	return errors.WrapError(err, errors.CategoryStore, "address store failure").
		WithContext("operation", op).
		Build()
}

package pool

import (
	"context"
	stderrors "errors"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
)

// ReconcileResult is the outcome of one UpdateWalletBalance run. Both slices
// follow the order in which the daemon reported addresses.
type ReconcileResult struct {
	Updated  []*address.Address `json:"updated"`
	Failures []*ReconcileError  `json:"-"`
}

// FailedAddresses lists the addresses that could not be reconciled.
func (r *ReconcileResult) FailedAddresses() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Address)
	}
	return out
}

// UpdateWalletBalance copies the daemon's balance of every address it tracks
// into the matching enabled record. Only a failure to list the daemon's
// addresses aborts the run; per-address failures are collected in the result.
func (s *Service) UpdateWalletBalance(ctx context.Context) (*ReconcileResult, error) {
	start := s.clock.Now()
	addrs, err := s.daemon.GetAddresses(ctx)
	if err != nil {
		return nil, daemonErr(err, "getAddresses", "")
	}

	updated := make([]*address.Address, len(addrs))
	failures := make([]*ReconcileError, len(addrs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			rec, rerr := s.reconcileOne(ctx, addr)
			if rerr != nil {
				failures[i] = rerr
				return nil
			}
			updated[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	result := &ReconcileResult{Updated: []*address.Address{}}
	for i := range addrs {
		switch {
		case updated[i] != nil:
			result.Updated = append(result.Updated, updated[i])
			s.recorder.IncReconcile(metrics.ResultSuccess)
		case failures[i] != nil:
			result.Failures = append(result.Failures, failures[i])
			if failures[i].Reason == ReasonRecordNotFound {
				s.recorder.IncReconcile(metrics.ResultNotFound)
			} else {
				s.recorder.IncReconcile(metrics.ResultFailed)
			}
		}
	}

	s.refreshFreeGauge(ctx)
	s.logger.InfoContext(ctx, "Balance reconciliation finished",
		logfields.Count(len(addrs)),
		"updated", len(result.Updated),
		"failed", len(result.Failures),
		logfields.DurationMS(float64(s.clock.Now().Sub(start).Milliseconds())))
	return result, nil
}

func (s *Service) reconcileOne(ctx context.Context, addr string) (*address.Address, *ReconcileError) {
	records, err := s.store.GetAll(ctx, address.Filter{Address: addr, IsEnabled: address.Enabled(true)}, nil, address.Sort{})
	if err != nil {
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonLookupFailed, storeErr(err, "get_by_address")))
	}
	if len(records) == 0 {
		// The daemon tracks an address this store never recorded (or has
		// disabled). Audit reports these.
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonRecordNotFound, nil))
	}

	bal, err := s.daemon.GetBalance(ctx, addr)
	if err != nil {
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonBalanceUnavailable, daemonErr(err, "getBalance", addr)))
	}

	balance := address.Balance{Available: bal.AvailableBalance, Locked: bal.LockedAmount}
	if !balance.Storable() {
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonBalanceOutOfRange,
			address.ErrBalanceOutOfRange.
				WithContext("address", addr).
				WithContext("available", balance.Available).
				WithContext("locked", balance.Locked)))
	}

	// Only the balance is written: a Claim or Disable that ran while the
	// daemon was answering must survive.
	saved, err := s.store.UpdateBalance(ctx, records[0].ID, balance, s.now())
	switch {
	case stderrors.Is(err, address.ErrDisabled):
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonRecordDisabled, err))
	case err != nil:
		return nil, s.reconcileFailed(ctx, newReconcileError(addr, ReasonUpdateFailed, storeErr(err, "update_balance")))
	}

	e := events.New(events.BalanceReconciled, s.now())
	e.Address = saved.Address
	e.AddressID = saved.ID
	e.OwnerID = saved.OwnerID
	e.Available = &saved.Balance.Available
	e.Locked = &saved.Balance.Locked
	s.publish(ctx, e)
	return saved, nil
}

func (s *Service) reconcileFailed(ctx context.Context, rerr *ReconcileError) *ReconcileError {
	s.logger.WarnContext(ctx, "Address not reconciled",
		logfields.Address(rerr.Address),
		"reason", rerr.Reason,
		logfields.Error(rerr.Err))

	e := events.New(events.BalanceReconcileFailed, s.now())
	e.Address = rerr.Address
	e.Reason = rerr.Reason
	s.publish(ctx, e)
	return rerr
}

package pool

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
)

var freePool = address.Filter{FreeOnly: true, IsEnabled: address.Enabled(true)}

// Allocate hands ownerID an enabled address, reusing the oldest free record
// when one can be claimed and minting a new one otherwise.
func (s *Service) Allocate(ctx context.Context, ownerID string) (*address.Address, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.ValidationError("owner id is required").Build()
	}

	for attempt := 1; attempt <= s.maxClaimAttempts; attempt++ {
		free, err := s.store.GetAll(ctx, freePool, &address.Page{Limit: 1}, address.ByCreatedAt)
		if err != nil {
			return nil, storeErr(err, "get_free")
		}
		if len(free) == 0 {
			break
		}

		candidate := free[0]
		claimed, err := s.store.Claim(ctx, candidate.ID, ownerID, s.now())
		if err == nil {
			s.recorder.IncAllocation(metrics.SourceReused)
			s.logger.InfoContext(ctx, "Allocated free address",
				logfields.OwnerID(ownerID),
				logfields.Address(claimed.Address),
				logfields.AddressID(claimed.ID))
			s.publishAllocated(ctx, claimed, metrics.SourceReused)
			return claimed, nil
		}
		// Another allocator took it, or it was cleared: look again.
		if errors.IsConflict(err) || errors.IsNotFound(err) {
			s.recorder.IncClaimConflict()
			s.logger.DebugContext(ctx, "Lost claim on free address",
				logfields.OwnerID(ownerID),
				logfields.AddressID(candidate.ID),
				logfields.Attempt(attempt))
			continue
		}
		return nil, storeErr(err, "claim")
	}

	return s.CreateAddressFromDaemon(ctx, ownerID)
}

// CreateAddressFromDaemon mints a new address and records it for ownerID.
// An empty ownerID records the address in the free pool.
func (s *Service) CreateAddressFromDaemon(ctx context.Context, ownerID string) (*address.Address, error) {
	ownerID = strings.TrimSpace(ownerID)

	addr, err := s.daemon.CreateAddress(ctx)
	if err != nil {
		return nil, daemonErr(err, "createAddress", "")
	}
	if strings.TrimSpace(addr) == "" {
		return nil, errors.DaemonError("daemon returned no address").
			WithContext("rpc_method", "createAddress").
			Build()
	}

	keys, err := s.daemon.GetSpendKeys(ctx, addr)
	if err != nil {
		return nil, s.compensateMint(ctx, addr, daemonErr(err, "getSpendKeys", addr))
	}

	record := &address.Address{
		OwnerID:   ownerID,
		Address:   addr,
		Keys:      keys,
		CreatedAt: s.now(),
		IsEnabled: true,
	}
	saved, err := s.store.Save(ctx, record)
	if err != nil {
		return nil, s.compensateMint(ctx, addr, storeErr(err, "save"))
	}

	s.logger.InfoContext(ctx, "Minted address",
		logfields.OwnerID(ownerID),
		logfields.Address(saved.Address),
		logfields.AddressID(saved.ID))

	minted := events.New(events.AddressMinted, s.now())
	minted.Address = saved.Address
	minted.AddressID = saved.ID
	minted.OwnerID = saved.OwnerID
	s.publish(ctx, minted)

	if ownerID != "" {
		s.recorder.IncAllocation(metrics.SourceMinted)
		s.publishAllocated(ctx, saved, metrics.SourceMinted)
	}
	return saved, nil
}

// compensateMint asks the daemon to forget addr after it was minted but could
// not be recorded. The original failure is returned; a compensation failure is
// attached to its context.
func (s *Service) compensateMint(ctx context.Context, addr string, cause error) error {
	s.logger.ErrorContext(ctx, "Minted address could not be recorded",
		logfields.Address(addr),
		logfields.Error(cause))
	if !s.compensate {
		return cause
	}

	derr := s.daemon.DeleteAddress(ctx, addr)
	if derr == nil {
		s.logger.InfoContext(ctx, "Compensated unrecorded mint", logfields.Address(addr))
		return annotate(cause, "compensated", true)
	}
	s.logger.ErrorContext(ctx, "Compensation failed; address exists only at the daemon",
		logfields.Address(addr),
		logfields.Error(derr))
	return annotate(cause, "compensation_error", derr.Error())
}

func annotate(err error, key string, value any) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext(key, value)
	}
	return err
}

func (s *Service) publishAllocated(ctx context.Context, a *address.Address, source metrics.AllocationSource) {
	e := events.New(events.AddressAllocated, s.now())
	e.OwnerID = a.OwnerID
	e.Address = a.Address
	e.AddressID = a.ID
	e.Attributes = map[string]string{"source": string(source)}
	s.publish(ctx, e)
}

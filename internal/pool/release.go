package pool

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
)

// Release disables the enabled record for addr, then asks the daemon to stop
// tracking it. A non-empty ownerID restricts the lookup to that owner's records.
//
// When no record matches, a NotFoundError is returned and neither the store
// nor the daemon is touched. When the daemon call fails after the record was
// disabled, the record stays disabled and a DaemonError with
// record_disabled=true is returned.
func (s *Service) Release(ctx context.Context, ownerID, addr string) error {
	ownerID = strings.TrimSpace(ownerID)
	notFound := func() error {
		s.recorder.IncRelease(metrics.ResultNotFound)
		return errors.NotFoundError(fmt.Sprintf("The address %s not found", addr)).
			WithContext("address", addr).
			WithContext("owner_id", ownerID).
			Build()
	}
	// An empty address would match every record.
	if strings.TrimSpace(addr) == "" {
		return notFound()
	}

	filter := address.Filter{Address: addr, OwnerID: ownerID, IsEnabled: address.Enabled(true)}
	records, err := s.store.GetAll(ctx, filter, &address.Page{Limit: 1}, address.Sort{})
	if err != nil {
		s.recorder.IncRelease(metrics.ResultFailed)
		return storeErr(err, "get_by_address")
	}
	if len(records) == 0 {
		return notFound()
	}
	record := records[0]

	disabled, err := s.store.Disable(ctx, record.ID, s.now())
	if err != nil {
		s.recorder.IncRelease(metrics.ResultFailed)
		return storeErr(err, "disable")
	}

	if err := s.daemon.DeleteAddress(ctx, addr); err != nil {
		s.recorder.IncRelease(metrics.ResultIncomplete)
		s.logger.ErrorContext(ctx, "Address disabled but daemon still tracks it",
			logfields.OwnerID(disabled.OwnerID),
			logfields.Address(addr),
			logfields.AddressID(disabled.ID),
			logfields.Error(err))

		e := events.New(events.AddressReleaseIncomplete, s.now())
		e.OwnerID = disabled.OwnerID
		e.Address = addr
		e.AddressID = disabled.ID
		e.Reason = "daemon_delete_failed"
		s.publish(ctx, e)

		return annotate(daemonErr(err, "deleteAddress", addr), "record_disabled", true)
	}

	s.recorder.IncRelease(metrics.ResultSuccess)
	s.logger.InfoContext(ctx, "Released address",
		logfields.OwnerID(disabled.OwnerID),
		logfields.Address(addr),
		logfields.AddressID(disabled.ID))

	e := events.New(events.AddressReleased, s.now())
	e.OwnerID = disabled.OwnerID
	e.Address = addr
	e.AddressID = disabled.ID
	s.publish(ctx, e)
	return nil
}

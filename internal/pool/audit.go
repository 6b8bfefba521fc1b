package pool

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
)

// AuditReport lists addresses known to only one side.
type AuditReport struct {
	// UntrackedByStore are daemon addresses without an enabled record,
	// typically mints whose save failed.
	UntrackedByStore []string `json:"untrackedByStore"`
	// UntrackedByDaemon are enabled records the daemon no longer reports.
	UntrackedByDaemon []string `json:"untrackedByDaemon"`
	DaemonCount       int      `json:"daemonCount"`
	StoreCount        int      `json:"storeCount"`
}

// Consistent reports whether daemon and store agree.
func (r *AuditReport) Consistent() bool {
	return len(r.UntrackedByStore) == 0 && len(r.UntrackedByDaemon) == 0
}

// Audit compares the daemon's address list with the enabled records. It never
// mutates either side.
func (s *Service) Audit(ctx context.Context) (*AuditReport, error) {
	daemonAddrs, err := s.daemon.GetAddresses(ctx)
	if err != nil {
		return nil, daemonErr(err, "getAddresses", "")
	}
	records, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	inDaemon := make(map[string]struct{}, len(daemonAddrs))
	for _, a := range daemonAddrs {
		inDaemon[a] = struct{}{}
	}
	inStore := make(map[string]struct{}, len(records))
	for _, r := range records {
		inStore[r.Address] = struct{}{}
	}

	report := &AuditReport{
		UntrackedByStore:  []string{},
		UntrackedByDaemon: []string{},
		DaemonCount:       len(daemonAddrs),
		StoreCount:        len(records),
	}
	for _, a := range daemonAddrs {
		if _, ok := inStore[a]; !ok {
			report.UntrackedByStore = append(report.UntrackedByStore, a)
		}
	}
	for _, r := range records {
		if _, ok := inDaemon[r.Address]; !ok {
			report.UntrackedByDaemon = append(report.UntrackedByDaemon, r.Address)
		}
	}

	if report.Consistent() {
		s.logger.InfoContext(ctx, "Audit found no drift", logfields.Count(len(records)))
		return report, nil
	}

	s.logger.WarnContext(ctx, "Audit found drift between daemon and store",
		"untracked_by_store", len(report.UntrackedByStore),
		"untracked_by_daemon", len(report.UntrackedByDaemon))
	e := events.New(events.AuditDrift, s.now())
	e.Attributes = map[string]string{
		"untracked_by_store":  strings.Join(report.UntrackedByStore, ","),
		"untracked_by_daemon": strings.Join(report.UntrackedByDaemon, ","),
	}
	s.publish(ctx, e)
	return report, nil
}

// Prefill mints unowned addresses until the free pool holds target records.
// It returns how many were minted; on error, the count minted so far.
func (s *Service) Prefill(ctx context.Context, target int) (int, error) {
	if target <= 0 {
		return 0, nil
	}
	free, err := s.GetFreeAddresses(ctx)
	if err != nil {
		return 0, err
	}

	minted := 0
	for n := len(free); n < target; n++ {
		if err := ctx.Err(); err != nil {
			return minted, err
		}
		if _, err := s.CreateAddressFromDaemon(ctx, ""); err != nil {
			return minted, err
		}
		minted++
	}
	if minted > 0 {
		s.logger.InfoContext(ctx, "Prefilled free pool", logfields.Count(minted), "target", target)
	}
	s.recorder.SetFreeAddresses(max(len(free), target))
	return minted, nil
}

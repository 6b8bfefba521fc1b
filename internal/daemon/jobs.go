package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
)

const (
	jobReconcile = "reconcile-balances"
	jobAudit     = "audit-drift"
	jobPrefill   = "prefill-pool"
	jobPrune     = "prune-journal"

	pruneInterval = time.Hour
)

// scheduleJobs registers the maintenance jobs described by cfg and returns
// their ids. On error the ids scheduled so far are still returned.
func (d *Daemon) scheduleJobs(cfg *config.Config) ([]string, error) {
	var ids []string

	var (
		id  string
		err error
	)
	if cfg.Reconcile.Cron != "" {
		id, err = d.scheduler.ScheduleCron(jobReconcile, cfg.Reconcile.Cron, d.reconcileJob)
	} else {
		id, err = d.scheduler.ScheduleEvery(jobReconcile, cfg.Reconcile.Interval, d.reconcileJob)
	}
	if err != nil {
		return ids, err
	}
	ids = append(ids, id)

	if cfg.Reconcile.AuditInterval > 0 {
		id, err = d.scheduler.ScheduleEvery(jobAudit, cfg.Reconcile.AuditInterval, d.auditJob)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	if target := cfg.Allocation.PrefillTarget; target > 0 {
		id, err = d.scheduler.ScheduleEvery(jobPrefill, cfg.Allocation.PrefillInterval, func(ctx context.Context) {
			d.prefillJob(ctx, target)
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	if d.pruner != nil {
		retention := cfg.Events.JournalRetention
		id, err = d.scheduler.ScheduleEvery(jobPrune, pruneInterval, func(ctx context.Context) {
			d.pruneJob(ctx, retention)
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *Daemon) reconcileJob(ctx context.Context) {
	start := time.Now()
	res, err := d.jobs.UpdateWalletBalance(ctx)
	if err != nil {
		slog.Error("Balance reconciliation failed", logfields.JobName(jobReconcile), logfields.Error(err))
		return
	}
	attrs := []any{
		logfields.JobName(jobReconcile),
		logfields.Count(len(res.Updated)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())),
	}
	if len(res.Failures) > 0 {
		slog.Warn("Balance reconciliation incomplete",
			append(attrs, slog.Any("failed_addresses", res.FailedAddresses()))...)
		return
	}
	slog.Info("Balance reconciliation finished", attrs...)
}

func (d *Daemon) auditJob(ctx context.Context) {
	report, err := d.jobs.Audit(ctx)
	if err != nil {
		slog.Error("Drift audit failed", logfields.JobName(jobAudit), logfields.Error(err))
		return
	}
	if !report.Consistent() {
		slog.Warn("Store and wallet daemon disagree",
			logfields.JobName(jobAudit),
			slog.Int("untracked_by_store", len(report.UntrackedByStore)),
			slog.Int("untracked_by_daemon", len(report.UntrackedByDaemon)))
	}
}

func (d *Daemon) prefillJob(ctx context.Context, target int) {
	minted, err := d.jobs.Prefill(ctx, target)
	if err != nil {
		slog.Error("Prefill failed", logfields.JobName(jobPrefill), logfields.Count(minted), logfields.Error(err))
	}
}

func (d *Daemon) pruneJob(ctx context.Context, retention time.Duration) {
	n, err := d.pruner.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		slog.Error("Journal pruning failed", logfields.JobName(jobPrune), logfields.Error(err))
		return
	}
	if n > 0 {
		slog.Info("Pruned journal", logfields.JobName(jobPrune), logfields.Count(int(n)))
	}
}

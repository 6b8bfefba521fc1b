package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/pool"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Strict bool `help:"Exit non-zero when any address could not be reconciled"`
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		res, err := svc.UpdateWalletBalance(ctx)
		if err != nil {
			return err
		}
		if err := writeJSON(g.Out, responses.NewReconcileResponse(res, time.Now().UTC())); err != nil {
			return err
		}
		if s.Strict && len(res.Failures) > 0 {
			return errors.ReconcileError("balance reconciliation incomplete").
				WithContext("failed", len(res.Failures)).
				Build()
		}
		return nil
	})
}

// AuditCmd implements the 'audit' command.
type AuditCmd struct{}

func (a *AuditCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		report, err := svc.Audit(ctx)
		if err != nil {
			return err
		}
		return writeJSON(g.Out, responses.NewAuditResponse(report, time.Now().UTC()))
	})
}

// PrefillCmd implements the 'prefill' command.
type PrefillCmd struct {
	Target int `short:"t" help:"Free pool size to reach; defaults to allocation.prefill_target"`
}

func (p *PrefillCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	target := p.Target
	if target == 0 {
		target = cfg.Allocation.PrefillTarget
	}
	if target < 0 {
		return errors.ValidationError("target cannot be negative").WithContext("target", target).Build()
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	minted, err := rt.svc.Prefill(context.Background(), target)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, map[string]int{"minted": minted, "target": target})
}

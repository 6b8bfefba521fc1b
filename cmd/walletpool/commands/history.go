package commands

import (
	"context"

	"git.home.luguber.info/inful/walletpool/internal/eventstore"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Address string `arg:"" help:"Address to show"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Events.Journal {
		return errors.ConfigError("the event journal is disabled (events.journal)").Build()
	}
	journal, err := eventstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	tl, err := eventstore.NewTimelineProjection(journal).Timeline(context.Background(), h.Address)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, tl)
}

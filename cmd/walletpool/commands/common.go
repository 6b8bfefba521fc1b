// Package commands implements the walletpool CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/eventstore"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
	"git.home.luguber.info/inful/walletpool/internal/observability"
	"git.home.luguber.info/inful/walletpool/internal/pool"
	"git.home.luguber.info/inful/walletpool/internal/storage"
	"git.home.luguber.info/inful/walletpool/internal/walletd"
)

// Global carries state shared by every subcommand.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"walletpool.yaml" env:"WALLETPOOL_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API and scheduled maintenance jobs"`
	Allocate AllocateCmd `cmd:"" help:"Allocate an address to an owner"`
	Release  ReleaseCmd  `cmd:"" help:"Release an owner's address"`
	Sync     SyncCmd     `cmd:"" help:"Reconcile stored balances with the wallet daemon"`
	Mint     MintCmd     `cmd:"" help:"Create a new address on the wallet daemon"`
	List     ListCmd     `cmd:"" help:"List enabled addresses"`
	Audit    AuditCmd    `cmd:"" help:"Compare the store with the wallet daemon's address list"`
	Prefill  PrefillCmd  `cmd:"" help:"Top up the free pool"`
	History  HistoryCmd  `cmd:"" help:"Show the journaled lifecycle of an address"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`

	level *slog.LevelVar `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.level = new(slog.LevelVar)
	if c.Verbose {
		c.level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(observability.NewContextHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.level}))))
	return nil
}

// LevelVar exposes the live log level so configuration reloads can change it.
func (c *CLI) LevelVar() *slog.LevelVar {
	if c.level == nil {
		c.level = new(slog.LevelVar)
	}
	return c.level
}

// loadConfig reads the configuration file and applies its logging section.
// --verbose wins over the configured level.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level := c.LevelVar()
	if !c.Verbose {
		level.Set(cfg.Logging.Level.SlogLevel())
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(observability.NewContextHandler(handler)))
	return cfg, nil
}

// runtime bundles the collaborators every command builds from configuration.
type runtime struct {
	store    *storage.SQLiteStore
	nats     *events.NATSPublisher
	journal  *eventstore.SQLiteStore
	registry *prometheus.Registry
	svc      *pool.Service
	closed   bool
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	logger := slog.Default()
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	client, err := walletd.New(cfg.Daemon,
		walletd.WithRecorder(recorder),
		walletd.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	rt := &runtime{store: store, registry: registry}

	var publishers events.Fanout
	if cfg.Events.Journal {
		journal, err := eventstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.journal = journal
		publishers = append(publishers, journal)
	}
	if cfg.Events.Enabled {
		np, err := events.NewNATSPublisher(cfg.Events)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.nats = np
		publishers = append(publishers, np)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(publishers) > 0 {
		publisher = publishers
	}

	rt.svc = pool.New(store, client,
		pool.WithLogger(logger),
		pool.WithMetrics(recorder),
		pool.WithPublisher(publisher),
		pool.WithMaxClaimAttempts(cfg.Allocation.MaxClaimAttempts),
		pool.WithConcurrency(cfg.Reconcile.Concurrency),
		pool.WithCompensation(cfg.Allocation.CompensationEnabled()),
	)
	return rt, nil
}

// Close releases the store, the journal and the NATS connection.
func (r *runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.nats != nil {
		keep(r.nats.Close())
	}
	if r.journal != nil {
		keep(r.journal.Close())
	}
	keep(r.store.Close())
	return firstErr
}

// withService loads configuration, builds the runtime and runs fn against
// the pool service.
func withService(root *CLI, fn func(ctx context.Context, svc *pool.Service) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(context.Background(), rt.svc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

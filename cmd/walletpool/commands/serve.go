package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/daemon"
	"git.home.luguber.info/inful/walletpool/internal/eventstore"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
	"git.home.luguber.info/inful/walletpool/internal/server/handlers"
	"git.home.luguber.info/inful/walletpool/internal/server/httpserver"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr          string        `help:"Override http.addr from the configuration"`
	NoWatch       bool          `name:"no-watch" help:"Disable configuration hot reload"`
	ReloadDebounce time.Duration `name:"reload-debounce" help:"Delay before applying a changed configuration file" default:"2s"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.HTTP.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return s.serve(ctx, root, cfg)
}

func (s *ServeCmd) serve(ctx context.Context, root *CLI, cfg *config.Config) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	srvOpts := httpserver.Options{
		Metrics:      metrics.HTTPHandler(rt.registry),
		HealthChecks: healthChecks(rt),
		Logger:       slog.Default(),
	}
	if rt.journal != nil {
		srvOpts.History = eventstore.NewTimelineProjection(rt.journal)
	}
	srv := httpserver.New(cfg.HTTP, rt.svc, srvOpts)

	opts := []daemon.Option{
		daemon.WithServer(srv),
		daemon.WithLevelVar(root.LevelVar()),
		daemon.WithCloser(rt),
	}
	if rt.journal != nil {
		opts = append(opts, daemon.WithJournal(rt.journal))
	}
	if !s.NoWatch {
		opts = append(opts, daemon.WithConfigWatch(root.Config, s.ReloadDebounce))
	}
	d, err := daemon.New(cfg, rt.svc, opts...)
	if err != nil {
		_ = rt.Close()
		return err
	}

	if err := d.Start(ctx); err != nil {
		_ = rt.Close()
		return err
	}
	slog.Info("Walletpool serving, waiting for shutdown signal", slog.String("addr", srv.Addr()))

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	return nil
}

func healthChecks(rt *runtime) map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"store": rt.store.Ping,
	}
	if rt.nats != nil {
		checks["events"] = func(context.Context) error {
			if !rt.nats.Healthy() {
				return errors.EventsError("NATS connection is down").Build()
			}
			return nil
		}
	}
	return checks
}

// Package daemon runs walletpool as a long-lived service: the HTTP API, the
// scheduled reconcile, audit and prefill jobs, and configuration hot reload.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/pool"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Jobs is the pool maintenance surface the scheduler drives.
type Jobs interface {
	UpdateWalletBalance(ctx context.Context) (*pool.ReconcileResult, error)
	Audit(ctx context.Context) (*pool.AuditReport, error)
	Prefill(ctx context.Context, target int) (int, error)
}

var _ Jobs = (*pool.Service)(nil)

// Pruner trims the event journal.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Server is the API listener managed by the daemon.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Daemon owns the service lifecycle.
type Daemon struct {
	mu     sync.RWMutex
	cfg    *config.Config
	jobs   Jobs
	server Server
	pruner Pruner

	scheduler  *Scheduler
	jobIDs     []string
	watcher    *ConfigWatcher
	configPath string
	debounce   time.Duration
	levelVar   *slog.LevelVar
	closers    []io.Closer

	status    atomic.Value
	startTime time.Time
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithServer attaches the HTTP server started and stopped with the daemon.
func WithServer(s Server) Option {
	return func(d *Daemon) { d.server = s }
}

// WithJournal schedules pruning of journaled events older than
// events.journal_retention.
func WithJournal(p Pruner) Option {
	return func(d *Daemon) { d.pruner = p }
}

// WithConfigWatch reloads configuration from path when the file changes.
func WithConfigWatch(path string, debounce time.Duration) Option {
	return func(d *Daemon) {
		d.configPath = path
		d.debounce = debounce
	}
}

// WithLevelVar lets configuration reloads change the log level in place.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(d *Daemon) { d.levelVar = v }
}

// WithCloser registers a resource closed after everything else has stopped.
func WithCloser(c io.Closer) Option {
	return func(d *Daemon) {
		if c != nil {
			d.closers = append(d.closers, c)
		}
	}
}

// New creates a stopped daemon.
func New(cfg *config.Config, jobs Jobs, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("jobs are required")
	}
	d := &Daemon{cfg: cfg, jobs: jobs}
	for _, opt := range opts {
		opt(d)
	}
	d.status.Store(StatusStopped)
	return d, nil
}

// Start launches the scheduler, the HTTP server and the config watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() == StatusRunning {
		return fmt.Errorf("daemon is already running")
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()

	scheduler, err := NewScheduler()
	if err != nil {
		d.status.Store(StatusError)
		return err
	}
	d.scheduler = scheduler

	ids, err := d.scheduleJobs(d.cfg)
	if err != nil {
		_ = scheduler.Stop()
		d.status.Store(StatusError)
		return err
	}
	d.jobIDs = ids

	if d.server != nil {
		if err := d.server.Start(ctx); err != nil {
			_ = scheduler.Stop()
			d.status.Store(StatusError)
			return fmt.Errorf("failed to start http server: %w", err)
		}
	}

	if d.configPath != "" {
		w, err := NewConfigWatcher(d.configPath, d, d.debounce)
		if err != nil {
			slog.Warn("Config hot reload disabled", logfields.Error(err))
		} else if err := w.Start(ctx); err != nil {
			slog.Warn("Config hot reload disabled", logfields.Error(err))
			_ = w.Stop()
		} else {
			d.watcher = w
		}
	}

	d.applyLogLevel(d.cfg)
	scheduler.Start()
	d.status.Store(StatusRunning)
	slog.Info("Daemon started", logfields.Count(len(ids)))
	return nil
}

// Stop shuts down in reverse start order. The first error is returned after
// every component has been given the chance to stop.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := d.GetStatus()
	if status == StatusStopped || status == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if d.watcher != nil {
		keep(d.watcher.Stop())
		d.watcher = nil
	}
	if d.scheduler != nil {
		keep(d.scheduler.Stop())
		d.scheduler = nil
		d.jobIDs = nil
	}
	if d.server != nil {
		keep(d.server.Stop(ctx))
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		keep(d.closers[i].Close())
	}
	d.closers = nil

	d.status.Store(StatusStopped)
	slog.Info("Daemon stopped", slog.Duration("uptime", time.Since(d.startTime)))
	return firstErr
}

// ReloadConfig applies a new configuration to a running daemon: jobs are
// rescheduled and the log level updated. Listener, store and daemon endpoint
// changes need a restart and are only logged.
func (d *Daemon) ReloadConfig(_ context.Context, newCfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.cfg
	warnRestartRequired(old, newCfg)

	if d.scheduler != nil {
		ids, err := d.scheduleJobs(newCfg)
		if err != nil {
			for _, id := range ids {
				d.scheduler.Remove(id)
			}
			return fmt.Errorf("failed to reschedule jobs: %w", err)
		}
		for _, id := range d.jobIDs {
			d.scheduler.Remove(id)
		}
		d.jobIDs = ids
	}

	d.cfg = newCfg
	d.applyLogLevel(newCfg)
	slog.Info("Configuration reloaded", logfields.Count(len(d.jobIDs)))
	return nil
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// GetStartTime returns when the daemon was last started.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

func (d *Daemon) applyLogLevel(cfg *config.Config) {
	if d.levelVar != nil {
		d.levelVar.Set(cfg.Logging.Level.SlogLevel())
	}
}

func warnRestartRequired(old, cur *config.Config) {
	if old.HTTP.Addr != cur.HTTP.Addr {
		slog.Warn("HTTP address change requires restart", slog.String("addr", cur.HTTP.Addr))
	}
	if old.Store.Path != cur.Store.Path {
		slog.Warn("Store path change requires restart", slog.String("path", cur.Store.Path))
	}
	if old.Daemon.URL != cur.Daemon.URL {
		slog.Warn("Wallet daemon URL change requires restart", slog.String("url", cur.Daemon.URL))
	}
	if old.Events != cur.Events {
		slog.Warn("Event publishing changes require restart")
	}
}

package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/pool"
)

type fakeJobs struct {
	reconciles atomic.Int32
	audits     atomic.Int32
	prefills   atomic.Int32

	mu            sync.Mutex
	prefillTarget int
}

func (f *fakeJobs) UpdateWalletBalance(context.Context) (*pool.ReconcileResult, error) {
	f.reconciles.Add(1)
	return &pool.ReconcileResult{}, nil
}

func (f *fakeJobs) Audit(context.Context) (*pool.AuditReport, error) {
	f.audits.Add(1)
	return &pool.AuditReport{UntrackedByStore: []string{"WLT-drift"}}, nil
}

func (f *fakeJobs) Prefill(_ context.Context, target int) (int, error) {
	f.prefills.Add(1)
	f.mu.Lock()
	f.prefillTarget = target
	f.mu.Unlock()
	return 0, nil
}

type fakeServer struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeServer) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Reconcile.Interval = 10 * time.Millisecond
	cfg.Reconcile.AuditInterval = 10 * time.Millisecond
	cfg.Allocation.PrefillTarget = 3
	cfg.Allocation.PrefillInterval = 10 * time.Millisecond
	return cfg
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeJobs{})
	require.Error(t, err)
	_, err = New(config.Default(), nil)
	require.Error(t, err)
}

func TestDaemon_Lifecycle(t *testing.T) {
	jobs := &fakeJobs{}
	srv := &fakeServer{}
	var closed atomic.Bool
	d, err := New(fastConfig(), jobs,
		WithServer(srv),
		WithCloser(closerFunc(func() error { closed.Store(true); return nil })))
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, d.GetStatus())

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, StatusRunning, d.GetStatus())
	assert.True(t, srv.started.Load())
	assert.False(t, d.GetStartTime().IsZero())
	require.Error(t, d.Start(context.Background()), "second start must fail")

	assert.Eventually(t, func() bool {
		return jobs.reconciles.Load() > 0 && jobs.audits.Load() > 0 && jobs.prefills.Load() > 0
	}, 2*time.Second, 5*time.Millisecond)
	jobs.mu.Lock()
	assert.Equal(t, 3, jobs.prefillTarget)
	jobs.mu.Unlock()

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, StatusStopped, d.GetStatus())
	assert.True(t, srv.stopped.Load())
	assert.True(t, closed.Load())
	require.NoError(t, d.Stop(context.Background()), "stop is idempotent")
}

func TestDaemon_StartFailsWhenServerCannotBind(t *testing.T) {
	d, err := New(fastConfig(), &fakeJobs{}, WithServer(&fakeServer{startErr: errors.New("address in use")}))
	require.NoError(t, err)

	err = d.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Equal(t, StatusError, d.GetStatus())
}

func TestDaemon_StartRejectsBadCron(t *testing.T) {
	cfg := fastConfig()
	cfg.Reconcile.Cron = "every now and then"
	d, err := New(cfg, &fakeJobs{})
	require.NoError(t, err)

	require.Error(t, d.Start(context.Background()))
	assert.Equal(t, StatusError, d.GetStatus())
}

func TestDaemon_ReloadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.Interval = time.Hour
	cfg.Reconcile.AuditInterval = time.Hour
	var level slog.LevelVar
	jobs := &fakeJobs{}
	d, err := New(cfg, jobs, WithLevelVar(&level))
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer func() { _ = d.Stop(context.Background()) }()

	assert.Equal(t, slog.LevelInfo, level.Level())
	assert.ElementsMatch(t, []string{jobReconcile, jobAudit}, d.scheduler.JobNames())

	next := config.Default()
	next.Reconcile.Interval = 10 * time.Millisecond
	next.Allocation.PrefillTarget = 5
	next.Logging.Level = config.LogLevelDebug
	require.NoError(t, d.ReloadConfig(context.Background(), next))

	assert.Same(t, next, d.GetConfig())
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.ElementsMatch(t, []string{jobReconcile, jobAudit, jobPrefill}, d.scheduler.JobNames())
	assert.Eventually(t, func() bool { return jobs.reconciles.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestDaemon_ReloadConfigKeepsJobsOnFailure(t *testing.T) {
	cfg := config.Default()
	d, err := New(cfg, &fakeJobs{})
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer func() { _ = d.Stop(context.Background()) }()

	bad := config.Default()
	bad.Reconcile.Cron = "not a cron"
	require.Error(t, d.ReloadConfig(context.Background(), bad))

	assert.Same(t, cfg, d.GetConfig())
	assert.ElementsMatch(t, []string{jobReconcile, jobAudit}, d.scheduler.JobNames())
}

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (p *fakePruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return 1, nil
}

func TestDaemon_SchedulesJournalPrune(t *testing.T) {
	cfg := config.Default()
	cfg.Events.JournalRetention = 48 * time.Hour
	pruner := &fakePruner{}
	d, err := New(cfg, &fakeJobs{}, WithJournal(pruner))
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer func() { _ = d.Stop(context.Background()) }()

	assert.ElementsMatch(t, []string{jobReconcile, jobAudit, jobPrune}, d.scheduler.JobNames())

	d.pruneJob(context.Background(), cfg.Events.JournalRetention)
	pruner.mu.Lock()
	defer pruner.mu.Unlock()
	require.Len(t, pruner.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), pruner.cutoffs[0], time.Minute)
}

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/observability"
)

// Task is a unit of scheduled work. The context is canceled when the
// scheduler stops.
type Task func(ctx context.Context)

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop cancels running tasks and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. Runs never overlap: a run that is
// still busy when the next one is due pushes that one back.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task Task) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("job %s: interval must be positive", name)
	}
	return s.schedule(name, gocron.DurationJob(interval), task)
}

// ScheduleCron runs task on a five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task Task) (string, error) {
	return s.schedule(name, gocron.CronJob(expr, false), task)
}

func (s *Scheduler) schedule(name string, def gocron.JobDefinition, task Task) (string, error) {
	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	slog.Debug("Scheduled job", logfields.JobName(name), logfields.JobID(job.ID().String()))
	return job.ID().String(), nil
}

// Remove unschedules the job with id. Unknown ids are ignored.
func (s *Scheduler) Remove(id string) {
	for _, job := range s.scheduler.Jobs() {
		if job.ID().String() == id {
			if err := s.scheduler.RemoveJob(job.ID()); err != nil {
				slog.Warn("Failed to remove job", logfields.JobID(id), logfields.Error(err))
			}
			return
		}
	}
}

// JobNames lists the scheduled job names.
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) run(name string, task Task) {
	start := time.Now()
	slog.Debug("Running scheduled job", logfields.JobName(name))
	task(observability.WithJob(s.ctx, name))
	slog.Debug("Scheduled job finished",
		logfields.JobName(name),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

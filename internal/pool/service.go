package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
	"git.home.luguber.info/inful/walletpool/internal/walletd"
)

const (
	// DefaultMaxClaimAttempts bounds how often Allocate retries a lost claim
	// before minting instead.
	DefaultMaxClaimAttempts = 3

	// DefaultConcurrency bounds parallel per-address reconciliation.
	DefaultConcurrency = 4
)

// Daemon is the wallet daemon as seen by the pool.
type Daemon interface {
	CreateAddress(ctx context.Context) (string, error)
	GetSpendKeys(ctx context.Context, addr string) (address.Keys, error)
	GetBalance(ctx context.Context, addr string) (walletd.Balance, error)
	GetAddresses(ctx context.Context) ([]string, error)
	DeleteAddress(ctx context.Context, addr string) error
}

var _ Daemon = (*walletd.Client)(nil)

// Service is the address allocator, reconciler and disabler.
type Service struct {
	store            address.Store
	daemon           Daemon
	clock            clock.Clock
	logger           *slog.Logger
	recorder         metrics.Recorder
	publisher        events.Publisher
	maxClaimAttempts int
	concurrency      int
	compensate       bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMaxClaimAttempts bounds claim retries. Values below 1 are ignored.
func WithMaxClaimAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxClaimAttempts = n
		}
	}
}

// WithConcurrency bounds parallel reconciliation. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCompensation controls whether a mint that cannot be recorded is undone
// with a daemon DeleteAddress.
func WithCompensation(enabled bool) Option {
	return func(s *Service) { s.compensate = enabled }
}

// New returns a Service over store and daemon.
func New(store address.Store, daemon Daemon, opts ...Option) *Service {
	s := &Service{
		store:            store,
		daemon:           daemon,
		clock:            clock.NewDefaultClock(),
		logger:           slog.Default(),
		recorder:         metrics.NoopRecorder{},
		publisher:        events.NoopPublisher{},
		maxClaimAttempts: DefaultMaxClaimAttempts,
		concurrency:      DefaultConcurrency,
		compensate:       true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// publish sends e and logs, but never returns, a delivery failure.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			slog.String("event_type", string(e.Type)),
			logfields.Address(e.Address),
			logfields.Error(err))
	}
}

// refreshFreeGauge reports the current free pool size to metrics.
func (s *Service) refreshFreeGauge(ctx context.Context) {
	free, err := s.GetFreeAddresses(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "Could not count free addresses", logfields.Error(err))
		return
	}
	s.recorder.SetFreeAddresses(len(free))
}

package config

import "time"

const (
	DefaultDaemonURL         = "http://127.0.0.1:8070"
	DefaultDaemonTimeout     = 10 * time.Second
	DefaultStorePath         = "./walletpool.db"
	DefaultMaxClaimAttempts  = 3
	DefaultReconcileInterval = 5 * time.Minute
	DefaultConcurrency       = 4
	DefaultAuditInterval     = time.Hour
	DefaultPrefillInterval   = 10 * time.Minute
	DefaultHTTPAddr          = ":8080"
	DefaultMaxConnections    = 256
	DefaultSubjectPrefix     = "walletpool"
	DefaultJournalRetention  = 30 * 24 * time.Hour
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.Daemon.URL == "" {
		c.Daemon.URL = DefaultDaemonURL
	}
	if c.Daemon.Timeout <= 0 {
		c.Daemon.Timeout = DefaultDaemonTimeout
	}
	if c.Daemon.RateLimit > 0 && c.Daemon.Burst <= 0 {
		c.Daemon.Burst = 1
	}
	if c.Daemon.Retry.Backoff == "" {
		c.Daemon.Retry.Backoff = RetryBackoffExponential
	} else {
		c.Daemon.Retry.Backoff = NormalizeRetryBackoff(string(c.Daemon.Retry.Backoff))
	}
	if c.Daemon.Retry.Initial <= 0 {
		c.Daemon.Retry.Initial = 200 * time.Millisecond
	}
	if c.Daemon.Retry.Max <= 0 {
		c.Daemon.Retry.Max = 2 * time.Second
	}

	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}

	if c.Allocation.MaxClaimAttempts <= 0 {
		c.Allocation.MaxClaimAttempts = DefaultMaxClaimAttempts
	}
	if c.Allocation.PrefillInterval <= 0 {
		c.Allocation.PrefillInterval = DefaultPrefillInterval
	}

	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = DefaultReconcileInterval
	}
	if c.Reconcile.Concurrency <= 0 {
		c.Reconcile.Concurrency = DefaultConcurrency
	}
	if c.Reconcile.AuditInterval <= 0 {
		c.Reconcile.AuditInterval = DefaultAuditInterval
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.MaxConnections <= 0 {
		c.HTTP.MaxConnections = DefaultMaxConnections
	}

	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Events.JournalRetention <= 0 {
		c.Events.JournalRetention = DefaultJournalRetention
	}

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

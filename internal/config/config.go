// Package config loads and validates the walletpool YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// Config represents the application configuration.
type Config struct {
	Daemon     DaemonConfig     `yaml:"daemon"`
	Store      StoreConfig      `yaml:"store"`
	Allocation AllocationConfig `yaml:"allocation"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	HTTP       HTTPConfig       `yaml:"http"`
	Events     EventsConfig     `yaml:"events"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DaemonConfig describes how to reach the wallet daemon's JSON-RPC endpoint.
type DaemonConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
	// RateLimit bounds outbound calls per second; 0 disables limiting.
	RateLimit float64     `yaml:"rate_limit"`
	Burst     int         `yaml:"burst"`
	Retry     RetryConfig `yaml:"retry"`
}

// RetryConfig configures transport-level retries of daemon calls.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// StoreConfig selects the SQLite database file. ":memory:" keeps everything in process.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AllocationConfig tunes the allocator.
type AllocationConfig struct {
	MaxClaimAttempts     int           `yaml:"max_claim_attempts"`
	CompensateFailedSave *bool         `yaml:"compensate_failed_save,omitempty"`
	PrefillTarget        int           `yaml:"prefill_target"`
	PrefillInterval      time.Duration `yaml:"prefill_interval"`
}

// ReconcileConfig schedules balance reconciliation and the drift audit.
// Cron takes precedence over Interval when both are set.
type ReconcileConfig struct {
	Interval      time.Duration `yaml:"interval"`
	Cron          string        `yaml:"cron,omitempty"`
	Concurrency   int           `yaml:"concurrency"`
	AuditInterval time.Duration `yaml:"audit_interval"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	MaxConnections int    `yaml:"max_connections"`
}

// EventsConfig configures lifecycle event publishing over NATS.
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	// JetStream publishes through a JetStream context and waits for the
	// stream acknowledgement instead of fire-and-forget core publishes.
	JetStream bool `yaml:"jetstream"`
	// Journal records every event in the SQLite database next to the
	// address store, independently of NATS.
	Journal          bool          `yaml:"journal"`
	JournalRetention time.Duration `yaml:"journal_retention"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// CompensationEnabled reports whether a failed save after minting triggers a daemon delete.
func (a AllocationConfig) CompensationEnabled() bool {
	return a.CompensateFailedSave == nil || *a.CompensateFailedSave
}

// Load reads configPath, expands ${VAR} references and applies defaults.
// Variables from .env and .env.local are loaded first without overriding the
// process environment.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML content, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads .env and .env.local when present. godotenv.Load never
// overrides variables that are already set.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", envPath, err)
		}
	}
}

// Init writes a configuration file populated with defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	cfg := Default()
	cfg.Daemon.Password = "${WALLETD_RPC_PASSWORD}"
	cfg.Events.Journal = true
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to render default config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}

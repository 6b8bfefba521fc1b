package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("daemon:\n  url: http://walletd:8070\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://walletd:8070", cfg.Daemon.URL)
	assert.Equal(t, DefaultDaemonTimeout, cfg.Daemon.Timeout)
	assert.Equal(t, RetryBackoffExponential, cfg.Daemon.Retry.Backoff)
	assert.Equal(t, DefaultMaxClaimAttempts, cfg.Allocation.MaxClaimAttempts)
	assert.True(t, cfg.Allocation.CompensationEnabled())
	assert.Equal(t, DefaultReconcileInterval, cfg.Reconcile.Interval)
	assert.Equal(t, DefaultConcurrency, cfg.Reconcile.Concurrency)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, DefaultSubjectPrefix, cfg.Events.SubjectPrefix)
}

func TestParseExplicitValues(t *testing.T) {
	raw := `
daemon:
  url: https://walletd.internal:8070
  timeout: 3s
  rate_limit: 20
  retry:
    backoff: LINEAR
    initial: 100ms
    max: 1s
    max_retries: 4
allocation:
  max_claim_attempts: 5
  compensate_failed_save: false
  prefill_target: 10
reconcile:
  cron: "*/5 * * * *"
  concurrency: 8
logging:
  level: DEBUG
  format: json
`
	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Daemon.Timeout)
	assert.Equal(t, 1, cfg.Daemon.Burst)
	assert.Equal(t, RetryBackoffLinear, cfg.Daemon.Retry.Backoff)
	assert.Equal(t, 4, cfg.Daemon.Retry.MaxRetries)
	assert.Equal(t, 5, cfg.Allocation.MaxClaimAttempts)
	assert.False(t, cfg.Allocation.CompensationEnabled())
	assert.Equal(t, 10, cfg.Allocation.PrefillTarget)
	assert.Equal(t, "*/5 * * * *", cfg.Reconcile.Cron)
	assert.Equal(t, 8, cfg.Reconcile.Concurrency)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"relative url":     "daemon:\n  url: walletd\n",
		"bad scheme":       "daemon:\n  url: ftp://walletd\n",
		"unknown backoff":  "daemon:\n  retry:\n    backoff: random\n",
		"negative prefill": "allocation:\n  prefill_target: -1\n",
		"events no url":    "events:\n  enabled: true\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
		})
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WALLETPOOL_TEST_PASSWORD", "hunter2")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("daemon:\n  password: ${WALLETPOOL_TEST_PASSWORD}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Daemon.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemonURL, cfg.Daemon.URL)
	assert.Equal(t, DefaultDaemonTimeout, cfg.Daemon.Timeout)
	assert.True(t, cfg.Events.Journal)
	assert.Equal(t, DefaultJournalRetention, cfg.Events.JournalRetention)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

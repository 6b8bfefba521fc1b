package config

import (
	"net/url"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Daemon.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ValidationError("daemon.url must be an absolute URL").
			WithContext("field", "daemon.url").
			WithContext("value", c.Daemon.URL).
			Build()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.ValidationError("daemon.url must use http or https").
			WithContext("field", "daemon.url").
			Build()
	}
	if c.Daemon.RateLimit < 0 {
		return errors.ValidationError("daemon.rate_limit cannot be negative").
			WithContext("field", "daemon.rate_limit").
			Build()
	}
	if c.Daemon.Retry.Backoff == "" {
		return errors.ValidationError("daemon.retry.backoff must be fixed, linear or exponential").
			WithContext("field", "daemon.retry.backoff").
			Build()
	}
	if c.Daemon.Retry.MaxRetries < 0 {
		return errors.ValidationError("daemon.retry.max_retries cannot be negative").
			WithContext("field", "daemon.retry.max_retries").
			Build()
	}
	if c.Allocation.PrefillTarget < 0 {
		return errors.ValidationError("allocation.prefill_target cannot be negative").
			WithContext("field", "allocation.prefill_target").
			Build()
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return errors.ValidationError("events.nats_url is required when events are enabled").
			WithContext("field", "events.nats_url").
			Build()
	}
	return nil
}

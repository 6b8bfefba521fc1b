package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// NATSPublisher publishes events as JSON to "<prefix>.<type>".
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, errors.ConfigError("event publishing is disabled").Build()
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("walletpool"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Retryable().
			Build()
	}

	p := &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(cfg.SubjectPrefix, ".")}
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, errors.WrapError(err, errors.CategoryEvents, "failed to create JetStream context").Build()
		}
		p.js = js
	}

	slog.Info("NATS event publisher initialized",
		"url", cfg.NATSURL,
		"subject_prefix", p.prefix,
		"jetstream", cfg.JetStream)
	return p, nil
}

// Subject returns the subject an event of type t is published on.
func (p *NATSPublisher) Subject(t Type) string {
	return Subject(p.prefix, t)
}

// Subject joins prefix and event type.
func Subject(prefix string, t Type) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}

// Publish sends e.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to marshal event").Build()
	}

	subject := p.Subject(e.Type)
	if p.js != nil {
		_, err = p.js.Publish(ctx, subject, data)
	} else {
		err = p.conn.Publish(subject, data)
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to publish event").
			WithContext("subject", subject).
			Build()
	}

	slog.Debug("Published event", "subject", subject, "event_id", e.ID)
	return nil
}

// Healthy reports whether the connection is usable.
func (p *NATSPublisher) Healthy() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

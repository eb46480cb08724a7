package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NatsConfig holds the NATS connection settings
type NatsConfig struct {
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
}

// NatsEmitter publishes events on core NATS subjects
// <prefix>.idea.<status>.
type NatsEmitter struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// NewNatsEmitter connects to the server in cfg
func NewNatsEmitter(cfg NatsConfig, log zerolog.Logger) (*NatsEmitter, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "nuggets"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.With().Str("component", "events").Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("nugget-pipeline"),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", cfg.URL).Str("prefix", cfg.SubjectPrefix).Msg("Connected to NATS")
	return &NatsEmitter{conn: nc, prefix: cfg.SubjectPrefix, log: log}, nil
}

// Subject returns the subject an event is published on
func Subject(prefix string, ev LifecycleEvent) string {
	return fmt.Sprintf("%s.idea.%s", prefix, ev.To)
}

// Emit publishes ev; the connection buffers while reconnecting
func (e *NatsEmitter) Emit(ctx context.Context, ev LifecycleEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := e.conn.Publish(Subject(e.prefix, ev), data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Slug, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (e *NatsEmitter) Close() error {
	if err := e.conn.Drain(); err != nil {
		e.conn.Close()
		return err
	}
	return nil
}

var (
	_ Emitter = (*NatsEmitter)(nil)
	_ Emitter = NopEmitter{}
)

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"cardkey-service/internal/config"
	"cardkey-service/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*NATSPublisher)(nil)

// NATSPublisher sends verification events as JSON on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *zerolog.Logger
}

// NewPublisher connects to NATS when a URL is configured and falls back to a
// no-op publisher otherwise.
func NewPublisher(cfg config.EventsConfig, logger *zerolog.Logger) (adapter.EventPublisher, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("cardkey-service"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrlRedacted()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: cfg.Subject, log: logger}, nil
}

func (p *NATSPublisher) PublishVerification(ctx context.Context, ev adapter.VerificationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishVerification(context.Context, adapter.VerificationEvent) error { return nil }
func (Noop) Close() error                                                         { return nil }

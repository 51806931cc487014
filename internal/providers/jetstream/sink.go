// Package jetstream publishes feed envelopes to NATS JetStream so other
// services can consume the price change stream without holding an HTTP
// connection open.
package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
)

// Config holds the configuration for the NATS JetStream connection
type Config struct {
	URL            string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// Sink publishes feed envelopes onto JetStream subjects.
type Sink struct {
	nc            adapter.NatsConn
	js            adapter.JetStream
	json          adapter.JSON
	subjectPrefix string
}

var _ feed.Sink = (*Sink)(nil)

// NewSink connects to NATS and returns a JetStream-backed feed sink.
func NewSink(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (*Sink, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "catalog.changes"
	}

	return &Sink{
		nc:            nc,
		js:            js,
		json:          jsonAdapter,
		subjectPrefix: prefix,
	}, nil
}

// Send publishes one envelope. The subject carries the envelope type, e.g.
// catalog.changes.price_change.
func (s *Sink) Send(ctx context.Context, envelope feed.Envelope) error {
	data, err := s.json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, envelope.Type)
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (s *Sink) Close() {
	if s.nc == nil {
		return
	}
	s.nc.Close()
}

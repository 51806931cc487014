// Package feed turns the derived price change stream into a push feed.
// A publisher polls the change source on a fixed interval and emits typed
// envelopes to a sink; each subscriber runs its own publisher loop so one
// slow or canceled subscriber never affects another.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
)

// Envelope event types.
const (
	TypeConnected   = "connected"
	TypePriceChange = "price_change"
	TypeHeartbeat   = "heartbeat"
	TypeError       = "error"
)

// Envelope is one feed message. Data is set for price_change events,
// Message for connected and error events. ID is a ulid minted from the
// envelope timestamp so subscribers can order and dedupe events.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives envelopes. A send error ends the subscriber loop.
type Sink interface {
	Send(ctx context.Context, envelope Envelope) error
}

// ChangeSource supplies derived price changes for a time window.
type ChangeSource interface {
	ProductChanges(ctx context.Context, start, end time.Time, limit int) ([]domain.PriceChange, error)
}

// Config holds publisher timing parameters.
type Config struct {
	// PollInterval is the delay between window queries
	PollInterval time.Duration
	// Window is the trailing lookback of each query
	Window time.Duration
	// Limit caps the events emitted per poll, 0 means unlimited
	Limit int
}

// Publisher drives one subscriber's feed loop.
type Publisher struct {
	source ChangeSource
	clock  adapter.Clock
	config Config
}

// NewPublisher creates a feed publisher over the given change source.
func NewPublisher(source ChangeSource, clock adapter.Clock, config Config) *Publisher {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Window <= 0 {
		config.Window = 30 * time.Second
	}
	return &Publisher{
		source: source,
		clock:  clock,
		config: config,
	}
}

// Run emits a connected envelope, then polls the change source until ctx is
// canceled. Query failures produce an error envelope and the loop carries
// on; a sink failure ends the loop since the subscriber is gone.
func (p *Publisher) Run(ctx context.Context, sink Sink) error {
	connected := p.envelope(TypeConnected, p.clock.Now())
	connected.Message = "price feed connected"
	if err := sink.Send(ctx, connected); err != nil {
		return fmt.Errorf("failed to send connected envelope: %w", err)
	}

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Feed subscriber disconnected", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
			if err := p.poll(ctx, sink); err != nil {
				return err
			}
		}
	}
}

// poll runs one window query and pushes the resulting envelopes. The
// returned error is always a sink failure.
func (p *Publisher) poll(ctx context.Context, sink Sink) error {
	now := p.clock.Now()
	events, err := p.source.ProductChanges(ctx, now.Add(-p.config.Window), now, p.config.Limit)
	if err != nil {
		logger.ErrorCtx(ctx, err)
		failure := p.envelope(TypeError, now)
		failure.Message = "failed to load price changes"
		if sendErr := sink.Send(ctx, failure); sendErr != nil {
			return fmt.Errorf("failed to send error envelope: %w", sendErr)
		}
		return nil
	}

	for _, event := range events {
		change := p.envelope(TypePriceChange, now)
		change.Data = event
		if err := sink.Send(ctx, change); err != nil {
			return fmt.Errorf("failed to send price change envelope: %w", err)
		}
	}

	if err := sink.Send(ctx, p.envelope(TypeHeartbeat, now)); err != nil {
		return fmt.Errorf("failed to send heartbeat envelope: %w", err)
	}
	return nil
}

func (p *Publisher) envelope(eventType string, at time.Time) Envelope {
	return Envelope{
		ID:        ulid.MustNewDefault(at).String(),
		Type:      eventType,
		Timestamp: at,
	}
}

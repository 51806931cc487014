package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
)

type fakeSource struct {
	mu     sync.Mutex
	events []domain.PriceChange
	err    error
	calls  int
}

func (f *fakeSource) ProductChanges(ctx context.Context, start, end time.Time, limit int) ([]domain.PriceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type captureSink struct {
	mu        sync.Mutex
	envelopes []Envelope
	failAfter int
}

func (s *captureSink) Send(ctx context.Context, envelope Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.envelopes) >= s.failAfter {
		return errors.New("subscriber gone")
	}
	s.envelopes = append(s.envelopes, envelope)
	return nil
}

func (s *captureSink) snapshot() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.envelopes))
	copy(out, s.envelopes)
	return out
}

func testConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		Window:       30 * time.Second,
	}
}

func runBriefly(t *testing.T, p *Publisher, sink Sink, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, sink) }()
	select {
	case err := <-done:
		return err
	case <-time.After(d + time.Second):
		t.Fatal("publisher did not exit on context cancellation")
		return nil
	}
}

func TestRunEmitsConnectedFirst(t *testing.T) {
	source := &fakeSource{}
	sink := &captureSink{}
	p := NewPublisher(source, adapter.NewClock(), testConfig())

	require.NoError(t, runBriefly(t, p, sink, 50*time.Millisecond))

	envelopes := sink.snapshot()
	require.NotEmpty(t, envelopes)
	assert.Equal(t, TypeConnected, envelopes[0].Type)
	assert.Equal(t, "price feed connected", envelopes[0].Message)
	assert.NotEmpty(t, envelopes[0].ID)
}

func TestRunEmitsPriceChangesAndHeartbeats(t *testing.T) {
	change := domain.PriceChange{
		ProductID:        "p1",
		ProductName:      "Widget",
		ProviderName:     "ecommerce",
		OldPrice:         decimal.RequireFromString("10"),
		NewPrice:         decimal.RequireFromString("12"),
		Currency:         "USD",
		ChangePercentage: decimal.RequireFromString("20"),
		Timestamp:        time.Now(),
	}
	source := &fakeSource{events: []domain.PriceChange{change}}
	sink := &captureSink{}
	p := NewPublisher(source, adapter.NewClock(), testConfig())

	require.NoError(t, runBriefly(t, p, sink, 60*time.Millisecond))

	var sawChange, sawHeartbeat bool
	for _, e := range sink.snapshot() {
		switch e.Type {
		case TypePriceChange:
			sawChange = true
			got, ok := e.Data.(domain.PriceChange)
			require.True(t, ok)
			assert.Equal(t, "Widget", got.ProductName)
		case TypeHeartbeat:
			sawHeartbeat = true
		}
	}
	assert.True(t, sawChange)
	assert.True(t, sawHeartbeat)
}

func TestRunEmitsErrorEnvelopeAndContinues(t *testing.T) {
	source := &fakeSource{}
	source.setErr(errors.New("db down"))
	sink := &captureSink{}
	p := NewPublisher(source, adapter.NewClock(), testConfig())

	require.NoError(t, runBriefly(t, p, sink, 60*time.Millisecond))

	var errCount int
	for _, e := range sink.snapshot() {
		if e.Type == TypeError {
			errCount++
		}
	}
	// the loop survived the failure and kept polling
	assert.GreaterOrEqual(t, errCount, 2)
}

func TestRunStopsOnSinkFailure(t *testing.T) {
	source := &fakeSource{}
	sink := &captureSink{failAfter: 1}
	p := NewPublisher(source, adapter.NewClock(), testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := p.Run(ctx, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscriber gone")
}

func TestRunExitsCleanlyOnCancel(t *testing.T) {
	source := &fakeSource{}
	sink := &captureSink{}
	p := NewPublisher(source, adapter.NewClock(), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, sink) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publisher did not exit")
	}
}

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pricewatch/catalog-aggregator/internal/feed"
)

// sseSink writes feed envelopes to one HTTP response in the text/event-stream
// framing. It is bound to a single subscriber connection.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher}
}

func (s *sseSink) Send(ctx context.Context, envelope feed.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", envelope.Type, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

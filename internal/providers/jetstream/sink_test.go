package jetstream

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
)

type fakeConn struct{ closed bool }

func (c *fakeConn) Close()               { c.closed = true }
func (c *fakeConn) LastError() error     { return nil }
func (c *fakeConn) ConnectedUrl() string { return "nats://test" }

type fakeJetStream struct {
	subjects []string
	payloads [][]byte
}

func (j *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	j.subjects = append(j.subjects, subject)
	j.payloads = append(j.payloads, data)
	return &natsjs.PubAck{}, nil
}

type fakeNatsJetStream struct {
	conn *fakeConn
	js   *fakeJetStream
}

func (f *fakeNatsJetStream) Connect(url string, options ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	return f.conn, f.js, nil
}

func TestSendPublishesTypedSubject(t *testing.T) {
	js := &fakeJetStream{}
	natsJS := &fakeNatsJetStream{conn: &fakeConn{}, js: js}

	sink, err := NewSink(Config{URL: "nats://test"}, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	envelope := feed.Envelope{
		Type:      feed.TypePriceChange,
		Message:   "",
		Timestamp: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sink.Send(context.Background(), envelope))

	require.Len(t, js.subjects, 1)
	assert.Equal(t, "catalog.changes.price_change", js.subjects[0])
	assert.Contains(t, string(js.payloads[0]), `"type":"price_change"`)
}

func TestCloseClosesConnection(t *testing.T) {
	conn := &fakeConn{}
	natsJS := &fakeNatsJetStream{conn: conn, js: &fakeJetStream{}}

	sink, err := NewSink(Config{URL: "nats://test", SubjectPrefix: "feed"}, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	sink.Close()
	assert.True(t, conn.closed)
}

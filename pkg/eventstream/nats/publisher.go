// Package nats publishes ingestion events to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
)

// Conn is the subset of *natsgo.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *natsgo.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Config holds configuration for the NATS publisher.
type Config struct {
	URL     string
	Subject string
}

// Publisher publishes one message per event.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher connects to NATS.
func NewPublisher(c Config) (*Publisher, error) {
	if c.Subject == "" {
		return nil, errors.New("nats subject is required")
	}
	url := c.URL
	if url == "" {
		url = natsgo.DefaultURL
	}

	nc, err := natsgo.Connect(url, natsgo.Name("dynrag"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return NewPublisherWithConn(nc, c.Subject), nil
}

// NewPublisherWithConn wraps an existing connection.
func NewPublisherWithConn(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier natsgo.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(natsgo.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// PublishIngestion encodes the event as JSON, injects trace context into the
// headers and waits for the server to acknowledge the flush.
func (p *Publisher) PublishIngestion(ctx context.Context, event *eventstream.IngestionEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestionEvent
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ingestion event: %w", err)
	}

	msg := &natsgo.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  natsgo.Header{},
	}
	msg.Header.Set("Event-Type", event.EventType)
	msg.Header.Set(natsgo.MsgIdHdr, event.EventID)
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish nats message: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats connection: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

var _ eventstream.Publisher = (*Publisher)(nil)

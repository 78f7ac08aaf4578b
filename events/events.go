// Package events publishes completed warranty lookups to NATS with
// OpenTelemetry trace context in the message headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// LookupCompleted is the message body published for each finished lookup.
type LookupCompleted struct {
	Record      *models.WarrantyRecord `json:"record"`
	CompletedAt time.Time              `json:"completed_at"`
}

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSPublisher publishes LookupCompleted messages on one subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	owned   bool
	now     func() time.Time
}

// NewNATSPublisher publishes on an existing connection. The caller keeps
// ownership of nc.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject, now: time.Now}
}

// Connect dials url and returns a publisher that closes the connection on
// Close.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("warrantyd"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, subject)
	p.owned = true
	return p, nil
}

// Publish sends rec. Trace context from ctx is injected into the headers.
func (p *NATSPublisher) Publish(ctx context.Context, rec *models.WarrantyRecord) error {
	data, err := json.Marshal(LookupCompleted{Record: rec, CompletedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", p.subject, err)
	}
	return nil
}

// Subscribe decodes LookupCompleted messages and hands them to fn with the
// publisher's trace context. Malformed messages are dropped.
func Subscribe(nc *nats.Conn, subject string, fn func(context.Context, LookupCompleted)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev LookupCompleted
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		fn(ctx, ev)
	})
}

// Close drains the connection if the publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

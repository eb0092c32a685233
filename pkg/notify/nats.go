package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSTransport publishes notifications as JSON to <prefix>.<severity>
type NATSTransport struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSTransport publishes over an existing connection
func NewNATSTransport(nc *nats.Conn, prefix string) *NATSTransport {
	return &NATSTransport{nc: nc, prefix: prefix}
}

// DialNATS connects to the NATS server at url and returns a transport that owns the connection
func DialNATS(url, prefix string) (*NATSTransport, error) {
	nc, err := nats.Connect(url, nats.Name("maintenanced"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSTransport{nc: nc, prefix: prefix, owned: true}, nil
}

// Subject returns the subject notifications of the given severity are published on
func (t *NATSTransport) Subject(severity models.NotificationSeverity) string {
	return t.prefix + "." + string(severity)
}

// Deliver publishes the notification. Trace context from ctx is injected into
// the message headers.
func (t *NATSTransport) Deliver(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	msg := &nats.Msg{
		Subject: t.Subject(n.Severity),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := t.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}
	return nil
}

// Close drains the connection if the transport opened it
func (t *NATSTransport) Close() error {
	if !t.owned {
		return nil
	}
	return t.nc.Drain()
}

// Subscribe registers a handler for notifications published on subject.
// Trace context is extracted from the message headers. Malformed messages are dropped.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, models.Notification)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var n models.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, n)
	})
}

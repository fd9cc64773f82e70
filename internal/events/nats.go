package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSConn is the subset of *nats.Conn used by NATSPublisher.
type NATSConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes each event on "<prefix>.<event type>".
type NATSPublisher struct {
	conn   NATSConn
	prefix string
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn NATSConn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "shopfront"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// DialNATS connects to url and returns a publisher on the connection.
func DialNATS(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("shopfront"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSPublisher(nc, prefix), nil
}

// Subject returns the subject an event of eventType is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := event.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

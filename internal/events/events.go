// Package events publishes storefront domain events to a message broker.
//
// Events are notifications only. Publishing happens after the change is
// persisted and a publish failure never rolls the change back.
package events

//go:generate mockgen -source=events.go -destination=mock_publisher.go -package=events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types.
const (
	CartItemAdded   = "cart.item_added"
	CartItemUpdated = "cart.item_updated"
	CartItemRemoved = "cart.item_removed"
	CartCleared     = "cart.cleared"

	CategoryCreated = "catalog.category_created"
	CategoryDeleted = "catalog.category_deleted"
	ProductCreated  = "catalog.product_created"
	ProductDeleted  = "catalog.product_deleted"
	SKUCreated      = "catalog.sku_created"
	SKUDeleted      = "catalog.sku_deleted"
)

// Event is a single notification. Key groups related events for ordering,
// typically the session ID or the entity ID.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// New creates an event stamped with the current time.
func New(eventType, key string, data any) Event {
	return Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Encode returns the JSON wire form of e.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

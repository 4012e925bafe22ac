// Package events defines the order and waiter-call notifications fanned out
// to the kitchen feed.
package events

import (
	"context"
	"time"

	"dineflow/internal/logger"
	"dineflow/internal/models"
)

type Type string

const (
	OrderCreated      Type = "order.created"
	OrderUpdated      Type = "order.updated"
	WaiterCallCreated Type = "waiter_call.created"
	WaiterCallUpdated Type = "waiter_call.updated"
)

type Event struct {
	Type       Type               `json:"type"`
	TenantID   string             `json:"tenantId"`
	Order      *models.Order      `json:"order,omitempty"`
	WaiterCall *models.WaiterCall `json:"waiterCall,omitempty"`
	At         time.Time          `json:"at"`
}

func ForOrder(t Type, o *models.Order) Event {
	return Event{Type: t, TenantID: o.TenantID, Order: o, At: time.Now().UTC()}
}

func ForWaiterCall(t Type, c *models.WaiterCall) Event {
	return Event{Type: t, TenantID: c.TenantID, WaiterCall: c, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every target and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishQuietly logs publish failures instead of returning them. Events are
// sent after the write has committed, so a failure must not fail the request.
func PublishQuietly(ctx context.Context, p Publisher, log *logger.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("EVENTS", "failed to publish "+string(e.Type)+": "+err.Error())
	}
}

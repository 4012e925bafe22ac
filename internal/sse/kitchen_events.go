package sse

import (
	"context"
	"sync"

	"dineflow/internal/events"
)

// KitchenEventEmitter broadcasts events to the kitchen screens of one tenant.
type KitchenEventEmitter struct {
	clients map[string][]chan events.Event
	mu      sync.RWMutex
}

func NewKitchenEventEmitter() *KitchenEventEmitter {
	return &KitchenEventEmitter{
		clients: make(map[string][]chan events.Event),
	}
}

// Subscribe registers a client until ctx is done. The returned channel is
// closed on removal.
func (e *KitchenEventEmitter) Subscribe(ctx context.Context, tenantID string) <-chan events.Event {
	clientChan := make(chan events.Event, 16)

	e.mu.Lock()
	e.clients[tenantID] = append(e.clients[tenantID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(tenantID, clientChan)
	}()

	return clientChan
}

// Publish implements events.Publisher.
func (e *KitchenEventEmitter) Publish(_ context.Context, ev events.Event) error {
	e.Emit(ev)
	return nil
}

// Emit never blocks; slow clients miss events.
func (e *KitchenEventEmitter) Emit(ev events.Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[ev.TenantID] {
		select {
		case clientChan <- ev:
		default:
		}
	}
}

func (e *KitchenEventEmitter) remove(tenantID string, clientChan chan events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[tenantID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[tenantID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[tenantID]) == 0 {
		delete(e.clients, tenantID)
	}
}

func (e *KitchenEventEmitter) ClientCount(tenantID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[tenantID])
}

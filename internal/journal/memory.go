package journal

import (
	"context"
	"sync"
)

// Memory is the in-process journal backend, used in tests and single-node
// runs without postgres.
type Memory struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) List(ctx context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	// Newest first.
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if f.User != "" && e.User != f.User {
			continue
		}
		if f.Asset != "" && e.Asset != f.Asset {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) PendingDeliveries(ctx context.Context) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == EventPendingDelivery && e.Status == DeliveryPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ResolveDelivery(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id && m.events[i].Type == EventPendingDelivery && m.events[i].Status == DeliveryPending {
			m.events[i].Status = DeliveryResolved
			return nil
		}
	}
	return ErrNotFound
}

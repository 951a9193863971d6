package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasksync/internal/events"
)

// MockPublisher implements events.Publisher and records every event it receives.
type MockPublisher struct {
	PublishFn func(ctx context.Context, event events.TaskEvent)

	mu     sync.Mutex
	events []events.TaskEvent
}

var _ events.Publisher = (*MockPublisher)(nil)

// Publish implements the Publisher interface
func (m *MockPublisher) Publish(ctx context.Context, event events.TaskEvent) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.PublishFn != nil {
		m.PublishFn(ctx, event)
	}
}

// Events returns the published events in order.
func (m *MockPublisher) Events() []events.TaskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.TaskEvent(nil), m.events...)
}

// RoutingKeys returns the routing keys of the published events in order.
func (m *MockPublisher) RoutingKeys() []string {
	evs := m.Events()
	keys := make([]string, len(evs))
	for i, e := range evs {
		keys[i] = e.RoutingKey()
	}
	return keys
}

// Reset forgets all recorded events.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	// Function fields for customizable behavior
	FindAllFn  func(ctx context.Context) ([]*domain.Task, error)
	FindByIDFn func(ctx context.Context, id string) (*domain.Task, error)
	InsertFn   func(ctx context.Context, task *domain.Task) error
	ReplaceFn  func(ctx context.Context, task *domain.Task) error
	DeleteFn   func(ctx context.Context, id string) error
	PingFn     func(ctx context.Context) error

	mu    sync.Mutex
	tasks map[string]*domain.Task
	order []string
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a mock store backed by an empty in-memory collection.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	m := &MockTaskStore{tasks: make(map[string]*domain.Task)}
	for _, t := range tasks {
		m.tasks[t.ID] = t.Clone()
		m.order = append(m.order, t.ID)
	}
	return m
}

// Tasks returns copies of the stored tasks in insertion order.
func (m *MockTaskStore) Tasks() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].Clone())
	}
	return out
}

// FindAll implements the TaskStore interface
func (m *MockTaskStore) FindAll(ctx context.Context) ([]*domain.Task, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	return m.Tasks(), nil
}

// FindByID implements the TaskStore interface
func (m *MockTaskStore) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t.Clone(), nil
}

// Insert implements the TaskStore interface
func (m *MockTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrTaskExists
	}
	m.tasks[task.ID] = task.Clone()
	m.order = append(m.order, task.ID)
	return nil
}

// Replace implements the TaskStore interface
func (m *MockTaskStore) Replace(ctx context.Context, task *domain.Task) error {
	if m.ReplaceFn != nil {
		return m.ReplaceFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; !exists {
		return store.ErrTaskNotFound
	}
	m.tasks[task.ID] = task.Clone()
	return nil
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[id]; !exists {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping implements the TaskStore interface
func (m *MockTaskStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

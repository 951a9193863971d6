package store

import (
	"context"

	"github.com/phrazzld/tasksync/internal/domain"
)

// TaskStore defines the interface for task document persistence.
// Each method is a single store operation; implementations do no locking,
// so concurrent writes to the same ID are last-writer-wins.
type TaskStore interface {
	// FindAll returns every task in store-native order.
	// Returns an empty slice if the collection is empty.
	FindAll(ctx context.Context) ([]*domain.Task, error)

	// FindByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// Insert saves a new task.
	// Returns ErrTaskExists if a task with the same ID is already stored.
	Insert(ctx context.Context, task *domain.Task) error

	// Replace overwrites the task with the same ID wholesale.
	// Returns ErrTaskNotFound if no task matched.
	Replace(ctx context.Context, task *domain.Task) error

	// Delete removes the task with the given ID.
	// Returns ErrTaskNotFound if no task matched.
	Delete(ctx context.Context, id string) error

	// Ping verifies that the store is reachable.
	Ping(ctx context.Context) error
}

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/store"
)

// UpdateTaskParams holds the optional fields of an update. Nil fields keep
// their stored value.
type UpdateTaskParams struct {
	Description *string
	IsCompleted *bool
}

// TaskService provides task operations. Every successful mutation publishes
// exactly one event after the store acknowledges the write; failed mutations
// publish nothing. Publish failures are never reported to the caller.
type TaskService interface {
	// ListTasks returns all tasks in store order.
	ListTasks(ctx context.Context) ([]*domain.Task, error)

	// GetTask returns the task with the given ID or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// CreateTask stores a new incomplete task and publishes task.created.
	CreateTask(ctx context.Context, description string) (*domain.Task, error)

	// UpdateTask applies params to the stored task and saves it.
	UpdateTask(ctx context.Context, id string, params UpdateTaskParams) (*domain.Task, error)

	// DeleteTask removes the task with the given ID.
	DeleteTask(ctx context.Context, id string) error

	// SaveTask replaces the stored task wholesale and publishes task.completed
	// if the task is completed, task.updated otherwise.
	SaveTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// RemoveTask deletes the task and publishes task.deleted carrying the
	// given task's description.
	RemoveTask(ctx context.Context, task *domain.Task) error
}

// Option configures a TaskService.
type Option func(*taskServiceImpl)

// WithClock sets the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks     store.TaskStore
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	publisher events.Publisher,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "task store cannot be nil",
		}
	}
	if publisher == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "publisher cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:     tasks,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "task_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// ListTasks returns all tasks in store order.
func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.tasks.FindAll(ctx)
	if err != nil {
		s.log(ctx).Error("failed to list tasks", "error", err)
		return nil, NewTaskServiceError("list_tasks", "failed to retrieve tasks", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by its ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewTaskServiceError("get_task", "invalid task ID", domain.ErrEmptyTaskID)
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.log(ctx).Debug("task not found", "task_id", id)
		} else {
			s.log(ctx).Error("failed to retrieve task", "error", err, "task_id", id)
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// CreateTask creates a new task with a fresh ID, inserts it, then publishes task.created.
func (s *taskServiceImpl) CreateTask(ctx context.Context, description string) (*domain.Task, error) {
	log := s.log(ctx)

	task, err := domain.NewTask(description)
	if err != nil {
		log.Debug("rejected invalid task", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.tasks.Insert(ctx, task); err != nil {
		log.Error("failed to insert task", "error", err, "task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created", "task_id", task.ID)
	s.publisher.Publish(ctx, events.NewTaskCreated(task, s.now()))

	return task, nil
}

// UpdateTask loads the task, merges params into it and saves it.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id string,
	params UpdateTaskParams,
) (*domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.IsCompleted != nil {
		task.IsCompleted = *params.IsCompleted
	}

	return s.SaveTask(ctx, task)
}

// SaveTask replaces the stored task with the same ID, then publishes
// task.completed or task.updated. The caller's task is returned unchanged.
func (s *taskServiceImpl) SaveTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := s.log(ctx)

	if task == nil {
		return nil, NewTaskServiceError("save_task", "task cannot be nil", domain.ErrValidation)
	}
	if err := task.Validate(); err != nil {
		return nil, NewTaskServiceError("save_task", "invalid task", err)
	}

	if err := s.tasks.Replace(ctx, task); err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("task to save not found", "task_id", task.ID)
		} else {
			log.Error("failed to replace task", "error", err, "task_id", task.ID)
		}
		return nil, NewTaskServiceError("save_task", "failed to save task", err)
	}

	log.Info("task saved", "task_id", task.ID, "is_completed", task.IsCompleted)
	s.publisher.Publish(ctx, events.NewTaskUpdated(task, s.now()))

	return task, nil
}

// DeleteTask loads the task to capture its description, then removes it.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return s.RemoveTask(ctx, task)
}

// RemoveTask deletes the task by ID, then publishes task.deleted with the
// task's last-known state.
func (s *taskServiceImpl) RemoveTask(ctx context.Context, task *domain.Task) error {
	log := s.log(ctx)

	if task == nil {
		return NewTaskServiceError("remove_task", "task cannot be nil", domain.ErrValidation)
	}
	if strings.TrimSpace(task.ID) == "" {
		return NewTaskServiceError("remove_task", "invalid task ID", domain.ErrEmptyTaskID)
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("task to remove not found", "task_id", task.ID)
		} else {
			log.Error("failed to delete task", "error", err, "task_id", task.ID)
		}
		return NewTaskServiceError("remove_task", "failed to delete task", err)
	}

	log.Info("task removed", "task_id", task.ID)
	s.publisher.Publish(ctx, events.NewTaskDeleted(task, s.now()))

	return nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/redact"
	"github.com/phrazzld/tasksync/internal/store"
)

// MongoTaskStore implements store.TaskStore over a single collection of
// {_id, description, isCompleted} documents.
type MongoTaskStore struct {
	coll   Collection
	pinger Pinger
	logger *slog.Logger
}

var _ store.TaskStore = (*MongoTaskStore)(nil)

// NewMongoTaskStore creates a MongoTaskStore. pinger may be nil, in which case
// Ping always succeeds.
func NewMongoTaskStore(coll Collection, pinger Pinger, log *slog.Logger) *MongoTaskStore {
	if log == nil {
		log = slog.Default()
	}
	return &MongoTaskStore{
		coll:   coll,
		pinger: pinger,
		logger: log.With("component", "mongo_task_store"),
	}
}

func byID(id string) bson.M {
	return bson.M{"_id": id}
}

// FindAll returns every task in natural collection order.
func (s *MongoTaskStore) FindAll(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		log.Error("failed to query tasks", "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_all", "query failed", MapError(err))
	}
	defer func() { _ = cur.Close(ctx) }()

	tasks := make([]*domain.Task, 0)
	for cur.Next(ctx) {
		var task domain.Task
		if err := cur.Decode(&task); err != nil {
			log.Error("failed to decode task document", "error", err)
			return nil, store.NewStoreError("task", "find_all", "decode failed", MapError(err))
		}
		tasks = append(tasks, &task)
	}

	if err := cur.Err(); err != nil {
		log.Error("error iterating task documents", "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_all", "cursor failed", MapError(err))
	}

	return tasks, nil
}

// FindByID returns the task with the given ID or store.ErrTaskNotFound.
func (s *MongoTaskStore) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task domain.Task
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&task); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			log.Debug("task not found", "task_id", id)
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", "task_id", id, "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_by_id", "query failed", mapped)
	}

	return &task, nil
}

// Insert adds a new task document. A task whose ID is already stored yields
// store.ErrTaskExists.
func (s *MongoTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrDuplicate) {
			log.Warn("task already exists", "task_id", task.ID)
			return store.ErrTaskExists
		}
		log.Error("failed to insert task", "task_id", task.ID, "error", redact.Error(err))
		return store.NewStoreError("task", "insert", "insert failed", mapped)
	}

	log.Debug("task inserted", "task_id", task.ID)
	return nil
}

// Replace overwrites the stored document with the same ID.
// It returns store.ErrTaskNotFound when no document matched.
func (s *MongoTaskStore) Replace(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	res, err := s.coll.ReplaceOne(ctx, byID(task.ID), task)
	if err != nil {
		log.Error("failed to replace task", "task_id", task.ID, "error", redact.Error(err))
		return store.NewStoreError("task", "replace", "replace failed", MapError(err))
	}

	if res.MatchedCount == 0 {
		log.Debug("no task to replace", "task_id", task.ID)
		return store.ErrTaskNotFound
	}

	log.Debug("task replaced", "task_id", task.ID)
	return nil
}

// Delete removes the task document with the given ID.
// It returns store.ErrTaskNotFound when nothing was deleted.
func (s *MongoTaskStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		log.Error("failed to delete task", "task_id", id, "error", redact.Error(err))
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}

	if res.DeletedCount == 0 {
		log.Debug("no task to delete", "task_id", id)
		return store.ErrTaskNotFound
	}

	log.Debug("task deleted", "task_id", id)
	return nil
}

// Ping checks that the primary is reachable.
func (s *MongoTaskStore) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	if err := s.pinger.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

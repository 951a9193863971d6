package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/redact"
	"github.com/phrazzld/tasksync/internal/store"
)

// taskDocument is the JSONB body stored for each task.
type taskDocument struct {
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// PostgresTaskStore implements store.TaskStore on one table of
// (id, document, created_at) rows.
type PostgresTaskStore struct {
	db     DBTX
	table  string
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a PostgresTaskStore over table.
// The table name is quoted, so any configured collection name is safe.
func NewPostgresTaskStore(db DBTX, table string, log *slog.Logger) *PostgresTaskStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: log.With("component", "postgres_task_store"),
	}
}

// EnsureSchema creates the task table and its ordering index if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	ident := pgx.Identifier{table}.Sanitize()
	index := pgx.Identifier{table + "_created_at_idx"}.Sanitize()

	return RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				document JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, ident)); err != nil {
			return MapError(err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id)`, index, ident)); err != nil {
			return MapError(err)
		}
		return nil
	})
}

func encodeTask(task *domain.Task) (string, error) {
	body, err := json.Marshal(taskDocument{
		Description: task.Description,
		IsCompleted: task.IsCompleted,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode task document: %w", store.ErrInvalidEntity, err)
	}
	return string(body), nil
}

func decodeTask(id string, body []byte) (*domain.Task, error) {
	var doc taskDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode task document %s: %w", id, err)
	}
	return &domain.Task{ID: id, Description: doc.Description, IsCompleted: doc.IsCompleted}, nil
}

// FindAll returns every task in insertion order.
func (s *PostgresTaskStore) FindAll(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`SELECT id, document FROM %s ORDER BY created_at, id`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query tasks", "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_all", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			log.Error("failed to scan task row", "error", err)
			return nil, store.NewStoreError("task", "find_all", "scan failed", MapError(err))
		}
		task, err := decodeTask(id, body)
		if err != nil {
			log.Error("failed to decode task row", "task_id", id, "error", err)
			return nil, store.NewStoreError("task", "find_all", "decode failed", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_all", "iteration failed", MapError(err))
	}

	return tasks, nil
}

// FindByID returns the task with the given ID or store.ErrTaskNotFound.
func (s *PostgresTaskStore) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = $1`, s.table)

	var body []byte
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", "task_id", id)
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", "task_id", id, "error", redact.Error(err))
		return nil, store.NewStoreError("task", "find_by_id", "query failed", MapError(err))
	}

	task, err := decodeTask(id, body)
	if err != nil {
		return nil, store.NewStoreError("task", "find_by_id", "decode failed", err)
	}
	return task, nil
}

// Insert adds a new task row. An ID that already exists yields store.ErrTaskExists.
func (s *PostgresTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	doc, err := encodeTask(task)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, document) VALUES ($1, $2::jsonb)`, s.table)

	if _, err := s.db.ExecContext(ctx, query, task.ID, doc); err != nil {
		if IsUniqueViolation(err) {
			log.Warn("task already exists", "task_id", task.ID)
			return fmt.Errorf("%w: %v", store.ErrTaskExists, err)
		}
		log.Error("failed to insert task", "task_id", task.ID, "error", redact.Error(err))
		return store.NewStoreError("task", "insert", "insert failed", MapError(err))
	}

	log.Debug("task inserted", "task_id", task.ID)
	return nil
}

// Replace overwrites the document of the row with the task's ID.
// It returns store.ErrTaskNotFound when no row matched.
func (s *PostgresTaskStore) Replace(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	doc, err := encodeTask(task)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET document = $2::jsonb WHERE id = $1`, s.table)

	result, err := s.db.ExecContext(ctx, query, task.ID, doc)
	if err != nil {
		log.Error("failed to replace task", "task_id", task.ID, "error", redact.Error(err))
		return store.NewStoreError("task", "replace", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			return store.NewStoreError("task", "replace", "rows affected", MapError(err))
		}
		log.Debug("no task to replace", "task_id", task.ID)
		return err
	}

	log.Debug("task replaced", "task_id", task.ID)
	return nil
}

// Delete removes the row with the given ID.
// It returns store.ErrTaskNotFound when nothing was deleted.
func (s *PostgresTaskStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete task", "task_id", id, "error", redact.Error(err))
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			return store.NewStoreError("task", "delete", "rows affected", MapError(err))
		}
		log.Debug("no task to delete", "task_id", id)
		return err
	}

	log.Debug("task deleted", "task_id", id)
	return nil
}

// Ping verifies the database connection. Stores running inside a
// transaction always report healthy.
func (s *PostgresTaskStore) Ping(ctx context.Context) error {
	pinger, ok := s.db.(interface{ PingContext(context.Context) error })
	if !ok {
		return nil
	}
	if err := pinger.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

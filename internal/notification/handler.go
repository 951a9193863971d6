package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/platform/logger"
)

// Handler turns task events into stored notifications.
type Handler struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

var _ events.EventHandler = (*Handler)(nil)

// NewHandler creates a Handler that saves to store.
func NewHandler(store Store, log *slog.Logger) (*Handler, error) {
	if store == nil {
		return nil, errors.New("notification store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		store:  store,
		now:    time.Now,
		logger: log.With("component", "notification_handler"),
	}, nil
}

// HandleEvent renders and saves the notification for event.
func (h *Handler) HandleEvent(ctx context.Context, event events.TaskEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	n := New(event, h.now())
	if err := h.store.Save(ctx, n); err != nil {
		return fmt.Errorf("save notification for task %s: %w", event.TaskID, err)
	}

	log.Info("notification created",
		"notification_id", n.ID,
		"event_type", n.EventType,
		"task_id", n.TaskID)
	return nil
}

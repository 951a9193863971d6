package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasksync/internal/events"
)

// Notification is a user-facing message derived from one task event.
type Notification struct {
	ID        string    `json:"id"         bson:"_id"`
	EventType string    `json:"event_type" bson:"event_type"`
	Title     string    `json:"title"      bson:"title"`
	Message   string    `json:"message"    bson:"message"`
	TaskID    string    `json:"task_id"    bson:"task_id"`
	Read      bool      `json:"read"       bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Store persists notifications.
type Store interface {
	// Save inserts a new notification.
	Save(ctx context.Context, n *Notification) error

	// List returns the most recent notifications, newest first, at most limit.
	List(ctx context.Context, limit int) ([]*Notification, error)

	// ListByTask returns every notification about taskID, newest first.
	ListByTask(ctx context.Context, taskID string) ([]*Notification, error)

	// MarkRead flags one notification as read.
	// Returns store.ErrNotFound if no notification has the ID.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead flags every unread notification as read and returns how
	// many changed.
	MarkAllRead(ctx context.Context) (int64, error)

	// CountUnread returns how many notifications are unread.
	CountUnread(ctx context.Context) (int64, error)

	// Delete removes one notification.
	// Returns store.ErrNotFound if no notification has the ID.
	Delete(ctx context.Context, id string) error

	// ClearOlderThan removes notifications created before cutoff and returns
	// how many were removed.
	ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type template struct {
	title   string
	message string
}

var templates = map[events.EventType]template{
	events.EventTypeCreated: {
		title:   "New Task Created",
		message: "Task '%s' has been created",
	},
	events.EventTypeUpdated: {
		title:   "Task Updated",
		message: "Task '%s' has been updated",
	},
	events.EventTypeCompleted: {
		title:   "Task Completed",
		message: "Congratulations! Task '%s' is complete",
	},
	events.EventTypeDeleted: {
		title:   "Task Deleted",
		message: "Task '%s' has been deleted",
	},
}

var fallbackTemplate = template{
	title:   "Task Event",
	message: "Event for task '%s'",
}

// Render returns the title and message for event.
func Render(event events.TaskEvent) (title, message string) {
	tmpl, ok := templates[event.Type]
	if !ok {
		tmpl = fallbackTemplate
	}
	return tmpl.title, fmt.Sprintf(tmpl.message, event.Description)
}

// New builds an unread notification for event, created at now.
// EventType holds the event's routing key, e.g. "task.completed".
func New(event events.TaskEvent, now time.Time) *Notification {
	title, message := Render(event)
	return &Notification{
		ID:        uuid.NewString(),
		EventType: event.RoutingKey(),
		Title:     title,
		Message:   message,
		TaskID:    event.TaskID,
		Read:      false,
		CreatedAt: now.UTC(),
	}
}

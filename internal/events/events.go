package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/tasksync/internal/domain"
)

// EventType identifies what happened to a task.
type EventType string

// The four task lifecycle event kinds.
const (
	EventTypeCreated   EventType = "created"
	EventTypeUpdated   EventType = "updated"
	EventTypeCompleted EventType = "completed"
	EventTypeDeleted   EventType = "deleted"
)

const (
	// RoutingKeyPrefix is the domain prefix of every routing key.
	RoutingKeyPrefix = "task."

	// SchemaVersion is the version of the TaskEvent wire schema.
	SchemaVersion = 1

	// TimestampLayout renders UTC timestamps as ISO-8601 with seven fractional digits.
	TimestampLayout = "2006-01-02T15:04:05.0000000Z"
)

// ErrUnknownEventType is returned for event type strings outside the four known kinds.
var ErrUnknownEventType = errors.New("unknown event type")

// ParseEventType converts s into an EventType. A leading "task." prefix is
// accepted, so "task.completed" and "completed" both yield EventTypeCompleted.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.TrimPrefix(s, RoutingKeyPrefix))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the four known event kinds.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeCreated, EventTypeUpdated, EventTypeCompleted, EventTypeDeleted:
		return true
	default:
		return false
	}
}

// RoutingKey derives the broker routing key for t: "task." followed by the
// event type with any leading "task." stripped.
func (t EventType) RoutingKey() string {
	return RoutingKeyPrefix + strings.TrimPrefix(string(t), RoutingKeyPrefix)
}

// TaskEvent is the envelope shared by all task lifecycle events. Description
// and IsCompleted are snapshots taken when the event was built.
type TaskEvent struct {
	Type        EventType
	TaskID      string
	Description string
	IsCompleted bool
	Timestamp   time.Time
}

// NewTaskEvent builds an event of the given type from a snapshot of task at time at.
func NewTaskEvent(eventType EventType, task *domain.Task, at time.Time) TaskEvent {
	return TaskEvent{
		Type:        eventType,
		TaskID:      task.ID,
		Description: task.Description,
		IsCompleted: task.IsCompleted,
		Timestamp:   at.UTC(),
	}
}

// NewTaskCreated builds the event for a newly inserted task.
func NewTaskCreated(task *domain.Task, at time.Time) TaskEvent {
	return NewTaskEvent(EventTypeCreated, task, at)
}

// NewTaskUpdated builds the event for a replaced task: completed when the task
// is marked completed, updated otherwise.
func NewTaskUpdated(task *domain.Task, at time.Time) TaskEvent {
	if task.IsCompleted {
		return NewTaskEvent(EventTypeCompleted, task, at)
	}
	return NewTaskEvent(EventTypeUpdated, task, at)
}

// NewTaskDeleted builds the event for a removed task, carrying its last-known state.
func NewTaskDeleted(task *domain.Task, at time.Time) TaskEvent {
	return NewTaskEvent(EventTypeDeleted, task, at)
}

// RoutingKey returns the broker routing key for the event.
func (e TaskEvent) RoutingKey() string {
	return e.Type.RoutingKey()
}

// Validate checks that the event has a known type and a task ID.
func (e TaskEvent) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if e.TaskID == "" {
		return domain.ErrEmptyTaskID
	}
	return nil
}

// wireEvent is the flat JSON body consumers depend on. Field order is part of
// the contract.
type wireEvent struct {
	EventType   string `json:"event_type"`
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	IsCompleted bool   `json:"is_completed"`
	Timestamp   string `json:"timestamp"`
}

// MarshalJSON encodes the event as the flat wire body.
func (e TaskEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		EventType:   string(e.Type),
		TaskID:      e.TaskID,
		Description: e.Description,
		IsCompleted: e.IsCompleted,
		Timestamp:   e.Timestamp.UTC().Format(TimestampLayout),
	})
}

// timestampLayouts are tried in order when decoding. Zone-less timestamps are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// UnmarshalJSON decodes a wire body. Legacy "task."-prefixed event types are accepted.
func (e *TaskEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	eventType, err := ParseEventType(w.EventType)
	if err != nil {
		return err
	}

	var ts time.Time
	var parseErr error
	for _, layout := range timestampLayouts {
		ts, parseErr = time.Parse(layout, w.Timestamp)
		if parseErr == nil {
			break
		}
	}
	if parseErr != nil {
		return fmt.Errorf("invalid timestamp %q: %w", w.Timestamp, parseErr)
	}

	*e = TaskEvent{
		Type:        eventType,
		TaskID:      w.TaskID,
		Description: w.Description,
		IsCompleted: w.IsCompleted,
		Timestamp:   ts.UTC(),
	}
	return nil
}

// Publisher delivers task events. Publish has no error result: implementations
// absorb and log their own failures so a successful mutation is never reported
// as failed because its event could not be delivered.
type Publisher interface {
	Publish(ctx context.Context, event TaskEvent)
}

// EventHandler defines an interface for components that react to task events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event TaskEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event TaskEvent) error {
	return f(ctx, event)
}

package events

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher fans a TaskEvent out to every registered handler in process.
// It is itself an EventHandler, so a consumer can drive several handlers.
type Dispatcher struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewDispatcher creates a new Dispatcher with no handlers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make([]EventHandler, 0),
		logger:   logger.With("component", "event_dispatcher"),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (d *Dispatcher) RegisterHandler(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
	d.logger.Debug("registered new event handler", "handler_count", len(d.handlers))
}

// HandleEvent delivers the event to all registered handlers.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (d *Dispatcher) HandleEvent(ctx context.Context, event TaskEvent) error {
	d.mu.RLock()
	handlers := make([]EventHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	d.logger.Debug("dispatching event",
		"event_type", event.Type,
		"task_id", event.TaskID,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		d.logger.Warn("no handlers registered for event",
			"event_type", event.Type,
			"task_id", event.TaskID)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			d.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_type", event.Type,
				"task_id", event.TaskID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

var _ EventHandler = (*Dispatcher)(nil)

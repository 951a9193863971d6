package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/tasksync/internal/notification"
	"github.com/phrazzld/tasksync/internal/store"
)

// MockNotificationStore implements notification.Store for testing
type MockNotificationStore struct {
	SaveFn           func(ctx context.Context, n *notification.Notification) error
	ListFn           func(ctx context.Context, limit int) ([]*notification.Notification, error)
	ListByTaskFn     func(ctx context.Context, taskID string) ([]*notification.Notification, error)
	MarkReadFn       func(ctx context.Context, id string) error
	MarkAllReadFn    func(ctx context.Context) (int64, error)
	CountUnreadFn    func(ctx context.Context) (int64, error)
	DeleteFn         func(ctx context.Context, id string) error
	ClearOlderThanFn func(ctx context.Context, cutoff time.Time) (int64, error)

	mu    sync.Mutex
	saved []*notification.Notification
}

var _ notification.Store = (*MockNotificationStore)(nil)

// Save implements the notification.Store interface
func (m *MockNotificationStore) Save(ctx context.Context, n *notification.Notification) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.saved = append(m.saved, &copied)
	return nil
}

// List implements the notification.Store interface
func (m *MockNotificationStore) List(ctx context.Context, limit int) ([]*notification.Notification, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := newestFirst(m.saved)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByTask implements the notification.Store interface
func (m *MockNotificationStore) ListByTask(ctx context.Context, taskID string) ([]*notification.Notification, error) {
	if m.ListByTaskFn != nil {
		return m.ListByTaskFn(ctx, taskID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*notification.Notification, 0)
	for _, n := range newestFirst(m.saved) {
		if n.TaskID == taskID {
			out = append(out, n)
		}
	}
	return out, nil
}

func newestFirst(saved []*notification.Notification) []*notification.Notification {
	out := append([]*notification.Notification(nil), saved...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// MarkRead implements the notification.Store interface
func (m *MockNotificationStore) MarkRead(ctx context.Context, id string) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.saved {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return store.ErrNotFound
}

// MarkAllRead implements the notification.Store interface
func (m *MockNotificationStore) MarkAllRead(ctx context.Context) (int64, error) {
	if m.MarkAllReadFn != nil {
		return m.MarkAllReadFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.saved {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

// CountUnread implements the notification.Store interface
func (m *MockNotificationStore) CountUnread(ctx context.Context) (int64, error) {
	if m.CountUnreadFn != nil {
		return m.CountUnreadFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.saved {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// Delete implements the notification.Store interface
func (m *MockNotificationStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.saved {
		if n.ID == id {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ClearOlderThan implements the notification.Store interface
func (m *MockNotificationStore) ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.ClearOlderThanFn != nil {
		return m.ClearOlderThanFn(ctx, cutoff)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.saved[:0]
	var removed int64
	for _, n := range m.saved {
		if n.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	m.saved = kept
	return removed, nil
}

// Saved returns the notifications stored so far.
func (m *MockNotificationStore) Saved() []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.Notification(nil), m.saved...)
}

// Package service contains the application use cases for tasks. TaskService
// performs each mutation against a store.TaskStore and, once the store has
// acknowledged the write, publishes the matching lifecycle event through an
// events.Publisher. Both steps run synchronously on the caller's goroutine.
//
// The service depends only on the store and events interfaces; the concrete
// MongoDB, PostgreSQL and RabbitMQ implementations are wired in cmd/tasksync.
package service

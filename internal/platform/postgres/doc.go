// Package postgres provides a PostgreSQL implementation of store.TaskStore.
// Each task is a row keyed by its ID with the document body held in a JSONB
// column, so the relational store mirrors the document layout used by the
// MongoDB implementation. Connections go through database/sql with the pgx
// driver.
package postgres

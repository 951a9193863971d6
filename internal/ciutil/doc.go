// Package ciutil provides utilities for CI and environment-specific functionality.
//
// It detects whether tests run under CI and locates the external services
// (PostgreSQL, MongoDB, RabbitMQ) that integration tests run against. Every
// service is optional: tests that need one skip when its URL is not set.
package ciutil

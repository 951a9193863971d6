package ciutil

import (
	"log/slog"
	"testing"
)

// PostgresURL returns the PostgreSQL URL for integration tests, or "".
func PostgresURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvPostgresURL, EnvDatabaseURL}, "", logger)
}

// MongoURL returns the MongoDB URL for integration tests, or "".
func MongoURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvMongoURL, EnvMongoURLLegacy}, "", logger)
}

// BrokerURL returns the AMQP URL for integration tests, or "".
func BrokerURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvBrokerURL, EnvBrokerURLLegacy}, "", logger)
}

// RequireURL skips t when url is empty. Under CI the skip reason names the
// variable to set, so a misconfigured pipeline is visible in the test log.
func RequireURL(t testing.TB, url, envVar string) string {
	t.Helper()
	if url != "" {
		return url
	}
	if IsCI() {
		t.Skipf("%s not set in CI; integration service unavailable", envVar)
	}
	t.Skipf("%s not set", envVar)
	return ""
}

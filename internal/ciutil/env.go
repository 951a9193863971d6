package ciutil

import (
	"log/slog"
	"os"

	"github.com/phrazzld/tasksync/internal/redact"
)

// Common environment variable names used across the codebase.
// These constants ensure consistent access and prevent typos.
const (
	// CI environment detection variables
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvTravisCI      = "TRAVIS"
	EnvCircleCI      = "CIRCLECI"

	// Integration service URLs. The TASKSYNC_TEST_* names are preferred.
	EnvPostgresURL     = "TASKSYNC_TEST_POSTGRES_URL"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvMongoURL        = "TASKSYNC_TEST_MONGODB_URL"
	EnvMongoURLLegacy  = "MONGODB_URL"
	EnvBrokerURL       = "TASKSYNC_TEST_AMQP_URL"
	EnvBrokerURLLegacy = "AMQP_URL"
)

// IsCI returns true if the current environment is a CI environment.
// It checks for common CI environment variables across different CI providers.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvTravisCI) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment variable
// from the provided list. If no environment variables are set, it returns the defaultValue.
// Values found under a fallback name are logged, redacted, as legacy usage.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			if i > 0 && logger != nil {
				logger.Warn("Using legacy environment variable",
					"used_var", envVar,
					"preferred_var", envVars[0],
					"value", redact.String(val),
				)
			}
			return val
		}
	}
	return defaultValue
}

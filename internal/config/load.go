package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TASKSYNC_STORE_CONNECTION_STRING for store.connection_string.
const EnvPrefix = "TASKSYNC"

// ErrInvalidConfig is returned when configuration is missing or fails validation.
var ErrInvalidConfig = errors.New("configuration validation failed")

// keys lists every configuration key so that values supplied only through the
// environment are visible to Unmarshal.
var keys = []string{
	"server.port",
	"server.log_level",
	"broker.host",
	"broker.port",
	"broker.user",
	"broker.password",
	"broker.vhost",
	"broker.exchange",
	"broker.recovery_interval",
	"broker.heartbeat",
	"broker.connect_timeout",
	"store.driver",
	"store.connection_string",
	"store.database",
	"store.collection",
	"store.timeout",
	"notifier.queue",
	"notifier.binding_keys",
	"notifier.collection",
	"notifier.workers",
	"notifier.prefetch",
	"notifier.retry_delay",
}

// SetDefaults registers default values on v. Store settings are deliberately
// absent: the process must not start without them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", 5672)
	v.SetDefault("broker.user", "guest")
	v.SetDefault("broker.password", "guest")
	v.SetDefault("broker.vhost", "/")
	v.SetDefault("broker.exchange", "task_events")
	v.SetDefault("broker.recovery_interval", 10*time.Second)
	v.SetDefault("broker.heartbeat", 60*time.Second)
	v.SetDefault("broker.connect_timeout", 30*time.Second)

	v.SetDefault("store.driver", "mongodb")
	v.SetDefault("store.timeout", 5*time.Second)

	v.SetDefault("notifier.queue", "notification_queue")
	v.SetDefault("notifier.binding_keys", []string{"task.*"})
	v.SetDefault("notifier.collection", "notifications")
	v.SetDefault("notifier.workers", 2)
	v.SetDefault("notifier.prefetch", 10)
	v.SetDefault("notifier.retry_delay", 5*time.Second)
}

// Load reads configuration from environment variables and, if configFile is
// non-empty, from that file. Environment variables take precedence over values
// from the file. Returns a populated Config or an error wrapping
// ErrInvalidConfig if loading or validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker" validate:"required"`
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Notifier NotifierConfig `mapstructure:"notifier" validate:"required"`
}

// ServerConfig contains process-level settings: the ops HTTP port and log level.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// BrokerConfig contains the message broker connection settings.
// Every field has a default suitable for a local RabbitMQ.
type BrokerConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	VHost    string `mapstructure:"vhost" validate:"required"`
	Exchange string `mapstructure:"exchange" validate:"required"`

	// RecoveryInterval is the fixed delay between reconnection attempts.
	RecoveryInterval time.Duration `mapstructure:"recovery_interval" validate:"gt=0"`
	Heartbeat        time.Duration `mapstructure:"heartbeat" validate:"gt=0"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

// StoreConfig contains the document store settings.
// ConnectionString, Database and Collection have no defaults.
type StoreConfig struct {
	Driver           string        `mapstructure:"driver" validate:"required,oneof=mongodb postgres"`
	ConnectionString string        `mapstructure:"connection_string" validate:"required"`
	Database         string        `mapstructure:"database" validate:"required"`
	Collection       string        `mapstructure:"collection" validate:"required"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// NotifierConfig contains settings for the notification consumer.
type NotifierConfig struct {
	Queue       string        `mapstructure:"queue" validate:"required"`
	BindingKeys []string      `mapstructure:"binding_keys" validate:"required,min=1,dive,required"`
	Collection  string        `mapstructure:"collection" validate:"required"`
	Workers     int           `mapstructure:"workers" validate:"gt=0"`
	Prefetch    int           `mapstructure:"prefetch" validate:"gte=0"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
}

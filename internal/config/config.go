// Package config defines the process-wide configuration for the vitalmsg
// service. Configuration is loaded once at startup and is immutable
// thereafter. It follows 12-Factor principles by strictly separating code
// from configuration.
//
// Any missing required value or invalid format causes startup to fail
// immediately, with one deliberate exception: the work-queue capacity falls
// back to its default when unset or unparsable, because a misconfigured
// capacity must never keep the service from accepting messages.
package config

import (
	"strconv"
	"time"
)

// DefaultQueueCapacity is the bound applied to the conversion work queue
// when QUEUE_CAPACITY is unset or invalid.
const DefaultQueueCapacity = 100

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"vitalmsg"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	Queue    QueueConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
	// ConnectMaxElapsed bounds the startup connect retry loop.
	ConnectMaxElapsed time.Duration `envconfig:"DB_CONNECT_MAX_ELAPSED" default:"1m"`
}

// QueueConfig holds work-queue settings. Capacity is kept as the raw
// environment string so that invalid values degrade to the default instead
// of failing startup; use Size to read the effective bound.
type QueueConfig struct {
	Capacity string `envconfig:"QUEUE_CAPACITY"`
}

// Size returns the effective queue capacity: the configured value when it
// parses to a positive integer, DefaultQueueCapacity otherwise.
func (q QueueConfig) Size() int {
	n, err := strconv.Atoi(q.Capacity)
	if err != nil || n <= 0 {
		return DefaultQueueCapacity
	}
	return n
}

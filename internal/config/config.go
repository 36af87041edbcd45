package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the challenge service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"CHALLENGE_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"CHALLENGE_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Worker pool configuration
	Pool PoolConfig

	// Challenge handler configuration
	Challenge ChallengeConfig

	// Tracing configuration
	Tracing TracingConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// PoolConfig holds the shape of the bounded worker pool
type PoolConfig struct {
	Name                string        `env:"POOL_NAME" envDefault:"challenge01-managed-async-executor"`
	CoreSize            int           `env:"POOL_CORE_SIZE" envDefault:"4"`
	MaxSize             int           `env:"POOL_MAX_SIZE" envDefault:"40"`
	QueueCapacity       int           `env:"POOL_QUEUE_CAPACITY" envDefault:"2"`
	KeepAlive           time.Duration `env:"POOL_KEEP_ALIVE" envDefault:"60s"`
	HealthCheckInterval time.Duration `env:"POOL_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// ChallengeConfig holds the item catalog size and the simulated latency knobs
type ChallengeConfig struct {
	Count           int           `env:"CHALLENGE_COUNT" envDefault:"19"`
	LatencyBase     time.Duration `env:"CHALLENGE_LATENCY_BASE" envDefault:"200ms"`
	LatencyJitter   time.Duration `env:"CHALLENGE_LATENCY_JITTER" envDefault:"200ms"`
	SlowThresholdID int           `env:"CHALLENGE_SLOW_THRESHOLD_ID" envDefault:"20"`
	SlowDelay       time.Duration `env:"CHALLENGE_SLOW_DELAY" envDefault:"5m"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled     bool    `env:"TRACING_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"TRACING_INSECURE" envDefault:"true"`
	ServiceName string  `env:"TRACING_SERVICE_NAME" envDefault:"challenge01"`
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	StreamInterval  time.Duration `env:"STREAM_INTERVAL" envDefault:"1s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate pool shape
	if c.Pool.CoreSize < 1 {
		return fmt.Errorf("pool core size must be at least 1")
	}
	if c.Pool.MaxSize < c.Pool.CoreSize {
		return fmt.Errorf("pool max size %d is smaller than core size %d", c.Pool.MaxSize, c.Pool.CoreSize)
	}
	if c.Pool.QueueCapacity < 1 {
		return fmt.Errorf("pool queue capacity must be at least 1")
	}
	if c.Pool.KeepAlive <= 0 {
		return fmt.Errorf("pool keep-alive must be positive")
	}
	if c.Pool.HealthCheckInterval <= 0 {
		return fmt.Errorf("pool health check interval must be positive")
	}

	// Validate challenge config
	if c.Challenge.Count < 1 {
		return fmt.Errorf("challenge count must be at least 1")
	}
	if c.Challenge.LatencyBase < 0 || c.Challenge.LatencyJitter < 0 {
		return fmt.Errorf("challenge latency must not be negative")
	}
	if c.Challenge.SlowDelay < 0 {
		return fmt.Errorf("challenge slow delay must not be negative")
	}

	// Validate tracing config
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("invalid tracing sample ratio: %v (must be between 0 and 1)", c.Tracing.SampleRatio)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	if c.Timeouts.StreamInterval <= 0 {
		return fmt.Errorf("stream interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

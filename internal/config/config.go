package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the calculator worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"calculator-1"`

	// HTTP API configuration
	APIPort      int      `env:"API_PORT" envDefault:"8080"`
	AllowOrigins []string `env:"ALLOW_ORIGINS" envDefault:"*" envSeparator:","`

	// Calculator configuration
	NumericBackend      string `env:"NUMERIC_BACKEND" envDefault:"native"`
	PlotFormat          string `env:"PLOT_FORMAT" envDefault:"png"`
	PlotWidth           int    `env:"PLOT_WIDTH" envDefault:"600"`
	PlotHeight          int    `env:"PLOT_HEIGHT" envDefault:"400"`
	MaxExpressionLength int    `env:"MAX_EXPRESSION_LENGTH" envDefault:"1024"`
	PresetsFile         string `env:"PRESETS_FILE" envDefault:""`

	// Redis configuration
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"calculator.work"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"calculator-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"calculator.done"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE" envDefault:""`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if !validPort(c.APIPort) {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}

	if !validPort(c.HealthPort) {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if c.APIPort == c.HealthPort {
		return fmt.Errorf("API_PORT and HEALTH_PORT must differ")
	}

	if !oneOf(c.NumericBackend, "native", "cel", "govaluate") {
		return fmt.Errorf("NUMERIC_BACKEND must be one of: native, cel, govaluate")
	}

	if !oneOf(c.PlotFormat, "png", "svg") {
		return fmt.Errorf("PLOT_FORMAT must be one of: png, svg")
	}

	if c.PlotWidth <= 0 || c.PlotHeight <= 0 {
		return fmt.Errorf("PLOT_WIDTH and PLOT_HEIGHT must be positive")
	}

	if c.MaxExpressionLength <= 0 {
		return fmt.Errorf("MAX_EXPRESSION_LENGTH must be positive")
	}

	if c.RedisEnabled {
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}

		if c.StreamKey == "" {
			return fmt.Errorf("STREAM_KEY is required")
		}

		if c.ConsumerGroup == "" {
			return fmt.Errorf("CONSUMER_GROUP is required")
		}

		if c.ResultStream == "" {
			return fmt.Errorf("RESULT_STREAM is required")
		}

		if c.BlockTime <= 0 {
			return fmt.Errorf("BLOCK_TIME must be positive")
		}
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if c.LogFile != "" && (c.LogMaxSizeMB <= 0 || c.LogMaxAgeDays < 0 || c.LogMaxBackups < 0) {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive, LOG_MAX_AGE_DAYS and LOG_MAX_BACKUPS non-negative")
	}

	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, APIPort=%d, AllowOrigins=%s, NumericBackend=%s, PlotFormat=%s, "+
			"PlotSize=%dx%d, RedisEnabled=%v, RedisAddr=%s, RedisDB=%d, StreamKey=%s, "+
			"ConsumerGroup=%s, HealthPort=%d, LogLevel=%s, LogFile=%s}",
		c.WorkerID,
		c.APIPort,
		strings.Join(c.AllowOrigins, ","),
		c.NumericBackend,
		c.PlotFormat,
		c.PlotWidth,
		c.PlotHeight,
		c.RedisEnabled,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.HealthPort,
		c.LogLevel,
		c.LogFile,
	)
}

// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel selects the minimum level at startup.
const EnvLogLevel = "NEPTUNE_QUERY_LOG_LEVEL"

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration, honoring the
// level environment variable when set.
func DefaultConfig() Config {
	level := LevelInfo
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		level = LogLevel(raw)
	}
	return Config{
		Level:  level,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Backend request flow (endpoint, body size)
//   - Cache operations (hit/miss, key, TTL)
//   - Batch split shapes and fan-out progress
//
// Info: Normal operation events
//   - Completed fetch operations with item counts
//   - Startup configuration summary
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts and throttled-request notices
//   - Cache errors (fallback to direct request)
//   - Batches abandoned after a sibling failed
//
// Error: Error conditions requiring attention
//   - Failed requests after the retry budget
//   - Authorization failures
//   - Configuration errors
//
// Context Fields:
//   - endpoint: backend endpoint path
//   - status_code: HTTP status code
//   - duration: request duration
//   - class: error classification (transient, rate_limit, client_data, auth, unexpected)
//   - batch: batch index within a fan-out
//   - attempt: retry attempt number

// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
)

// Environment keys consumed by the loader.
const (
	EnvRoots         = "PORTCHECK_ROOTS"
	EnvExtensions    = "PORTCHECK_EXTENSIONS"
	EnvReportFormat  = "PORTCHECK_REPORT_FORMAT"
	EnvReportOut     = "PORTCHECK_REPORT_OUT"
	EnvLogLevel      = "PORTCHECK_LOG_LEVEL"
	EnvListen        = "PORTCHECK_LISTEN"
	EnvRateLimit     = "PORTCHECK_RATE_LIMIT"
	EnvWatchDebounce = "PORTCHECK_WATCH_DEBOUNCE"
	EnvHistoryPath   = "PORTCHECK_HISTORY_PATH"

	EnvTracingEnabled    = "PORTCHECK_TRACING_ENABLED"
	EnvTracingExporter   = "PORTCHECK_TRACING_EXPORTER"
	EnvTracingEndpoint   = "PORTCHECK_TRACING_ENDPOINT"
	EnvTracingSampleRate = "PORTCHECK_TRACING_SAMPLE_RATE"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		logger.Debug().
			Str("key", key).
			Int("value", i).
			Str("source", "environment").
			Msg("using environment variable")
		return i
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Int("default", defaultValue).
		Msg("invalid integer in environment variable, using default")
	return defaultValue
}

// ParseBool reads a boolean ("true", "1", "false", "0", ...) from environment variable.
// It falls back to default on parse errors.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		logger.Debug().
			Str("key", key).
			Bool("value", b).
			Str("source", "environment").
			Msg("using environment variable")
		return b
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		logger.Debug().
			Str("key", key).
			Float64("value", f).
			Str("source", "environment").
			Msg("using environment variable")
		return f
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Float64("default", defaultValue).
		Msg("invalid number in environment variable, using default")
	return defaultValue
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		logger.Debug().
			Str("key", key).
			Dur("value", d).
			Str("source", "environment").
			Msg("using environment variable")
		return d
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Dur("default", defaultValue).
		Msg("invalid duration in environment variable, using default")
	return defaultValue
}

// ParseList reads a comma separated list. Blank items are dropped.
func ParseList(key string, defaultValue []string) []string {
	raw := ParseString(key, "")
	if raw == "" {
		return defaultValue
	}
	return splitList(raw)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

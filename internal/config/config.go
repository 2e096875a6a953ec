// SPDX-License-Identifier: MIT

// Package config loads portcheck settings with precedence ENV > File > Defaults.
package config

import "time"

// Report formats understood by internal/report.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Defaults applied before the file and environment are merged.
const (
	DefaultLogLevel      = "info"
	DefaultReportFormat  = FormatText
	DefaultListen        = ":9273"
	DefaultRateLimit     = 60
	DefaultWatchDebounce = 500 * time.Millisecond

	DefaultTracingExporter   = TracingExporterGRPC
	DefaultTracingSampleRate = 1.0
)

// OTLP trace exporters.
const (
	TracingExporterGRPC = "grpc"
	TracingExporterHTTP = "http"
)

// DefaultExtensions lists the fragment file extensions collected when none are configured.
func DefaultExtensions() []string {
	return []string{".yaml", ".yml", ".json"}
}

// AppConfig is the effective, merged configuration.
type AppConfig struct {
	Version  string
	LogLevel string

	// Fragment discovery
	Roots      []string
	Extensions []string

	// Report output
	ReportFormat string
	ReportOut    string // empty writes to stdout

	// Serve mode
	Listen        string
	RateLimit     int // requests per minute per client IP on /api, 0 disables
	WatchDebounce time.Duration

	// Run history, disabled when empty
	HistoryPath string

	// OpenTelemetry tracing for serve mode
	TracingEnabled    bool
	TracingExporter   string
	TracingEndpoint   string
	TracingSampleRate float64
}

// FileConfig mirrors the YAML configuration file. Unknown keys are rejected.
type FileConfig struct {
	LogLevel  string          `yaml:"logLevel,omitempty"`
	Fragments FragmentsConfig `yaml:"fragments,omitempty"`
	Report    ReportConfig    `yaml:"report,omitempty"`
	Serve     ServeConfig     `yaml:"serve,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Tracing   TracingConfig   `yaml:"tracing,omitempty"`
}

// FragmentsConfig selects where fragments are collected from.
type FragmentsConfig struct {
	Roots      []string `yaml:"roots,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Format string `yaml:"format,omitempty"`
	Out    string `yaml:"out,omitempty"`
}

// ServeConfig controls the HTTP surface of serve mode.
type ServeConfig struct {
	Listen    string `yaml:"listen,omitempty"`
	RateLimit *int   `yaml:"rateLimit,omitempty"`
}

// WatchConfig controls the fragment watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"`
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled    *bool    `yaml:"enabled,omitempty"`
	Exporter   string   `yaml:"exporter,omitempty"`
	Endpoint   string   `yaml:"endpoint,omitempty"`
	SampleRate *float64 `yaml:"sampleRate,omitempty"`
}

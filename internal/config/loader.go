// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The result is not validated; call Validate before use.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg, filepath.Dir(l.configPath)); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		LogLevel:      DefaultLogLevel,
		Extensions:    DefaultExtensions(),
		ReportFormat:  DefaultReportFormat,
		Listen:        DefaultListen,
		RateLimit:     DefaultRateLimit,
		WatchDebounce: DefaultWatchDebounce,

		TracingExporter:   DefaultTracingExporter,
		TracingSampleRate: DefaultTracingSampleRate,
	}
}

// loadFile parses the YAML file in strict mode: unknown keys and multiple documents fail.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedConfigFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeFileConfig overlays explicitly set file values. Relative roots resolve against the
// directory holding the config file.
func mergeFileConfig(dst *AppConfig, src *FileConfig, baseDir string) error {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if len(src.Fragments.Roots) > 0 {
		roots := make([]string, 0, len(src.Fragments.Roots))
		for _, root := range src.Fragments.Roots {
			root = strings.TrimSpace(root)
			if root == "" {
				continue
			}
			if !filepath.IsAbs(root) {
				root = filepath.Join(baseDir, root)
			}
			roots = append(roots, root)
		}
		dst.Roots = roots
	}
	if len(src.Fragments.Extensions) > 0 {
		dst.Extensions = append([]string(nil), src.Fragments.Extensions...)
	}
	if src.Report.Format != "" {
		dst.ReportFormat = src.Report.Format
	}
	if src.Report.Out != "" {
		dst.ReportOut = src.Report.Out
	}
	if src.Serve.Listen != "" {
		dst.Listen = src.Serve.Listen
	}
	if src.Serve.RateLimit != nil {
		dst.RateLimit = *src.Serve.RateLimit
	}
	if src.Watch.Debounce != "" {
		d, err := time.ParseDuration(strings.TrimSpace(src.Watch.Debounce))
		if err != nil {
			return fmt.Errorf("watch.debounce: %w", err)
		}
		dst.WatchDebounce = d
	}
	if src.History.Path != "" {
		dst.HistoryPath = src.History.Path
	}
	if src.Tracing.Enabled != nil {
		dst.TracingEnabled = *src.Tracing.Enabled
	}
	if src.Tracing.Exporter != "" {
		dst.TracingExporter = src.Tracing.Exporter
	}
	if src.Tracing.Endpoint != "" {
		dst.TracingEndpoint = src.Tracing.Endpoint
	}
	if src.Tracing.SampleRate != nil {
		dst.TracingSampleRate = *src.Tracing.SampleRate
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.Roots = l.envList(EnvRoots, cfg.Roots)
	cfg.Extensions = l.envList(EnvExtensions, cfg.Extensions)
	cfg.ReportFormat = l.envString(EnvReportFormat, cfg.ReportFormat)
	cfg.ReportOut = l.envString(EnvReportOut, cfg.ReportOut)
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.RateLimit = l.envInt(EnvRateLimit, cfg.RateLimit)
	cfg.WatchDebounce = l.envDuration(EnvWatchDebounce, cfg.WatchDebounce)
	cfg.HistoryPath = l.envString(EnvHistoryPath, cfg.HistoryPath)
	cfg.TracingEnabled = l.envBool(EnvTracingEnabled, cfg.TracingEnabled)
	cfg.TracingExporter = l.envString(EnvTracingExporter, cfg.TracingExporter)
	cfg.TracingEndpoint = l.envString(EnvTracingEndpoint, cfg.TracingEndpoint)
	cfg.TracingSampleRate = l.envFloat(EnvTracingSampleRate, cfg.TracingSampleRate)
}

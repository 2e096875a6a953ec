// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/validate"
)

const minWatchDebounce = 10 * time.Millisecond

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)

	for i, root := range cfg.Roots {
		v.Directory(fmt.Sprintf("fragments.roots[%d]", i), root)
	}
	if len(cfg.Extensions) == 0 {
		v.AddError("fragments.extensions", "at least one extension is required", cfg.Extensions)
	}
	for i, ext := range cfg.Extensions {
		v.Extension(fmt.Sprintf("fragments.extensions[%d]", i), ext)
	}

	v.OneOf("report.format", cfg.ReportFormat, []string{FormatText, FormatJSON})

	v.ListenAddr("serve.listen", cfg.Listen)
	v.NonNegative("serve.rateLimit", cfg.RateLimit)
	v.MinDuration("watch.debounce", cfg.WatchDebounce, minWatchDebounce)

	if cfg.TracingEnabled {
		v.OneOf("tracing.exporter", cfg.TracingExporter, []string{TracingExporterGRPC, TracingExporterHTTP})
		v.NotEmpty("tracing.endpoint", cfg.TracingEndpoint)
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		v.AddError("tracing.sampleRate", "must be between 0 and 1", cfg.TracingSampleRate)
	}

	return v.Err()
}

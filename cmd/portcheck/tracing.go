// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/config"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/telemetry"
)

// startTracing installs the tracer provider for cfg. The returned func flushes pending spans
// and must run before the process exits.
func startTracing(ctx context.Context, cfg config.AppConfig) (func(), error) {
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "portcheck",
		ServiceVersion: cfg.Version,
		Exporter:       cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger := xglog.WithComponent("telemetry")
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}, nil
}

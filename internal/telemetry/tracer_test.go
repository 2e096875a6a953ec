// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func restoreGlobalProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestNewProvider_Disabled(t *testing.T) {
	restoreGlobalProvider(t)

	provider, err := NewProvider(context.Background(), Config{ServiceName: "portcheck", Exporter: "grpc"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	_, span := Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	want := "unsupported exporter type: zipkin (supported: grpc, http)"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	restoreGlobalProvider(t)

	// Exporter construction does not dial; no spans are exported before shutdown.
	provider, err := NewProvider(context.Background(), Config{
		Enabled:    true,
		Exporter:   "http",
		Endpoint:   "127.0.0.1:4318",
		SampleRate: 0,
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if provider.tp == nil {
		t.Fatal("expected an SDK provider")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}

func TestInstall_ExportsSpans(t *testing.T) {
	restoreGlobalProvider(t)
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	provider, err := install(ctx, Config{ServiceName: "portcheck", ServiceVersion: "v0", SampleRate: 1}, exporter)
	if err != nil {
		t.Fatalf("install: %v", err)
	}

	_, span := Tracer("portcheck/check").Start(ctx, "check.run")
	span.SetAttributes(RunAttributes("run-1", "conflict", 3, []int{8080})...)
	span.End()

	if err := provider.tp.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "check.run" {
		t.Errorf("span name = %q", spans[0].Name)
	}

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	if got[RunIDKey].AsString() != "run-1" || got[RunStatusKey].AsString() != "conflict" {
		t.Errorf("unexpected attributes: %v", spans[0].Attributes)
	}
	if got[ConflictsKey].AsInt64() != 1 {
		t.Errorf("conflicts = %v", got[ConflictsKey])
	}

	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by check spans.
const (
	RunIDKey        = "portcheck.run_id"
	RunStatusKey    = "portcheck.status"
	DeclarationsKey = "portcheck.declarations"
	ConflictsKey    = "portcheck.conflicts"
	ConflictPortKey = "portcheck.conflict_ports"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RunAttributes describes the outcome of a check run.
func RunAttributes(runID, status string, declarations int, conflictPorts []int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(RunStatusKey, status),
		attribute.Int(DeclarationsKey, declarations),
		attribute.Int(ConflictsKey, len(conflictPorts)),
	}
	if len(conflictPorts) > 0 {
		attrs = append(attrs, attribute.IntSlice(ConflictPortKey, conflictPorts))
	}
	return attrs
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

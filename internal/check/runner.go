// SPDX-License-Identifier: MIT

// Package check runs one collect-and-validate pass over the configured fragments.
package check

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/history"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/metrics"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/telemetry"
)

// Source supplies the declarations for a run.
type Source interface {
	Collect(ctx context.Context) ([]ports.Declaration, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]ports.Declaration, error)

// Collect calls f.
func (f SourceFunc) Collect(ctx context.Context) ([]ports.Declaration, error) { return f(ctx) }

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, r history.Run) error
}

// Status values reported by Result.Status.
const (
	StatusClean    = metrics.StatusClean
	StatusConflict = metrics.StatusConflict
	StatusInvalid  = metrics.StatusInvalid
	StatusError    = metrics.StatusError
)

// Result is the outcome of one run.
type Result struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Declarations int
	Groups       []ports.ConflictGroup
	Report       string
	Err          error
}

// Status classifies the result. A conflict is a validated-negative result, not an error.
func (r Result) Status() string {
	switch {
	case r.Err != nil && errors.Is(r.Err, ports.ErrInvalidDeclaration):
		return StatusInvalid
	case r.Err != nil:
		return StatusError
	case len(r.Groups) > 0:
		return StatusConflict
	default:
		return StatusClean
	}
}

// OK reports whether the caller may proceed.
func (r Result) OK() bool {
	return r.Status() == StatusClean
}

// Runner executes check runs and remembers the last result.
type Runner struct {
	source   Source
	recorder Recorder
	now      func() time.Time

	mu   sync.RWMutex
	last *Result
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder persists every finished run.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner reading declarations from source.
func NewRunner(source Source, opts ...Option) *Runner {
	r := &Runner{source: source, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one pass. Collection and validation failures are carried in Result.Err.
func (r *Runner) Run(ctx context.Context) Result {
	res := Result{RunID: uuid.NewString(), StartedAt: r.now()}
	ctx = xglog.ContextWithRunID(ctx, res.RunID)
	ctx, span := telemetry.Tracer("portcheck/check").Start(ctx, "check.run")
	defer span.End()
	logger := xglog.WithComponentFromContext(ctx, "check")

	decls, err := r.source.Collect(ctx)
	if err == nil {
		res.Declarations = len(decls)
		res.Groups, err = ports.FindConflicts(decls)
	}
	res.Err = err
	res.Report = ports.FormatReport(res.Groups)
	res.Duration = r.now().Sub(res.StartedAt)

	status := res.Status()
	metrics.RecordRun(status, res.Duration, res.Declarations, len(res.Groups), res.StartedAt.Add(res.Duration))

	dup := make([]int, len(res.Groups))
	for i, g := range res.Groups {
		dup[i] = g.Port
	}
	span.SetAttributes(telemetry.RunAttributes(res.RunID, status, res.Declarations, dup)...)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetAttributes(telemetry.ErrorAttributes(status)...)
		span.SetStatus(codes.Error, status)
	}

	switch status {
	case StatusClean:
		logger.Info().
			Str(xglog.FieldEvent, "check.clean").
			Int(xglog.FieldDeclarations, res.Declarations).
			Dur("duration", res.Duration).
			Msg("no duplicate ports")
	case StatusConflict:
		logger.Warn().
			Str(xglog.FieldEvent, "check.conflicts_found").
			Int(xglog.FieldDeclarations, res.Declarations).
			Int(xglog.FieldConflicts, len(res.Groups)).
			Ints(xglog.FieldPort, dup).
			Msg("duplicate ports found")
	default:
		logger.Error().
			Err(res.Err).
			Str(xglog.FieldEvent, "check.failed").
			Str(xglog.FieldStatus, status).
			Msg("check run failed")
	}

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, toHistory(res)); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "check.history_failed").Msg("failed to record run")
		}
	}

	r.mu.Lock()
	r.last = &res
	r.mu.Unlock()
	return res
}

// Last returns the most recent result, if any.
func (r *Runner) Last() (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

func toHistory(res Result) history.Run {
	run := history.Run{
		RunID:        res.RunID,
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		Status:       res.Status(),
		Declarations: res.Declarations,
		Conflicts:    len(res.Groups),
		Report:       res.Report,
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	return run
}

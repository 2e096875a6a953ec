// SPDX-License-Identifier: MIT

// Package health aggregates component checks into liveness and readiness responses.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body of /healthz and /readyz.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs every registered checker on each request.
type Manager struct {
	version  string
	checkers []Checker
	now      func() time.Time
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version, now: time.Now}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Check runs all checkers. The overall status is the worst component status; the service is
// ready unless a component is unhealthy.
func (m *Manager) Check(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: m.now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ServeHealth answers 200 only when every component is healthy, 503 otherwise.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.Check(r.Context())
	code := http.StatusOK
	if resp.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, "health", code, resp)
}

// ServeReady answers 200 unless a component is unhealthy. Conflicts degrade health but the
// service still answers queries about them.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Check(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, "readiness", code, resp)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, component string, code int, resp Response) {
	logger := log.WithComponentFromContext(r.Context(), component)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, component+".encode_error").Msg("failed to encode health response")
	}

	logger.Debug().
		Str(log.FieldEvent, component+".checked").
		Str(log.FieldStatus, string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("health check performed")
}

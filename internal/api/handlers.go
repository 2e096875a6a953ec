// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/history"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/report"
)

const maxRunsLimit = 500

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type reportBody struct {
	RunID        string            `json:"run_id"`
	Status       string            `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMS   float64           `json:"duration_ms"`
	Declarations int               `json:"declarations"`
	Conflicts    []report.Conflict `json:"conflicts"`
	Error        string            `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := xglog.WithComponent("api")
		logger.Debug().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.cfg.Results.Last()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no_run", Detail: "no check has completed yet"})
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", report.FormatJSON:
	case report.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Report))
		return
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_format", Detail: "format must be text or json"})
		return
	}

	body := reportBody{
		RunID:        res.RunID,
		Status:       res.Status(),
		StartedAt:    res.StartedAt,
		DurationMS:   float64(res.Duration) / float64(time.Millisecond),
		Declarations: res.Declarations,
		Conflicts:    report.NewDocument(res.Groups, res.Declarations).Conflicts,
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "history_disabled", Detail: "run history is not enabled"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_limit", Detail: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Str(xglog.FieldEvent, "api.history_failed").Msg("failed to read run history")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "history_unavailable"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

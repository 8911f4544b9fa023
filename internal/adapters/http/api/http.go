// Package api exposes the read-only HTTP surface of a running benchmark.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/pathbench/internal/domain/aggregate"
	"github.com/okian/pathbench/internal/domain/decision"
	"github.com/okian/pathbench/internal/scheduler"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Progress reports the scheduler state of the current run.
	Progress() scheduler.Progress

	// Report returns the metrics and verdicts of the last finished run.
	// ok is false until a run has finished.
	Report() (report Report, ok bool)
}

// Report is the read shape of a finished run.
type Report struct {
	RunID      string                    `json:"runId"`
	Baseline   string                    `json:"baseline"`
	Aggregates []aggregate.VendorMetrics `json:"aggregates"`
	Decisions  []decision.Decision       `json:"decisions"`
}

// Server wires HTTP routes for the benchmark API.
type Server struct {
	healthHandler   *HealthHandler
	progressHandler *ProgressHandler
	reportHandler   *ReportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		progressHandler: NewProgressHandler(deps),
		reportHandler:   NewReportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/progress", MetricsMiddleware(s.progressHandler.HandleProgress, "progress"))
	mux.HandleFunc("/report", MetricsMiddleware(s.reportHandler.HandleReport, "report"))
	mux.HandleFunc("/openapi.yaml", handleOpenAPI)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

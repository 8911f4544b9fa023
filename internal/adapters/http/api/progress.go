package api

import (
	"net/http"
)

// ProgressHandler handles GET /progress.
type ProgressHandler struct {
	deps Dependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps Dependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleProgress writes the scheduler snapshot as JSON.
func (h *ProgressHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Progress())
}

// ReportHandler handles GET /report.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleReport writes the last finished run, or 404 while none has finished.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	report, ok := h.deps.Report()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", ErrNoReport)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

package httpapi

import (
	"net/http"
	"strings"

	"casefile/internal/adapters/reports"
)

type reportRequest struct {
	Formats []string `json:"formats"`
	Reason  string   `json:"reason"`
}

// serveCaseReports lists and enqueues report jobs for one case. Both
// directions require the report permission; the job itself re-resolves the
// case with the requesting actor when it runs.
func (h *Handler) serveCaseReports(w http.ResponseWriter, r *http.Request, caseID string) {
	if h.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report worker not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, err := h.Service.AuthorizeReport(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": h.Reports.ListReportsByCase(caseID)})
	case http.MethodPost:
		user, err := h.Service.AuthorizeReport(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		var req reportRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid report payload")
			return
		}
		formats := make([]reports.Format, 0, len(req.Formats))
		for _, f := range req.Formats {
			formats = append(formats, reports.Format(strings.ToLower(strings.TrimSpace(f))))
		}
		record, err := h.Reports.EnqueueReport(r.Context(), reports.Input{
			CaseID:      caseID,
			Formats:     formats,
			RequestedBy: user.ID,
			Reason:      req.Reason,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"report": record})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveReports(w http.ResponseWriter, r *http.Request, rest []string) {
	if h.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report worker not configured")
		return
	}
	if len(rest) != 1 || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, err := h.Service.AuthorizeReport(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	record, ok := h.Reports.GetReport(rest[0])
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": record})
}

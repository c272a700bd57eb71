package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"casefile/internal/core"
)

// uploadMemoryLimit bounds the in-memory portion of multipart parsing;
// larger payloads spill to disk. The service enforces the actual size cap.
const uploadMemoryLimit = 10 << 20

type custodyRequest struct {
	Location string  `json:"location"`
	Notes    *string `json:"notes"`
}

func (h *Handler) serveCaseEvidence(w http.ResponseWriter, r *http.Request, caseID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := h.Service.ListEvidenceByCase(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"evidence": items})
	case http.MethodPost:
		h.handleEvidenceUpload(w, r, caseID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleEvidenceUpload accepts a multipart form with a "file" part and
// optional label, location, file_name, and content_type fields.
func (h *Handler) handleEvidenceUpload(w http.ResponseWriter, r *http.Request, caseID string) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part required")
		return
	}
	defer func() { _ = file.Close() }()

	fileName := strings.TrimSpace(r.FormValue("file_name"))
	if fileName == "" {
		fileName = header.Filename
	}

	item, res, err := h.Service.AddEvidence(r.Context(), caseID, core.EvidenceInput{
		Label:       r.FormValue("label"),
		FileName:    fileName,
		ContentType: r.FormValue("content_type"),
		Location:    r.FormValue("location"),
	}, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"evidence": item}, res))
}

func (h *Handler) serveEvidence(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1:
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		item, err := h.Service.GetEvidence(r.Context(), rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"evidence": item})
	case len(rest) == 2 && rest[1] == "download":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.handleEvidenceDownload(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "url":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.handleEvidenceURL(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "custody":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.handleCustodyAppend(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "release":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.handleEvidenceRelease(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleEvidenceDownload(w http.ResponseWriter, r *http.Request, id string) {
	item, rc, err := h.Service.OpenEvidence(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", item.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.FileName))
	if item.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(item.SizeBytes, 10))
	}
	_, _ = io.Copy(w, rc)
}

// handleEvidenceURL returns a presigned download URL when the blob driver
// supports signing; the filesystem and memory drivers answer 501.
func (h *Handler) handleEvidenceURL(w http.ResponseWriter, r *http.Request, id string) {
	var expiry time.Duration
	if raw := r.URL.Query().Get("expiry"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expiry")
			return
		}
		expiry = parsed
	}
	url, err := h.Service.EvidenceDownloadURL(r.Context(), id, expiry)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (h *Handler) handleCustodyAppend(w http.ResponseWriter, r *http.Request, id string) {
	var req custodyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid custody payload")
		return
	}
	item, res, err := h.Service.AppendCustody(r.Context(), id, req.Location, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"evidence": item}, res))
}

func (h *Handler) handleEvidenceRelease(w http.ResponseWriter, r *http.Request, id string) {
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid release payload")
		return
	}
	item, res, err := h.Service.ReleaseEvidence(r.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"evidence": item}, res))
}

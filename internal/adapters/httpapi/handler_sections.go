package httpapi

import (
	"net/http"

	"casefile/internal/core"
)

type sectionRequest struct {
	Code        string `json:"code"`
	Statute     string `json:"statute"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type updateSectionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

func (h *Handler) serveSections(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			h.handleSectionSearch(w, r)
		case http.MethodPost:
			h.handleSectionCreate(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 2 && rest[0] == "code":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		section, err := h.Service.FindSectionByCode(r.Context(), rest[1])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"section": section})
	case len(rest) == 1:
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		h.handleSectionUpdate(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleSectionSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	var (
		sections []core.LegalSection
		err      error
	)
	if query != "" {
		sections, err = h.Service.SearchLegalSections(r.Context(), query)
	} else {
		sections, err = h.Service.ListLegalSections(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

func (h *Handler) handleSectionCreate(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid section payload")
		return
	}
	section, _, err := h.Service.AddLegalSection(r.Context(), core.LegalSection{
		Code:        req.Code,
		Statute:     req.Statute,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"section": section})
}

func (h *Handler) handleSectionUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid section payload")
		return
	}
	section, _, err := h.Service.UpdateLegalSection(r.Context(), id, func(s *core.LegalSection) error {
		if req.Title != nil {
			s.Title = *req.Title
		}
		if req.Description != nil {
			s.Description = *req.Description
		}
		if req.Category != nil {
			s.Category = *req.Category
		}
		return nil
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"section": section})
}

package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"casefile/internal/core"
)

type caseDraftRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	CrimeType        string     `json:"crime_type"`
	District         string     `json:"district"`
	Location         string     `json:"location"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	IncidentAt       *time.Time `json:"incident_at"`
	Severity         string     `json:"severity"`
	InformantName    string     `json:"informant_name"`
	InformantContact string     `json:"informant_contact"`
	Narrative        string     `json:"narrative"`
}

type casePatchRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	CrimeType   *string    `json:"crime_type"`
	District    *string    `json:"district"`
	Location    *string    `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	IncidentAt  *time.Time `json:"incident_at"`
	Severity    *string    `json:"severity"`
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type assignRequest struct {
	OfficerID string `json:"officer_id"`
}

type firDraftRequest struct {
	InformantName    string `json:"informant_name"`
	InformantContact string `json:"informant_contact"`
	Narrative        string `json:"narrative"`
}

type partyRequest struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	Age       *int    `json:"age"`
	Gender    *string `json:"gender"`
	Contact   *string `json:"contact"`
	Address   *string `json:"address"`
	Statement *string `json:"statement"`
}

type noteRequest struct {
	Body string `json:"body"`
}

type citationRequest struct {
	SectionID string  `json:"section_id"`
	Notes     *string `json:"notes"`
}

func (h *Handler) serveCases(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			h.handleCaseSearch(w, r)
		case http.MethodPost:
			h.handleCaseCreate(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 1 && rest[0] == "stats":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		stats, err := h.Service.CaseStatistics(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case len(rest) == 2 && rest[0] == "number":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		c, err := h.Service.FindCaseByNumber(r.Context(), rest[1])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"case": c})
	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			c, err := h.Service.GetCase(r.Context(), rest[0])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"case": c})
		case http.MethodPatch:
			h.handleCasePatch(w, r, rest[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 2:
		h.serveCaseSubresource(w, r, rest[0], rest[1])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveCaseSubresource(w http.ResponseWriter, r *http.Request, caseID, sub string) {
	switch sub {
	case "file":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		view, err := h.Service.CaseFile(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "status":
		h.handleCaseTransition(w, r, caseID)
	case "reopen":
		h.handleCaseReopen(w, r, caseID)
	case "archive":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		c, res, err := h.Service.ArchiveCase(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withWarnings(map[string]any{"case": c}, res))
	case "assign":
		h.handleCaseAssign(w, r, caseID)
	case "firs":
		h.serveCaseFIRs(w, r, caseID)
	case "parties":
		h.serveCaseParties(w, r, caseID)
	case "evidence":
		h.serveCaseEvidence(w, r, caseID)
	case "notes":
		h.serveCaseNotes(w, r, caseID)
	case "citations":
		h.serveCaseCitations(w, r, caseID)
	case "reports":
		h.serveCaseReports(w, r, caseID)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCaseSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseCaseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.Service.SearchCases(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleCaseCreate(w http.ResponseWriter, r *http.Request) {
	var req caseDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid case payload")
		return
	}
	c, fir, res, err := h.Service.RegisterCase(r.Context(), core.CaseDraft{
		Title:            req.Title,
		Description:      req.Description,
		CrimeType:        req.CrimeType,
		District:         req.District,
		Location:         req.Location,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		IncidentAt:       req.IncidentAt,
		Severity:         core.CaseSeverity(req.Severity),
		InformantName:    req.InformantName,
		InformantContact: req.InformantContact,
		Narrative:        req.Narrative,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"case": c, "fir": fir}, res))
}

func (h *Handler) handleCasePatch(w http.ResponseWriter, r *http.Request, id string) {
	var req casePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid case payload")
		return
	}
	patch := core.CaseDetailsPatch{
		Title:       req.Title,
		Description: req.Description,
		CrimeType:   req.CrimeType,
		District:    req.District,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IncidentAt:  req.IncidentAt,
	}
	if req.Severity != nil {
		severity := core.CaseSeverity(*req.Severity)
		patch.Severity = &severity
	}
	c, res, err := h.Service.UpdateCaseDetails(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"case": c}, res))
}

func (h *Handler) handleCaseTransition(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status payload")
		return
	}
	c, res, err := h.Service.TransitionCaseStatus(r.Context(), id, core.CaseStatus(req.Status), req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"case": c}, res))
}

func (h *Handler) handleCaseReopen(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reopen payload")
		return
	}
	c, res, err := h.Service.ReopenCase(r.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"case": c}, res))
}

func (h *Handler) handleCaseAssign(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment payload")
		return
	}
	c, res, err := h.Service.AssignOfficer(r.Context(), id, req.OfficerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"case": c}, res))
}

func (h *Handler) serveCaseFIRs(w http.ResponseWriter, r *http.Request, caseID string) {
	switch r.Method {
	case http.MethodGet:
		firs, err := h.Service.ListFIRsByCase(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"firs": firs})
	case http.MethodPost:
		var req firDraftRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid fir payload")
			return
		}
		fir, res, err := h.Service.FileSupplementaryFIR(r.Context(), caseID, core.FIRDraft{
			InformantName:    req.InformantName,
			InformantContact: req.InformantContact,
			Narrative:        req.Narrative,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"fir": fir}, res))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveCaseParties(w http.ResponseWriter, r *http.Request, caseID string) {
	switch r.Method {
	case http.MethodGet:
		parties, err := h.Service.ListPartiesByCase(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"parties": parties})
	case http.MethodPost:
		var req partyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid party payload")
			return
		}
		party, res, err := h.Service.AddParty(r.Context(), caseID, core.PartyInput{
			Kind:      core.PartyKind(req.Kind),
			Name:      req.Name,
			Age:       req.Age,
			Gender:    req.Gender,
			Contact:   req.Contact,
			Address:   req.Address,
			Statement: req.Statement,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"party": party}, res))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveCaseNotes(w http.ResponseWriter, r *http.Request, caseID string) {
	switch r.Method {
	case http.MethodGet:
		notes, err := h.Service.ListCaseNotes(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
	case http.MethodPost:
		var req noteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid note payload")
			return
		}
		note, res, err := h.Service.AppendCaseNote(r.Context(), caseID, req.Body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"note": note}, res))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveCaseCitations(w http.ResponseWriter, r *http.Request, caseID string) {
	switch r.Method {
	case http.MethodGet:
		citations, err := h.Service.ListCitationsByCase(r.Context(), caseID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"citations": citations})
	case http.MethodPost:
		var req citationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid citation payload")
			return
		}
		citation, res, err := h.Service.CiteSection(r.Context(), caseID, req.SectionID, req.Notes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, withWarnings(map[string]any{"citation": citation}, res))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) serveFIRs(w http.ResponseWriter, r *http.Request, rest []string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	switch {
	case len(rest) == 2 && rest[0] == "number":
		fir, err := h.Service.FindFIRByNumber(r.Context(), rest[1])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fir": fir})
	case len(rest) == 1:
		fir, err := h.Service.GetFIR(r.Context(), rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fir": fir})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveParties(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1:
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		h.handlePartyUpdate(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "withdraw":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		party, res, err := h.Service.WithdrawParty(r.Context(), rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withWarnings(map[string]any{"party": party}, res))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handlePartyUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req partyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid party payload")
		return
	}
	party, res, err := h.Service.UpdateParty(r.Context(), id, func(p *core.Party) error {
		if req.Kind != "" {
			p.Kind = core.PartyKind(req.Kind)
		}
		if req.Name != "" {
			p.Name = req.Name
		}
		if req.Age != nil {
			p.Age = req.Age
		}
		if req.Gender != nil {
			p.Gender = req.Gender
		}
		if req.Contact != nil {
			p.Contact = req.Contact
		}
		if req.Address != nil {
			p.Address = req.Address
		}
		if req.Statement != nil {
			p.Statement = req.Statement
		}
		return nil
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]any{"party": party}, res))
}

func withWarnings(payload map[string]any, res core.Result) map[string]any {
	if views := violationViews(res); len(views) > 0 {
		payload["warnings"] = views
	}
	return payload
}

func parseCaseQuery(r *http.Request) (core.CaseQuery, error) {
	params := r.URL.Query()
	query := core.CaseQuery{
		Text:      params.Get("text"),
		Status:    core.CaseStatus(params.Get("status")),
		Severity:  core.CaseSeverity(params.Get("severity")),
		District:  params.Get("district"),
		CrimeType: params.Get("crime_type"),
		OfficerID: params.Get("officer_id"),
	}
	var err error
	if query.FiledFrom, err = parseTimeParam(params.Get("filed_from")); err != nil {
		return query, fmt.Errorf("invalid filed_from")
	}
	if query.FiledTo, err = parseTimeParam(params.Get("filed_to")); err != nil {
		return query, fmt.Errorf("invalid filed_to")
	}
	if query.Limit, err = parseIntParam(params.Get("limit")); err != nil {
		return query, fmt.Errorf("invalid limit")
	}
	if query.Offset, err = parseIntParam(params.Get("offset")); err != nil {
		return query, fmt.Errorf("invalid offset")
	}
	return query, nil
}

// parseTimeParam accepts RFC3339 timestamps or bare dates.
func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func parseIntParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

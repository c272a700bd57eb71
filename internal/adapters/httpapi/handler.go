package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"casefile/internal/adapters/reports"
	"casefile/internal/auth"
	"casefile/internal/core"
)

// Handler serves the versioned JSON API. Every route except login and
// citizen self-registration requires a bearer token; the resolved user ID
// travels to the service as the acting user, and the service decides
// permissions and scoping from there.
type Handler struct {
	Service *core.Service
	Reports reports.Scheduler
	Tokens  *auth.TokenIssuer
	Logger  core.Logger
}

// NewHandler constructs the API handler.
func NewHandler(svc *core.Service, scheduler reports.Scheduler, tokens *auth.TokenIssuer) *Handler {
	return &Handler{Service: svc, Reports: scheduler, Tokens: tokens}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.route(rec, r)
	if h.Logger != nil {
		h.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Tokens == nil {
		writeError(w, http.StatusInternalServerError, "api handler not configured")
		return
	}

	rest, ok := strings.CutPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/api/v1/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	segments := strings.Split(rest, "/")

	if segments[0] == "auth" {
		h.serveAuth(w, r, segments[1:])
		return
	}

	ctx, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	r = r.WithContext(ctx)

	switch segments[0] {
	case "users":
		h.serveUsers(w, r, segments[1:])
	case "roles":
		h.serveRoles(w, r, segments[1:])
	case "cases":
		h.serveCases(w, r, segments[1:])
	case "firs":
		h.serveFIRs(w, r, segments[1:])
	case "parties":
		h.serveParties(w, r, segments[1:])
	case "evidence":
		h.serveEvidence(w, r, segments[1:])
	case "sections":
		h.serveSections(w, r, segments[1:])
	case "reports":
		h.serveReports(w, r, segments[1:])
	default:
		writeError(w, http.StatusNotFound, "unknown resource "+segments[0])
	}
}

// authenticate resolves the bearer token into an actor context. The service
// re-validates the account on every operation, so a token for a deactivated
// user still fails downstream.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		writeError(w, http.StatusUnauthorized, "bearer token required")
		return nil, false
	}
	userID, err := h.Tokens.Verify(strings.TrimPrefix(header, prefix))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return nil, false
	}
	return core.WithActor(r.Context(), userID), true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// decodeJSON fills dst from the request body, tolerating an empty body.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireMethod rejects the request with a 405 and reports false unless
// r carries the method m.
func requireMethod(w http.ResponseWriter, r *http.Request, m string) bool {
	if r.Method != m {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses: missing or bad
// credentials 401, permission and scoping denials 403, unknown entities
// 404, input validation 400, rule blocks 422, unsupported blob
// capabilities 501.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		notFound core.ErrNotFound
		denied   core.PermissionError
		invalid  core.ValidationError
		blocked  core.RuleViolationError
	)
	switch {
	case errors.Is(err, core.ErrNoActor), errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, denied.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": invalid.Error(), "field": invalid.Field})
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      blocked.Error(),
			"violations": violationViews(blocked.Result),
		})
	case errors.Is(err, core.ErrBlobUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type violationView struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id,omitempty"`
}

func violationViews(res core.Result) []violationView {
	if len(res.Violations) == 0 {
		return nil
	}
	out := make([]violationView, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationView{
			Rule:     v.Rule,
			Severity: string(v.Severity),
			Message:  v.Message,
			Entity:   string(v.Entity),
			EntityID: v.EntityID,
		})
	}
	return out
}

// userView is the account shape returned over HTTP. The stored password
// hash never leaves the service boundary.
type userView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	District    string    `json:"district,omitempty"`
	Role        string    `json:"role,omitempty"`
	RoleID      string    `json:"role_id"`
	BadgeNumber *string   `json:"badge_number,omitempty"`
	Department  *string   `json:"department,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) userView(u core.User) userView {
	view := userView{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		District:    u.District,
		RoleID:      u.RoleID,
		BadgeNumber: u.BadgeNumber,
		Department:  u.Department,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if role, ok := h.Service.Store().GetRole(u.RoleID); ok {
		view.Role = role.Name
	}
	return view
}

func (h *Handler) userViews(users []core.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, h.userView(u))
	}
	return out
}

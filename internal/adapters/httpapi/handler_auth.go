package httpapi

import (
	"net/http"

	"casefile/internal/core"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerCitizenRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	District string `json:"district"`
	Password string `json:"password"`
}

func (h *Handler) serveAuth(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		http.NotFound(w, r)
		return
	}
	switch rest[0] {
	case "login":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.handleLogin(w, r)
	case "register":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.handleRegisterCitizen(w, r)
	case "me":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.handleMe(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	user, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, expiry, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiry,
		"user":       h.userView(user),
	})
}

func (h *Handler) handleRegisterCitizen(w http.ResponseWriter, r *http.Request) {
	var req registerCitizenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid registration payload")
		return
	}
	user, _, err := h.Service.RegisterCitizen(r.Context(), core.CitizenInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		District: req.District,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": h.userView(user)})
}

// handleMe reads the account behind the presented token.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	actorID, _ := core.ActorFrom(ctx)
	user, err := h.Service.GetUser(ctx, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": h.userView(user)})
}

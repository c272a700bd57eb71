package httpapi

import (
	"net/http"

	"casefile/internal/core"
)

type createUserRequest struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	District    string  `json:"district"`
	Role        string  `json:"role"`
	BadgeNumber *string `json:"badge_number"`
	Department  *string `json:"department"`
	Password    string  `json:"password"`
}

type updateUserRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	District    *string `json:"district"`
	BadgeNumber *string `json:"badge_number"`
	Department  *string `json:"department"`
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

func (h *Handler) serveUsers(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			users, err := h.Service.ListUsers(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"users": h.userViews(users)})
		case http.MethodPost:
			h.handleUserCreate(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			user, err := h.Service.GetUser(r.Context(), rest[0])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"user": h.userView(user)})
		case http.MethodPatch:
			h.handleUserUpdate(w, r, rest[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 2 && rest[1] == "deactivate":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		user, _, err := h.Service.DeactivateUser(r.Context(), rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": h.userView(user)})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user payload")
		return
	}
	user, _, err := h.Service.RegisterUser(r.Context(), core.UserInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		District:    req.District,
		RoleName:    req.Role,
		BadgeNumber: req.BadgeNumber,
		Department:  req.Department,
		Password:    req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": h.userView(user)})
}

func (h *Handler) handleUserUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user payload")
		return
	}
	user, _, err := h.Service.UpdateUser(r.Context(), id, func(u *core.User) error {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.District != nil {
			u.District = *req.District
		}
		if req.BadgeNumber != nil {
			u.BadgeNumber = req.BadgeNumber
		}
		if req.Department != nil {
			u.Department = req.Department
		}
		return nil
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": h.userView(user)})
}

func (h *Handler) serveRoles(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			roles, err := h.Service.ListRoles(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
		case http.MethodPost:
			h.handleRoleCreate(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 1:
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		h.handleRoleUpdate(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid role payload")
		return
	}
	role, _, err := h.Service.CreateRole(r.Context(), core.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: permissions(req.Permissions),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"role": role})
}

func (h *Handler) handleRoleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid role payload")
		return
	}
	role, _, err := h.Service.UpdateRole(r.Context(), id, func(role *core.Role) error {
		if req.Description != nil {
			role.Description = *req.Description
		}
		if req.Permissions != nil {
			role.Permissions = permissions(*req.Permissions)
		}
		return nil
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": role})
}

func permissions(values []string) []core.Permission {
	out := make([]core.Permission, 0, len(values))
	for _, v := range values {
		out = append(out, core.Permission(v))
	}
	return out
}

package handler

import (
	"net/http"

	"github.com/eduresolve/support-platform/internal/middleware"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *service.UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: log}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	profile, err := h.users.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(profile))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	profile, err := h.users.Login(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(profile))
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	profile, err := h.users.Me(r.Context(), session.UID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(profile))
}

func authResponse(p *model.UserProfile) *model.AuthResponse {
	return &model.AuthResponse{
		Success: true,
		Data:    model.AuthUserData{User: *p},
	}
}

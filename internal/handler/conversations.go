// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/middleware"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// ConversationHandler handles the agent-facing conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	var req model.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StudentEmail == "" {
		req.StudentEmail = session.Email
	}

	conv, err := h.service.Create(ctx, session.Actor(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations?sort_by=&order=&status=
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resp, err := h.service.List(r.Context(), service.ListParams{
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
		Status: q.Get("status"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Assign handles PUT /api/v1/conversations/{id}/assign
// An empty body assigns the conversation to the calling agent.
func (h *ConversationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	var req model.AssignRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	agent := session.Actor()
	if req.AgentUID != "" {
		agent = lifecycle.Actor{UID: req.AgentUID, Name: req.AgentName}
	}

	conv, err := h.service.Assign(ctx, chi.URLParam(r, "id"), agent)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// UpdateStatus handles PUT /api/v1/conversations/{id}/status
func (h *ConversationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), string(req.Status), middleware.GetSession(ctx).Actor())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Suggestions handles GET /api/v1/conversations/{id}/suggestions
func (h *ConversationHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	suggestions, err := h.service.Suggestions(ctx, middleware.GetSession(ctx).UID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SuggestionsResponse{Suggestions: suggestions})
}

// Events handles GET /api/v1/conversations/{id}/events?limit=
func (h *ConversationHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := h.service.Events(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

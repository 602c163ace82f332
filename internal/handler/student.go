package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduresolve/support-platform/internal/middleware"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// StudentHandler handles the student-facing endpoints.
type StudentHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(svc *service.ConversationService, log *logger.Logger) *StudentHandler {
	return &StudentHandler{service: svc, logger: log}
}

// SubmitComplaint handles POST /api/v1/student/complaints
func (h *StudentHandler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	var req model.SubmitComplaintRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.SubmitComplaint(ctx, session.Actor(), session.Email, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/student/conversations
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.StudentList(ctx, middleware.GetSession(ctx).UID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/student/conversations/{id}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, err := h.service.StudentGet(ctx, middleware.GetSession(ctx).UID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduresolve/support-platform/internal/middleware"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// MessageHandler handles message endpoints for both sides of a conversation.
type MessageHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.ConversationService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// Reply handles POST /api/v1/conversations/{id}/messages and /reply
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Reply(ctx, chi.URLParam(r, "id"), middleware.GetSession(ctx).Actor(), req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SendMessageResponse{
		Success:   true,
		Timestamp: msg.Timestamp,
	})
}

// StudentReply handles POST /api/v1/student/conversations/{id}/reply
func (h *MessageHandler) StudentReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.StudentReply(ctx, chi.URLParam(r, "id"), middleware.GetSession(ctx).Actor(), req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SendMessageResponse{
		Success:   true,
		Timestamp: msg.Timestamp,
	})
}

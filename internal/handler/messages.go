package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/foundernet/messaging-platform/internal/middleware"
	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/internal/service"
	"github.com/foundernet/messaging-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// Send handles POST /api/v1/chats/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if err := middleware.ValidateMediaURL(req.MediaURL); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	params := service.SendParams{
		Content:  req.Content,
		Type:     model.MessageType(req.MessageType),
		MediaURL: req.MediaURL,
		FileType: req.FileType,
	}
	if req.ReplyTo != "" {
		replyTo, err := middleware.ParseObjectID(req.ReplyTo)
		if err != nil {
			writeValidationError(w, "invalid reply_to ID")
			return
		}
		params.ReplyTo = replyTo
	}
	if len(req.Mentions) > 0 {
		mentions, err := middleware.ParseObjectIDs(req.Mentions)
		if err != nil {
			writeValidationError(w, "invalid mention ID")
			return
		}
		params.Mentions = mentions
	}

	msg, err := h.service.Send(ctx, userID, chatID, params)
	if err != nil {
		if model.IsKind(err, model.KindInternal) {
			h.logger.Error("failed to send message", zap.Error(err))
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/chats/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	messages, err := h.service.GetMessages(ctx, chatID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListMessagesResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// Edit handles PATCH /api/v1/messages/{id}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	messageID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	msg, err := h.service.Edit(ctx, messageID, userID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /api/v1/messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	messageID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := h.service.Delete(ctx, messageID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddReaction handles POST /api/v1/messages/{id}/reactions
func (h *MessageHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.AddReaction)
}

// RemoveReaction handles DELETE /api/v1/messages/{id}/reactions
func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.RemoveReaction)
}

func (h *MessageHandler) reaction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, messageID, userID bson.ObjectID, emoji string) error) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	messageID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	if err := op(ctx, messageID, userID, req.Emoji); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles POST /api/v1/messages/{id}/status
func (h *MessageHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	messageID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	msg, err := h.service.AdvanceStatus(ctx, messageID, model.Status(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

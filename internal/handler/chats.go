package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/foundernet/messaging-platform/internal/middleware"
	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/internal/service"
	"github.com/foundernet/messaging-platform/pkg/logger"
)

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ConversationService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/chats. A single endpoint covers both
// private and group creation, discriminated by is_group.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	var req model.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	if req.IsGroup {
		if err := middleware.ValidateGroupName(req.GroupName); err != nil {
			writeValidationError(w, err.Error())
			return
		}
		participants, err := middleware.ParseObjectIDs(req.Participants)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}

		chat, err := h.service.CreateGroupChat(ctx, userID, req.GroupName, participants)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, chat)
		return
	}

	recipientID, err := middleware.ParseObjectID(req.RecipientID)
	if err != nil {
		writeValidationError(w, "recipient ID is required")
		return
	}

	chat, err := h.service.StartOrGetPrivateChat(ctx, userID, recipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// List handles GET /api/v1/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chats, err := h.service.ListChats(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListChatsResponse{
		Chats: chats,
		Total: len(chats),
	})
}

// UpdateGroup handles PATCH /api/v1/chats/{id}
func (h *ChatHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	patch := service.GroupPatch{}
	if req.GroupName != "" {
		if err := middleware.ValidateGroupName(req.GroupName); err != nil {
			writeValidationError(w, err.Error())
			return
		}
		patch.Name = &req.GroupName
	}
	if req.GroupAvatar != "" {
		if err := middleware.ValidateMediaURL(req.GroupAvatar); err != nil {
			writeValidationError(w, err.Error())
			return
		}
		patch.GroupAvatar = &req.GroupAvatar
	}
	if req.Participants != nil {
		participants, err := middleware.ParseObjectIDs(req.Participants)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		patch.Participants = participants
	}

	chat, err := h.service.UpdateGroup(ctx, chatID, userID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// RemoveParticipants handles POST /api/v1/chats/{id}/participants/remove
func (h *ChatHandler) RemoveParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req model.RemoveParticipantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if len(req.Participants) == 0 {
		writeValidationError(w, "participants to remove are required")
		return
	}
	toRemove, err := middleware.ParseObjectIDs(req.Participants)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := h.service.RemoveParticipants(ctx, chatID, userID, toRemove); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/chats/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := h.service.DeleteChat(ctx, chatID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /api/v1/chats/{id}/restore
func (h *ChatHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserObjectID(ctx)

	chatID, err := middleware.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	chat, err := h.service.RestoreChat(ctx, chatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

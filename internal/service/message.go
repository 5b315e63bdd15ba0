package service

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/foundernet/messaging-platform/internal/events"
	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/pkg/logger"
	"github.com/foundernet/messaging-platform/pkg/metrics"
)

// MessageService handles message operations. Messages are mutated only
// by their sender; the chat's last-message pointer is maintained here.
type MessageService struct {
	chats    ChatStore
	messages MessageStore
	users    UserDirectory
	events   *events.Publisher
	logger   *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(chats ChatStore, messages MessageStore, users UserDirectory, pub *events.Publisher, log *logger.Logger) *MessageService {
	return &MessageService{
		chats:    chats,
		messages: messages,
		users:    users,
		events:   pub,
		logger:   log,
	}
}

// SendParams are the caller-supplied fields of a new message.
type SendParams struct {
	Content  string
	Type     model.MessageType
	MediaURL string
	FileType string
	ReplyTo  bson.ObjectID
	Mentions []bson.ObjectID
}

// Send creates a message in the chat and advances the chat's
// last-message pointer. The two writes are sequential single-document
// updates: if the pointer update fails after the message persisted, the
// message remains and the failure surfaces as an internal error.
func (s *MessageService) Send(ctx context.Context, senderID, chatID bson.ObjectID, params SendParams) (*model.MessageView, error) {
	if chatID.IsZero() {
		return nil, model.NewValidation("chat ID is required")
	}
	if params.Type == "" {
		params.Type = model.TypeText
	}
	if params.Type == model.TypeText && params.Content == "" {
		return nil, model.NewValidation("text content is required")
	}
	if params.Type != model.TypeText && params.MediaURL == "" {
		return nil, model.NewValidation("media URL is required for non-text messages")
	}

	if _, err := s.chats.FindByID(ctx, chatID); err != nil {
		return nil, err
	}

	// reply_to is a weak reference: a dangling value is accepted, but a
	// resolvable one must point into the same chat.
	if !params.ReplyTo.IsZero() {
		if target, err := s.messages.FindByID(ctx, params.ReplyTo); err == nil {
			if target.ChatID != chatID {
				return nil, model.NewValidation("reply target belongs to a different chat")
			}
		} else if !model.IsKind(err, model.KindNotFound) {
			return nil, err
		}
	}

	msg, err := s.messages.Create(ctx, &model.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  params.Content,
		Type:     params.Type,
		MediaURL: params.MediaURL,
		FileType: params.FileType,
		ReplyTo:  params.ReplyTo,
		Mentions: params.Mentions,
	})
	if err != nil {
		return nil, err
	}

	if err := s.chats.SetLastMessage(ctx, chatID, msg.ID); err != nil {
		// The message is already durable; only the pointer is stale.
		// Callers may retry the whole send, which creates a duplicate.
		s.logger.Error("chat pointer update failed after message creation",
			zap.String("chat_id", chatID.Hex()),
			zap.String("message_id", msg.ID.Hex()),
			zap.Error(err),
		)
		return nil, model.NewInternal(err, "message %s persisted but chat update failed", msg.ID.Hex())
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	s.events.Publish(ctx, events.Event{
		Type:      events.MessageSent,
		ChatID:    chatID.Hex(),
		ActorID:   senderID.Hex(),
		MessageID: msg.ID.Hex(),
	})

	view := model.MessageView{Message: *msg}
	if sender, err := s.users.DisplayInfo(ctx, senderID); err == nil {
		view.Sender = sender
	}
	return &view, nil
}

// GetMessages returns the chat's non-deleted messages, newest first,
// with senders resolved for display.
func (s *MessageService) GetMessages(ctx context.Context, chatID bson.ObjectID) ([]model.MessageView, error) {
	if chatID.IsZero() {
		return nil, model.NewValidation("chat ID is required")
	}

	messages, err := s.messages.ListForChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]bson.ObjectID, 0, len(messages))
	seen := make(map[bson.ObjectID]struct{})
	for _, m := range messages {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	infos, err := s.users.DisplayInfos(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	views := make([]model.MessageView, 0, len(messages))
	for _, m := range messages {
		view := model.MessageView{Message: m}
		if info, ok := infos[m.SenderID]; ok {
			view.Sender = &info
		}
		views = append(views, view)
	}
	return views, nil
}

// Edit replaces a message's content. Only the sender may edit, and the
// message is marked edited from then on.
func (s *MessageService) Edit(ctx context.Context, messageID, requesterID bson.ObjectID, content string) (*model.Message, error) {
	if content == "" {
		return nil, model.NewValidation("content is required")
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, model.NewAuthorization("only the sender can edit the message")
	}

	edited := true
	updated, err := s.messages.Update(ctx, messageID, model.MessagePatch{
		Content: &content,
		Edited:  &edited,
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.MessageEdited,
		ChatID:    msg.ChatID.Hex(),
		ActorID:   requesterID.Hex(),
		MessageID: messageID.Hex(),
	})
	return updated, nil
}

// Delete soft-deletes a message. Only the sender may delete; there is
// no restore path for messages.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID bson.ObjectID) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return model.NewAuthorization("only the sender can delete the message")
	}

	deleted := true
	if _, err := s.messages.Update(ctx, messageID, model.MessagePatch{IsDeleted: &deleted}); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.MessageDeleted,
		ChatID:    msg.ChatID.Hex(),
		ActorID:   requesterID.Hex(),
		MessageID: messageID.Hex(),
	})
	return nil
}

// AddReaction appends a reaction symbol to the user's list on the
// message.
func (s *MessageService) AddReaction(ctx context.Context, messageID, userID bson.ObjectID, emoji string) error {
	if emoji == "" {
		return model.NewValidation("emoji is required")
	}
	return s.messages.AddReaction(ctx, messageID, userID, emoji)
}

// RemoveReaction removes a reaction symbol from the user's list.
func (s *MessageService) RemoveReaction(ctx context.Context, messageID, userID bson.ObjectID, emoji string) error {
	if emoji == "" {
		return model.NewValidation("emoji is required")
	}
	return s.messages.RemoveReaction(ctx, messageID, userID, emoji)
}

func statusRank(st model.Status) int {
	switch st {
	case model.StatusSent:
		return 0
	case model.StatusDelivered:
		return 1
	case model.StatusRead:
		return 2
	}
	return -1
}

// AdvanceStatus moves a message's delivery status forward. Backward or
// repeated transitions are no-ops, which keeps the sent → delivered →
// read progression monotonic without a store-level check.
func (s *MessageService) AdvanceStatus(ctx context.Context, messageID bson.ObjectID, status model.Status) (*model.Message, error) {
	if !model.ValidStatus(status) {
		return nil, model.NewValidation("unknown status %q", status)
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if statusRank(status) <= statusRank(msg.Status) {
		return msg, nil
	}

	return s.messages.Update(ctx, messageID, model.MessagePatch{Status: &status})
}

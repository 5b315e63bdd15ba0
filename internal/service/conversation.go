package service

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/foundernet/messaging-platform/internal/events"
	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/internal/store"
	"github.com/foundernet/messaging-platform/pkg/logger"
	"github.com/foundernet/messaging-platform/pkg/metrics"
)

// ConversationService handles chat operations. It is the only writer of
// Chat entities and enforces membership, admin authority, and the
// private-chat dedup invariant.
type ConversationService struct {
	chats    ChatStore
	messages MessageStore
	users    UserDirectory
	events   *events.Publisher
	logger   *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(chats ChatStore, messages MessageStore, users UserDirectory, pub *events.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		chats:    chats,
		messages: messages,
		users:    users,
		events:   pub,
		logger:   log,
	}
}

// StartOrGetPrivateChat returns the existing non-deleted private chat
// between the two users, or creates one named after the recipient.
// Idempotent: calling twice never creates a second chat.
func (s *ConversationService) StartOrGetPrivateChat(ctx context.Context, userID, recipientID bson.ObjectID) (*model.Chat, error) {
	if recipientID.IsZero() {
		return nil, model.NewValidation("recipient ID is required")
	}
	if userID == recipientID {
		return nil, model.NewValidation("cannot start a private chat with yourself")
	}

	existing, err := s.chats.FindPrivateBetween(ctx, userID, recipientID)
	if err == nil {
		return existing, nil
	}
	if !model.IsKind(err, model.KindNotFound) {
		return nil, err
	}

	recipient, err := s.users.DisplayInfo(ctx, recipientID)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewNotFound("recipient user not found")
		}
		return nil, err
	}

	chat, err := s.chats.CreatePrivate(ctx, userID, recipientID, recipient.Name)
	if err == store.ErrDuplicatePair {
		// Lost the insert race; the winner is the chat we wanted.
		return s.chats.FindPrivateBetween(ctx, userID, recipientID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("private chat created",
		zap.String("chat_id", chat.ID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("recipient_id", recipientID.Hex()),
	)
	metrics.ChatsTotal.WithLabelValues("private").Inc()
	s.events.Publish(ctx, events.Event{
		Type:    events.ChatCreated,
		ChatID:  chat.ID.Hex(),
		ActorID: userID.Hex(),
	})

	return chat, nil
}

// CreateGroupChat creates a group chat with the caller as admin. The
// caller is always a participant, listed or not.
func (s *ConversationService) CreateGroupChat(ctx context.Context, userID bson.ObjectID, groupName string, participants []bson.ObjectID) (*model.Chat, error) {
	if groupName == "" {
		return nil, model.NewValidation("a group chat must have a valid name")
	}
	if len(participants) < 2 {
		return nil, model.NewValidation("a group chat must have at least 2 participants")
	}

	members := participants
	creatorListed := false
	for _, p := range members {
		if p == userID {
			creatorListed = true
			break
		}
	}
	if !creatorListed {
		members = append([]bson.ObjectID{userID}, members...)
	}

	chat, err := s.chats.CreateGroup(ctx, groupName, members, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("group chat created",
		zap.String("chat_id", chat.ID.Hex()),
		zap.String("admin", userID.Hex()),
		zap.Int("participants", len(chat.Participants)),
	)
	metrics.ChatsTotal.WithLabelValues("group").Inc()
	s.events.Publish(ctx, events.Event{
		Type:    events.ChatCreated,
		ChatID:  chat.ID.Hex(),
		ActorID: userID.Hex(),
	})

	return chat, nil
}

// ListChats returns the user's non-deleted chats, newest activity first,
// with participants and the last message resolved for display.
func (s *ConversationService) ListChats(ctx context.Context, userID bson.ObjectID) ([]model.ChatView, error) {
	chats, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]bson.ObjectID, 0, len(chats)*2)
	seen := make(map[bson.ObjectID]struct{})
	for _, c := range chats {
		for _, p := range c.Participants {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				userIDs = append(userIDs, p)
			}
		}
	}

	infos, err := s.users.DisplayInfos(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]model.ChatView, 0, len(chats))
	for _, c := range chats {
		view := model.ChatView{Chat: c}
		for _, p := range c.Participants {
			if info, ok := infos[p]; ok {
				view.ParticipantInfo = append(view.ParticipantInfo, info)
			}
		}
		// last_message is a weak reference: a dangling or deleted
		// referent resolves to absent, never an error.
		if !c.LastMessage.IsZero() {
			if msg, err := s.messages.FindByID(ctx, c.LastMessage); err == nil && !msg.IsDeleted {
				mv := model.MessageView{Message: *msg}
				if info, ok := infos[msg.SenderID]; ok {
					mv.Sender = &info
				}
				view.LastMessageBody = &mv
			} else if err != nil && !model.IsKind(err, model.KindNotFound) {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// GroupPatch is the admin-settable slice of a group chat.
type GroupPatch struct {
	Name         *string
	Participants []bson.ObjectID
	GroupAvatar  *string
}

// UpdateGroup applies name, participant, and avatar changes to a group
// chat. Only the admin may mutate a group; the admin always remains a
// participant.
func (s *ConversationService) UpdateGroup(ctx context.Context, chatID, requesterID bson.ObjectID, patch GroupPatch) (*model.Chat, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, model.NewNotFound("group chat does not exist")
	}
	if chat.Admin != requesterID {
		return nil, model.NewAuthorization("only the group admin can change the group details")
	}

	storePatch := model.ChatPatch{
		Name:        patch.Name,
		GroupAvatar: patch.GroupAvatar,
	}
	if patch.Participants != nil {
		members := patch.Participants
		adminListed := false
		for _, p := range members {
			if p == chat.Admin {
				adminListed = true
				break
			}
		}
		if !adminListed {
			members = append([]bson.ObjectID{chat.Admin}, members...)
		}
		if len(members) < 2 {
			return nil, model.NewValidation("a group chat must have at least 2 participants")
		}
		storePatch.Participants = members
	}

	updated, err := s.chats.Update(ctx, chatID, storePatch)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.ChatUpdated,
		ChatID:  chatID.Hex(),
		ActorID: requesterID.Hex(),
	})
	return updated, nil
}

// RemoveParticipants drops the given members from a group chat. Members
// not currently present are silently ignored. A removal that would
// leave fewer than 2 participants is rejected; removing the admin
// promotes the first remaining participant.
func (s *ConversationService) RemoveParticipants(ctx context.Context, chatID, requesterID bson.ObjectID, toRemove []bson.ObjectID) error {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return model.NewForbidden("cannot remove participants from a private chat")
	}
	if chat.Admin != requesterID {
		return model.NewAuthorization("only the group admin can remove participants")
	}

	removeSet := make(map[bson.ObjectID]struct{}, len(toRemove))
	for _, id := range toRemove {
		removeSet[id] = struct{}{}
	}

	remaining := make([]bson.ObjectID, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		if _, gone := removeSet[p]; !gone {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == len(chat.Participants) {
		return nil
	}
	if len(remaining) < 2 {
		return model.NewForbidden("cannot reduce a group below 2 participants")
	}

	patch := model.ChatPatch{Participants: remaining}
	if _, adminGone := removeSet[chat.Admin]; adminGone {
		newAdmin := remaining[0]
		patch.Admin = &newAdmin
	}

	if _, err := s.chats.Update(ctx, chatID, patch); err != nil {
		return err
	}

	s.logger.Info("participants removed",
		zap.String("chat_id", chatID.Hex()),
		zap.Int("removed", len(chat.Participants)-len(remaining)),
	)
	s.events.Publish(ctx, events.Event{
		Type:    events.ChatUpdated,
		ChatID:  chatID.Hex(),
		ActorID: requesterID.Hex(),
	})
	return nil
}

// DeleteChat soft-deletes a chat. Its data is retained and it can be
// restored.
func (s *ConversationService) DeleteChat(ctx context.Context, chatID, actorID bson.ObjectID) error {
	if err := s.chats.SoftDelete(ctx, chatID); err != nil {
		return err
	}
	s.events.Publish(ctx, events.Event{
		Type:    events.ChatDeleted,
		ChatID:  chatID.Hex(),
		ActorID: actorID.Hex(),
	})
	return nil
}

// RestoreChat un-deletes a soft-deleted chat and returns it.
func (s *ConversationService) RestoreChat(ctx context.Context, chatID, actorID bson.ObjectID) (*model.Chat, error) {
	chat, err := s.chats.Restore(ctx, chatID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Type:    events.ChatRestored,
		ChatID:  chatID.Hex(),
		ActorID: actorID.Hex(),
	})
	return chat, nil
}

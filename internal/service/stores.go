// Package service provides business logic for the messaging platform.
package service

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/foundernet/messaging-platform/internal/model"
)

// ChatStore is the persistence boundary for Chat entities.
type ChatStore interface {
	CreatePrivate(ctx context.Context, userA, userB bson.ObjectID, displayName string) (*model.Chat, error)
	CreateGroup(ctx context.Context, name string, participants []bson.ObjectID, adminID bson.ObjectID) (*model.Chat, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*model.Chat, error)
	FindPrivateBetween(ctx context.Context, userA, userB bson.ObjectID) (*model.Chat, error)
	ListForUser(ctx context.Context, userID bson.ObjectID) ([]model.Chat, error)
	Update(ctx context.Context, id bson.ObjectID, patch model.ChatPatch) (*model.Chat, error)
	SetLastMessage(ctx context.Context, chatID, messageID bson.ObjectID) error
	SoftDelete(ctx context.Context, id bson.ObjectID) error
	Restore(ctx context.Context, id bson.ObjectID) (*model.Chat, error)
}

// MessageStore is the persistence boundary for Message entities.
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*model.Message, error)
	ListForChat(ctx context.Context, chatID bson.ObjectID) ([]model.Message, error)
	Update(ctx context.Context, id bson.ObjectID, patch model.MessagePatch) (*model.Message, error)
	AddReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error
	RemoveReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error
}

// UserDirectory resolves user display info. It is the identity
// collaborator's read surface; messaging never writes users.
type UserDirectory interface {
	DisplayInfo(ctx context.Context, id bson.ObjectID) (*model.UserInfo, error)
	DisplayInfos(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]model.UserInfo, error)
}

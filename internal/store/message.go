package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/pkg/metrics"
)

// MessageStore persists Message entities.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a message store backed by db.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Create validates cross-field constraints and inserts the message.
// chat_id resolution is the caller's responsibility; the store checks
// only field-level invariants.
func (s *MessageStore) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.ChatID.IsZero() {
		return nil, model.NewValidation("chat ID is required")
	}
	if msg.SenderID.IsZero() {
		return nil, model.NewValidation("sender ID is required")
	}
	if msg.Type == "" {
		msg.Type = model.TypeText
	}
	if !model.ValidMessageType(msg.Type) {
		return nil, model.NewValidation("unknown message type %q", msg.Type)
	}
	if msg.Type == model.TypeText && msg.Content == "" {
		return nil, model.NewValidation("text content is required")
	}
	if msg.Type != model.TypeText && msg.MediaURL == "" {
		return nil, model.NewValidation("media URL is required for %s messages", msg.Type)
	}
	if msg.Status == "" {
		msg.Status = model.StatusSent
	}

	now := time.Now().UTC()
	msg.ID = bson.NewObjectID()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	defer metrics.ObserveStoreOp(messagesCollection, "insert", time.Now())
	if _, err := s.db.messages().InsertOne(ctx, msg); err != nil {
		return nil, model.NewInternal(err, "failed to create message")
	}
	return msg, nil
}

// FindByID returns a message regardless of its deleted flag.
func (s *MessageStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Message, error) {
	defer metrics.ObserveStoreOp(messagesCollection, "find_one", time.Now())

	var msg model.Message
	err := s.db.messages().FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("message %s not found", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to load message")
	}
	return &msg, nil
}

// ListForChat returns the chat's non-deleted messages, newest first.
func (s *MessageStore) ListForChat(ctx context.Context, chatID bson.ObjectID) ([]model.Message, error) {
	defer metrics.ObserveStoreOp(messagesCollection, "find", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.messages().Find(ctx, bson.M{
		"chat_id":    chatID,
		"is_deleted": false,
	}, opts)
	if err != nil {
		return nil, model.NewInternal(err, "failed to list messages")
	}
	defer cur.Close(ctx)

	var messages []model.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, model.NewInternal(err, "failed to decode messages")
	}
	return messages, nil
}

// Update applies a partial update and returns the updated message.
func (s *MessageStore) Update(ctx context.Context, id bson.ObjectID, patch model.MessagePatch) (*model.Message, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Edited != nil {
		set["edited"] = *patch.Edited
	}
	if patch.IsDeleted != nil {
		set["is_deleted"] = *patch.IsDeleted
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	defer metrics.ObserveStoreOp(messagesCollection, "update", time.Now())

	var updated model.Message
	err := s.db.messages().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("message %s not found", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to update message")
	}
	return &updated, nil
}

// AddReaction appends a reaction symbol to the user's list on the
// message, preserving insertion order.
func (s *MessageStore) AddReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error {
	defer metrics.ObserveStoreOp(messagesCollection, "update", time.Now())

	res, err := s.db.messages().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"reactions." + userID.Hex(): emoji},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return model.NewInternal(err, "failed to add reaction")
	}
	if res.MatchedCount == 0 {
		return model.NewNotFound("message %s not found", id.Hex())
	}
	return nil
}

// RemoveReaction removes a symbol from the user's reaction list and
// drops the list once empty.
func (s *MessageStore) RemoveReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error {
	defer metrics.ObserveStoreOp(messagesCollection, "update", time.Now())

	field := "reactions." + userID.Hex()
	res, err := s.db.messages().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{field: emoji},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return model.NewInternal(err, "failed to remove reaction")
	}
	if res.MatchedCount == 0 {
		return model.NewNotFound("message %s not found", id.Hex())
	}

	// Drop the user's entry entirely once their list is empty.
	_, err = s.db.messages().UpdateOne(ctx,
		bson.M{"_id": id, field: bson.M{"$size": 0}},
		bson.M{"$unset": bson.M{field: ""}},
	)
	if err != nil {
		return model.NewInternal(err, "failed to prune empty reaction list")
	}
	return nil
}

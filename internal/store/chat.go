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

// ErrDuplicatePair is returned when inserting a private chat races with
// another insert for the same user pair. Callers should re-run the
// pair lookup and use the winner.
var ErrDuplicatePair = errors.New("private chat already exists for pair")

// ChatStore persists Chat entities and enforces their entity-level
// invariants.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store backed by db.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// CreatePrivate inserts a two-participant private chat. Dedup against an
// existing pair is the caller's job via FindPrivateBetween; the pair_key
// unique index backstops the race.
func (s *ChatStore) CreatePrivate(ctx context.Context, userA, userB bson.ObjectID, displayName string) (*model.Chat, error) {
	if userA.IsZero() || userB.IsZero() {
		return nil, model.NewValidation("both participants are required for a private chat")
	}
	if userA == userB {
		return nil, model.NewValidation("cannot start a private chat with yourself")
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:           bson.NewObjectID(),
		Name:         displayName,
		IsGroup:      false,
		Participants: []bson.ObjectID{userA, userB},
		PairKey:      model.PairKeyFor(userA, userB),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	defer metrics.ObserveStoreOp(chatsCollection, "insert", time.Now())
	if _, err := s.db.chats().InsertOne(ctx, chat); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicatePair
		}
		return nil, model.NewInternal(err, "failed to create private chat")
	}
	return chat, nil
}

// CreateGroup inserts a group chat with the given participants and admin.
func (s *ChatStore) CreateGroup(ctx context.Context, name string, participants []bson.ObjectID, adminID bson.ObjectID) (*model.Chat, error) {
	if name == "" {
		return nil, model.NewValidation("group name is required")
	}
	if len(participants) < 2 {
		return nil, model.NewValidation("a group chat requires at least 2 participants")
	}
	if adminID.IsZero() {
		return nil, model.NewValidation("group admin is required")
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:           bson.NewObjectID(),
		Name:         name,
		IsGroup:      true,
		Participants: dedupeIDs(participants),
		Admin:        adminID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	defer metrics.ObserveStoreOp(chatsCollection, "insert", time.Now())
	if _, err := s.db.chats().InsertOne(ctx, chat); err != nil {
		return nil, model.NewInternal(err, "failed to create group chat")
	}
	return chat, nil
}

// FindByID returns a chat regardless of its deleted flag.
func (s *ChatStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Chat, error) {
	defer metrics.ObserveStoreOp(chatsCollection, "find_one", time.Now())

	var chat model.Chat
	err := s.db.chats().FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("chat %s not found", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to load chat")
	}
	return &chat, nil
}

// FindPrivateBetween returns the non-deleted private chat whose
// participant set is exactly {userA, userB}, if one exists.
func (s *ChatStore) FindPrivateBetween(ctx context.Context, userA, userB bson.ObjectID) (*model.Chat, error) {
	defer metrics.ObserveStoreOp(chatsCollection, "find_one", time.Now())

	var chat model.Chat
	err := s.db.chats().FindOne(ctx, bson.M{
		"pair_key":   model.PairKeyFor(userA, userB),
		"is_group":   false,
		"is_deleted": false,
	}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("no private chat between %s and %s", userA.Hex(), userB.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to look up private chat")
	}
	return &chat, nil
}

// ListForUser returns all non-deleted chats the user participates in,
// most recently updated first.
func (s *ChatStore) ListForUser(ctx context.Context, userID bson.ObjectID) ([]model.Chat, error) {
	defer metrics.ObserveStoreOp(chatsCollection, "find", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.db.chats().Find(ctx, bson.M{
		"participants": userID,
		"is_deleted":   false,
	}, opts)
	if err != nil {
		return nil, model.NewInternal(err, "failed to list chats")
	}
	defer cur.Close(ctx)

	var chats []model.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, model.NewInternal(err, "failed to decode chats")
	}
	return chats, nil
}

// Update applies a partial update and returns the updated chat.
func (s *ChatStore) Update(ctx context.Context, id bson.ObjectID, patch model.ChatPatch) (*model.Chat, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["chat_name"] = *patch.Name
	}
	if patch.Participants != nil {
		set["participants"] = dedupeIDs(patch.Participants)
	}
	if patch.Admin != nil {
		set["admin"] = *patch.Admin
	}
	if patch.GroupAvatar != nil {
		set["group_avatar"] = *patch.GroupAvatar
	}

	defer metrics.ObserveStoreOp(chatsCollection, "update", time.Now())

	var updated model.Chat
	err := s.db.chats().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("chat %s not found", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to update chat")
	}
	return &updated, nil
}

// SetLastMessage points the chat at its most recent message and bumps
// updated_at, as a single document write.
func (s *ChatStore) SetLastMessage(ctx context.Context, chatID, messageID bson.ObjectID) error {
	defer metrics.ObserveStoreOp(chatsCollection, "update", time.Now())

	res, err := s.db.chats().UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{
			"last_message": messageID,
			"updated_at":   time.Now().UTC(),
		}},
	)
	if err != nil {
		return model.NewInternal(err, "failed to update chat last message")
	}
	if res.MatchedCount == 0 {
		return model.NewNotFound("chat %s not found", chatID.Hex())
	}
	return nil
}

// SoftDelete hides the chat from listings while retaining its data.
func (s *ChatStore) SoftDelete(ctx context.Context, id bson.ObjectID) error {
	defer metrics.ObserveStoreOp(chatsCollection, "update", time.Now())

	now := time.Now().UTC()
	res, err := s.db.chats().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": now,
		}},
	)
	if err != nil {
		return model.NewInternal(err, "failed to delete chat")
	}
	if res.MatchedCount == 0 {
		return model.NewNotFound("chat %s not found", id.Hex())
	}
	return nil
}

// Restore un-deletes a soft-deleted chat and returns it. Restoring a
// chat that is not deleted is a forbidden operation.
func (s *ChatStore) Restore(ctx context.Context, id bson.ObjectID) (*model.Chat, error) {
	defer metrics.ObserveStoreOp(chatsCollection, "update", time.Now())

	var restored model.Chat
	err := s.db.chats().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": true},
		bson.M{
			"$set":   bson.M{"is_deleted": false, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"deleted_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&restored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing chat from one that is not deleted.
		if _, ferr := s.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, model.NewForbidden("chat %s is not deleted", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to restore chat")
	}
	return &restored, nil
}

func dedupeIDs(ids []bson.ObjectID) []bson.ObjectID {
	seen := make(map[bson.ObjectID]struct{}, len(ids))
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

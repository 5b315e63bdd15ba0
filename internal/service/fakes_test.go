package service

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/foundernet/messaging-platform/internal/model"
	"github.com/foundernet/messaging-platform/internal/store"
)

// In-memory store fakes implementing the same contracts as the Mongo
// stores, so service behavior can be exercised without a database.

type fakeChatStore struct {
	chats map[bson.ObjectID]*model.Chat

	failSetLastMessage bool
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: make(map[bson.ObjectID]*model.Chat)}
}

func (f *fakeChatStore) CreatePrivate(ctx context.Context, userA, userB bson.ObjectID, displayName string) (*model.Chat, error) {
	if userA.IsZero() || userB.IsZero() {
		return nil, model.NewValidation("both participants are required for a private chat")
	}
	pairKey := model.PairKeyFor(userA, userB)
	for _, c := range f.chats {
		if !c.IsGroup && !c.IsDeleted && c.PairKey == pairKey {
			return nil, store.ErrDuplicatePair
		}
	}
	now := time.Now().UTC()
	chat := &model.Chat{
		ID:           bson.NewObjectID(),
		Name:         displayName,
		Participants: []bson.ObjectID{userA, userB},
		PairKey:      pairKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.chats[chat.ID] = chat
	return copyChat(chat), nil
}

func (f *fakeChatStore) CreateGroup(ctx context.Context, name string, participants []bson.ObjectID, adminID bson.ObjectID) (*model.Chat, error) {
	if name == "" {
		return nil, model.NewValidation("group name is required")
	}
	if len(participants) < 2 {
		return nil, model.NewValidation("a group chat requires at least 2 participants")
	}
	now := time.Now().UTC()
	chat := &model.Chat{
		ID:           bson.NewObjectID(),
		Name:         name,
		IsGroup:      true,
		Participants: append([]bson.ObjectID(nil), participants...),
		Admin:        adminID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.chats[chat.ID] = chat
	return copyChat(chat), nil
}

func (f *fakeChatStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, model.NewNotFound("chat %s not found", id.Hex())
	}
	return copyChat(chat), nil
}

func (f *fakeChatStore) FindPrivateBetween(ctx context.Context, userA, userB bson.ObjectID) (*model.Chat, error) {
	pairKey := model.PairKeyFor(userA, userB)
	for _, c := range f.chats {
		if !c.IsGroup && !c.IsDeleted && c.PairKey == pairKey {
			return copyChat(c), nil
		}
	}
	return nil, model.NewNotFound("no private chat between %s and %s", userA.Hex(), userB.Hex())
}

func (f *fakeChatStore) ListForUser(ctx context.Context, userID bson.ObjectID) ([]model.Chat, error) {
	var out []model.Chat
	for _, c := range f.chats {
		if c.IsDeleted || !c.HasParticipant(userID) {
			continue
		}
		out = append(out, *copyChat(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeChatStore) Update(ctx context.Context, id bson.ObjectID, patch model.ChatPatch) (*model.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, model.NewNotFound("chat %s not found", id.Hex())
	}
	if patch.Name != nil {
		chat.Name = *patch.Name
	}
	if patch.Participants != nil {
		chat.Participants = append([]bson.ObjectID(nil), patch.Participants...)
	}
	if patch.Admin != nil {
		chat.Admin = *patch.Admin
	}
	if patch.GroupAvatar != nil {
		chat.GroupAvatar = *patch.GroupAvatar
	}
	chat.UpdatedAt = time.Now().UTC()
	return copyChat(chat), nil
}

func (f *fakeChatStore) SetLastMessage(ctx context.Context, chatID, messageID bson.ObjectID) error {
	if f.failSetLastMessage {
		return model.NewInternal(nil, "simulated pointer update failure")
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return model.NewNotFound("chat %s not found", chatID.Hex())
	}
	chat.LastMessage = messageID
	chat.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeChatStore) SoftDelete(ctx context.Context, id bson.ObjectID) error {
	chat, ok := f.chats[id]
	if !ok {
		return model.NewNotFound("chat %s not found", id.Hex())
	}
	now := time.Now().UTC()
	chat.IsDeleted = true
	chat.DeletedAt = &now
	chat.UpdatedAt = now
	return nil
}

func (f *fakeChatStore) Restore(ctx context.Context, id bson.ObjectID) (*model.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, model.NewNotFound("chat %s not found", id.Hex())
	}
	if !chat.IsDeleted {
		return nil, model.NewForbidden("chat %s is not deleted", id.Hex())
	}
	chat.IsDeleted = false
	chat.DeletedAt = nil
	chat.UpdatedAt = time.Now().UTC()
	return copyChat(chat), nil
}

func copyChat(c *model.Chat) *model.Chat {
	dup := *c
	dup.Participants = append([]bson.ObjectID(nil), c.Participants...)
	return &dup
}

type fakeMessageStore struct {
	messages map[bson.ObjectID]*model.Message
	order    []bson.ObjectID
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[bson.ObjectID]*model.Message)}
}

func (f *fakeMessageStore) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.ChatID.IsZero() {
		return nil, model.NewValidation("chat ID is required")
	}
	if msg.Type == "" {
		msg.Type = model.TypeText
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
	stored := *msg
	f.messages[msg.ID] = &stored
	f.order = append(f.order, msg.ID)
	return msg, nil
}

func (f *fakeMessageStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, model.NewNotFound("message %s not found", id.Hex())
	}
	dup := *msg
	return &dup, nil
}

func (f *fakeMessageStore) ListForChat(ctx context.Context, chatID bson.ObjectID) ([]model.Message, error) {
	var out []model.Message
	// newest first: reverse insertion order
	for i := len(f.order) - 1; i >= 0; i-- {
		msg := f.messages[f.order[i]]
		if msg.ChatID == chatID && !msg.IsDeleted {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) Update(ctx context.Context, id bson.ObjectID, patch model.MessagePatch) (*model.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, model.NewNotFound("message %s not found", id.Hex())
	}
	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	if patch.Edited != nil {
		msg.Edited = *patch.Edited
	}
	if patch.IsDeleted != nil {
		msg.IsDeleted = *patch.IsDeleted
	}
	if patch.Status != nil {
		msg.Status = *patch.Status
	}
	msg.UpdatedAt = time.Now().UTC()
	dup := *msg
	return &dup, nil
}

func (f *fakeMessageStore) AddReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error {
	msg, ok := f.messages[id]
	if !ok {
		return model.NewNotFound("message %s not found", id.Hex())
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	msg.Reactions[userID.Hex()] = append(msg.Reactions[userID.Hex()], emoji)
	return nil
}

func (f *fakeMessageStore) RemoveReaction(ctx context.Context, id bson.ObjectID, userID bson.ObjectID, emoji string) error {
	msg, ok := f.messages[id]
	if !ok {
		return model.NewNotFound("message %s not found", id.Hex())
	}
	list := msg.Reactions[userID.Hex()]
	var kept []string
	for _, e := range list {
		if e != emoji {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(msg.Reactions, userID.Hex())
	} else {
		msg.Reactions[userID.Hex()] = kept
	}
	return nil
}

type fakeUserDirectory struct {
	users map[bson.ObjectID]model.UserInfo
}

func newFakeUserDirectory(users ...model.UserInfo) *fakeUserDirectory {
	f := &fakeUserDirectory{users: make(map[bson.ObjectID]model.UserInfo)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserDirectory) DisplayInfo(ctx context.Context, id bson.ObjectID) (*model.UserInfo, error) {
	info, ok := f.users[id]
	if !ok {
		return nil, model.NewNotFound("user %s not found", id.Hex())
	}
	return &info, nil
}

func (f *fakeUserDirectory) DisplayInfos(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]model.UserInfo, error) {
	out := make(map[bson.ObjectID]model.UserInfo)
	for _, id := range ids {
		if info, ok := f.users[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

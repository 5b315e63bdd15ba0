// Package model defines data structures for the messaging platform.
package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Chat represents a conversation container: either a private chat between
// exactly two users or a group chat with a designated admin.
type Chat struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string          `bson:"chat_name" json:"chat_name"`
	IsGroup      bool            `bson:"is_group" json:"is_group"`
	Participants []bson.ObjectID `bson:"participants" json:"participants"`
	Admin        bson.ObjectID   `bson:"admin,omitempty" json:"admin,omitempty"`
	LastMessage  bson.ObjectID   `bson:"last_message,omitempty" json:"last_message,omitempty"`
	GroupAvatar  string          `bson:"group_avatar,omitempty" json:"group_avatar,omitempty"`

	// PairKey is the sorted "hexA:hexB" of the two participants, set only
	// for private chats. A partial unique index on it enforces the
	// one-private-chat-per-pair invariant at the storage layer.
	PairKey string `bson:"pair_key,omitempty" json:"-"`

	IsDeleted bool       `bson:"is_deleted" json:"is_deleted,omitempty"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is a member of the chat.
func (c *Chat) HasParticipant(userID bson.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// PairKeyFor builds the canonical private-chat key for two users,
// independent of argument order.
func PairKeyFor(a, b bson.ObjectID) string {
	ha, hb := a.Hex(), b.Hex()
	if strings.Compare(ha, hb) > 0 {
		ha, hb = hb, ha
	}
	return ha + ":" + hb
}

// ChatPatch describes a partial update to a chat. Nil fields are left
// untouched.
type ChatPatch struct {
	Name         *string
	Participants []bson.ObjectID
	Admin        *bson.ObjectID
	GroupAvatar  *string
}

// ChatView is a chat joined with display data for listing.
type ChatView struct {
	Chat
	ParticipantInfo []UserInfo   `json:"participant_info,omitempty"`
	LastMessageBody *MessageView `json:"last_message_body,omitempty"`
}

// CreateChatRequest creates a private chat (is_group=false, recipient_id
// set) or a group chat (is_group=true, group_name and participants set).
type CreateChatRequest struct {
	IsGroup      bool     `json:"is_group"`
	RecipientID  string   `json:"recipient_id,omitempty"`
	GroupName    string   `json:"group_name,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// UpdateGroupRequest is the request to update a group chat.
type UpdateGroupRequest struct {
	GroupName    string   `json:"group_name,omitempty"`
	Participants []string `json:"participants,omitempty"`
	GroupAvatar  string   `json:"group_avatar,omitempty"`
}

// RemoveParticipantsRequest names the members to drop from a group chat.
type RemoveParticipantsRequest struct {
	Participants []string `json:"participants"`
}

// ListChatsResponse is the response for listing a user's chats.
type ListChatsResponse struct {
	Chats []ChatView `json:"chats"`
	Total int        `json:"total"`
}

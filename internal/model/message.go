package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageType classifies the message payload.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
	TypeFile  MessageType = "file"
	TypeVoice MessageType = "voice"
)

// ValidMessageType reports whether t is one of the supported types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeFile, TypeVoice:
		return true
	}
	return false
}

// Status is the delivery status of a message. Progression is expected to
// be sent → delivered → read; the store does not enforce it.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// ValidStatus reports whether s is one of the supported statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

// Message represents a single utterance in a chat.
type Message struct {
	ID       bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID   bson.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID bson.ObjectID `bson:"sender_id" json:"sender_id"`

	Content  string        `bson:"content,omitempty" json:"content,omitempty"`
	Type     MessageType   `bson:"message_type" json:"message_type"`
	MediaURL string        `bson:"media_url,omitempty" json:"media_url,omitempty"`
	FileType string        `bson:"file_type,omitempty" json:"file_type,omitempty"`
	Mentions []bson.ObjectID `bson:"mentions,omitempty" json:"mentions,omitempty"`

	Status Status `bson:"status" json:"status"`

	// Reactions maps a user's hex ID to the symbols they reacted with,
	// in insertion order.
	Reactions map[string][]string `bson:"reactions,omitempty" json:"reactions,omitempty"`

	// ReplyTo is a weak reference to another message in the same chat.
	// A dangling value resolves to absent on lookup, never an error.
	ReplyTo bson.ObjectID `bson:"reply_to,omitempty" json:"reply_to,omitempty"`

	IsDeleted bool      `bson:"is_deleted" json:"is_deleted,omitempty"`
	Edited    bool      `bson:"edited" json:"edited,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MessagePatch describes a partial update to a message.
type MessagePatch struct {
	Content   *string
	Edited    *bool
	IsDeleted *bool
	Status    *Status
}

// MessageView is a message joined with sender display data.
type MessageView struct {
	Message
	Sender *UserInfo `json:"sender,omitempty"`
}

// SendMessageRequest is the request to send a message to a chat.
type SendMessageRequest struct {
	Content     string   `json:"content,omitempty"`
	MessageType string   `json:"message_type,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
	FileType    string   `json:"file_type,omitempty"`
	ReplyTo     string   `json:"reply_to,omitempty"`
	Mentions    []string `json:"mentions,omitempty"`
}

// EditMessageRequest is the request to edit a message's content.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ReactionRequest adds or removes a single reaction symbol.
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// StatusRequest advances a message's delivery status.
type StatusRequest struct {
	Status string `json:"status"`
}

// ListMessagesResponse is the response for listing a chat's messages.
type ListMessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Total    int           `json:"total"`
}

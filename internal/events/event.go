// Package events publishes messaging domain events to NATS JetStream.
// Publishing is best-effort change notification; the Mongo stores remain
// the system of record.
package events

import "time"

// Type identifies a domain event.
type Type string

const (
	ChatCreated    Type = "chat.created"
	ChatUpdated    Type = "chat.updated"
	ChatDeleted    Type = "chat.deleted"
	ChatRestored   Type = "chat.restored"
	MessageSent    Type = "message.sent"
	MessageEdited  Type = "message.edited"
	MessageDeleted Type = "message.deleted"
)

// Event is the envelope published for every state change.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ChatID    string    `json:"chat_id"`
	ActorID   string    `json:"actor_id"`
	MessageID string    `json:"message_id,omitempty"`
	At        time.Time `json:"at"`
}

package middleware

import (
	"errors"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ParseObjectID validates and parses an entity ID from a URL or body.
func ParseObjectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, errors.New("invalid ID format")
	}
	return oid, nil
}

// ParseObjectIDs validates and parses a list of entity IDs.
func ParseObjectIDs(ids []string) ([]bson.ObjectID, error) {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := ParseObjectID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

// ValidateMessageContent validates message text content.
func ValidateMessageContent(content string) error {
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateGroupName validates a group chat name.
func ValidateGroupName(name string) error {
	if len(name) > 256 {
		return errors.New("group name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("group name must be valid UTF-8")
	}
	return nil
}

// ValidateMediaURL validates a media URL field.
func ValidateMediaURL(url string) error {
	if len(url) > 2048 {
		return errors.New("media URL exceeds maximum length")
	}
	return nil
}

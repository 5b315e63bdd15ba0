package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the slice of the platform's user document this subsystem
// reads. Account management lives elsewhere; messaging only resolves
// display info.
type User struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Email      string        `bson:"email" json:"email"`
	ProfileImg string        `bson:"profile_img,omitempty" json:"profile_img,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

// UserInfo is the display projection of a user embedded in chat and
// message reads.
type UserInfo struct {
	ID         bson.ObjectID `bson:"_id" json:"id"`
	Name       string        `bson:"name" json:"name"`
	ProfileImg string        `bson:"profile_img,omitempty" json:"profile_img,omitempty"`
}

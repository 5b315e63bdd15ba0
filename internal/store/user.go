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

// UserStore reads user display info. Account writes belong to the
// identity system; messaging only resolves names and avatars.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var userInfoProjection = bson.D{
	{Key: "name", Value: 1},
	{Key: "profile_img", Value: 1},
}

// DisplayInfo resolves one user's display projection.
func (s *UserStore) DisplayInfo(ctx context.Context, id bson.ObjectID) (*model.UserInfo, error) {
	defer metrics.ObserveStoreOp(usersCollection, "find_one", time.Now())

	var info model.UserInfo
	err := s.db.users().FindOne(ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(userInfoProjection),
	).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NewNotFound("user %s not found", id.Hex())
	}
	if err != nil {
		return nil, model.NewInternal(err, "failed to load user")
	}
	return &info, nil
}

// DisplayInfos resolves display projections for a set of users. Unknown
// IDs are simply absent from the result, not an error.
func (s *UserStore) DisplayInfos(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]model.UserInfo, error) {
	if len(ids) == 0 {
		return map[bson.ObjectID]model.UserInfo{}, nil
	}

	defer metrics.ObserveStoreOp(usersCollection, "find", time.Now())

	cur, err := s.db.users().Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(userInfoProjection),
	)
	if err != nil {
		return nil, model.NewInternal(err, "failed to load users")
	}
	defer cur.Close(ctx)

	out := make(map[bson.ObjectID]model.UserInfo, len(ids))
	for cur.Next(ctx) {
		var info model.UserInfo
		if err := cur.Decode(&info); err != nil {
			return nil, model.NewInternal(err, "failed to decode user")
		}
		out[info.ID] = info
	}
	if err := cur.Err(); err != nil {
		return nil, model.NewInternal(err, "failed to iterate users")
	}
	return out, nil
}

package mongodb

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	doc := *u
	doc.Email = strings.ToLower(u.Email)
	if doc.Skills == nil {
		doc.Skills = []string{}
	}
	_, err := s.users.InsertOne(ctx, &doc)
	return mapErr(err)
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var u user.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*user.User, error) {
	out := make(map[string]*user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := findAll[user.User](ctx, s.users, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, skip, limit int64) ([]*user.User, int64, error) {
	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	users, err := findAll[user.User](ctx, s.users, bson.M{}, pageOptions(skip, limit))
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch) (*user.User, error) {
	set := bson.M{"updatedAt": s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Skills != nil {
		set["skills"] = append([]string{}, (*patch.Skills)...)
	}

	var u user.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) updateUser(ctx context.Context, filter, set bson.M) error {
	set["updatedAt"] = s.now()
	res, err := s.users.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, bson.M{"_id": id}, bson.M{"password": hash})
}

func (s *Store) SetRole(ctx context.Context, email string, role user.Role) error {
	return s.updateUser(ctx, bson.M{"email": strings.ToLower(email)}, bson.M{"role": role})
}

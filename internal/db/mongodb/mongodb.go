// Package mongodb is the document store. Guards are expressed as query
// filters on single-document writes, which MongoDB applies atomically.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

type Store struct {
	client        *mongo.Client
	users         *mongo.Collection
	jobs          *mongo.Collection
	bids          *mongo.Collection
	ratings       *mongo.Collection
	notifications *mongo.Collection
	log           *logrus.Logger
	now           func() time.Time
}

var (
	_ marketplace.Store = (*Store)(nil)
	_ user.Store        = (*Store)(nil)
	_ alerts.Store      = (*Store)(nil)
)

// Open connects, pings and ensures the indexes every guard relies on.
func Open(ctx context.Context, uri, database string, log *logrus.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.WithField("database", database).Info("connected to mongodb")

	db := client.Database(database)
	s := &Store{
		client:        client,
		users:         db.Collection("users"),
		jobs:          db.Collection("jobs"),
		bids:          db.Collection("bids"),
		ratings:       db.Collection("ratings"),
		notifications: db.Collection("notifications"),
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		s.log.WithError(err).Warn("mongodb disconnect failed")
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	sets := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		}},
		{s.jobs, []mongo.IndexModel{
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}, {Key: "skillsRequired", Value: "text"}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "client", Value: 1}}},
			{Keys: bson.D{{Key: "freelancer", Value: 1}}},
			{Keys: bson.D{{Key: "budget.max", Value: 1}}},
		}},
		{s.bids, []mongo.IndexModel{
			{Keys: bson.D{{Key: "job", Value: 1}, {Key: "freelancer", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "freelancer", Value: 1}, {Key: "status", Value: 1}}},
		}},
		{s.ratings, []mongo.IndexModel{
			{Keys: bson.D{{Key: "job", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "freelancer", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.notifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "isRead", Value: 1}}},
		}},
	}
	for _, set := range sets {
		if _, err := set.coll.Indexes().CreateMany(ctx, set.models); err != nil {
			return fmt.Errorf("create %s indexes: %w", set.coll.Name(), err)
		}
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func pageOptions(skip, limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (s *Store) countBy(ctx context.Context, coll *mongo.Collection, field string) (map[string]int64, error) {
	cur, err := coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$" + field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []groupCount
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(groups))
	for _, g := range groups {
		out[g.Key] = g.Count
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (*marketplace.Stats, error) {
	byRole, err := s.countBy(ctx, s.users, "role")
	if err != nil {
		return nil, err
	}
	byStatus, err := s.countBy(ctx, s.jobs, "status")
	if err != nil {
		return nil, err
	}
	bids, err := s.bids.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratings.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return &marketplace.Stats{UsersByRole: byRole, JobsByStatus: byStatus, Bids: bids, Ratings: ratings}, nil
}

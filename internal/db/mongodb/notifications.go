package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/store"
)

func (s *Store) CreateNotification(ctx context.Context, n *alerts.Notification) error {
	_, err := s.notifications.InsertOne(ctx, n)
	return mapErr(err)
}

func (s *Store) ListNotifications(ctx context.Context, f alerts.Filter) ([]*alerts.Notification, int64, error) {
	q := bson.M{"user": f.UserID}
	if f.UnreadOnly {
		q["isRead"] = false
	}
	total, err := s.notifications.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	notes, err := findAll[alerts.Notification](ctx, s.notifications, q, pageOptions(f.Skip, f.Limit))
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountDocuments(ctx, bson.M{"user": userID, "isRead": false})
}

func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"user": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

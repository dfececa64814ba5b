package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
)

// CreateBid inserts the bid, relying on the unique (job, freelancer) index,
// then appends it to the job only while the job is open. If the job moved
// on in between, the insert is compensated.
func (s *Store) CreateBid(ctx context.Context, bid *marketplace.Bid) error {
	if err := s.jobs.FindOne(ctx, bson.M{"_id": bid.JobID}).Err(); err != nil {
		return mapErr(err)
	}
	if _, err := s.bids.InsertOne(ctx, bid); err != nil {
		return mapErr(err)
	}

	res, err := s.jobs.UpdateOne(ctx,
		bson.M{"_id": bid.JobID, "status": marketplace.JobOpen},
		bson.M{"$push": bson.M{"bids": bid.ID}, "$set": bson.M{"updatedAt": s.now()}})
	if err == nil && res.MatchedCount == 1 {
		return nil
	}

	if _, derr := s.bids.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": bid.ID}); derr != nil {
		s.log.WithError(derr).WithField("bid_id", bid.ID).Error("failed to remove orphaned bid")
	}
	if err != nil {
		return err
	}
	return store.ErrConditionFailed
}

func (s *Store) GetBid(ctx context.Context, id string) (*marketplace.Bid, error) {
	var b marketplace.Bid
	if err := s.bids.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (s *Store) ListBids(ctx context.Context, f marketplace.BidFilter) ([]*marketplace.Bid, error) {
	q := bson.M{}
	if f.JobID != "" {
		q["job"] = f.JobID
	}
	if f.FreelancerID != "" {
		q["freelancer"] = f.FreelancerID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return findAll[marketplace.Bid](ctx, s.bids, q, pageOptions(0, 0))
}

func (s *Store) SetBidStatus(ctx context.Context, id string, from, to marketplace.BidStatus) (*marketplace.Bid, error) {
	var b marketplace.Bid
	err := s.bids.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": s.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&b)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := s.bids.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConditionFailed
}

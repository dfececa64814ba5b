package mongodb

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

func (s *Store) CreateRating(ctx context.Context, r *marketplace.Rating) error {
	_, err := s.ratings.InsertOne(ctx, r)
	return mapErr(err)
}

func (s *Store) GetRatingByJob(ctx context.Context, jobID string) (*marketplace.Rating, error) {
	var r marketplace.Rating
	if err := s.ratings.FindOne(ctx, bson.M{"job": jobID}).Decode(&r); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) ListRatings(ctx context.Context, freelancerID string, skip, limit int64) ([]*marketplace.Rating, int64, error) {
	q := bson.M{"freelancer": freelancerID}
	total, err := s.ratings.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	ratings, err := findAll[marketplace.Rating](ctx, s.ratings, q, pageOptions(skip, limit))
	if err != nil {
		return nil, 0, err
	}
	return ratings, total, nil
}

func (s *Store) RatingBreakdown(ctx context.Context, freelancerID string) (map[int]int64, error) {
	cur, err := s.ratings.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "freelancer", Value: freelancerID}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$rating"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []struct {
		Stars int   `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	out := make(map[int]int64, 5)
	for _, g := range groups {
		out[g.Stars] = g.Count
	}
	return out, nil
}

// RecomputeFreelancerRating groups every rating of the freelancer and
// overwrites the user's summary. No ratings resets it to zero.
func (s *Store) RecomputeFreelancerRating(ctx context.Context, freelancerID string) (user.RatingSummary, error) {
	cur, err := s.ratings.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "freelancer", Value: freelancerID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$freelancer"},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return user.RatingSummary{}, err
	}
	defer cur.Close(ctx)

	var groups []user.RatingSummary
	if err := cur.All(ctx, &groups); err != nil {
		return user.RatingSummary{}, err
	}
	var sum user.RatingSummary
	if len(groups) > 0 {
		sum = groups[0]
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": freelancerID},
		bson.M{"$set": bson.M{"rating": sum, "updatedAt": s.now()}})
	if err != nil {
		return user.RatingSummary{}, err
	}
	if res.MatchedCount == 0 {
		return user.RatingSummary{}, store.ErrNotFound
	}
	return sum, nil
}

func (s *Store) FreelancersWithRatings(ctx context.Context) ([]string, error) {
	values, err := s.ratings.Distinct(ctx, "freelancer", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

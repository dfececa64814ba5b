package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

// FreelancerRating is a freelancer's aggregate with a per-star breakdown.
type FreelancerRating struct {
	FreelancerID string        `json:"freelancer"`
	Name         string        `json:"name"`
	Average      float64       `json:"average"`
	Count        int64         `json:"count"`
	Breakdown    map[int]int64 `json:"breakdown"`
}

// CreateRating records the client's rating of a completed job and refreshes
// the freelancer's aggregate.
func (s *Service) CreateRating(ctx context.Context, who user.Identity, jobID string, req CreateRatingRequest) (*Rating, error) {
	job, err := s.loadOwnedJob(ctx, who, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobCompleted {
		return nil, apperr.InvalidState("only completed jobs can be rated")
	}
	if !job.Claimed() {
		return nil, apperr.InvalidState("job has no freelancer to rate")
	}

	r := &Rating{
		ID:              uuid.NewString(),
		JobID:           jobID,
		ClientID:        who.ID,
		FreelancerID:    *job.FreelancerID,
		Rating:          req.Rating,
		Feedback:        req.Feedback,
		Quality:         req.Quality,
		Communication:   req.Communication,
		Professionalism: req.Professionalism,
		CreatedAt:       s.now(),
	}
	if err := s.store.CreateRating(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("this job has already been rated", err)
		}
		return nil, apperr.Internal("failed to create rating", err)
	}

	// The rating stands even if the aggregate refresh fails; recompute_ratings repairs it.
	if sum, err := s.store.RecomputeFreelancerRating(ctx, r.FreelancerID); err != nil {
		s.log.WithField("freelancer_id", r.FreelancerID).WithError(err).Error("failed to recompute rating")
	} else {
		s.log.WithFields(logrus.Fields{
			"freelancer_id": r.FreelancerID,
			"average":       sum.Average,
			"count":         sum.Count,
		}).Info("rating recorded")
	}

	s.notifier.Notify(ctx, alerts.Notification{
		UserID:     r.FreelancerID,
		Type:       alerts.TypeNewRating,
		Title:      "New rating",
		Message:    fmt.Sprintf("You received %d stars for %q", r.Rating, job.Title),
		RelatedJob: jobID,
	})
	return r, nil
}

func (s *Service) JobRating(ctx context.Context, jobID string) (*RatingView, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	r, err := s.store.GetRatingByJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("this job has not been rated")
		}
		return nil, apperr.Internal("failed to load rating", err)
	}
	found := s.summaries(ctx, r.ClientID)
	return &RatingView{Rating: r, Job: job.Brief(), Client: found[r.ClientID].Summary()}, nil
}

// FreelancerRatings returns the freelancer's aggregate and a page of ratings.
func (s *Service) FreelancerRatings(ctx context.Context, freelancerID string, page utils.Page) (*FreelancerRating, []*RatingView, utils.Pagination, error) {
	u, err := s.users.GetUser(ctx, freelancerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, utils.Pagination{}, apperr.NotFound("user not found")
		}
		return nil, nil, utils.Pagination{}, apperr.Internal("failed to load user", err)
	}

	breakdown, err := s.store.RatingBreakdown(ctx, freelancerID)
	if err != nil {
		return nil, nil, utils.Pagination{}, apperr.Internal("failed to load ratings", err)
	}
	if breakdown == nil {
		breakdown = make(map[int]int64, 5)
	}
	for star := 1; star <= 5; star++ {
		if _, ok := breakdown[star]; !ok {
			breakdown[star] = 0
		}
	}

	ratings, total, err := s.store.ListRatings(ctx, freelancerID, page.Skip(), int64(page.Limit))
	if err != nil {
		return nil, nil, utils.Pagination{}, apperr.Internal("failed to load ratings", err)
	}

	ids := make([]string, 0, len(ratings))
	for _, r := range ratings {
		ids = append(ids, r.ClientID)
	}
	clients := s.summaries(ctx, ids...)
	views := make([]*RatingView, 0, len(ratings))
	for _, r := range ratings {
		v := &RatingView{Rating: r, Client: clients[r.ClientID].Summary()}
		if job, err := s.store.GetJob(ctx, r.JobID); err == nil {
			v.Job = job.Brief()
		}
		views = append(views, v)
	}

	sum := &FreelancerRating{
		FreelancerID: u.ID,
		Name:         u.Name,
		Average:      u.Rating.Average,
		Count:        u.Rating.Count,
		Breakdown:    breakdown,
	}
	return sum, views, page.Paginate(total), nil
}

// RecomputeAll refreshes the aggregate of every freelancer that has ratings.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.store.FreelancersWithRatings(ctx)
	if err != nil {
		return 0, apperr.Internal("failed to list rated freelancers", err)
	}
	for i, id := range ids {
		if _, err := s.store.RecomputeFreelancerRating(ctx, id); err != nil {
			return i, apperr.Internal("failed to recompute rating for "+id, err)
		}
	}
	return len(ids), nil
}

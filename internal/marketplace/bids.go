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
)

func (s *Service) CreateBid(ctx context.Context, who user.Identity, jobID string, req CreateBidRequest) (*Bid, error) {
	if who.Role != user.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers can bid on jobs")
	}
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == who.ID {
		return nil, apperr.Forbidden("you cannot bid on your own job")
	}
	if job.Status != JobOpen {
		return nil, apperr.InvalidState("job is not accepting bids")
	}

	now := s.now()
	bid := &Bid{
		ID:           uuid.NewString(),
		JobID:        jobID,
		FreelancerID: who.ID,
		Amount:       *req.Amount,
		Duration:     req.Duration,
		Message:      req.Message,
		Status:       BidPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateBid(ctx, bid); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.DuplicateBid("you have already placed a bid on this job", err)
		case errors.Is(err, store.ErrConditionFailed):
			return nil, apperr.InvalidState("job is not accepting bids")
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal("failed to create bid", err)
	}

	s.log.WithFields(logrus.Fields{"bid_id": bid.ID, "job_id": jobID, "freelancer_id": who.ID}).Info("bid placed")
	s.notifier.Notify(ctx, alerts.Notification{
		UserID:     job.ClientID,
		Type:       alerts.TypeBidReceived,
		Title:      "New bid received",
		Message:    fmt.Sprintf("%s bid %.2f on %q", who.Name, bid.Amount, job.Title),
		RelatedJob: jobID,
		RelatedBid: bid.ID,
	})
	return bid, nil
}

// JobBids lists every bid on a job. Only the job owner may see them.
func (s *Service) JobBids(ctx context.Context, who user.Identity, jobID string) ([]*BidView, error) {
	job, err := s.loadOwnedJob(ctx, who, jobID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, BidFilter{JobID: jobID})
	if err != nil {
		return nil, apperr.Internal("failed to load bids", err)
	}
	return s.viewBids(ctx, job, bids), nil
}

// MyBids lists the requesting freelancer's bids with their jobs.
func (s *Service) MyBids(ctx context.Context, who user.Identity, status BidStatus) ([]*BidView, error) {
	bids, err := s.store.ListBids(ctx, BidFilter{FreelancerID: who.ID, Status: status})
	if err != nil {
		return nil, apperr.Internal("failed to load bids", err)
	}

	out := make([]*BidView, 0, len(bids))
	jobs := make(map[string]*Job)
	for _, b := range bids {
		job, ok := jobs[b.JobID]
		if !ok {
			job, err = s.store.GetJob(ctx, b.JobID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, apperr.Internal("failed to load job", err)
			}
			jobs[b.JobID] = job
		}
		out = append(out, &BidView{Bid: b, Job: job.Brief()})
	}
	return out, nil
}

// SetBidStatus lets the job owner accept or reject a pending bid. Accepting
// assigns the bidder through the same guard as a direct claim.
func (s *Service) SetBidStatus(ctx context.Context, who user.Identity, bidID string, to BidStatus) (*Bid, error) {
	if to != BidAccepted && to != BidRejected {
		return nil, apperr.Validation("status must be accepted or rejected")
	}
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("bid not found")
		}
		return nil, apperr.Internal("failed to load bid", err)
	}
	job, err := s.loadOwnedJob(ctx, who, bid.JobID)
	if err != nil {
		return nil, err
	}
	if bid.Status != BidPending {
		return nil, apperr.InvalidState(fmt.Sprintf("bid has already been %s", bid.Status))
	}

	if to == BidAccepted {
		if err := claimable(job); err != nil {
			return nil, err
		}
		if _, err := s.assign(ctx, job.ID, bid.FreelancerID); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.SetBidStatus(ctx, bidID, BidPending, to)
	if err != nil {
		if to == BidAccepted {
			if uerr := s.store.UnassignFreelancer(ctx, job.ID, bid.FreelancerID); uerr != nil {
				s.log.WithFields(logrus.Fields{"job_id": job.ID, "bid_id": bidID}).WithError(uerr).Error("failed to revert assignment")
			}
		}
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, apperr.InvalidState("bid is no longer pending")
		}
		return nil, apperr.Internal("failed to update bid", err)
	}

	s.log.WithFields(logrus.Fields{"bid_id": bidID, "job_id": job.ID, "status": to}).Info("bid status changed")
	n := alerts.Notification{
		UserID:     bid.FreelancerID,
		Type:       alerts.TypeBidRejected,
		Title:      "Bid declined",
		Message:    fmt.Sprintf("Your bid on %q was declined", job.Title),
		RelatedJob: job.ID,
		RelatedBid: bidID,
	}
	if to == BidAccepted {
		n.Type = alerts.TypeBidAccepted
		n.Title = "Bid accepted"
		n.Message = fmt.Sprintf("Your bid on %q was accepted", job.Title)
	}
	s.notifier.Notify(ctx, n)
	return updated, nil
}

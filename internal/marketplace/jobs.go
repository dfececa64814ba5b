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

// JobQuery is the public listing filter before pagination is applied.
type JobQuery struct {
	Category  Category
	Status    JobStatus
	MinBudget *float64
	MaxBudget *float64
	Search    string
}

func (s *Service) CreateJob(ctx context.Context, who user.Identity, req CreateJobRequest) (*Job, error) {
	if who.Role != user.RoleClient {
		return nil, apperr.Forbidden("only clients can post jobs")
	}

	now := s.now()
	job := &Job{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Budget:         req.Budget,
		Duration:       req.Duration,
		ClientID:       who.ID,
		Status:         JobOpen,
		Bids:           []string{},
		SkillsRequired: req.SkillsRequired,
		Attachments:    req.attachments(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if job.SkillsRequired == nil {
		job.SkillsRequired = []string{}
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, apperr.Internal("failed to create job", err)
	}
	s.log.WithFields(logrus.Fields{"job_id": job.ID, "client_id": who.ID}).Info("job created")
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*JobDetail, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, BidFilter{JobID: id})
	if err != nil {
		return nil, apperr.Internal("failed to load bids", err)
	}
	return &JobDetail{
		JobView: *s.viewJobs(ctx, []*Job{job})[0],
		Bids:    s.viewBids(ctx, job, bids),
	}, nil
}

func (s *Service) ListJobs(ctx context.Context, q JobQuery, page utils.Page) ([]*JobView, utils.Pagination, error) {
	if q.MinBudget != nil && q.MaxBudget != nil && *q.MinBudget > *q.MaxBudget {
		return nil, utils.Pagination{}, apperr.Validation("minBudget cannot exceed maxBudget")
	}
	jobs, total, err := s.store.ListJobs(ctx, JobFilter{
		Category:  q.Category,
		Status:    q.Status,
		MinBudget: q.MinBudget,
		MaxBudget: q.MaxBudget,
		Search:    q.Search,
		Skip:      page.Skip(),
		Limit:     int64(page.Limit),
	})
	if err != nil {
		return nil, utils.Pagination{}, apperr.Internal("failed to list jobs", err)
	}
	return s.viewJobs(ctx, jobs), page.Paginate(total), nil
}

// MyJobs lists the jobs a client posted or a freelancer is assigned to.
func (s *Service) MyJobs(ctx context.Context, who user.Identity, status JobStatus, page utils.Page) ([]*JobView, utils.Pagination, error) {
	f := JobFilter{Status: status, Skip: page.Skip(), Limit: int64(page.Limit)}
	switch who.Role {
	case user.RoleFreelancer:
		f.FreelancerID = who.ID
	default:
		f.ClientID = who.ID
	}
	jobs, total, err := s.store.ListJobs(ctx, f)
	if err != nil {
		return nil, utils.Pagination{}, apperr.Internal("failed to list jobs", err)
	}
	return s.viewJobs(ctx, jobs), page.Paginate(total), nil
}

func (s *Service) UpdateJob(ctx context.Context, who user.Identity, id string, patch JobPatch) (*Job, error) {
	if patch.Empty() {
		return nil, apperr.Validation("at least one field must be provided")
	}
	job, err := s.loadOwnedJob(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if job.Status != JobOpen {
		return nil, apperr.InvalidState("only open jobs can be edited")
	}

	updated, err := s.store.UpdateOpenJob(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("job not found")
		case errors.Is(err, store.ErrConditionFailed):
			return nil, apperr.InvalidState("only open jobs can be edited")
		}
		return nil, apperr.Internal("failed to update job", err)
	}
	return updated, nil
}

func (s *Service) DeleteJob(ctx context.Context, who user.Identity, id string) error {
	job, err := s.loadOwnedJob(ctx, who, id)
	if err != nil {
		return err
	}
	if job.Status != JobOpen || len(job.Bids) > 0 {
		return apperr.InvalidState("only open jobs without bids can be deleted")
	}

	if err := s.store.DeleteOpenJob(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return apperr.NotFound("job not found")
		case errors.Is(err, store.ErrConditionFailed):
			return apperr.InvalidState("only open jobs without bids can be deleted")
		}
		return apperr.Internal("failed to delete job", err)
	}
	s.log.WithFields(logrus.Fields{"job_id": id, "client_id": who.ID}).Info("job deleted")
	return nil
}

// ClaimJob assigns the requesting freelancer directly, bypassing bids.
func (s *Service) ClaimJob(ctx context.Context, who user.Identity, id string) (*Job, error) {
	if who.Role != user.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers can claim jobs")
	}
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := claimable(job); err != nil {
		return nil, err
	}

	claimed, err := s.assign(ctx, id, who.ID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"job_id": id, "freelancer_id": who.ID}).Info("job claimed")
	s.notifier.Notify(ctx, alerts.Notification{
		UserID:     claimed.ClientID,
		Type:       alerts.TypeJobClaimed,
		Title:      "Your job was claimed",
		Message:    fmt.Sprintf("%s claimed your job %q", who.Name, claimed.Title),
		RelatedJob: claimed.ID,
	})
	return claimed, nil
}

func claimable(job *Job) error {
	if job.Status != JobOpen {
		return apperr.InvalidState("job is not open")
	}
	if job.Claimed() {
		return apperr.AlreadyClaimed("job has already been claimed")
	}
	return nil
}

// assign runs the atomic open-and-unassigned guard shared by claim and bid
// acceptance. When the guard fails the job is re-read to report why.
func (s *Service) assign(ctx context.Context, jobID, freelancerID string) (*Job, error) {
	job, err := s.store.AssignFreelancer(ctx, jobID, freelancerID)
	if err == nil {
		return job, nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("job not found")
	case errors.Is(err, store.ErrConditionFailed):
		current, lerr := s.loadJob(ctx, jobID)
		if lerr != nil {
			return nil, lerr
		}
		if cerr := claimable(current); cerr != nil {
			return nil, cerr
		}
		return nil, apperr.AlreadyClaimed("job has already been claimed")
	}
	return nil, apperr.Internal("failed to assign job", err)
}

func (s *Service) CompleteJob(ctx context.Context, who user.Identity, id string) (*Job, error) {
	job, err := s.transition(ctx, who, id, JobCompleted)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, alerts.Notification{
		UserID:     deref(job.FreelancerID),
		Type:       alerts.TypeJobCompleted,
		Title:      "Job completed",
		Message:    fmt.Sprintf("%q was marked as completed", job.Title),
		RelatedJob: job.ID,
	})
	return job, nil
}

func (s *Service) CancelJob(ctx context.Context, who user.Identity, id string) (*Job, error) {
	job, err := s.transition(ctx, who, id, JobCancelled)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, alerts.Notification{
		UserID:     deref(job.FreelancerID),
		Type:       alerts.TypeJobCancelled,
		Title:      "Job cancelled",
		Message:    fmt.Sprintf("%q was cancelled by the client", job.Title),
		RelatedJob: job.ID,
	})
	return job, nil
}

func (s *Service) transition(ctx context.Context, who user.Identity, id string, to JobStatus) (*Job, error) {
	job, err := s.loadOwnedJob(ctx, who, id)
	if err != nil {
		return nil, err
	}
	from := job.Status
	if !from.CanTransitionTo(to) {
		return nil, apperr.InvalidState(fmt.Sprintf("cannot move job from %s to %s", from, to))
	}

	updated, err := s.store.TransitionJob(ctx, id, from, to)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("job not found")
		case errors.Is(err, store.ErrConditionFailed):
			return nil, apperr.InvalidState("job status changed, retry the request")
		}
		return nil, apperr.Internal("failed to update job status", err)
	}
	s.log.WithFields(logrus.Fields{"job_id": id, "from": from, "to": to}).Info("job status changed")
	return updated, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

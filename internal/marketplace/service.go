package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

// Notifier records a notification. Implementations must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n alerts.Notification)
}

// UserLookup resolves user references for populated views.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*user.User, error)
}

// Service owns the job lifecycle, bidding and rating rules.
type Service struct {
	store    Store
	users    UserLookup
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(s Store, users UserLookup, n Notifier, log *logrus.Logger) *Service {
	return &Service{
		store:    s,
		users:    users,
		notifier: n,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load stats", err)
	}
	return st, nil
}

// loadJob fetches a job, mapping a missing record to NotFound.
func (s *Service) loadJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal("failed to load job", err)
	}
	return job, nil
}

func (s *Service) loadOwnedJob(ctx context.Context, who user.Identity, id string) (*Job, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.ClientID != who.ID {
		return nil, apperr.Forbidden("you do not own this job")
	}
	return job, nil
}

// summaries resolves user ids. Lookup failures degrade to nil summaries.
func (s *Service) summaries(ctx context.Context, ids ...string) map[string]*user.User {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return map[string]*user.User{}
	}
	found, err := s.users.GetUsers(ctx, uniq)
	if err != nil {
		s.log.WithError(err).WithField("ids", uniq).Warn("failed to resolve users")
		return map[string]*user.User{}
	}
	return found
}

// JobView is a job with its client and freelancer references resolved.
type JobView struct {
	*Job
	Client     *user.Summary `json:"client"`
	Freelancer *user.Summary `json:"freelancer"`
	BidCount   int           `json:"bidCount"`
}

// JobDetail additionally resolves every bid on the job.
type JobDetail struct {
	JobView
	Bids []*BidView `json:"bids"`
}

// JobBrief is the reduced job shape embedded in bid and rating views.
type JobBrief struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Status JobStatus `json:"status"`
	Budget Budget    `json:"budget"`
}

func (j *Job) Brief() *JobBrief {
	if j == nil {
		return nil
	}
	return &JobBrief{ID: j.ID, Title: j.Title, Status: j.Status, Budget: j.Budget}
}

type BidView struct {
	*Bid
	Job        *JobBrief     `json:"job"`
	Freelancer *user.Summary `json:"freelancer"`
}

type RatingView struct {
	*Rating
	Job    *JobBrief     `json:"job"`
	Client *user.Summary `json:"client"`
}

func (s *Service) viewJobs(ctx context.Context, jobs []*Job) []*JobView {
	ids := make([]string, 0, len(jobs)*2)
	for _, j := range jobs {
		ids = append(ids, j.ClientID)
		if j.Claimed() {
			ids = append(ids, *j.FreelancerID)
		}
	}
	found := s.summaries(ctx, ids...)

	out := make([]*JobView, 0, len(jobs))
	for _, j := range jobs {
		v := &JobView{Job: j, Client: found[j.ClientID].Summary(), BidCount: len(j.Bids)}
		if j.Claimed() {
			v.Freelancer = found[*j.FreelancerID].Summary()
		}
		out = append(out, v)
	}
	return out
}

func (s *Service) viewBids(ctx context.Context, job *Job, bids []*Bid) []*BidView {
	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.FreelancerID)
	}
	found := s.summaries(ctx, ids...)

	out := make([]*BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, &BidView{Bid: b, Job: job.Brief(), Freelancer: found[b.FreelancerID].Summary()})
	}
	return out
}

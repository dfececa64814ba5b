package marketplace

import (
	"context"
	"time"

	"github.com/sudo-init-do/gighub/internal/user"
)

type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// transitions lists every legal status move. Terminal statuses have no entry.
var transitions = map[JobStatus][]JobStatus{
	JobOpen:       {JobInProgress},
	JobInProgress: {JobCompleted, JobCancelled},
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobOpen, JobInProgress, JobCompleted, JobCancelled:
		return true
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryDesign      Category = "design"
	CategoryWriting     Category = "writing"
	CategoryDevelopment Category = "development"
	CategoryMarketing   Category = "marketing"
	CategoryData        Category = "data"
	CategoryOther       Category = "other"
)

type Duration string

const (
	DurationUnderWeek  Duration = "less than 1 week"
	DurationOneToTwo   Duration = "1-2 weeks"
	DurationTwoToFour  Duration = "2-4 weeks"
	DurationOneToThree Duration = "1-3 months"
	DurationOverThree  Duration = "3+ months"
)

type Budget struct {
	Min *float64 `json:"min,omitempty" bson:"min,omitempty" validate:"omitempty,gte=0"`
	Max *float64 `json:"max,omitempty" bson:"max,omitempty" validate:"omitempty,gte=0"`
}

type Attachment struct {
	Filename   string    `json:"filename" bson:"filename" validate:"required,max=255"`
	URL        string    `json:"url" bson:"url" validate:"required,url"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

type Job struct {
	ID             string       `json:"id" bson:"_id"`
	Title          string       `json:"title" bson:"title"`
	Description    string       `json:"description" bson:"description"`
	Category       Category     `json:"category" bson:"category"`
	Budget         Budget       `json:"budget" bson:"budget"`
	Duration       Duration     `json:"duration,omitempty" bson:"duration,omitempty"`
	ClientID       string       `json:"client" bson:"client"`
	FreelancerID   *string      `json:"freelancer" bson:"freelancer"`
	Status         JobStatus    `json:"status" bson:"status"`
	Bids           []string     `json:"bids" bson:"bids"`
	SkillsRequired []string     `json:"skillsRequired" bson:"skillsRequired"`
	Attachments    []Attachment `json:"attachments" bson:"attachments"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt" bson:"updatedAt"`
}

func (j *Job) Claimed() bool {
	return j.FreelancerID != nil && *j.FreelancerID != ""
}

func (j *Job) AssignedTo(userID string) bool {
	return j.Claimed() && *j.FreelancerID == userID
}

// JobPatch holds the fields an owner may change while the job is open.
// Nil means "leave as is"; Budget replaces the whole budget object.
type JobPatch struct {
	Title          *string
	Description    *string
	Category       *Category
	Budget         *Budget
	Duration       *Duration
	SkillsRequired *[]string
}

func (p JobPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Budget == nil && p.Duration == nil && p.SkillsRequired == nil
}

// Apply merges the patch into j, used by stores without a native partial update.
func (p JobPatch) Apply(j *Job) {
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Category != nil {
		j.Category = *p.Category
	}
	if p.Budget != nil {
		j.Budget = *p.Budget
	}
	if p.Duration != nil {
		j.Duration = *p.Duration
	}
	if p.SkillsRequired != nil {
		j.SkillsRequired = *p.SkillsRequired
	}
}

// JobFilter selects jobs for listing. MinBudget/MaxBudget bound budget.max.
type JobFilter struct {
	Category     Category
	Status       JobStatus
	MinBudget    *float64
	MaxBudget    *float64
	Search       string
	ClientID     string
	FreelancerID string
	Skip         int64
	Limit        int64
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

type Bid struct {
	ID           string    `json:"id" bson:"_id"`
	JobID        string    `json:"job" bson:"job"`
	FreelancerID string    `json:"freelancer" bson:"freelancer"`
	Amount       float64   `json:"amount" bson:"amount"`
	Duration     Duration  `json:"duration" bson:"duration"`
	Message      string    `json:"message,omitempty" bson:"message,omitempty"`
	Status       BidStatus `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

type BidFilter struct {
	JobID        string
	FreelancerID string
	Status       BidStatus
}

type Rating struct {
	ID              string    `json:"id" bson:"_id"`
	JobID           string    `json:"job" bson:"job"`
	ClientID        string    `json:"client" bson:"client"`
	FreelancerID    string    `json:"freelancer" bson:"freelancer"`
	Rating          int       `json:"rating" bson:"rating"`
	Feedback        string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Quality         *int      `json:"quality,omitempty" bson:"quality,omitempty"`
	Communication   *int      `json:"communication,omitempty" bson:"communication,omitempty"`
	Professionalism *int      `json:"professionalism,omitempty" bson:"professionalism,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

// Stats is the operational overview served to admins.
type Stats struct {
	UsersByRole  map[string]int64 `json:"usersByRole"`
	JobsByStatus map[string]int64 `json:"jobsByStatus"`
	Bids         int64            `json:"bids"`
	Ratings      int64            `json:"ratings"`
}

// Store is the persistence contract. Every guarded method must apply its
// guard and its write as one atomic operation in the backing store.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, f JobFilter) ([]*Job, int64, error)
	// UpdateOpenJob applies patch only while status=open.
	UpdateOpenJob(ctx context.Context, id string, patch JobPatch) (*Job, error)
	// DeleteOpenJob removes the job only while status=open and it has no bids.
	DeleteOpenJob(ctx context.Context, id string) error
	// AssignFreelancer sets freelancer and status=in_progress only while
	// status=open and no freelancer is set.
	AssignFreelancer(ctx context.Context, jobID, freelancerID string) (*Job, error)
	// UnassignFreelancer reverts AssignFreelancer for the same freelancer.
	UnassignFreelancer(ctx context.Context, jobID, freelancerID string) error
	// TransitionJob moves status from -> to only while status=from.
	TransitionJob(ctx context.Context, id string, from, to JobStatus) (*Job, error)

	// CreateBid inserts the bid and appends it to the job only while the job
	// is open. The (job, freelancer) pair is unique.
	CreateBid(ctx context.Context, bid *Bid) error
	GetBid(ctx context.Context, id string) (*Bid, error)
	ListBids(ctx context.Context, f BidFilter) ([]*Bid, error)
	SetBidStatus(ctx context.Context, id string, from, to BidStatus) (*Bid, error)

	// CreateRating inserts the rating; one rating per job.
	CreateRating(ctx context.Context, r *Rating) error
	GetRatingByJob(ctx context.Context, jobID string) (*Rating, error)
	ListRatings(ctx context.Context, freelancerID string, skip, limit int64) ([]*Rating, int64, error)
	RatingBreakdown(ctx context.Context, freelancerID string) (map[int]int64, error)
	// RecomputeFreelancerRating aggregates every rating of the freelancer and
	// overwrites the user's stored rating summary.
	RecomputeFreelancerRating(ctx context.Context, freelancerID string) (user.RatingSummary, error)
	// FreelancersWithRatings lists every freelancer that has at least one rating.
	FreelancersWithRatings(ctx context.Context) ([]string, error)

	Stats(ctx context.Context) (*Stats, error)
}

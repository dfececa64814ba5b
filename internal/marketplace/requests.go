package marketplace

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterRules installs the struct-level rules the request contracts rely on.
func RegisterRules(register func(fn validator.StructLevelFunc, types ...any)) {
	register(budgetRule, Budget{})
}

func budgetRule(sl validator.StructLevel) {
	b := sl.Current().Interface().(Budget)
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		sl.ReportError(b.Max, "max", "Max", "budget", "")
	}
}

type AttachmentRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	URL      string `json:"url" validate:"required,url"`
}

type CreateJobRequest struct {
	Title          string              `json:"title" validate:"required,min=5,max=100"`
	Description    string              `json:"description" validate:"required,min=20,max=2000"`
	Category       Category            `json:"category" validate:"required,oneof=design writing development marketing data other"`
	Budget         Budget              `json:"budget"`
	Duration       Duration            `json:"duration" validate:"omitempty,oneof='less than 1 week' '1-2 weeks' '2-4 weeks' '1-3 months' '3+ months'"`
	SkillsRequired []string            `json:"skillsRequired" validate:"omitempty,max=20,dive,required,max=50"`
	Attachments    []AttachmentRequest `json:"attachments" validate:"omitempty,max=10,dive"`
}

func (r CreateJobRequest) attachments(now time.Time) []Attachment {
	out := make([]Attachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		out = append(out, Attachment{Filename: a.Filename, URL: a.URL, UploadedAt: now})
	}
	return out
}

type UpdateJobRequest struct {
	Title          *string   `json:"title" validate:"omitempty,min=5,max=100"`
	Description    *string   `json:"description" validate:"omitempty,min=20,max=2000"`
	Category       *Category `json:"category" validate:"omitempty,oneof=design writing development marketing data other"`
	Budget         *Budget   `json:"budget" validate:"omitempty"`
	Duration       *Duration `json:"duration" validate:"omitempty,oneof='less than 1 week' '1-2 weeks' '2-4 weeks' '1-3 months' '3+ months'"`
	SkillsRequired *[]string `json:"skillsRequired" validate:"omitempty,max=20,dive,required,max=50"`
}

func (r UpdateJobRequest) Patch() JobPatch {
	return JobPatch{
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Budget:         r.Budget,
		Duration:       r.Duration,
		SkillsRequired: r.SkillsRequired,
	}
}

type CreateBidRequest struct {
	Amount   *float64 `json:"amount" validate:"required,gte=0"`
	Duration Duration `json:"duration" validate:"required,oneof='less than 1 week' '1-2 weeks' '2-4 weeks' '1-3 months' '3+ months'"`
	Message  string   `json:"message" validate:"max=500"`
}

type UpdateBidRequest struct {
	Status BidStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

type CreateRatingRequest struct {
	Rating          int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback        string `json:"feedback" validate:"max=1000"`
	Quality         *int   `json:"quality" validate:"omitempty,min=1,max=5"`
	Communication   *int   `json:"communication" validate:"omitempty,min=1,max=5"`
	Professionalism *int   `json:"professionalism" validate:"omitempty,min=1,max=5"`
}

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

func normalizeJob(j *marketplace.Job) *marketplace.Job {
	if j.Bids == nil {
		j.Bids = []string{}
	}
	if j.SkillsRequired == nil {
		j.SkillsRequired = []string{}
	}
	if j.Attachments == nil {
		j.Attachments = []marketplace.Attachment{}
	}
	return j
}

func (s *Store) CreateJob(ctx context.Context, job *marketplace.Job) error {
	doc := *job
	normalizeJob(&doc)
	_, err := s.jobs.InsertOne(ctx, &doc)
	return mapErr(err)
}

func (s *Store) GetJob(ctx context.Context, id string) (*marketplace.Job, error) {
	var j marketplace.Job
	if err := s.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return nil, mapErr(err)
	}
	return normalizeJob(&j), nil
}

func jobQuery(f marketplace.JobFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.ClientID != "" {
		q["client"] = f.ClientID
	}
	if f.FreelancerID != "" {
		q["freelancer"] = f.FreelancerID
	}
	if f.MinBudget != nil || f.MaxBudget != nil {
		bound := bson.M{}
		if f.MinBudget != nil {
			bound["$gte"] = *f.MinBudget
		}
		if f.MaxBudget != nil {
			bound["$lte"] = *f.MaxBudget
		}
		q["budget.max"] = bound
	}
	if f.Search != "" {
		q["$text"] = bson.M{"$search": f.Search}
	}
	return q
}

func (s *Store) ListJobs(ctx context.Context, f marketplace.JobFilter) ([]*marketplace.Job, int64, error) {
	q := jobQuery(f)
	total, err := s.jobs.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	jobs, err := findAll[marketplace.Job](ctx, s.jobs, q, pageOptions(f.Skip, f.Limit))
	if err != nil {
		return nil, 0, err
	}
	for _, j := range jobs {
		normalizeJob(j)
	}
	return jobs, total, nil
}

// guardedUpdate applies update only when filter (which always pins _id)
// still matches, returning the updated document.
func (s *Store) guardedUpdate(ctx context.Context, id string, filter, update bson.M) (*marketplace.Job, error) {
	filter["_id"] = id
	var j marketplace.Job
	err := s.jobs.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.conditionOrMissing(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return normalizeJob(&j), nil
}

func (s *Store) conditionOrMissing(ctx context.Context, id string) error {
	n, err := s.jobs.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}

func (s *Store) UpdateOpenJob(ctx context.Context, id string, patch marketplace.JobPatch) (*marketplace.Job, error) {
	set := bson.M{"updatedAt": s.now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Budget != nil {
		set["budget"] = *patch.Budget
	}
	if patch.Duration != nil {
		set["duration"] = *patch.Duration
	}
	if patch.SkillsRequired != nil {
		set["skillsRequired"] = append([]string{}, (*patch.SkillsRequired)...)
	}
	return s.guardedUpdate(ctx, id, bson.M{"status": marketplace.JobOpen}, bson.M{"$set": set})
}

func (s *Store) DeleteOpenJob(ctx context.Context, id string) error {
	res, err := s.jobs.DeleteOne(ctx, bson.M{
		"_id":    id,
		"status": marketplace.JobOpen,
		"bids":   bson.M{"$size": 0},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return s.conditionOrMissing(ctx, id)
	}
	return nil
}

func (s *Store) AssignFreelancer(ctx context.Context, jobID, freelancerID string) (*marketplace.Job, error) {
	return s.guardedUpdate(ctx, jobID,
		bson.M{"status": marketplace.JobOpen, "freelancer": nil},
		bson.M{"$set": bson.M{"freelancer": freelancerID, "status": marketplace.JobInProgress, "updatedAt": s.now()}})
}

func (s *Store) UnassignFreelancer(ctx context.Context, jobID, freelancerID string) error {
	_, err := s.guardedUpdate(ctx, jobID,
		bson.M{"status": marketplace.JobInProgress, "freelancer": freelancerID},
		bson.M{"$set": bson.M{"freelancer": nil, "status": marketplace.JobOpen, "updatedAt": s.now()}})
	return err
}

func (s *Store) TransitionJob(ctx context.Context, id string, from, to marketplace.JobStatus) (*marketplace.Job, error) {
	return s.guardedUpdate(ctx, id,
		bson.M{"status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": s.now()}})
}

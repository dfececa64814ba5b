package db

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
)

// job.Bids is derived from the bids table in creation order.
const jobColumns = `j.id, j.title, j.description, j.category, j.budget_min, j.budget_max, j.duration,
    j.client_id, j.freelancer_id, j.status, j.skills_required, j.attachments, j.created_at, j.updated_at,
    COALESCE((SELECT array_agg(b.id ORDER BY b.created_at) FROM bids b WHERE b.job_id = j.id), '{}')`

// searchDocument is the tsvector stored in jobs.search_vector, built from
// SQL expressions for the title, description and skills array.
func searchDocument(title, description, skills string) string {
	return "to_tsvector('english', " + title + " || ' ' || " + description +
		" || ' ' || array_to_string(" + skills + ", ' '))"
}

func scanJob(row pgx.Row) (*marketplace.Job, error) {
	var j marketplace.Job
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Category, &j.Budget.Min, &j.Budget.Max, &j.Duration,
		&j.ClientID, &j.FreelancerID, &j.Status, &j.SkillsRequired, &j.Attachments, &j.CreatedAt, &j.UpdatedAt,
		&j.Bids)
	if err != nil {
		return nil, mapErr(err)
	}
	if j.Attachments == nil {
		j.Attachments = []marketplace.Attachment{}
	}
	return &j, nil
}

func (s *Store) CreateJob(ctx context.Context, job *marketplace.Job) error {
	skills := job.SkillsRequired
	if skills == nil {
		skills = []string{}
	}
	attachments := job.Attachments
	if attachments == nil {
		attachments = []marketplace.Attachment{}
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO jobs (id, title, description, category, budget_min, budget_max, duration,
            client_id, status, skills_required, attachments, created_at, updated_at, search_vector)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
            `+searchDocument("$2::text", "$3::text", "$10::text[]")+`)`,
		job.ID, job.Title, job.Description, string(job.Category), job.Budget.Min, job.Budget.Max,
		string(job.Duration), job.ClientID, string(job.Status), skills, attachments,
		job.CreatedAt, job.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetJob(ctx context.Context, id string) (*marketplace.Job, error) {
	return scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id))
}

func jobConditions(f marketplace.JobFilter) sq.And {
	conds := sq.And{}
	if f.Category != "" {
		conds = append(conds, sq.Eq{"j.category": string(f.Category)})
	}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"j.status": string(f.Status)})
	}
	if f.ClientID != "" {
		conds = append(conds, sq.Eq{"j.client_id": f.ClientID})
	}
	if f.FreelancerID != "" {
		conds = append(conds, sq.Eq{"j.freelancer_id": f.FreelancerID})
	}
	// NULL budget_max never satisfies a bound, so unbudgeted jobs drop out.
	if f.MinBudget != nil {
		conds = append(conds, sq.GtOrEq{"j.budget_max": *f.MinBudget})
	}
	if f.MaxBudget != nil {
		conds = append(conds, sq.LtOrEq{"j.budget_max": *f.MaxBudget})
	}
	if f.Search != "" {
		conds = append(conds, sq.Expr("j.search_vector @@ plainto_tsquery('english', ?)", f.Search))
	}
	return conds
}

func (s *Store) ListJobs(ctx context.Context, f marketplace.JobFilter) ([]*marketplace.Job, int64, error) {
	countQ := psql.Select("COUNT(*)").From("jobs j")
	listQ := psql.Select(jobColumns).From("jobs j").OrderBy("j.created_at DESC", "j.id DESC")
	if conds := jobConditions(f); len(conds) > 0 {
		countQ = countQ.Where(conds)
		listQ = listQ.Where(conds)
	}
	if f.Limit > 0 {
		listQ = listQ.Limit(uint64(f.Limit))
	}
	if f.Skip > 0 {
		listQ = listQ.Offset(uint64(f.Skip))
	}

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*marketplace.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, j)
	}
	return out, total, rows.Err()
}

// conditionOrMissing tells a failed guard apart from a missing job.
func (s *Store) conditionOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}

func (s *Store) guardedJobUpdate(ctx context.Context, id, query string, args ...any) (*marketplace.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.conditionOrMissing(ctx, id)
	}
	return j, err
}

func (s *Store) UpdateOpenJob(ctx context.Context, id string, patch marketplace.JobPatch) (*marketplace.Job, error) {
	var (
		category, duration *string
		budgetMin          *float64
		budgetMax          *float64
		skills             []string
	)
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}
	if patch.Duration != nil {
		d := string(*patch.Duration)
		duration = &d
	}
	if patch.Budget != nil {
		budgetMin, budgetMax = patch.Budget.Min, patch.Budget.Max
	}
	if patch.SkillsRequired != nil {
		skills = append([]string{}, (*patch.SkillsRequired)...)
	}

	return s.guardedJobUpdate(ctx, id, `
        UPDATE jobs AS j SET
            title = COALESCE($2::text, j.title),
            description = COALESCE($3::text, j.description),
            category = COALESCE($4::text, j.category),
            duration = COALESCE($5::text, j.duration),
            budget_min = CASE WHEN $6::boolean THEN $7::float8 ELSE j.budget_min END,
            budget_max = CASE WHEN $6::boolean THEN $8::float8 ELSE j.budget_max END,
            skills_required = CASE WHEN $9::boolean THEN $10::text[] ELSE j.skills_required END,
            search_vector = `+searchDocument(
		"COALESCE($2::text, j.title)",
		"COALESCE($3::text, j.description)",
		"CASE WHEN $9::boolean THEN $10::text[] ELSE j.skills_required END")+`,
            updated_at = NOW()
        WHERE j.id = $1 AND j.status = 'open'
        RETURNING `+jobColumns,
		id, patch.Title, patch.Description, category, duration,
		patch.Budget != nil, budgetMin, budgetMax,
		patch.SkillsRequired != nil, skills)
}

func (s *Store) DeleteOpenJob(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND status = 'open' AND bid_count = 0`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return s.conditionOrMissing(ctx, id)
	}
	return nil
}

func (s *Store) AssignFreelancer(ctx context.Context, jobID, freelancerID string) (*marketplace.Job, error) {
	return s.guardedJobUpdate(ctx, jobID, `
        UPDATE jobs AS j SET freelancer_id = $2, status = 'in_progress', updated_at = NOW()
        WHERE j.id = $1 AND j.status = 'open' AND j.freelancer_id IS NULL
        RETURNING `+jobColumns, jobID, freelancerID)
}

func (s *Store) UnassignFreelancer(ctx context.Context, jobID, freelancerID string) error {
	ct, err := s.pool.Exec(ctx, `
        UPDATE jobs SET freelancer_id = NULL, status = 'open', updated_at = NOW()
        WHERE id = $1 AND status = 'in_progress' AND freelancer_id = $2`, jobID, freelancerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return s.conditionOrMissing(ctx, jobID)
	}
	return nil
}

func (s *Store) TransitionJob(ctx context.Context, id string, from, to marketplace.JobStatus) (*marketplace.Job, error) {
	return s.guardedJobUpdate(ctx, id, `
        UPDATE jobs AS j SET status = $3, updated_at = NOW()
        WHERE j.id = $1 AND j.status = $2
        RETURNING `+jobColumns, id, string(from), string(to))
}

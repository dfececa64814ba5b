package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/user"
)

const ratingColumns = `id, job_id, client_id, freelancer_id, rating, feedback, quality, communication, professionalism, created_at`

func scanRating(row pgx.Row) (*marketplace.Rating, error) {
	var r marketplace.Rating
	err := row.Scan(&r.ID, &r.JobID, &r.ClientID, &r.FreelancerID, &r.Rating, &r.Feedback,
		&r.Quality, &r.Communication, &r.Professionalism, &r.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) CreateRating(ctx context.Context, r *marketplace.Rating) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO ratings (id, job_id, client_id, freelancer_id, rating, feedback,
            quality, communication, professionalism, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.JobID, r.ClientID, r.FreelancerID, r.Rating, r.Feedback,
		r.Quality, r.Communication, r.Professionalism, r.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetRatingByJob(ctx context.Context, jobID string) (*marketplace.Rating, error) {
	return scanRating(s.pool.QueryRow(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE job_id = $1`, jobID))
}

func (s *Store) ListRatings(ctx context.Context, freelancerID string, skip, limit int64) ([]*marketplace.Rating, int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE freelancer_id = $1`, freelancerID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
        SELECT `+ratingColumns+` FROM ratings
        WHERE freelancer_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, freelancerID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*marketplace.Rating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) RatingBreakdown(ctx context.Context, freelancerID string) (map[int]int64, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT rating, COUNT(*) FROM ratings
        WHERE freelancer_id = $1
        GROUP BY rating`, freelancerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int64, 5)
	for rows.Next() {
		var stars int
		var n int64
		if err := rows.Scan(&stars, &n); err != nil {
			return nil, err
		}
		out[stars] = n
	}
	return out, rows.Err()
}

// RecomputeFreelancerRating aggregates and overwrites in one statement, so a
// concurrent rating insert is either fully counted or picked up by the next run.
func (s *Store) RecomputeFreelancerRating(ctx context.Context, freelancerID string) (user.RatingSummary, error) {
	var sum user.RatingSummary
	err := s.pool.QueryRow(ctx, `
        UPDATE users AS u SET
            rating_average = agg.average,
            rating_count = agg.count,
            updated_at = NOW()
        FROM (
            SELECT COALESCE(AVG(rating), 0)::float8 AS average, COUNT(*) AS count
            FROM ratings WHERE freelancer_id = $1
        ) AS agg
        WHERE u.id = $1
        RETURNING u.rating_average, u.rating_count`, freelancerID).Scan(&sum.Average, &sum.Count)
	if err != nil {
		return user.RatingSummary{}, mapErr(err)
	}
	return sum, nil
}

func (s *Store) FreelancersWithRatings(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT freelancer_id FROM ratings ORDER BY freelancer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

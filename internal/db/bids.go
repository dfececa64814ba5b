package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
)

const bidColumns = `id, job_id, freelancer_id, amount, duration, message, status, created_at, updated_at`

func scanBid(row pgx.Row) (*marketplace.Bid, error) {
	var b marketplace.Bid
	err := row.Scan(&b.ID, &b.JobID, &b.FreelancerID, &b.Amount, &b.Duration, &b.Message, &b.Status,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

// CreateBid locks the job row so the open check, the insert and the bid
// counter move together with respect to claims and deletes.
func (s *Store) CreateBid(ctx context.Context, bid *marketplace.Bid) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, bid.JobID).Scan(&status)
	if err != nil {
		return mapErr(err)
	}

	var dup bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bids WHERE job_id = $1 AND freelancer_id = $2)`,
		bid.JobID, bid.FreelancerID).Scan(&dup)
	if err != nil {
		return err
	}
	if dup {
		return store.ErrDuplicate
	}
	if marketplace.JobStatus(status) != marketplace.JobOpen {
		return store.ErrConditionFailed
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO bids (id, job_id, freelancer_id, amount, duration, message, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bid.ID, bid.JobID, bid.FreelancerID, bid.Amount, string(bid.Duration), bid.Message,
		string(bid.Status), bid.CreatedAt, bid.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE jobs SET bid_count = bid_count + 1, updated_at = NOW() WHERE id = $1`, bid.JobID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetBid(ctx context.Context, id string) (*marketplace.Bid, error) {
	return scanBid(s.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
}

func (s *Store) ListBids(ctx context.Context, f marketplace.BidFilter) ([]*marketplace.Bid, error) {
	q := psql.Select(bidColumns).From("bids").OrderBy("created_at DESC", "id DESC")
	if f.JobID != "" {
		q = q.Where("job_id = ?", f.JobID)
	}
	if f.FreelancerID != "" {
		q = q.Where("freelancer_id = ?", f.FreelancerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*marketplace.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) SetBidStatus(ctx context.Context, id string, from, to marketplace.BidStatus) (*marketplace.Bid, error) {
	b, err := scanBid(s.pool.QueryRow(ctx, `
        UPDATE bids SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
        RETURNING `+bidColumns, id, string(from), string(to)))
	if !errors.Is(err, store.ErrNotFound) {
		return b, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bids WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConditionFailed
}

package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/store"
)

const notificationColumns = `id, user_id, type, title, message, COALESCE(related_job, ''), COALESCE(related_bid, ''), is_read, created_at`

func scanNotification(row pgx.Row) (*alerts.Notification, error) {
	var n alerts.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.RelatedJob, &n.RelatedBid,
		&n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *alerts.Notification) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO notifications (id, user_id, type, title, message, related_job, related_bid, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.RelatedJob, n.RelatedBid, n.IsRead, n.CreatedAt)
	return mapErr(err)
}

func (s *Store) ListNotifications(ctx context.Context, f alerts.Filter) ([]*alerts.Notification, int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM notifications
        WHERE user_id = $1 AND (NOT $2::boolean OR NOT is_read)`, f.UserID, f.UnreadOnly).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
        SELECT `+notificationColumns+` FROM notifications
        WHERE user_id = $1 AND (NOT $2::boolean OR NOT is_read)
        ORDER BY created_at DESC, id DESC
        LIMIT $3 OFFSET $4`, f.UserID, f.UnreadOnly, f.Limit, f.Skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*alerts.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ct, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

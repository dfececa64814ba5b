// Package db is the Postgres store. Guarded writes are single conditional
// statements or short transactions holding a row lock on the job.
package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

var (
	_ marketplace.Store = (*Store)(nil)
	_ user.Store        = (*Store)(nil)
	_ alerts.Store      = (*Store)(nil)
)

// Open connects to Postgres and makes sure the schema exists.
func Open(ctx context.Context, dsn string, log *logrus.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("connected to postgres")

	s := &Store{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// mapErr translates driver errors into the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) ensureSchema(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", s.ensureUsersTable},
		{"jobs", s.ensureJobsTable},
		{"bids", s.ensureBidsTable},
		{"jobs columns", s.ensureJobsColumns},
		{"ratings", s.ensureRatingsTable},
		{"notifications", s.ensureNotificationsTable},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s schema: %w", step.name, err)
		}
	}
	s.log.Debug("postgres schema ensured")
	return nil
}

func (s *Store) ensureUsersTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('client','freelancer','admin')),
            bio TEXT NOT NULL DEFAULT '',
            skills TEXT[] NOT NULL DEFAULT '{}',
            rating_average DOUBLE PRECISION NOT NULL DEFAULT 0,
            rating_count BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
    `)
	return err
}

func (s *Store) ensureJobsTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS jobs (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            category TEXT NOT NULL,
            budget_min DOUBLE PRECISION NULL,
            budget_max DOUBLE PRECISION NULL,
            duration TEXT NOT NULL DEFAULT '',
            client_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            freelancer_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','in_progress','completed','cancelled')),
            skills_required TEXT[] NOT NULL DEFAULT '{}',
            attachments JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_jobs_client ON jobs(client_id);
        CREATE INDEX IF NOT EXISTS idx_jobs_freelancer ON jobs(freelancer_id);
    `)
	return err
}

// jobColumnAdditions are columns added after the first release. bid_count
// backs the DeleteOpenJob guard so the check is re-evaluated against the
// locked row; search_vector is written by CreateJob and UpdateOpenJob.
var jobColumnAdditions = []struct {
	name, ddl, backfill string
}{
	{
		name:     "bid_count",
		ddl:      `ALTER TABLE jobs ADD COLUMN IF NOT EXISTS bid_count INTEGER NOT NULL DEFAULT 0`,
		backfill: `UPDATE jobs j SET bid_count = (SELECT COUNT(*) FROM bids b WHERE b.job_id = j.id)`,
	},
	{
		name:     "search_vector",
		ddl:      `ALTER TABLE jobs ADD COLUMN IF NOT EXISTS search_vector TSVECTOR NOT NULL DEFAULT ''::tsvector`,
		backfill: `UPDATE jobs j SET search_vector = ` + searchDocument("j.title", "j.description", "j.skills_required"),
	},
}

func (s *Store) ensureJobsColumns(ctx context.Context) error {
	for _, col := range jobColumnAdditions {
		var exists bool
		err := s.pool.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM information_schema.columns
                WHERE table_schema = 'public' AND table_name = 'jobs' AND column_name = $1
            )`, col.name).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.pool.Exec(ctx, col.ddl); err != nil {
			return fmt.Errorf("add jobs.%s: %w", col.name, err)
		}
		if _, err := s.pool.Exec(ctx, col.backfill); err != nil {
			return fmt.Errorf("backfill jobs.%s: %w", col.name, err)
		}
		s.log.WithField("column", col.name).Info("jobs column ensured")
	}

	_, err := s.pool.Exec(ctx, `
        DROP INDEX IF EXISTS idx_jobs_search;
        CREATE INDEX IF NOT EXISTS idx_jobs_search_vector ON jobs USING GIN (search_vector);
    `)
	return err
}

func (s *Store) ensureBidsTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS bids (
            id TEXT PRIMARY KEY,
            job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
            freelancer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
            duration TEXT NOT NULL,
            message TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted','rejected')),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (job_id, freelancer_id)
        );
        CREATE INDEX IF NOT EXISTS idx_bids_freelancer ON bids(freelancer_id, status);
    `)
	return err
}

func (s *Store) ensureRatingsTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ratings (
            id TEXT PRIMARY KEY,
            job_id TEXT NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
            client_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            freelancer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
            feedback TEXT NOT NULL DEFAULT '',
            quality SMALLINT NULL CHECK (quality BETWEEN 1 AND 5),
            communication SMALLINT NULL CHECK (communication BETWEEN 1 AND 5),
            professionalism SMALLINT NULL CHECK (professionalism BETWEEN 1 AND 5),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_ratings_freelancer ON ratings(freelancer_id, created_at DESC);
    `)
	return err
}

func (s *Store) ensureNotificationsTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            related_job TEXT NULL,
            related_bid TEXT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE NOT is_read;
    `)
	return err
}

// Stats runs the admin overview counts.
func (s *Store) Stats(ctx context.Context) (*marketplace.Stats, error) {
	st := &marketplace.Stats{
		UsersByRole:  make(map[string]int64),
		JobsByStatus: make(map[string]int64),
	}
	if err := s.groupCount(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`, st.UsersByRole); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`, st.JobsByStatus); err != nil {
		return nil, err
	}
	err := s.pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM bids), (SELECT COUNT(*) FROM ratings)`).
		Scan(&st.Bids, &st.Ratings)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) groupCount(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

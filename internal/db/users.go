package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

const userColumns = `id, name, email, password, role, bio, skills, rating_average, rating_count, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Bio, &u.Skills,
		&u.Rating.Average, &u.Rating.Count, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO users (id, name, email, password, role, bio, skills, created_at, updated_at)
        VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, u.Email, u.Password, string(u.Role), u.Bio, skills, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email))
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*user.User, error) {
	out := make(map[string]*user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (s *Store) ListUsers(ctx context.Context, skip, limit int64) ([]*user.User, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx, `
        SELECT `+userColumns+` FROM users
        ORDER BY created_at DESC, id DESC
        LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch) (*user.User, error) {
	var skills []string
	if patch.Skills != nil {
		skills = append([]string{}, (*patch.Skills)...)
	}
	return scanUser(s.pool.QueryRow(ctx, `
        UPDATE users SET
            name = COALESCE($2::text, name),
            bio = COALESCE($3::text, bio),
            skills = CASE WHEN $4::boolean THEN $5::text[] ELSE skills END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns,
		id, patch.Name, patch.Bio, patch.Skills != nil, skills))
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetRole(ctx context.Context, email string, role user.Role) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE email = lower($1)`, email, string(role))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

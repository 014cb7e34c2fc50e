package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Profile data is stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new profile.
func (r *PGRepo) Create(ctx context.Context, p Profile) error {
	const query = `
INSERT INTO profiles (id, user_id, name, data, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("marshal profile data: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query, p.ID, p.UserID, p.Name, data, p.Version, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetByID fetches a profile owned by the user.
func (r *PGRepo) GetByID(ctx context.Context, userId, profileID string) (Profile, error) {
	const query = `
SELECT id, user_id, name, data, version, created_at, updated_at
FROM profiles
WHERE user_id = $1 AND id = $2`

	var p Profile
	var data []byte
	err := r.DB.QueryRowContext(ctx, query, userId, profileID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&data,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p.Data); err != nil {
			return Profile{}, fmt.Errorf("decode profile data id=%s: %w", profileID, err)
		}
	}
	return p, nil
}

// Update overwrites data, name and version.
func (r *PGRepo) Update(ctx context.Context, p Profile) error {
	const query = `
UPDATE profiles
SET name = $1, data = $2, version = $3, updated_at = $4
WHERE user_id = $5 AND id = $6`

	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("marshal profile data: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, p.Name, data, p.Version, p.UpdatedAt, p.UserID, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

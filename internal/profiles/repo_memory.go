package profiles

import (
	"context"
	"encoding/json"
	"sync"

	"profile-backend/internal/profile"
)

// MemoryRepo is an in-memory implementation of Repo. Stored data is copied
// through JSON so callers never share slices with the repository.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]stored // profileID -> record
}

type stored struct {
	profile Profile
	data    []byte
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]stored)}
}

// Create stores a new profile.
func (r *MemoryRepo) Create(ctx context.Context, p Profile) error {
	return r.put(ctx, p)
}

func (r *MemoryRepo) GetByID(ctx context.Context, userId, profileID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	rec, ok := r.data[profileID]
	r.mu.RUnlock()
	if !ok || rec.profile.UserID != userId {
		return Profile{}, ErrNotFound
	}
	out := rec.profile
	if err := json.Unmarshal(rec.data, &out.Data); err != nil {
		return Profile{}, err
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Profile) error {
	r.mu.RLock()
	rec, ok := r.data[p.ID]
	r.mu.RUnlock()
	if !ok || rec.profile.UserID != p.UserID {
		return ErrNotFound
	}
	p.CreatedAt = rec.profile.CreatedAt
	return r.put(ctx, p)
}

func (r *MemoryRepo) put(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return err
	}
	p.Data = profile.Fragment{}
	r.mu.Lock()
	r.data[p.ID] = stored{profile: p, data: raw}
	r.mu.Unlock()
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

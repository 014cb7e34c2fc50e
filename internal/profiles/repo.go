package profiles

import "context"

// Repo persists canonical profiles.
type Repo interface {
	Create(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, userId, profileID string) (Profile, error)
	// Update overwrites data and version. Concurrent writers are last-write-wins.
	Update(ctx context.Context, p Profile) error
}

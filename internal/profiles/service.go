package profiles

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"profile-backend/internal/profile"
)

// Service owns the read-merge-write cycle for canonical profiles.
type Service struct {
	Repo Repo
	// Merge controls how job and education entries combine. The zero value
	// concatenates.
	Merge profile.Options
	Now   func() time.Time

	locksMu sync.Mutex
	locks   map[string]*profileLock
}

// profileLock is dropped from the map when its last holder or waiter leaves.
type profileLock struct {
	mu   sync.Mutex
	refs int
}

// Create provisions an empty profile for the user.
func (s *Service) Create(ctx context.Context, userId, name string) (Profile, error) {
	if userId == "" {
		return Profile{}, ErrInvalidInput
	}
	now := s.now()
	p := Profile{
		ID:        uuid.NewString(),
		UserID:    userId,
		Name:      strings.TrimSpace(name),
		Data:      profile.Empty(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Get returns a profile owned by the user.
func (s *Service) Get(ctx context.Context, userId, profileID string) (Profile, error) {
	if userId == "" || profileID == "" {
		return Profile{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userId, profileID)
}

// ApplyFragment merges a validated fragment into the stored profile and bumps
// its version. Writers in this process are serialized per profile; across
// processes the last write wins.
func (s *Service) ApplyFragment(ctx context.Context, userId, profileID string, fragment profile.Fragment) (Profile, error) {
	if userId == "" || profileID == "" {
		return Profile{}, ErrInvalidInput
	}

	unlock := s.lock(profileID)
	defer unlock()

	current, err := s.Repo.GetByID(ctx, userId, profileID)
	if err != nil {
		return Profile{}, err
	}

	profile.AssignIDs(&fragment)
	current.Data = profile.MergeWith(current.Data, fragment, s.Merge)
	current.Version++
	current.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, current); err != nil {
		return Profile{}, err
	}
	return current, nil
}

func (s *Service) lock(profileID string) func() {
	s.locksMu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*profileLock)
	}
	l, ok := s.locks[profileID]
	if !ok {
		l = &profileLock{}
		s.locks[profileID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, profileID)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

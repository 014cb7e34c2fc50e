package profiles

import (
	"time"

	"profile-backend/internal/profile"
)

// Profile is the canonical, versioned profile record for a user. Version
// starts at 1 and increases by one for every applied fragment.
type Profile struct {
	ID        string
	UserID    string
	Name      string
	Data      profile.Fragment
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

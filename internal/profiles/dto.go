package profiles

import (
	"time"

	"profile-backend/internal/profile"
)

// ProfileResponse is the outward-facing representation of a profile.
type ProfileResponse struct {
	ProfileID string           `json:"profileId"`
	Name      string           `json:"name"`
	Data      profile.Fragment `json:"data"`
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// ToResponse converts a Profile for JSON output.
func ToResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		ProfileID: p.ID,
		Name:      p.Name,
		Data:      p.Data,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type createRequest struct {
	Name string `json:"name" binding:"max=200"`
}

package models

import "time"

// UserProfile is a participant's gamification profile
type UserProfile struct {
	ID            string     `json:"id" db:"id"`
	DisplayName   string     `json:"displayName" db:"name"`
	Points        int        `json:"points" db:"points"`
	Streak        int        `json:"streak" db:"streak"`
	LastStudiedAt *time.Time `json:"lastStudiedAt" db:"last_studied"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// NewUserProfile returns a profile with zero defaults
func NewUserProfile(id, displayName string) UserProfile {
	if displayName == "" {
		displayName = id
	}
	return UserProfile{ID: id, DisplayName: displayName}
}

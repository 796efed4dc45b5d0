package models

import "time"

// Achievement is an earned badge. It is written once per (UserID, AchievementRef).
type Achievement struct {
	ID             string    `json:"id" db:"id"`
	AchievementRef string    `json:"achievementId" db:"achievement_id"`
	UserID         string    `json:"userId" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Points         int       `json:"points" db:"points"`
	EarnedAt       time.Time `json:"earnedAt" db:"earned_at"`
}

// AchievementID derives the record identity so that two replicas awarding the
// same achievement produce the same remote row.
func AchievementID(userID, ref string) string {
	return userID + "_" + ref
}

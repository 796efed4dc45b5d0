package models

import "time"

// ChallengeStatus is the lifecycle state of a challenge
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeExpired   ChallengeStatus = "expired"
)

// ChallengeType selects the metric a challenge is decided on
type ChallengeType string

const (
	ChallengeWeeklyTopics   ChallengeType = "weekly_topics"
	ChallengeStudyStreak    ChallengeType = "study_streak"
	ChallengeSubjectMastery ChallengeType = "subject_mastery"
	ChallengeStudyTime      ChallengeType = "study_time"
	ChallengeFlashcardSpeed ChallengeType = "flashcard_speed"
)

// Challenge is a head-to-head competition between two participants
type Challenge struct {
	ID           string          `json:"id" db:"id"`
	ChallengerID string          `json:"challengerId" db:"challenger_id"`
	ChallengedID string          `json:"challengedId" db:"challenged_id"`
	Type         ChallengeType   `json:"type" db:"challenge_type"`
	Description  string          `json:"description" db:"description"`
	TargetValue  int             `json:"targetValue" db:"target_value"`
	Deadline     time.Time       `json:"deadline" db:"deadline"`
	Status       ChallengeStatus `json:"status" db:"status"`
	WinnerID     *string         `json:"winnerId" db:"winner_id"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the challenge has not been resolved yet
func (c Challenge) IsActive() bool {
	return c.Status == ChallengeActive
}

// Involves reports whether userID takes part in the challenge
func (c Challenge) Involves(userID string) bool {
	return c.ChallengerID == userID || c.ChallengedID == userID
}

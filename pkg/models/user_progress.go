package models

import (
	"fmt"
	"strings"
	"time"
)

// Confidence is the self-assessed recall quality after revealing a card
type Confidence int

const (
	ConfidenceHard   Confidence = 1
	ConfidenceMedium Confidence = 2
	ConfidenceEasy   Confidence = 3
)

// Valid reports whether c is one of Hard, Medium or Easy
func (c Confidence) Valid() bool {
	return c >= ConfidenceHard && c <= ConfidenceEasy
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceHard:
		return "hard"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceEasy:
		return "easy"
	default:
		return fmt.Sprintf("confidence(%d)", int(c))
	}
}

// ParseConfidence accepts "hard"/"medium"/"easy" or "1"/"2"/"3"
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard", "1":
		return ConfidenceHard, nil
	case "medium", "2":
		return ConfidenceMedium, nil
	case "easy", "3":
		return ConfidenceEasy, nil
	}
	return 0, fmt.Errorf("unknown confidence %q", s)
}

// MaxMastery is the upper bound of ProgressRecord.MasteryLevel
const MaxMastery = 5.0

// ProgressRecord tracks one user's progress on one topic
type ProgressRecord struct {
	UserID           string     `json:"userId" db:"user_id"`
	TopicID          string     `json:"topicId" db:"topic_id"`
	MasteryLevel     float64    `json:"masteryLevel" db:"mastery_level"` // 0..5, 4+ is mastered
	StudyCount       int        `json:"studyCount" db:"study_count"`
	Confidence       Confidence `json:"confidence" db:"confidence"`
	TimeSpentMinutes int        `json:"timeSpent" db:"time_spent_minutes"`
	LastStudiedAt    *time.Time `json:"lastStudied" db:"last_studied"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

// Key returns the local cache key of the record
func (p ProgressRecord) Key() string {
	return ProgressKey(p.UserID, p.TopicID)
}

// ProgressKey builds the "userId:topicId" cache key
func ProgressKey(userID, topicID string) string {
	return userID + ":" + topicID
}

// SplitProgressKey is the inverse of ProgressKey
func SplitProgressKey(key string) (userID, topicID string, ok bool) {
	idx := strings.Index(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// ClampMastery keeps a mastery level inside [0, MaxMastery]
func ClampMastery(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > MaxMastery {
		return MaxMastery
	}
	return level
}

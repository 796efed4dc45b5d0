// Package challenges evaluates head-to-head challenges between participants.
package challenges

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/lawstudy/pkg/models"
)

var (
	ErrUnknownType        = errors.New("unknown challenge type")
	ErrSameParticipant    = errors.New("a participant cannot challenge themselves")
	ErrInvalidTarget      = errors.New("challenge target must be positive")
	ErrDeadlinePassed     = errors.New("challenge deadline is in the past")
	ErrMissingParticipant = errors.New("challenge participant is required")
)

// TypeInfo describes a challenge type for display and defaults
type TypeInfo struct {
	Type          models.ChallengeType
	Name          string
	Description   string
	Icon          string
	DefaultTarget int
	Unit          string
}

var types = []TypeInfo{
	{models.ChallengeWeeklyTopics, "Weekly Topics Race", "Who can study more topics this week?", "🏃", 10, "topics"},
	{models.ChallengeStudyStreak, "Study Streak Challenge", "Maintain the longest study streak", "🔥", 7, "days"},
	{models.ChallengeSubjectMastery, "Subject Mastery Race", "First to master an entire subject", "🎓", 1, "subject"},
	{models.ChallengeStudyTime, "Study Time Challenge", "Who can study more minutes this week?", "⏰", 300, "minutes"},
	{models.ChallengeFlashcardSpeed, "Flashcard Speed Run", "Complete the most flashcards", "⚡", 50, "cards"},
}

// Types lists the supported challenge types
func Types() []TypeInfo {
	out := make([]TypeInfo, len(types))
	copy(out, types)
	return out
}

// Info returns the catalogue entry of a type
func Info(t models.ChallengeType) (TypeInfo, bool) {
	for _, info := range types {
		if info.Type == t {
			return info, true
		}
	}
	return TypeInfo{}, false
}

// ParseType accepts a type name such as "weekly_topics"
func ParseType(s string) (models.ChallengeType, error) {
	t := models.ChallengeType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Info(t); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// New validates the parameters and returns an active challenge. A zero target
// takes the type's default and an empty description the type's description.
func New(challengerID, challengedID string, t models.ChallengeType, description string, target int, deadline, now time.Time) (models.Challenge, error) {
	if challengerID == "" || challengedID == "" {
		return models.Challenge{}, ErrMissingParticipant
	}
	if challengerID == challengedID {
		return models.Challenge{}, ErrSameParticipant
	}
	info, ok := Info(t)
	if !ok {
		return models.Challenge{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if target == 0 {
		target = info.DefaultTarget
	}
	if target < 0 {
		return models.Challenge{}, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	if !deadline.After(now) {
		return models.Challenge{}, fmt.Errorf("%w: %s", ErrDeadlinePassed, deadline.Format(time.RFC3339))
	}
	if description == "" {
		description = info.Description
	}
	return models.Challenge{
		ID:           "challenge_" + uuid.NewString(),
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Type:         t,
		Description:  description,
		TargetValue:  target,
		Deadline:     deadline,
		Status:       models.ChallengeActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Rematch returns a new challenge with the same participants, type and target.
// The deadline keeps the original duration counted from now.
func Rematch(original models.Challenge, now time.Time) (models.Challenge, error) {
	duration := original.Deadline.Sub(original.CreatedAt)
	if duration <= 0 {
		duration = 7 * 24 * time.Hour
	}
	return New(original.ChallengerID, original.ChallengedID, original.Type,
		"Rematch: "+original.Description, original.TargetValue, now.Add(duration), now)
}

// BonusPoints is awarded to the winner: a base of 100 plus a type bonus
func BonusPoints(c models.Challenge) int {
	const base = 100
	switch c.Type {
	case models.ChallengeSubjectMastery:
		return base + 200
	case models.ChallengeStudyStreak:
		return base + c.TargetValue*10
	case models.ChallengeWeeklyTopics:
		return base + c.TargetValue*5
	default:
		return base + 50
	}
}

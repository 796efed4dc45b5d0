package challenges

import (
	"math"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

// Outcome is the terminal state chosen for a challenge
type Outcome struct {
	Status          models.ChallengeStatus
	WinnerID        *string
	ChallengerValue int
	ChallengedValue int
	Bonus           int
	CompletedAt     time.Time
}

// Evaluate decides whether an active challenge ends at now. It returns false
// while the challenge should stay active.
func Evaluate(c models.Challenge, challengerValue, challengedValue int, now time.Time) (Outcome, bool) {
	if !c.IsActive() {
		return Outcome{}, false
	}

	var status models.ChallengeStatus
	switch {
	case challengerValue >= c.TargetValue || challengedValue >= c.TargetValue:
		status = models.ChallengeCompleted
	case now.After(c.Deadline):
		status = models.ChallengeExpired
	default:
		return Outcome{}, false
	}

	out := Outcome{
		Status:          status,
		ChallengerValue: challengerValue,
		ChallengedValue: challengedValue,
		CompletedAt:     now,
	}
	switch {
	case challengerValue > challengedValue:
		winner := c.ChallengerID
		out.WinnerID = &winner
	case challengedValue > challengerValue:
		winner := c.ChallengedID
		out.WinnerID = &winner
	}
	if out.WinnerID != nil {
		out.Bonus = BonusPoints(c)
	}
	return out, true
}

// Progress is the live standing of an active challenge
type Progress struct {
	Challenger        int
	Challenged        int
	Target            int
	ChallengerPercent float64
	ChallengedPercent float64
}

// NewProgress caps percentages at 100
func NewProgress(c models.Challenge, challengerValue, challengedValue int) Progress {
	percent := func(v int) float64 {
		if c.TargetValue <= 0 {
			return 100
		}
		return math.Min(100, float64(v)/float64(c.TargetValue)*100)
	}
	return Progress{
		Challenger:        challengerValue,
		Challenged:        challengedValue,
		Target:            c.TargetValue,
		ChallengerPercent: percent(challengerValue),
		ChallengedPercent: percent(challengedValue),
	}
}

// Wins counts the resolved challenges userID won
func Wins(all []models.Challenge, userID string) int {
	n := 0
	for _, c := range all {
		if c.WinnerID != nil && *c.WinnerID == userID {
			n++
		}
	}
	return n
}

// Summary is a user's challenge record
type Summary struct {
	Total     int
	Active    int
	Completed int
	Won       int
	WinRate   int
}

// Summarize counts the challenges userID takes part in
func Summarize(all []models.Challenge, userID string) Summary {
	var s Summary
	for _, c := range all {
		if !c.Involves(userID) {
			continue
		}
		s.Total++
		if c.IsActive() {
			s.Active++
			continue
		}
		s.Completed++
		if c.WinnerID != nil && *c.WinnerID == userID {
			s.Won++
		}
	}
	if s.Completed > 0 {
		s.WinRate = int(math.Round(float64(s.Won) / float64(s.Completed) * 100))
	}
	return s
}

// Package gamification holds the point, streak and achievement rules.
// Everything here is a pure function over profiles, progress and a clock value.
package gamification

import "math"

// Reason names a point award
type Reason string

const (
	ReasonStudyTopic     Reason = "study_topic"
	ReasonMasterTopic    Reason = "master_topic"
	ReasonDailyStreak    Reason = "daily_streak"
	ReasonWeeklyGoal     Reason = "weekly_goal"
	ReasonChallengeWin   Reason = "challenge_win"
	ReasonStudyTogether  Reason = "study_together"
	ReasonFirstSession   Reason = "first_session"
	ReasonPerfectWeek    Reason = "perfect_week"
	ReasonSubjectMastery Reason = "subject_mastery"
	ReasonSession        Reason = "session"
	ReasonAchievement    Reason = "achievement"
)

var pointValues = map[Reason]int{
	ReasonStudyTopic:     10,
	ReasonMasterTopic:    50,
	ReasonDailyStreak:    25,
	ReasonWeeklyGoal:     100,
	ReasonChallengeWin:   150,
	ReasonStudyTogether:  30,
	ReasonFirstSession:   20,
	ReasonPerfectWeek:    200,
	ReasonSubjectMastery: 200,
}

// PointsFor returns the base value of a reason, 0 for reasons without a fixed value
func PointsFor(reason Reason) int {
	return pointValues[reason]
}

type streakTier struct {
	threshold  int
	multiplier float64
}

// Ascending by threshold
var streakTiers = []streakTier{
	{3, 1.2},
	{7, 1.5},
	{14, 2.0},
	{30, 2.5},
}

// StreakMultiplier returns the multiplier of the largest threshold not above streak
func StreakMultiplier(streak int) float64 {
	multiplier := 1.0
	for _, tier := range streakTiers {
		if streak >= tier.threshold {
			multiplier = tier.multiplier
		}
	}
	return multiplier
}

// ApplyMultiplier scales base points by the streak multiplier, rounding down
func ApplyMultiplier(points, streak int) int {
	if points <= 0 {
		return 0
	}
	return int(math.Floor(float64(points) * StreakMultiplier(streak)))
}

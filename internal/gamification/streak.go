package gamification

import (
	"time"

	"github.com/example/lawstudy/pkg/models"
)

// StreakChange describes what RecordStudy did to a profile
type StreakChange struct {
	Previous int
	Current  int
	// Continued is true when the streak grew because the last study was yesterday
	Continued bool
	// AlreadyToday is true when the profile had studied today already
	AlreadyToday bool
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar days in now's location
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsYesterday reports whether t falls on the calendar day before now
func IsYesterday(t, now time.Time) bool {
	return SameDay(t, startOfDay(now).AddDate(0, 0, -1))
}

// RecordStudy updates streak and LastStudiedAt for a study action at now.
// Studying twice on the same day never increments the streak twice.
func RecordStudy(profile *models.UserProfile, now time.Time) StreakChange {
	change := StreakChange{Previous: profile.Streak}

	switch {
	case profile.LastStudiedAt != nil && SameDay(*profile.LastStudiedAt, now):
		change.AlreadyToday = true
		change.Current = profile.Streak
		return change
	case profile.LastStudiedAt != nil && IsYesterday(*profile.LastStudiedAt, now):
		profile.Streak++
		change.Continued = true
	default:
		profile.Streak = 1
	}

	studied := now
	profile.LastStudiedAt = &studied
	change.Current = profile.Streak
	return change
}

// StreakExpired reports whether more than one full calendar day passed since
// the last study, i.e. the profile did not study yesterday or today.
func StreakExpired(profile models.UserProfile, now time.Time) bool {
	if profile.LastStudiedAt == nil {
		return false
	}
	yesterday := startOfDay(now).AddDate(0, 0, -1)
	return profile.LastStudiedAt.Before(yesterday)
}

// CheckDailyStreak resets an expired streak to 0 and reports whether it did
func CheckDailyStreak(profile *models.UserProfile, now time.Time) bool {
	if profile.Streak == 0 || !StreakExpired(*profile, now) {
		return false
	}
	profile.Streak = 0
	return true
}

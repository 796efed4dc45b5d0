package gamification

import (
	"sort"
	"strings"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

// Achievement references
const (
	FirstTopic        = "first_topic"
	Streak3           = "streak_3"
	Streak7           = "streak_7"
	Streak14          = "streak_14"
	NightOwl          = "night_owl"
	EarlyBird         = "early_bird"
	WeekendWarrior    = "weekend_warrior"
	PerfectSession    = "perfect_session"
	SpeedDemon        = "speed_demon"
	ChallengeChampion = "challenge_champion"

	subjectMasterSuffix = "_master"
)

// Definition describes an achievement that can be earned
type Definition struct {
	Ref         string
	Title       string
	Description string
	Icon        string
	Points      int
}

var catalogue = map[string]Definition{
	FirstTopic:        {FirstTopic, "First Steps", "Studied your first topic", "📚", 20},
	Streak3:           {Streak3, "On a Roll", "Studied 3 days in a row", "🔥", 50},
	Streak7:           {Streak7, "Week Warrior", "Studied 7 days in a row", "⚡", 100},
	Streak14:          {Streak14, "Unstoppable", "Studied 14 days in a row", "💪", 200},
	NightOwl:          {NightOwl, "Night Owl", "Studied between 10 PM and 2 AM", "🦉", 30},
	EarlyBird:         {EarlyBird, "Early Bird", "Studied between 5 AM and 7 AM", "🐦", 30},
	WeekendWarrior:    {WeekendWarrior, "Weekend Warrior", "Studied on a weekend", "🗓️", 40},
	PerfectSession:    {PerfectSession, "Flawless", "Finished a session of 5+ cards with 100% accuracy", "🎯", 75},
	SpeedDemon:        {SpeedDemon, "Speed Demon", "Averaged under a minute per card over 10+ cards", "🏎️", 50},
	ChallengeChampion: {ChallengeChampion, "Challenge Champion", "Won 3 challenges", "🏆", 150},
}

// SubjectMasterRef returns the achievement reference for mastering a subject
func SubjectMasterRef(subject string) string {
	return subject + subjectMasterSuffix
}

// Lookup resolves an achievement reference, including "<subject>_master"
func Lookup(ref string) (Definition, bool) {
	if def, ok := catalogue[ref]; ok {
		return def, true
	}
	if subject, ok := strings.CutSuffix(ref, subjectMasterSuffix); ok && subject != "" {
		title := strings.ToUpper(subject[:1]) + subject[1:]
		return Definition{
			Ref:         ref,
			Title:       title + " Master",
			Description: "Mastered every topic in " + subject,
			Icon:        "👑",
			Points:      100,
		}, true
	}
	return Definition{}, false
}

// Catalogue lists the fixed achievements sorted by reference
func Catalogue() []Definition {
	defs := make([]Definition, 0, len(catalogue))
	for _, def := range catalogue {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Ref < defs[j].Ref })
	return defs
}

// NewAchievement builds the earned record for a definition
func NewAchievement(userID string, def Definition, now time.Time) models.Achievement {
	return models.Achievement{
		ID:             models.AchievementID(userID, def.Ref),
		AchievementRef: def.Ref,
		UserID:         userID,
		Title:          def.Title,
		Description:    def.Description,
		Points:         def.Points,
		EarnedAt:       now,
	}
}

// StreakAchievements returns every streak achievement reached at streak
func StreakAchievements(streak int) []string {
	var refs []string
	if streak >= 3 {
		refs = append(refs, Streak3)
	}
	if streak >= 7 {
		refs = append(refs, Streak7)
	}
	if streak >= 14 {
		refs = append(refs, Streak14)
	}
	return refs
}

// TimeOfDayAchievements returns the achievements earned by studying at now
func TimeOfDayAchievements(now time.Time) []string {
	var refs []string
	hour := now.Hour()
	if hour >= 22 || hour < 2 {
		refs = append(refs, NightOwl)
	}
	if hour >= 5 && hour < 7 {
		refs = append(refs, EarlyBird)
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		refs = append(refs, WeekendWarrior)
	}
	return refs
}

// SessionAchievements checks a finished session: perfect accuracy over at least
// 5 cards, or under 60 seconds per card over at least 10 cards
func SessionAchievements(cards, correct int, duration time.Duration) []string {
	var refs []string
	if cards >= 5 && correct == cards {
		refs = append(refs, PerfectSession)
	}
	if cards >= 10 && duration.Seconds()/float64(cards) < 60 {
		refs = append(refs, SpeedDemon)
	}
	return refs
}

// HasAchievement reports whether ref is among earned
func HasAchievement(earned []models.Achievement, ref string) bool {
	for _, a := range earned {
		if a.AchievementRef == ref {
			return true
		}
	}
	return false
}

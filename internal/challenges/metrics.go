package challenges

import (
	"time"

	"github.com/samber/lo"

	"github.com/example/lawstudy/pkg/models"
)

const week = 7 * 24 * time.Hour

// TopicSource is the content needed to decide subject mastery
type TopicSource interface {
	SubjectIDs() []string
	AllTopics(subject string) []models.Topic
}

func studiedSince(p models.ProgressRecord, since time.Time) bool {
	return p.LastStudiedAt != nil && p.LastStudiedAt.After(since)
}

// WeeklyTopics counts topics studied in the 7 days before now
func WeeklyTopics(progress map[string]models.ProgressRecord, now time.Time) int {
	since := now.Add(-week)
	return len(lo.PickBy(progress, func(_ string, p models.ProgressRecord) bool {
		return studiedSince(p, since)
	}))
}

// WeeklyMinutes sums the study time of topics studied in the 7 days before now
func WeeklyMinutes(progress map[string]models.ProgressRecord, now time.Time) int {
	since := now.Add(-week)
	total := 0
	for _, p := range progress {
		if studiedSince(p, since) {
			total += p.TimeSpentMinutes
		}
	}
	return total
}

// MasteredSubjects counts subjects whose every topic is at mastery 4 or above.
// Subjects without topics never count.
func MasteredSubjects(progress map[string]models.ProgressRecord, src TopicSource) int {
	if src == nil {
		return 0
	}
	return lo.CountBy(src.SubjectIDs(), func(subject string) bool {
		return SubjectMastered(progress, src.AllTopics(subject))
	})
}

// SubjectMastered reports whether every topic has a mastered progress record
func SubjectMastered(progress map[string]models.ProgressRecord, topics []models.Topic) bool {
	if len(topics) == 0 {
		return false
	}
	return lo.EveryBy(topics, func(t models.Topic) bool {
		p, ok := progress[t.ID]
		return ok && p.MasteryLevel >= 4
	})
}

// FlashcardCount sums the number of reviews across all topics
func FlashcardCount(progress map[string]models.ProgressRecord) int {
	return lo.SumBy(lo.Values(progress), func(p models.ProgressRecord) int { return p.StudyCount })
}

// Participant is the data a metric is computed from
type Participant struct {
	Profile  models.UserProfile
	Progress map[string]models.ProgressRecord
}

// Metric computes a participant's current value for a challenge type
func Metric(t models.ChallengeType, p Participant, src TopicSource, now time.Time) int {
	switch t {
	case models.ChallengeWeeklyTopics:
		return WeeklyTopics(p.Progress, now)
	case models.ChallengeStudyStreak:
		return p.Profile.Streak
	case models.ChallengeSubjectMastery:
		return MasteredSubjects(p.Progress, src)
	case models.ChallengeStudyTime:
		return WeeklyMinutes(p.Progress, now)
	case models.ChallengeFlashcardSpeed:
		return FlashcardCount(p.Progress)
	default:
		return 0
	}
}

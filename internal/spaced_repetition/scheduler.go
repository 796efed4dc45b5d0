package spaced_repetition

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

// ErrInvalidRating is returned for a confidence outside Hard..Easy
var ErrInvalidRating = errors.New("invalid confidence rating")

// Priority is the reason a topic made it into a deck
type Priority string

const (
	PriorityStruggling Priority = "struggling"
	PriorityNew        Priority = "new"
	PriorityReview     Priority = "review"
)

// rank orders priorities inside a deck: struggling, then new, then review
func (p Priority) rank() int {
	switch p {
	case PriorityStruggling:
		return 0
	case PriorityNew:
		return 1
	default:
		return 2
	}
}

// Scheduler decides which topics are due and how ratings move mastery
type Scheduler struct {
	// Review interval in days indexed by floor(mastery), last entry used for 4 and 5
	BaseIntervals []float64
	// Interval multiplier per confidence rating
	ConfidenceMultipliers map[models.Confidence]float64
	// Deck size used when BuildDeck is called with maxSize <= 0
	MaxDeckSize int
	// Study time credited per rated card
	MinutesPerCard int
	// Mastery at or above which a topic is considered mastered
	MasteredLevel float64
	// Mastery below which a topic is considered struggling
	StrugglingLevel float64
	// Mastery gain per rating
	MasteryGain map[models.Confidence]float64
}

// NewScheduler returns a scheduler with the default tables
func NewScheduler() *Scheduler {
	return &Scheduler{
		BaseIntervals: []float64{1, 2, 4, 7, 14},
		ConfidenceMultipliers: map[models.Confidence]float64{
			models.ConfidenceHard:   0.5,
			models.ConfidenceMedium: 1.0,
			models.ConfidenceEasy:   1.5,
		},
		MaxDeckSize:     20,
		MinutesPerCard:  2,
		MasteredLevel:   4,
		StrugglingLevel: 2,
		MasteryGain: map[models.Confidence]float64{
			models.ConfidenceHard:   0,
			models.ConfidenceMedium: 0.5,
			models.ConfidenceEasy:   1,
		},
	}
}

// Card is a topic selected for a study session
type Card struct {
	models.Topic
	Priority      Priority
	MasteryLevel  float64
	Confidence    models.Confidence
	LastStudiedAt *time.Time
}

// ReviewIntervalDays returns the number of days to wait before the next review
func (s *Scheduler) ReviewIntervalDays(masteryLevel float64, confidence models.Confidence) float64 {
	if len(s.BaseIntervals) == 0 {
		return 0
	}
	idx := int(math.Floor(models.ClampMastery(masteryLevel)))
	if idx >= len(s.BaseIntervals) {
		idx = len(s.BaseIntervals) - 1
	}
	multiplier, ok := s.ConfidenceMultipliers[confidence]
	if !ok {
		multiplier = 1.0
	}
	return s.BaseIntervals[idx] * multiplier
}

// IsDue reports whether a studied topic should be reviewed at now.
// A topic that was never studied is always due.
func (s *Scheduler) IsDue(record models.ProgressRecord, now time.Time) bool {
	if record.LastStudiedAt == nil {
		return true
	}
	days := now.Sub(*record.LastStudiedAt).Hours() / 24
	return days >= s.ReviewIntervalDays(record.MasteryLevel, record.Confidence)
}

// Classify assigns a deck priority. Only mastered topics that are not due stay
// out of the deck; the second result is false for them.
func (s *Scheduler) Classify(record *models.ProgressRecord, now time.Time) (Priority, bool) {
	if record == nil {
		return PriorityNew, true
	}
	if record.MasteryLevel < s.StrugglingLevel {
		return PriorityStruggling, true
	}
	if record.MasteryLevel < s.MasteredLevel || s.IsDue(*record, now) {
		return PriorityReview, true
	}
	return "", false
}

// BuildDeck selects and orders topics for a study session. The progress map is
// keyed by topic ID and is only read.
func (s *Scheduler) BuildDeck(topics []models.Topic, progress map[string]models.ProgressRecord, maxSize int, now time.Time) []Card {
	if maxSize <= 0 {
		maxSize = s.MaxDeckSize
	}
	cards := make([]Card, 0, len(topics))
	for _, topic := range topics {
		var record *models.ProgressRecord
		if p, ok := progress[topic.ID]; ok {
			record = &p
		}

		priority, include := s.Classify(record, now)
		if !include {
			continue
		}

		card := Card{Topic: topic, Priority: priority, Confidence: models.ConfidenceHard}
		if record != nil {
			card.MasteryLevel = record.MasteryLevel
			card.LastStudiedAt = record.LastStudiedAt
			if record.Confidence.Valid() {
				card.Confidence = record.Confidence
			}
		}
		cards = append(cards, card)
	}

	// Equal priorities keep declaration order
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Priority.rank() < cards[j].Priority.rank()
	})

	if len(cards) > maxSize {
		cards = cards[:maxSize]
	}
	return cards
}

// ApplyRating returns the record after one rated review. The input is not modified.
// An unknown rating only counts the review.
func (s *Scheduler) ApplyRating(current models.ProgressRecord, rating models.Confidence, now time.Time) models.ProgressRecord {
	next := current
	gain := s.MasteryGain[rating]
	if gain < 0 {
		gain = 0
	}
	next.MasteryLevel = models.ClampMastery(current.MasteryLevel + gain)
	next.StudyCount = current.StudyCount + 1
	next.Confidence = rating
	next.TimeSpentMinutes = current.TimeSpentMinutes + s.MinutesPerCard
	studied := now
	next.LastStudiedAt = &studied
	return next
}

// ApplyRatingChecked is ApplyRating with rating validation
func (s *Scheduler) ApplyRatingChecked(current models.ProgressRecord, rating models.Confidence, now time.Time) (models.ProgressRecord, error) {
	if !rating.Valid() {
		return current, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	return s.ApplyRating(current, rating, now), nil
}

// IsMastered reports whether the record reached the mastered level
func (s *Scheduler) IsMastered(record models.ProgressRecord) bool {
	return record.MasteryLevel >= s.MasteredLevel
}

package spaced_repetition

import (
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"github.com/example/lawstudy/pkg/models"
)

// SessionStats summarises a finished flashcard session
type SessionStats struct {
	CardsStudied   int
	CorrectAnswers int
	Duration       time.Duration
}

// Rated is one rating given during a session
type Rated struct {
	TopicID string
	Rating  models.Confidence
}

// NewSessionStats counts Medium and Easy ratings as correct answers
func NewSessionStats(ratings []Rated, duration time.Duration) SessionStats {
	return SessionStats{
		CardsStudied: len(ratings),
		CorrectAnswers: lo.CountBy(ratings, func(r Rated) bool {
			return r.Rating >= models.ConfidenceMedium
		}),
		Duration: duration,
	}
}

// Accuracy is the rounded percentage of correct answers
func (s SessionStats) Accuracy() int {
	if s.CardsStudied == 0 {
		return 0
	}
	return int(math.Round(float64(s.CorrectAnswers) / float64(s.CardsStudied) * 100))
}

// Points earned for the session: 10 per card, 5 per correct answer and a
// bonus of 25 at 80% accuracy or better
func (s SessionStats) Points() int {
	points := s.CardsStudied*10 + s.CorrectAnswers*5
	if s.CardsStudied > 0 && s.Accuracy() >= 80 {
		points += 25
	}
	return points
}

// AverageSecondsPerCard returns 0 for an empty session
func (s SessionStats) AverageSecondsPerCard() float64 {
	if s.CardsStudied == 0 {
		return 0
	}
	return s.Duration.Seconds() / float64(s.CardsStudied)
}

// Shuffle randomises display order in place. Decks returned by BuildDeck are
// already prioritised; shuffling is only for variety on screen.
func Shuffle(cards []Card, rnd *rand.Rand) {
	if rnd == nil {
		lo.Shuffle(cards)
		return
	}
	rnd.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

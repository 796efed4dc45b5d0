// Package study drives flashcard sessions on top of the sync engine.
package study

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/gamification"
	sr "github.com/example/lawstudy/internal/spaced_repetition"
	"github.com/example/lawstudy/internal/syncengine"
	"github.com/example/lawstudy/pkg/models"
)

var (
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrSessionDone    = errors.New("session has no cards left")
	ErrSessionClosed  = errors.New("session already finished")
	ErrUnknownPartner = errors.New("unknown partner")
)

// Engine is the part of the sync engine a study session writes through
type Engine interface {
	GetUserData(userID string) models.UserProfile
	Users() []models.UserProfile
	GetUserProgress(userID string) map[string]models.ProgressRecord
	GetUserAchievements(userID string) []models.Achievement
	UpdateProgressFunc(userID, topicID string, fn syncengine.DeltaFunc) (models.ProgressRecord, error)
	AddPoints(userID string, base int, reason gamification.Reason) (int, error)
	AwardAchievement(userID, ref string) (models.Achievement, bool, error)
	Participants() []string
}

// Topics is the content a deck is drawn from
type Topics interface {
	AllTopics(subject string) []models.Topic
	TopicByID(id string) (models.Topic, bool)
}

// Service builds decks, records ratings and settles finished sessions
type Service struct {
	engine    Engine
	scheduler *sr.Scheduler
	topics    Topics
	log       logrus.FieldLogger
	now       func() time.Time
	deckSize  int
}

// Option configures a Service
type Option func(*Service)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDeckSize overrides the scheduler's default deck size
func WithDeckSize(n int) Option {
	return func(s *Service) { s.deckSize = n }
}

// NewService wires a study service. A nil scheduler uses the defaults.
func NewService(engine Engine, scheduler *sr.Scheduler, topics Topics, opts ...Option) *Service {
	if scheduler == nil {
		scheduler = sr.NewScheduler()
	}
	s := &Service{
		engine:    engine,
		scheduler: scheduler,
		topics:    topics,
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "study")
	return s
}

// BuildDeck returns the cards due for userID in subject. An empty subject
// draws from every subject.
func (s *Service) BuildDeck(userID, subject string) []sr.Card {
	return s.scheduler.BuildDeck(s.topics.AllTopics(subject), s.engine.GetUserProgress(userID), s.deckSize, s.now())
}

// Rate applies one rating to a topic and writes the new record through the
// engine, which awards the study points and achievements. The rating is
// computed from the stored record inside the engine update.
func (s *Service) Rate(userID, topicID string, rating models.Confidence) (models.ProgressRecord, error) {
	if _, ok := s.topics.TopicByID(topicID); !ok {
		return models.ProgressRecord{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}
	var before models.ProgressRecord
	record, err := s.engine.UpdateProgressFunc(userID, topicID, func(current models.ProgressRecord, now time.Time) (syncengine.ProgressDelta, error) {
		before = current
		next, err := s.scheduler.ApplyRatingChecked(current, rating, now)
		if err != nil {
			return syncengine.ProgressDelta{}, err
		}
		return syncengine.DeltaFromRecord(next), nil
	})
	if err != nil {
		return models.ProgressRecord{}, err
	}
	if !s.scheduler.IsMastered(before) && s.scheduler.IsMastered(record) {
		s.log.WithField("user", userID).WithField("topic", topicID).Info("topic mastered")
	}
	return record, nil
}

// SessionResult is what a finished session earned
type SessionResult struct {
	Stats        sr.SessionStats
	Points       int
	Achievements []models.Achievement
}

// CompleteSession credits session points and checks the session achievements.
// An empty session earns nothing.
func (s *Service) CompleteSession(userID string, stats sr.SessionStats) (SessionResult, error) {
	result := SessionResult{Stats: stats}
	if stats.CardsStudied == 0 {
		return result, nil
	}

	points, err := s.engine.AddPoints(userID, stats.Points(), gamification.ReasonSession)
	if err != nil {
		return result, fmt.Errorf("failed to credit session points: %w", err)
	}
	result.Points = points

	for _, ref := range gamification.SessionAchievements(stats.CardsStudied, stats.CorrectAnswers, stats.Duration) {
		a, added, err := s.engine.AwardAchievement(userID, ref)
		if err != nil {
			return result, fmt.Errorf("failed to award %s: %w", ref, err)
		}
		if added {
			result.Achievements = append(result.Achievements, a)
		}
	}

	s.log.WithFields(logrus.Fields{
		"user":     userID,
		"cards":    stats.CardsStudied,
		"accuracy": stats.Accuracy(),
		"points":   points,
	}).Info("session completed")
	return result, nil
}

// Stats aggregates a user's record against the whole points board
func (s *Service) Stats(userID string) gamification.Stats {
	progress := s.engine.GetUserProgress(userID)
	records := make([]models.ProgressRecord, 0, len(progress))
	for _, p := range progress {
		records = append(records, p)
	}
	return gamification.StudyStats(s.engine.GetUserData(userID), records, s.engine.GetUserAchievements(userID), s.engine.Users())
}

// Partner is a participant as seen by their study partner
type Partner struct {
	Profile      models.UserProfile
	Presence     gamification.Presence
	LastActivity string
	Stats        gamification.Stats
	Messages     []string
}

// PartnerStatus describes partnerID for userID, with motivational messages
// comparing the two
func (s *Service) PartnerStatus(userID, partnerID string) (Partner, error) {
	known := false
	for _, id := range s.engine.Participants() {
		if id == partnerID {
			known = true
			break
		}
	}
	if !known || partnerID == userID {
		return Partner{}, fmt.Errorf("%w: %s", ErrUnknownPartner, partnerID)
	}

	now := s.now()
	profile := s.engine.GetUserData(partnerID)
	self, partner := s.Stats(userID), s.Stats(partnerID)
	return Partner{
		Profile:      profile,
		Presence:     gamification.OnlineStatus(profile.LastStudiedAt, now),
		LastActivity: gamification.LastActivity(profile.LastStudiedAt, now),
		Stats:        partner,
		Messages:     gamification.MotivationalMessages(self, partner),
	}, nil
}

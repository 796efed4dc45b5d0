package study

import (
	"time"

	sr "github.com/example/lawstudy/internal/spaced_repetition"
	"github.com/example/lawstudy/pkg/models"
)

// Session walks one deck. It is not safe for concurrent use.
type Session struct {
	UserID  string
	Subject string
	Cards   []sr.Card

	svc     *Service
	started time.Time
	pos     int
	ratings []sr.Rated
	done    bool
}

// StartSession builds a deck and starts the session clock
func (s *Service) StartSession(userID, subject string) *Session {
	return &Session{
		UserID:  userID,
		Subject: subject,
		Cards:   s.BuildDeck(userID, subject),
		svc:     s,
		started: s.now(),
	}
}

// Current returns the card waiting for a rating
func (ss *Session) Current() (sr.Card, bool) {
	if ss.done || ss.pos >= len(ss.Cards) {
		return sr.Card{}, false
	}
	return ss.Cards[ss.pos], true
}

// Remaining counts the cards not yet rated
func (ss *Session) Remaining() int {
	if ss.done {
		return 0
	}
	return len(ss.Cards) - ss.pos
}

// Answer rates the current card and moves to the next one
func (ss *Session) Answer(rating models.Confidence) (models.ProgressRecord, error) {
	if ss.done {
		return models.ProgressRecord{}, ErrSessionClosed
	}
	card, ok := ss.Current()
	if !ok {
		return models.ProgressRecord{}, ErrSessionDone
	}
	record, err := ss.svc.Rate(ss.UserID, card.Topic.ID, rating)
	if err != nil {
		return models.ProgressRecord{}, err
	}
	ss.ratings = append(ss.ratings, sr.Rated{TopicID: card.Topic.ID, Rating: rating})
	ss.pos++
	return record, nil
}

// Finish settles the session. It can be called before every card is rated.
func (ss *Session) Finish() (SessionResult, error) {
	if ss.done {
		return SessionResult{}, ErrSessionClosed
	}
	ss.done = true
	stats := sr.NewSessionStats(ss.ratings, ss.svc.now().Sub(ss.started))
	return ss.svc.CompleteSession(ss.UserID, stats)
}

package syncengine

import (
	"fmt"
	"time"

	"github.com/example/lawstudy/internal/challenges"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/internal/gamification"
	"github.com/example/lawstudy/internal/localstore"
	"github.com/example/lawstudy/pkg/models"
)

const masteredLevel = 4.0

// ProgressDelta sets fields of a progress record. Nil fields keep their value.
type ProgressDelta struct {
	MasteryLevel     *float64
	StudyCount       *int
	Confidence       *models.Confidence
	TimeSpentMinutes *int
	// StudiedAt defaults to the engine clock
	StudiedAt *time.Time
	// Reset allows MasteryLevel to go down
	Reset bool
}

// DeltaFromRecord sets every field from a record, typically the result of a rating
func DeltaFromRecord(p models.ProgressRecord) ProgressDelta {
	mastery, count, confidence, minutes := p.MasteryLevel, p.StudyCount, p.Confidence, p.TimeSpentMinutes
	return ProgressDelta{
		MasteryLevel:     &mastery,
		StudyCount:       &count,
		Confidence:       &confidence,
		TimeSpentMinutes: &minutes,
		StudiedAt:        p.LastStudiedAt,
	}
}

func (d ProgressDelta) validate(current models.ProgressRecord) error {
	if d.MasteryLevel != nil {
		m := *d.MasteryLevel
		if m < 0 || m > models.MaxMastery {
			return fmt.Errorf("%w: mastery %v outside [0, %v]", ErrInvalidDelta, m, models.MaxMastery)
		}
		if m < current.MasteryLevel && !d.Reset {
			return fmt.Errorf("%w: mastery cannot decrease from %v to %v", ErrInvalidDelta, current.MasteryLevel, m)
		}
	}
	if d.StudyCount != nil && *d.StudyCount < 0 {
		return fmt.Errorf("%w: negative study count", ErrInvalidDelta)
	}
	if d.TimeSpentMinutes != nil && *d.TimeSpentMinutes < 0 {
		return fmt.Errorf("%w: negative time spent", ErrInvalidDelta)
	}
	if d.Confidence != nil && !d.Confidence.Valid() {
		return fmt.Errorf("%w: confidence %d", ErrInvalidDelta, int(*d.Confidence))
	}
	return nil
}

func (d ProgressDelta) apply(p *models.ProgressRecord, now time.Time) {
	if d.MasteryLevel != nil {
		p.MasteryLevel = *d.MasteryLevel
	}
	if d.StudyCount != nil {
		p.StudyCount = *d.StudyCount
	}
	if d.Confidence != nil {
		p.Confidence = *d.Confidence
	}
	if d.TimeSpentMinutes != nil {
		p.TimeSpentMinutes = *d.TimeSpentMinutes
	}
	studied := now
	if d.StudiedAt != nil {
		studied = *d.StudiedAt
	}
	p.LastStudiedAt = &studied
	p.UpdatedAt = now
}

// addPoints credits base points scaled by the current streak multiplier
func addPoints(tx *txn, userID string, base int) int {
	u := tx.doc.EnsureUser(userID)
	points := gamification.ApplyMultiplier(base, u.Streak)
	u.Points += points
	u.UpdatedAt = tx.now
	tx.doc.Users[userID] = u
	return points
}

// award adds an achievement once per user and reference. It reports false when
// the user already has it.
func award(tx *txn, userID, ref string) (models.Achievement, bool, error) {
	def, ok := gamification.Lookup(ref)
	if !ok {
		return models.Achievement{}, false, fmt.Errorf("%w: %s", ErrUnknownAchievement, ref)
	}
	for _, a := range tx.doc.Achievements[userID] {
		if a.AchievementRef == ref {
			return a, false, nil
		}
	}
	a := gamification.NewAchievement(userID, def, tx.now)
	tx.doc.Achievements[userID] = append(tx.doc.Achievements[userID], a)

	u := tx.doc.EnsureUser(userID)
	u.Points += a.Points
	u.UpdatedAt = tx.now
	tx.doc.Users[userID] = u

	tx.emit(events.AchievementEarned, events.AchievementPayload{UserID: userID, Achievement: a})
	return a, true, nil
}

func awardAll(tx *txn, userID string, refs []string) {
	for _, ref := range refs {
		// refs come from the catalogue, Lookup cannot fail
		_, _, _ = award(tx, userID, ref)
	}
}

// UpdateProgress merges delta into the user's record for topicID, applies the
// point and streak rules and persists the result before returning.
func (e *Engine) UpdateProgress(userID, topicID string, delta ProgressDelta) (models.ProgressRecord, error) {
	return e.UpdateProgressFunc(userID, topicID, func(models.ProgressRecord, time.Time) (ProgressDelta, error) {
		return delta, nil
	})
}

// DeltaFunc derives a delta from the stored record at the time of the update
type DeltaFunc func(current models.ProgressRecord, now time.Time) (ProgressDelta, error)

// UpdateProgressFunc is UpdateProgress with the delta computed by fn under the
// engine lock, so the read of the current record and the write of the next
// one form a single mutation. A record that does not exist yet is passed as a
// zero record at Hard confidence.
func (e *Engine) UpdateProgressFunc(userID, topicID string, fn DeltaFunc) (models.ProgressRecord, error) {
	if userID == "" {
		return models.ProgressRecord{}, ErrInvalidUser
	}
	if topicID == "" {
		return models.ProgressRecord{}, ErrInvalidTopic
	}
	var topic models.Topic
	if e.topics != nil {
		t, ok := e.topics.TopicByID(topicID)
		if !ok {
			return models.ProgressRecord{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
		}
		topic = t
	}

	var result models.ProgressRecord
	err := e.update(func(tx *txn) error {
		key := models.ProgressKey(userID, topicID)
		current, existed := tx.doc.Progress[key]
		if !existed {
			current = models.ProgressRecord{UserID: userID, TopicID: topicID, Confidence: models.ConfidenceHard}
		}
		delta, err := fn(localstore.CloneProgress(current), tx.now)
		if err != nil {
			return err
		}
		if err := delta.validate(current); err != nil {
			return err
		}

		next := current
		delta.apply(&next, tx.now)
		tx.doc.Progress[key] = next
		firstTopic := !existed && countUserProgress(tx, userID) == 1

		points := addPoints(tx, userID, gamification.PointsFor(gamification.ReasonStudyTopic))
		newlyMastered := current.MasteryLevel < masteredLevel && next.MasteryLevel >= masteredLevel
		if newlyMastered {
			points += addPoints(tx, userID, gamification.PointsFor(gamification.ReasonMasterTopic))
		}

		u := tx.doc.EnsureUser(userID)
		change := gamification.RecordStudy(&u, tx.now)
		u.UpdatedAt = tx.now
		tx.doc.Users[userID] = u
		if change.Continued {
			points += addPoints(tx, userID, gamification.PointsFor(gamification.ReasonDailyStreak))
		}

		tx.emit(events.ProgressUpdated, events.ProgressPayload{UserID: userID, Record: next, Points: points})

		if firstTopic {
			awardAll(tx, userID, []string{gamification.FirstTopic})
		}
		awardAll(tx, userID, gamification.StreakAchievements(u.Streak))
		awardAll(tx, userID, gamification.TimeOfDayAchievements(tx.now))
		if newlyMastered && topic.Subject != "" {
			e.checkSubjectMastery(tx, userID, topic.Subject)
		}

		result = localstore.CloneProgress(next)
		return nil
	})
	return result, err
}

func countUserProgress(tx *txn, userID string) int {
	n := 0
	for _, p := range tx.doc.Progress {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func (e *Engine) checkSubjectMastery(tx *txn, userID, subject string) {
	progress := make(map[string]models.ProgressRecord)
	for _, p := range tx.doc.Progress {
		if p.UserID == userID {
			progress[p.TopicID] = p
		}
	}
	if !challenges.SubjectMastered(progress, e.topics.AllTopics(subject)) {
		return
	}
	if _, added, _ := award(tx, userID, gamification.SubjectMasterRef(subject)); added {
		addPoints(tx, userID, gamification.PointsFor(gamification.ReasonSubjectMastery))
	}
}

// AwardAchievement is idempotent: an achievement already earned is returned
// with false and nothing is written.
func (e *Engine) AwardAchievement(userID, ref string) (models.Achievement, bool, error) {
	if userID == "" {
		return models.Achievement{}, false, ErrInvalidUser
	}
	var (
		result models.Achievement
		added  bool
	)
	err := e.update(func(tx *txn) error {
		a, ok, err := award(tx, userID, ref)
		if err != nil {
			return err
		}
		result, added = a, ok
		tx.noop = !ok
		return nil
	})
	return result, added, err
}

// AddPoints credits base points with the streak multiplier and returns the
// points actually added
func (e *Engine) AddPoints(userID string, base int, reason gamification.Reason) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUser
	}
	if base < 0 {
		return 0, fmt.Errorf("%w: negative points for %s", ErrInvalidDelta, reason)
	}
	var added int
	err := e.update(func(tx *txn) error {
		added = addPoints(tx, userID, base)
		tx.noop = added == 0
		return nil
	})
	if err == nil && added > 0 {
		e.log.WithField("user", userID).WithField("reason", reason).Debugf("added %d points", added)
	}
	return added, err
}

// CreateChallenge starts an active challenge between two participants
func (e *Engine) CreateChallenge(challengerID, challengedID string, t models.ChallengeType, description string, target int, deadline time.Time) (models.Challenge, error) {
	for _, id := range []string{challengerID, challengedID} {
		if id != "" && !e.isParticipant(id) {
			return models.Challenge{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
		}
	}
	var result models.Challenge
	err := e.update(func(tx *txn) error {
		c, err := challenges.New(challengerID, challengedID, t, description, target, deadline, tx.now)
		if err != nil {
			return err
		}
		tx.doc.Challenges = append(tx.doc.Challenges, c)
		tx.emit(events.ChallengeCreated, events.ChallengePayload{Challenge: c})
		result = c
		return nil
	})
	return result, err
}

// CompleteChallenge moves an active challenge to the outcome's terminal state
// and credits the winner's bonus. A challenge that is no longer active is
// returned unchanged with false, so the bonus is paid at most once.
func (e *Engine) CompleteChallenge(id string, outcome challenges.Outcome) (models.Challenge, bool, error) {
	if outcome.Status != models.ChallengeCompleted && outcome.Status != models.ChallengeExpired {
		return models.Challenge{}, false, fmt.Errorf("invalid terminal status %q", outcome.Status)
	}
	var (
		result  models.Challenge
		changed bool
	)
	err := e.update(func(tx *txn) error {
		idx := -1
		for i, c := range tx.doc.Challenges {
			if c.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrChallengeNotFound, id)
		}
		c := tx.doc.Challenges[idx]
		if !c.IsActive() {
			result = localstore.CloneChallenge(c)
			tx.noop = true
			return nil
		}

		completed := outcome.CompletedAt
		if completed.IsZero() {
			completed = tx.now
		}
		c.Status = outcome.Status
		c.WinnerID = nil
		if outcome.WinnerID != nil {
			winner := *outcome.WinnerID
			c.WinnerID = &winner
			u := tx.doc.EnsureUser(winner)
			u.Points += outcome.Bonus
			u.UpdatedAt = tx.now
			tx.doc.Users[winner] = u
		}
		c.CompletedAt = &completed
		c.UpdatedAt = tx.now
		tx.doc.Challenges[idx] = c

		tx.emit(events.ChallengeCompleted, events.ChallengePayload{Challenge: c})
		result = localstore.CloneChallenge(c)
		changed = true
		return nil
	})
	return result, changed, err
}

// BreakStreaks resets the streak of every user who missed a full day and
// returns their ids
func (e *Engine) BreakStreaks() ([]string, error) {
	var broken []string
	err := e.update(func(tx *txn) error {
		for id, u := range tx.doc.Users {
			if gamification.CheckDailyStreak(&u, tx.now) {
				u.UpdatedAt = tx.now
				tx.doc.Users[id] = u
				broken = append(broken, id)
			}
		}
		tx.noop = len(broken) == 0
		return nil
	})
	for _, id := range broken {
		e.log.WithField("user", id).Info("streak broken")
	}
	return broken, err
}

// SetDisplayName renames a participant
func (e *Engine) SetDisplayName(userID, name string) error {
	if userID == "" {
		return ErrInvalidUser
	}
	return e.update(func(tx *txn) error {
		u := tx.doc.EnsureUser(userID)
		u.DisplayName = name
		u.UpdatedAt = tx.now
		tx.doc.Users[userID] = u
		return nil
	})
}

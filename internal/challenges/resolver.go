package challenges

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/gamification"
	"github.com/example/lawstudy/pkg/models"
)

// ChampionWins is the number of wins that earns challenge_champion
const ChampionWins = 3

// Engine is the state the resolver reads and transitions
type Engine interface {
	GetChallenges() []models.Challenge
	GetUserData(userID string) models.UserProfile
	GetUserProgress(userID string) map[string]models.ProgressRecord
	CompleteChallenge(id string, outcome Outcome) (models.Challenge, bool, error)
	AwardAchievement(userID, ref string) (models.Achievement, bool, error)
}

// Resolver periodically closes challenges that reached their target or deadline
type Resolver struct {
	engine  Engine
	content TopicSource
	log     logrus.FieldLogger
}

func NewResolver(engine Engine, content TopicSource, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{
		engine:  engine,
		content: content,
		log:     log.WithField("component", "challenges"),
	}
}

func (r *Resolver) participant(userID string) Participant {
	return Participant{
		Profile:  r.engine.GetUserData(userID),
		Progress: r.engine.GetUserProgress(userID),
	}
}

// Values computes both participants' current metric values
func (r *Resolver) Values(c models.Challenge, now time.Time) (int, int) {
	challenger := Metric(c.Type, r.participant(c.ChallengerID), r.content, now)
	challenged := Metric(c.Type, r.participant(c.ChallengedID), r.content, now)
	return challenger, challenged
}

// Run evaluates every active challenge and returns the ones it resolved
func (r *Resolver) Run(now time.Time) []models.Challenge {
	var resolved []models.Challenge
	for _, c := range r.engine.GetChallenges() {
		if !c.IsActive() {
			continue
		}
		challengerValue, challengedValue := r.Values(c, now)
		outcome, done := Evaluate(c, challengerValue, challengedValue, now)
		if !done {
			continue
		}

		updated, changed, err := r.engine.CompleteChallenge(c.ID, outcome)
		if err != nil {
			r.log.WithError(err).WithField("challenge", c.ID).Error("failed to complete challenge")
			continue
		}
		if !changed {
			continue
		}
		resolved = append(resolved, updated)

		entry := r.log.WithFields(logrus.Fields{
			"challenge":  c.ID,
			"status":     updated.Status,
			"challenger": challengerValue,
			"challenged": challengedValue,
		})
		if updated.WinnerID != nil {
			entry = entry.WithField("winner", *updated.WinnerID)
			r.checkChampion(*updated.WinnerID)
		}
		entry.Info("challenge resolved")
	}
	return resolved
}

func (r *Resolver) checkChampion(userID string) {
	if Wins(r.engine.GetChallenges(), userID) < ChampionWins {
		return
	}
	if _, _, err := r.engine.AwardAchievement(userID, gamification.ChallengeChampion); err != nil {
		r.log.WithError(err).WithField("user", userID).Warn("failed to award challenge_champion")
	}
}

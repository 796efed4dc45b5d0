package gamification

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/example/lawstudy/pkg/models"
)

// Level is the result of CalculateLevel
type Level struct {
	Level                int
	CurrentLevelProgress int
	NextLevelRequirement int
	ProgressPercent      float64
	TotalPoints          int
}

// CalculateLevel converts points into a level. Level 2 needs 100 points and
// every further level needs 100 more than the one before (100, 300, 600, ...).
func CalculateLevel(points int) Level {
	level, total, requirement := 1, 0, 100
	for total+requirement <= points {
		total += requirement
		level++
		requirement += 100
	}
	progress := points - total
	return Level{
		Level:                level,
		CurrentLevelProgress: progress,
		NextLevelRequirement: requirement,
		ProgressPercent:      float64(progress) / float64(requirement) * 100,
		TotalPoints:          points,
	}
}

// Standing is a user's place on the points board
type Standing struct {
	Rank  int
	Total int
	Users []models.UserProfile
}

// Rank orders users by points, highest first. Ties keep ID order. Rank is 0 when
// userID is not on the board.
func Rank(users []models.UserProfile, userID string) Standing {
	board := make([]models.UserProfile, len(users))
	copy(board, users)
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Points != board[j].Points {
			return board[i].Points > board[j].Points
		}
		return board[i].ID < board[j].ID
	})
	_, idx, found := lo.FindIndexOf(board, func(u models.UserProfile) bool { return u.ID == userID })
	rank := 0
	if found {
		rank = idx + 1
	}
	return Standing{Rank: rank, Total: len(board), Users: board}
}

// Stats summarises one user's study record
type Stats struct {
	Points             int
	Streak             int
	Level              Level
	TopicsStudied      int
	TopicsMastered     int
	TotalStudyMinutes  int
	AverageConfidence  float64
	AchievementsEarned int
	Standing           Standing
}

// StudyStats aggregates a user's profile, progress and achievements
func StudyStats(profile models.UserProfile, progress []models.ProgressRecord, achievements []models.Achievement, board []models.UserProfile) Stats {
	stats := Stats{
		Points:             profile.Points,
		Streak:             profile.Streak,
		Level:              CalculateLevel(profile.Points),
		TopicsStudied:      len(progress),
		AchievementsEarned: len(achievements),
		Standing:           Rank(board, profile.ID),
	}
	stats.TopicsMastered = lo.CountBy(progress, func(p models.ProgressRecord) bool { return p.MasteryLevel >= 4 })
	stats.TotalStudyMinutes = lo.SumBy(progress, func(p models.ProgressRecord) int { return p.TimeSpentMinutes })
	if len(progress) > 0 {
		sum := lo.SumBy(progress, func(p models.ProgressRecord) int {
			if !p.Confidence.Valid() {
				return int(models.ConfidenceHard)
			}
			return int(p.Confidence)
		})
		stats.AverageConfidence = math.Round(float64(sum)/float64(len(progress))*100) / 100
	}
	return stats
}

// Presence is a participant's activity state as seen by a partner
type Presence string

const (
	PresenceStudying Presence = "studying"
	PresenceOnline   Presence = "online"
	PresenceOffline  Presence = "offline"
)

// OnlineStatus derives presence from the last study time
func OnlineStatus(lastStudiedAt *time.Time, now time.Time) Presence {
	if lastStudiedAt == nil {
		return PresenceOffline
	}
	elapsed := now.Sub(*lastStudiedAt)
	switch {
	case elapsed < 5*time.Minute:
		return PresenceStudying
	case elapsed < time.Hour:
		return PresenceOnline
	default:
		return PresenceOffline
	}
}

// LastActivity formats the time since the last study for display
func LastActivity(lastStudiedAt *time.Time, now time.Time) string {
	if lastStudiedAt == nil {
		return "Never"
	}
	hours := int(now.Sub(*lastStudiedAt).Hours())
	days := hours / 24
	switch {
	case hours < 1:
		return "Just now"
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days == 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// MotivationalMessages compares a user with their partner
func MotivationalMessages(self, partner Stats) []string {
	var messages []string
	switch {
	case self.Streak == 0:
		messages = append(messages, "Start your study streak today!")
	case self.Streak < 3:
		messages = append(messages, fmt.Sprintf("Great start! Keep your %d-day streak going!", self.Streak))
	case self.Streak < 7:
		messages = append(messages, fmt.Sprintf("Amazing %d-day streak! You're on fire!", self.Streak))
	default:
		messages = append(messages, fmt.Sprintf("Incredible %d-day streak! You're unstoppable!", self.Streak))
	}

	diff := self.Points - partner.Points
	switch {
	case diff > 50:
		messages = append(messages, fmt.Sprintf("You're ahead by %d points! Keep it up!", diff))
	case diff < -50:
		messages = append(messages, fmt.Sprintf("Your partner is %d points ahead. Time to catch up!", -diff))
	default:
		messages = append(messages, "It's a close race!")
	}
	return messages
}

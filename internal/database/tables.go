package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/example/lawstudy/pkg/models"
)

// Table describes a synchronised remote table
type Table struct {
	Name    string
	Columns []string
	// WriteOnce tables never overwrite an existing row
	WriteOnce bool
}

var (
	UsersTable = Table{
		Name:    "users",
		Columns: []string{"id", "name", "points", "streak", "last_studied", "updated_at"},
	}
	ProgressTable = Table{
		Name:    "user_progress",
		Columns: []string{"id", "user_id", "topic_id", "mastery_level", "study_count", "confidence", "time_spent_minutes", "last_studied", "updated_at"},
	}
	AchievementsTable = Table{
		Name:      "achievements",
		Columns:   []string{"id", "user_id", "achievement_id", "title", "description", "points", "earned_at", "updated_at"},
		WriteOnce: true,
	}
	ChallengesTable = Table{
		Name:    "challenges",
		Columns: []string{"id", "challenger_id", "challenged_id", "challenge_type", "description", "target_value", "deadline", "status", "winner_id", "created_at", "completed_at", "updated_at"},
	}
)

// UpsertStatement writes one row, replacing it unless the table is write-once
func (t Table) UpsertStatement() string {
	verb := "INSERT OR REPLACE"
	if t.WriteOnce {
		verb = "INSERT OR IGNORE"
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, t.Name, strings.Join(t.Columns, ", "), marks)
}

// SelectStatement reads every row
func (t Table) SelectStatement() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.Columns, ", "), t.Name)
}

// VersionsStatement reads the identity and version of every row
func (t Table) VersionsStatement() string {
	return fmt.Sprintf("SELECT id, updated_at FROM %s", t.Name)
}

// FormatTime encodes a timestamp column
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// ParseTime decodes a timestamp column. Empty values yield the zero time.
func ParseTime(v interface{}) (time.Time, error) {
	switch value := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return value.UTC(), nil
	}
	s := cast.ToString(v)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseOptionalTime(v interface{}) (*time.Time, error) {
	t, err := ParseTime(v)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func parseOptionalString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := cast.ToString(v)
	if s == "" {
		return nil
	}
	return &s
}

// RowVersion returns the id and updated_at of a row
func RowVersion(row Row) (string, time.Time, error) {
	id := cast.ToString(row["id"])
	if id == "" {
		return "", time.Time{}, fmt.Errorf("row without id")
	}
	updated, err := ParseTime(row["updated_at"])
	return id, updated, err
}

// EncodeUser returns UsersTable parameters
func EncodeUser(u models.UserProfile) []interface{} {
	return []interface{}{u.ID, u.DisplayName, u.Points, u.Streak, formatOptionalTime(u.LastStudiedAt), FormatTime(u.UpdatedAt)}
}

// DecodeUser reads a UsersTable row
func DecodeUser(row Row) (models.UserProfile, error) {
	u := models.UserProfile{
		ID:          cast.ToString(row["id"]),
		DisplayName: cast.ToString(row["name"]),
		Points:      cast.ToInt(row["points"]),
		Streak:      cast.ToInt(row["streak"]),
	}
	var err error
	if u.LastStudiedAt, err = parseOptionalTime(row["last_studied"]); err != nil {
		return u, fmt.Errorf("user %s: %w", u.ID, err)
	}
	if u.UpdatedAt, err = ParseTime(row["updated_at"]); err != nil {
		return u, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

// EncodeProgress returns ProgressTable parameters. The row id is the progress key.
func EncodeProgress(p models.ProgressRecord) []interface{} {
	return []interface{}{
		p.Key(), p.UserID, p.TopicID, p.MasteryLevel, p.StudyCount, int(p.Confidence),
		p.TimeSpentMinutes, formatOptionalTime(p.LastStudiedAt), FormatTime(p.UpdatedAt),
	}
}

// DecodeProgress reads a ProgressTable row
func DecodeProgress(row Row) (models.ProgressRecord, error) {
	p := models.ProgressRecord{
		UserID:           cast.ToString(row["user_id"]),
		TopicID:          cast.ToString(row["topic_id"]),
		MasteryLevel:     models.ClampMastery(cast.ToFloat64(row["mastery_level"])),
		StudyCount:       cast.ToInt(row["study_count"]),
		Confidence:       models.Confidence(cast.ToInt(row["confidence"])),
		TimeSpentMinutes: cast.ToInt(row["time_spent_minutes"]),
	}
	if p.UserID == "" || p.TopicID == "" {
		return p, fmt.Errorf("progress row %v without user or topic", row["id"])
	}
	var err error
	if p.LastStudiedAt, err = parseOptionalTime(row["last_studied"]); err != nil {
		return p, fmt.Errorf("progress %s: %w", p.Key(), err)
	}
	if p.UpdatedAt, err = ParseTime(row["updated_at"]); err != nil {
		return p, fmt.Errorf("progress %s: %w", p.Key(), err)
	}
	return p, nil
}

// EncodeAchievement returns AchievementsTable parameters. EarnedAt doubles as
// the version since achievements never change.
func EncodeAchievement(a models.Achievement) []interface{} {
	return []interface{}{a.ID, a.UserID, a.AchievementRef, a.Title, a.Description, a.Points, FormatTime(a.EarnedAt), FormatTime(a.EarnedAt)}
}

// DecodeAchievement reads an AchievementsTable row
func DecodeAchievement(row Row) (models.Achievement, error) {
	a := models.Achievement{
		ID:             cast.ToString(row["id"]),
		UserID:         cast.ToString(row["user_id"]),
		AchievementRef: cast.ToString(row["achievement_id"]),
		Title:          cast.ToString(row["title"]),
		Description:    cast.ToString(row["description"]),
		Points:         cast.ToInt(row["points"]),
	}
	var err error
	if a.EarnedAt, err = ParseTime(row["earned_at"]); err != nil {
		return a, fmt.Errorf("achievement %s: %w", a.ID, err)
	}
	return a, nil
}

// EncodeChallenge returns ChallengesTable parameters
func EncodeChallenge(c models.Challenge) []interface{} {
	return []interface{}{
		c.ID, c.ChallengerID, c.ChallengedID, string(c.Type), c.Description, c.TargetValue,
		FormatTime(c.Deadline), string(c.Status), optionalString(c.WinnerID), FormatTime(c.CreatedAt),
		formatOptionalTime(c.CompletedAt), FormatTime(c.UpdatedAt),
	}
}

// DecodeChallenge reads a ChallengesTable row
func DecodeChallenge(row Row) (models.Challenge, error) {
	c := models.Challenge{
		ID:           cast.ToString(row["id"]),
		ChallengerID: cast.ToString(row["challenger_id"]),
		ChallengedID: cast.ToString(row["challenged_id"]),
		Type:         models.ChallengeType(cast.ToString(row["challenge_type"])),
		Description:  cast.ToString(row["description"]),
		TargetValue:  cast.ToInt(row["target_value"]),
		Status:       models.ChallengeStatus(cast.ToString(row["status"])),
		WinnerID:     parseOptionalString(row["winner_id"]),
	}
	var err error
	if c.Deadline, err = ParseTime(row["deadline"]); err != nil {
		return c, fmt.Errorf("challenge %s: %w", c.ID, err)
	}
	if c.CreatedAt, err = ParseTime(row["created_at"]); err != nil {
		return c, fmt.Errorf("challenge %s: %w", c.ID, err)
	}
	if c.CompletedAt, err = parseOptionalTime(row["completed_at"]); err != nil {
		return c, fmt.Errorf("challenge %s: %w", c.ID, err)
	}
	if c.UpdatedAt, err = ParseTime(row["updated_at"]); err != nil {
		return c, fmt.Errorf("challenge %s: %w", c.ID, err)
	}
	return c, nil
}

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, RemoteConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "remote", "remote.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitializeSchema(ctx, db); err != nil {
		t.Fatalf("InitializeSchema() error = %v", err)
	}
	// Running it twice must be harmless
	if err := InitializeSchema(ctx, db); err != nil {
		t.Fatalf("second InitializeSchema() error = %v", err)
	}
	return db
}

func TestOpenNotConfigured(t *testing.T) {
	if _, err := Open(context.Background(), RemoteConfig{}); err != ErrNotConfigured {
		t.Fatalf("Open() error = %v, want ErrNotConfigured", err)
	}
}

func TestExecuteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	studied := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := models.ProgressRecord{
		UserID: "u1", TopicID: "offer", MasteryLevel: 2.5, StudyCount: 3,
		Confidence: models.ConfidenceMedium, TimeSpentMinutes: 6,
		LastStudiedAt: &studied, UpdatedAt: studied,
	}
	if _, err := db.Execute(ctx, ProgressTable.UpsertStatement(), EncodeProgress(p)...); err != nil {
		t.Fatalf("upsert error = %v", err)
	}
	p.MasteryLevel = 3
	if _, err := db.Execute(ctx, ProgressTable.UpsertStatement(), EncodeProgress(p)...); err != nil {
		t.Fatalf("second upsert error = %v", err)
	}

	rows, err := db.Execute(ctx, ProgressTable.SelectStatement())
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	got, err := DecodeProgress(rows[0])
	if err != nil {
		t.Fatalf("DecodeProgress() error = %v", err)
	}
	if got.MasteryLevel != 3 || got.StudyCount != 3 || got.Confidence != models.ConfidenceMedium {
		t.Errorf("unexpected record %+v", got)
	}
	if got.LastStudiedAt == nil || !got.LastStudiedAt.Equal(studied) || !got.UpdatedAt.Equal(studied) {
		t.Errorf("timestamps not preserved: %+v", got)
	}
}

func TestExecuteWriteOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	earned := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := models.Achievement{ID: models.AchievementID("u1", "first_topic"), UserID: "u1", AchievementRef: "first_topic", Title: "First Steps", Points: 20, EarnedAt: earned}
	if _, err := db.Execute(ctx, AchievementsTable.UpsertStatement(), EncodeAchievement(a)...); err != nil {
		t.Fatal(err)
	}
	a.Title = "Changed"
	a.EarnedAt = earned.Add(time.Hour)
	if _, err := db.Execute(ctx, AchievementsTable.UpsertStatement(), EncodeAchievement(a)...); err != nil {
		t.Fatal(err)
	}

	rows, err := db.Execute(ctx, AchievementsTable.SelectStatement())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	got, err := DecodeAchievement(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "First Steps" || !got.EarnedAt.Equal(earned) {
		t.Errorf("write-once row was overwritten: %+v", got)
	}
}

func TestChallengeCodec(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := models.Challenge{
		ID: "challenge_1", ChallengerID: "a", ChallengedID: "b",
		Type: models.ChallengeWeeklyTopics, Description: "race", TargetValue: 10,
		Deadline: created.Add(7 * 24 * time.Hour), Status: models.ChallengeActive,
		CreatedAt: created, UpdatedAt: created,
	}
	if _, err := db.Execute(ctx, ChallengesTable.UpsertStatement(), EncodeChallenge(c)...); err != nil {
		t.Fatal(err)
	}
	rows, err := db.Execute(ctx, ChallengesTable.SelectStatement())
	if err != nil || len(rows) != 1 {
		t.Fatalf("select: rows=%d err=%v", len(rows), err)
	}
	got, err := DecodeChallenge(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.WinnerID != nil || got.CompletedAt != nil || got.Status != models.ChallengeActive || !got.Deadline.Equal(c.Deadline) {
		t.Errorf("unexpected challenge %+v", got)
	}

	id, version, err := RowVersion(rows[0])
	if err != nil || id != c.ID || !version.Equal(created) {
		t.Errorf("RowVersion() = %v %v %v", id, version, err)
	}
}

func TestParseTime(t *testing.T) {
	if ts, err := ParseTime(nil); err != nil || !ts.IsZero() {
		t.Errorf("ParseTime(nil) = %v, %v", ts, err)
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for malformed timestamp")
	}
	ts, err := ParseTime([]byte("2024-01-02T03:04:05Z"))
	if err != nil || ts.Year() != 2024 {
		t.Errorf("ParseTime([]byte) = %v, %v", ts, err)
	}
}

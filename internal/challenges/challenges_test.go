package challenges

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/example/lawstudy/pkg/models"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func hoursAgo(h int) *time.Time {
	t := now.Add(-time.Duration(h) * time.Hour)
	return &t
}

func challenge(t models.ChallengeType, target int, deadline time.Time) models.Challenge {
	return models.Challenge{
		ID:           "c1",
		ChallengerID: "alice",
		ChallengedID: "bob",
		Type:         t,
		TargetValue:  target,
		Deadline:     deadline,
		Status:       models.ChallengeActive,
		CreatedAt:    now.Add(-48 * time.Hour),
	}
}

func TestNew(t *testing.T) {
	deadline := now.Add(24 * time.Hour)
	tests := []struct {
		name       string
		challenger string
		challenged string
		typ        models.ChallengeType
		target     int
		deadline   time.Time
		wantErr    error
	}{
		{"valid", "alice", "bob", models.ChallengeWeeklyTopics, 5, deadline, nil},
		{"default target", "alice", "bob", models.ChallengeStudyTime, 0, deadline, nil},
		{"self", "alice", "alice", models.ChallengeWeeklyTopics, 5, deadline, ErrSameParticipant},
		{"missing", "", "bob", models.ChallengeWeeklyTopics, 5, deadline, ErrMissingParticipant},
		{"unknown type", "alice", "bob", "irac_master", 5, deadline, ErrUnknownType},
		{"negative target", "alice", "bob", models.ChallengeWeeklyTopics, -1, deadline, ErrInvalidTarget},
		{"past deadline", "alice", "bob", models.ChallengeWeeklyTopics, 5, now, ErrDeadlinePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.challenger, tt.challenged, tt.typ, "", tt.target, tt.deadline, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Status != models.ChallengeActive || c.WinnerID != nil || c.ID == "" || c.Description == "" {
				t.Errorf("unexpected challenge %+v", c)
			}
			if tt.target == 0 && c.TargetValue != 300 {
				t.Errorf("default target = %d, want 300", c.TargetValue)
			}
		})
	}
}

func TestRematch(t *testing.T) {
	original := challenge(models.ChallengeStudyStreak, 7, now.Add(24*time.Hour))
	original.Description = "Streak off"
	r, err := Rematch(original, now)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID == original.ID || r.Description != "Rematch: Streak off" || !r.Deadline.Equal(now.Add(72*time.Hour)) {
		t.Fatalf("unexpected rematch %+v", r)
	}
}

func TestBonusPoints(t *testing.T) {
	tests := []struct {
		typ    models.ChallengeType
		target int
		want   int
	}{
		{models.ChallengeSubjectMastery, 1, 300},
		{models.ChallengeStudyStreak, 7, 170},
		{models.ChallengeWeeklyTopics, 10, 150},
		{models.ChallengeStudyTime, 300, 150},
		{models.ChallengeFlashcardSpeed, 50, 150},
	}
	for _, tt := range tests {
		if got := BonusPoints(challenge(tt.typ, tt.target, now)); got != tt.want {
			t.Errorf("BonusPoints(%s, %d) = %d, want %d", tt.typ, tt.target, got, tt.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	alice, bob := "alice", "bob"
	tests := []struct {
		name       string
		deadline   time.Time
		status     models.ChallengeStatus
		challenger int
		challenged int
		done       bool
		want       models.ChallengeStatus
		winner     *string
	}{
		{"below target before deadline", future, models.ChallengeActive, 9, 7, false, "", nil},
		{"challenger reaches target", future, models.ChallengeActive, 10, 7, true, models.ChallengeCompleted, &alice},
		{"challenged reaches target", future, models.ChallengeActive, 3, 12, true, models.ChallengeCompleted, &bob},
		{"both reach target tied", future, models.ChallengeActive, 10, 10, true, models.ChallengeCompleted, nil},
		{"deadline passes", past, models.ChallengeActive, 4, 6, true, models.ChallengeExpired, &bob},
		{"deadline passes tied", past, models.ChallengeActive, 0, 0, true, models.ChallengeExpired, nil},
		{"target wins over deadline", past, models.ChallengeActive, 10, 2, true, models.ChallengeCompleted, &alice},
		{"already completed", past, models.ChallengeCompleted, 10, 2, false, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := challenge(models.ChallengeWeeklyTopics, 10, tt.deadline)
			c.Status = tt.status
			out, done := Evaluate(c, tt.challenger, tt.challenged, now)
			if done != tt.done {
				t.Fatalf("done = %v, want %v", done, tt.done)
			}
			if !done {
				return
			}
			if out.Status != tt.want {
				t.Errorf("status = %s, want %s", out.Status, tt.want)
			}
			switch {
			case tt.winner == nil && out.WinnerID != nil:
				t.Errorf("winner = %s, want tie", *out.WinnerID)
			case tt.winner != nil && (out.WinnerID == nil || *out.WinnerID != *tt.winner):
				t.Errorf("winner = %v, want %s", out.WinnerID, *tt.winner)
			}
			if (out.WinnerID == nil) != (out.Bonus == 0) {
				t.Errorf("bonus %d does not match winner %v", out.Bonus, out.WinnerID)
			}
		})
	}
}

type fakeContent map[string][]models.Topic

func (f fakeContent) SubjectIDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	return ids
}

func (f fakeContent) AllTopics(subject string) []models.Topic { return f[subject] }

func TestMetrics(t *testing.T) {
	progress := map[string]models.ProgressRecord{
		"t1": {TopicID: "t1", MasteryLevel: 4, StudyCount: 5, TimeSpentMinutes: 10, LastStudiedAt: hoursAgo(2)},
		"t2": {TopicID: "t2", MasteryLevel: 4.5, StudyCount: 2, TimeSpentMinutes: 4, LastStudiedAt: hoursAgo(24 * 8)},
		"t3": {TopicID: "t3", MasteryLevel: 1, StudyCount: 1, TimeSpentMinutes: 2, LastStudiedAt: hoursAgo(30)},
		"t4": {TopicID: "t4", StudyCount: 0},
	}
	content := fakeContent{
		"contracts": {{ID: "t1"}, {ID: "t2"}},
		"torts":     {{ID: "t3"}},
		"empty":     nil,
	}
	if got := WeeklyTopics(progress, now); got != 2 {
		t.Errorf("WeeklyTopics = %d, want 2", got)
	}
	if got := WeeklyMinutes(progress, now); got != 12 {
		t.Errorf("WeeklyMinutes = %d, want 12", got)
	}
	if got := MasteredSubjects(progress, content); got != 1 {
		t.Errorf("MasteredSubjects = %d, want 1", got)
	}
	if got := FlashcardCount(progress); got != 8 {
		t.Errorf("FlashcardCount = %d, want 8", got)
	}
	p := Participant{Profile: models.UserProfile{Streak: 6}, Progress: progress}
	if got := Metric(models.ChallengeStudyStreak, p, content, now); got != 6 {
		t.Errorf("streak metric = %d, want 6", got)
	}
}

func TestSummarize(t *testing.T) {
	alice := "alice"
	all := []models.Challenge{
		{ChallengerID: "alice", ChallengedID: "bob", Status: models.ChallengeActive},
		{ChallengerID: "alice", ChallengedID: "bob", Status: models.ChallengeCompleted, WinnerID: &alice},
		{ChallengerID: "bob", ChallengedID: "alice", Status: models.ChallengeExpired},
		{ChallengerID: "bob", ChallengedID: "carol", Status: models.ChallengeCompleted},
	}
	s := Summarize(all, "alice")
	want := Summary{Total: 3, Active: 1, Completed: 2, Won: 1, WinRate: 50}
	if s != want {
		t.Fatalf("Summarize = %+v, want %+v", s, want)
	}
}

type fakeEngine struct {
	mu           sync.Mutex
	challenges   []models.Challenge
	users        map[string]models.UserProfile
	progress     map[string]map[string]models.ProgressRecord
	achievements map[string][]string
	completions  int
}

func (f *fakeEngine) GetChallenges() []models.Challenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Challenge, len(f.challenges))
	copy(out, f.challenges)
	return out
}

func (f *fakeEngine) GetUserData(userID string) models.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID]
}

func (f *fakeEngine) GetUserProgress(userID string) map[string]models.ProgressRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress[userID]
}

func (f *fakeEngine) CompleteChallenge(id string, out Outcome) (models.Challenge, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.challenges {
		if c.ID != id {
			continue
		}
		if !c.IsActive() {
			return c, false, nil
		}
		c.Status = out.Status
		c.WinnerID = out.WinnerID
		completed := out.CompletedAt
		c.CompletedAt = &completed
		if out.WinnerID != nil {
			u := f.users[*out.WinnerID]
			u.Points += out.Bonus
			f.users[*out.WinnerID] = u
		}
		f.challenges[i] = c
		f.completions++
		return c, true, nil
	}
	return models.Challenge{}, false, errors.New("not found")
}

func (f *fakeEngine) AwardAchievement(userID, ref string) (models.Achievement, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.achievements == nil {
		f.achievements = map[string][]string{}
	}
	for _, r := range f.achievements[userID] {
		if r == ref {
			return models.Achievement{}, false, nil
		}
	}
	f.achievements[userID] = append(f.achievements[userID], ref)
	return models.Achievement{AchievementRef: ref, UserID: userID}, true, nil
}

func studied(n int) map[string]models.ProgressRecord {
	progress := make(map[string]models.ProgressRecord, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		progress[id] = models.ProgressRecord{TopicID: id, LastStudiedAt: hoursAgo(1)}
	}
	return progress
}

func TestResolverRunAwardsBonusOnce(t *testing.T) {
	engine := &fakeEngine{
		challenges: []models.Challenge{challenge(models.ChallengeWeeklyTopics, 10, now.Add(72*time.Hour))},
		users: map[string]models.UserProfile{
			"alice": {ID: "alice"},
			"bob":   {ID: "bob"},
		},
		progress: map[string]map[string]models.ProgressRecord{
			"alice": studied(10),
			"bob":   studied(7),
		},
	}
	logger, hook := test.NewNullLogger()
	r := NewResolver(engine, fakeContent{}, logger)

	resolved := r.Run(now)
	if len(resolved) != 1 {
		t.Fatalf("resolved %d challenges, want 1", len(resolved))
	}
	got := resolved[0]
	if got.Status != models.ChallengeCompleted || got.WinnerID == nil || *got.WinnerID != "alice" {
		t.Fatalf("unexpected resolution %+v", got)
	}
	if engine.users["alice"].Points != 150 {
		t.Fatalf("alice points = %d, want 150", engine.users["alice"].Points)
	}

	if again := r.Run(now.Add(time.Minute)); len(again) != 0 {
		t.Fatalf("second run resolved %d challenges", len(again))
	}
	if engine.users["alice"].Points != 150 || engine.completions != 1 {
		t.Fatalf("bonus awarded more than once: points=%d completions=%d", engine.users["alice"].Points, engine.completions)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.InfoLevel {
		t.Fatal("expected an info log entry for the resolution")
	}
}

func TestResolverChampion(t *testing.T) {
	alice := "alice"
	engine := &fakeEngine{
		challenges: []models.Challenge{
			{ID: "old1", ChallengerID: "alice", ChallengedID: "bob", Status: models.ChallengeCompleted, WinnerID: &alice},
			{ID: "old2", ChallengerID: "bob", ChallengedID: "alice", Status: models.ChallengeExpired, WinnerID: &alice},
			challenge(models.ChallengeStudyStreak, 3, now.Add(time.Hour)),
		},
		users: map[string]models.UserProfile{
			"alice": {ID: "alice", Streak: 3},
			"bob":   {ID: "bob", Streak: 1},
		},
	}
	logger, _ := test.NewNullLogger()
	NewResolver(engine, nil, logger).Run(now)

	if len(engine.achievements["alice"]) != 1 || engine.achievements["alice"][0] != "challenge_champion" {
		t.Fatalf("achievements = %v", engine.achievements)
	}
}

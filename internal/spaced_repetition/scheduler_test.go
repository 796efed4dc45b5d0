package spaced_repetition

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(n float64) *time.Time {
	t := testNow.Add(-time.Duration(n * 24 * float64(time.Hour)))
	return &t
}

func topics(ids ...string) []models.Topic {
	result := make([]models.Topic, 0, len(ids))
	for _, id := range ids {
		result = append(result, models.Topic{ID: id, Title: "Topic " + id})
	}
	return result
}

func deckIDs(cards []Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestReviewIntervalDays(t *testing.T) {
	s := NewScheduler()
	tests := []struct {
		name       string
		mastery    float64
		confidence models.Confidence
		want       float64
	}{
		{"zero mastery hard", 0, models.ConfidenceHard, 0.5},
		{"zero mastery medium", 0, models.ConfidenceMedium, 1},
		{"fractional mastery uses floor", 2.5, models.ConfidenceMedium, 4},
		{"level three easy", 3, models.ConfidenceEasy, 10.5},
		{"level four", 4, models.ConfidenceMedium, 14},
		{"level five uses last interval", 5, models.ConfidenceEasy, 21},
		{"unknown confidence defaults to 1.0", 1, models.Confidence(9), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ReviewIntervalDays(tt.mastery, tt.confidence)
			if got != tt.want {
				t.Errorf("ReviewIntervalDays(%v, %v) = %v, want %v", tt.mastery, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestIsDue(t *testing.T) {
	s := NewScheduler()
	if !s.IsDue(models.ProgressRecord{MasteryLevel: 4}, testNow) {
		t.Error("never studied topic should be due")
	}
	record := models.ProgressRecord{MasteryLevel: 2, Confidence: models.ConfidenceMedium, LastStudiedAt: daysAgo(4)}
	if !s.IsDue(record, testNow) {
		t.Error("topic studied exactly one interval ago should be due")
	}
	record.LastStudiedAt = daysAgo(3.9)
	if s.IsDue(record, testNow) {
		t.Error("topic studied inside its interval should not be due")
	}
}

func TestApplyRating(t *testing.T) {
	s := NewScheduler()
	start := models.ProgressRecord{UserID: "u1", TopicID: "t1", MasteryLevel: 2, StudyCount: 3, Confidence: models.ConfidenceHard, TimeSpentMinutes: 6}

	tests := []struct {
		rating  models.Confidence
		mastery float64
	}{
		{models.ConfidenceEasy, 3},
		{models.ConfidenceMedium, 2.5},
		{models.ConfidenceHard, 2},
	}
	for _, tt := range tests {
		t.Run(tt.rating.String(), func(t *testing.T) {
			got := s.ApplyRating(start, tt.rating, testNow)
			if got.MasteryLevel != tt.mastery {
				t.Errorf("mastery = %v, want %v", got.MasteryLevel, tt.mastery)
			}
			if got.StudyCount != 4 {
				t.Errorf("study count = %d, want 4", got.StudyCount)
			}
			if got.Confidence != tt.rating {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.rating)
			}
			if got.TimeSpentMinutes != 8 {
				t.Errorf("time spent = %d, want 8", got.TimeSpentMinutes)
			}
			if got.LastStudiedAt == nil || !got.LastStudiedAt.Equal(testNow) {
				t.Errorf("last studied = %v, want %v", got.LastStudiedAt, testNow)
			}
		})
	}

	if start.StudyCount != 3 || start.LastStudiedAt != nil {
		t.Errorf("ApplyRating modified its input: %+v", start)
	}
}

func TestApplyRatingClampsAndNeverDecreases(t *testing.T) {
	s := NewScheduler()
	ratings := []models.Confidence{models.ConfidenceHard, models.ConfidenceMedium, models.ConfidenceEasy}
	for mastery := 0.0; mastery <= 5.0; mastery += 0.25 {
		for _, rating := range ratings {
			got := s.ApplyRating(models.ProgressRecord{MasteryLevel: mastery}, rating, testNow)
			if got.MasteryLevel < 0 || got.MasteryLevel > 5 {
				t.Fatalf("mastery %v rated %v left range: %v", mastery, rating, got.MasteryLevel)
			}
			if got.MasteryLevel < mastery {
				t.Fatalf("mastery %v rated %v decreased to %v", mastery, rating, got.MasteryLevel)
			}
		}
	}

	got := s.ApplyRating(models.ProgressRecord{MasteryLevel: 4.5}, models.ConfidenceEasy, testNow)
	if got.MasteryLevel != 5 {
		t.Errorf("expected clamp at 5, got %v", got.MasteryLevel)
	}
}

func TestApplyRatingChecked(t *testing.T) {
	s := NewScheduler()
	_, err := s.ApplyRatingChecked(models.ProgressRecord{}, models.Confidence(0), testNow)
	if !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	got, err := s.ApplyRatingChecked(models.ProgressRecord{}, models.ConfidenceEasy, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MasteryLevel != 1 {
		t.Errorf("mastery = %v, want 1", got.MasteryLevel)
	}
}

func TestBuildDeckEmpty(t *testing.T) {
	s := NewScheduler()
	deck := s.BuildDeck(nil, nil, 20, testNow)
	if len(deck) != 0 {
		t.Fatalf("expected empty deck, got %d cards", len(deck))
	}
}

func TestBuildDeckPriorityOrder(t *testing.T) {
	s := NewScheduler()
	progress := map[string]models.ProgressRecord{
		"review-due":   {TopicID: "review-due", MasteryLevel: 3, Confidence: models.ConfidenceMedium, LastStudiedAt: daysAgo(30)},
		"struggling":   {TopicID: "struggling", MasteryLevel: 1, Confidence: models.ConfidenceHard, LastStudiedAt: daysAgo(0)},
		"mastered":     {TopicID: "mastered", MasteryLevel: 4.5, Confidence: models.ConfidenceEasy, LastStudiedAt: daysAgo(1)},
		"mastered-due": {TopicID: "mastered-due", MasteryLevel: 5, Confidence: models.ConfidenceHard, LastStudiedAt: daysAgo(8)},
		"review-fresh": {TopicID: "review-fresh", MasteryLevel: 2, Confidence: models.ConfidenceEasy, LastStudiedAt: daysAgo(1)},
	}
	deck := s.BuildDeck(topics("review-due", "new-a", "struggling", "mastered", "new-b", "mastered-due", "review-fresh"), progress, 0, testNow)

	want := []string{"struggling", "new-a", "new-b", "review-due", "mastered-due", "review-fresh"}
	if got := deckIDs(deck); !reflect.DeepEqual(got, want) {
		t.Fatalf("deck = %v, want %v", got, want)
	}
	wantPriority := []Priority{PriorityStruggling, PriorityNew, PriorityNew, PriorityReview, PriorityReview, PriorityReview}
	for i, card := range deck {
		if card.Priority != wantPriority[i] {
			t.Errorf("card %s priority = %s, want %s", card.ID, card.Priority, wantPriority[i])
		}
	}
}

func TestBuildDeckTruncatesAndDoesNotMutate(t *testing.T) {
	s := NewScheduler()
	var all []models.Topic
	progress := make(map[string]models.ProgressRecord)
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("t%02d", i)
		all = append(all, models.Topic{ID: id})
		if i%2 == 0 {
			progress[id] = models.ProgressRecord{TopicID: id, MasteryLevel: 1, LastStudiedAt: daysAgo(2)}
		}
	}
	snapshot := make(map[string]models.ProgressRecord, len(progress))
	for k, v := range progress {
		snapshot[k] = v
	}

	deck := s.BuildDeck(all, progress, 7, testNow)
	if len(deck) != 7 {
		t.Fatalf("expected 7 cards, got %d", len(deck))
	}
	if !reflect.DeepEqual(progress, snapshot) {
		t.Error("BuildDeck modified the progress map")
	}

	deck = s.BuildDeck(all, progress, 0, testNow)
	if len(deck) != s.MaxDeckSize {
		t.Fatalf("expected default size %d, got %d", s.MaxDeckSize, len(deck))
	}
}

func TestBuildDeckNeverIncludesMasteredTopicsThatAreNotDue(t *testing.T) {
	s := NewScheduler()
	rnd := rand.New(rand.NewSource(7))
	var all []models.Topic
	progress := make(map[string]models.ProgressRecord)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("t%d", i)
		all = append(all, models.Topic{ID: id})
		if rnd.Intn(5) == 0 {
			continue
		}
		progress[id] = models.ProgressRecord{
			TopicID:       id,
			MasteryLevel:  float64(rnd.Intn(11)) / 2,
			Confidence:    models.Confidence(rnd.Intn(3) + 1),
			LastStudiedAt: daysAgo(float64(rnd.Intn(40))),
		}
	}

	for _, size := range []int{1, 20, 500} {
		deck := s.BuildDeck(all, progress, size, testNow)
		if len(deck) > size {
			t.Fatalf("deck of %d exceeds max size %d", len(deck), size)
		}
		for _, card := range deck {
			record, ok := progress[card.ID]
			if ok && record.MasteryLevel >= 4 && !s.IsDue(record, testNow) {
				t.Fatalf("mastered topic %s included while not due", card.ID)
			}
		}
	}
}

func TestBuildDeckScenario(t *testing.T) {
	s := NewScheduler()
	all := topics("1", "2", "3")
	progress := map[string]models.ProgressRecord{}

	deck := s.BuildDeck(all, progress, 20, testNow)
	if got := deckIDs(deck); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("initial deck = %v", got)
	}
	for _, card := range deck {
		if card.Priority != PriorityNew {
			t.Errorf("card %s should be new, got %s", card.ID, card.Priority)
		}
	}

	progress["1"] = s.ApplyRating(models.ProgressRecord{TopicID: "1"}, models.ConfidenceEasy, testNow)
	progress["2"] = s.ApplyRating(models.ProgressRecord{TopicID: "2"}, models.ConfidenceHard, testNow)
	if progress["1"].MasteryLevel != 1 || progress["2"].MasteryLevel != 0 {
		t.Fatalf("unexpected mastery after rating: %v / %v", progress["1"].MasteryLevel, progress["2"].MasteryLevel)
	}

	deck = s.BuildDeck(all, progress, 20, testNow)
	if got := deckIDs(deck); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("deck after rating = %v", got)
	}
	if deck[1].Priority != PriorityStruggling {
		t.Errorf("topic 2 should be struggling, got %s", deck[1].Priority)
	}

	// Topic 1 drops out only once it is mastered and not due
	record := progress["1"]
	for record.MasteryLevel < 4 {
		record = s.ApplyRating(record, models.ConfidenceEasy, testNow)
		progress["1"] = record
		deck = s.BuildDeck(all, progress, 20, testNow)
		included := false
		for _, card := range deck {
			if card.ID == "1" {
				included = true
			}
		}
		if record.MasteryLevel >= 4 && included {
			t.Fatalf("mastered topic 1 still in deck at mastery %v", record.MasteryLevel)
		}
		if record.MasteryLevel < 4 && !included {
			t.Fatalf("unmastered topic 1 left the deck at mastery %v", record.MasteryLevel)
		}
	}
}

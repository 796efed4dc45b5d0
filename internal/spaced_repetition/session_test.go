package spaced_repetition

import (
	"math/rand"
	"testing"
	"time"

	"github.com/example/lawstudy/pkg/models"
)

func TestSessionStats(t *testing.T) {
	tests := []struct {
		name     string
		ratings  []models.Confidence
		accuracy int
		points   int
	}{
		{"empty", nil, 0, 0},
		{"all correct", []models.Confidence{models.ConfidenceEasy, models.ConfidenceMedium, models.ConfidenceEasy, models.ConfidenceEasy, models.ConfidenceMedium}, 100, 5*10 + 5*5 + 25},
		{"mixed", []models.Confidence{models.ConfidenceHard, models.ConfidenceEasy, models.ConfidenceHard, models.ConfidenceMedium}, 50, 4*10 + 2*5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rated []Rated
			for i, r := range tt.ratings {
				rated = append(rated, Rated{TopicID: string(rune('a' + i)), Rating: r})
			}
			stats := NewSessionStats(rated, time.Minute)
			if stats.Accuracy() != tt.accuracy {
				t.Errorf("Accuracy() = %d, want %d", stats.Accuracy(), tt.accuracy)
			}
			if stats.Points() != tt.points {
				t.Errorf("Points() = %d, want %d", stats.Points(), tt.points)
			}
		})
	}
}

func TestShuffleKeepsCards(t *testing.T) {
	cards := []Card{{Topic: models.Topic{ID: "a"}}, {Topic: models.Topic{ID: "b"}}, {Topic: models.Topic{ID: "c"}}}
	Shuffle(cards, rand.New(rand.NewSource(1)))
	seen := map[string]bool{}
	for _, c := range cards {
		seen[c.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("shuffle lost cards: %v", cards)
	}
}

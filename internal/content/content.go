// Package content is the read-only tree of study topics.
package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/example/lawstudy/pkg/models"
)

//go:embed sample.json
var sampleContent []byte

// Node is a topic with optional nested subtopics. A node without an ID only
// groups its children.
type Node struct {
	Key        string   `json:"key"`
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Rule       string   `json:"rule"`
	Elements   []string `json:"elements"`
	Mnemonic   string   `json:"mnemonic,omitempty"`
	Difficulty int      `json:"difficulty"`
	Subtopics  []Node   `json:"subtopics,omitempty"`
}

// Category groups the top level topics of a subject
type Category struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Topics []Node `json:"topics"`
}

// DisplayName prefers the numbered label
func (c Category) DisplayName() string {
	label, _ := lo.Coalesce(c.Label, c.Name, c.Key)
	return label
}

// Subject is one exam subject
type Subject struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji,omitempty"`
	Mnemonic   string     `json:"mnemonic,omitempty"`
	Categories []Category `json:"categories"`
}

// Content is the whole tree in declaration order
type Content struct {
	Subjects []Subject `json:"subjects"`
}

// Repository answers topic queries over a flattened copy of the tree
type Repository struct {
	content  Content
	bySubj   map[string][]models.Topic
	byID     map[string]models.Topic
	subjects []string
}

// New flattens content and rejects duplicate topic ids
func New(content Content) (*Repository, error) {
	r := &Repository{
		content: content,
		bySubj:  make(map[string][]models.Topic),
		byID:    make(map[string]models.Topic),
	}
	for _, s := range content.Subjects {
		if s.ID == "" {
			return nil, fmt.Errorf("subject %q has no id", s.Name)
		}
		if _, dup := r.bySubj[s.ID]; dup {
			return nil, fmt.Errorf("duplicate subject %q", s.ID)
		}
		topics := flatten(s)
		for _, t := range topics {
			if _, dup := r.byID[t.ID]; dup {
				return nil, fmt.Errorf("duplicate topic id %q", t.ID)
			}
			r.byID[t.ID] = t
		}
		r.bySubj[s.ID] = topics
		r.subjects = append(r.subjects, s.ID)
	}
	return r, nil
}

// flatten walks a subject depth-first in declaration order. Path holds the
// category name followed by the keys of the ancestor topics.
func flatten(s Subject) []models.Topic {
	var topics []models.Topic
	var walk func(n Node, category string, path []string)
	walk = func(n Node, category string, path []string) {
		if n.ID != "" {
			topics = append(topics, models.Topic{
				ID:         n.ID,
				Title:      n.Title,
				Rule:       n.Rule,
				Elements:   append([]string(nil), n.Elements...),
				Mnemonic:   n.Mnemonic,
				Difficulty: n.Difficulty,
				Subject:    s.ID,
				Category:   category,
				Path:       append([]string(nil), path...),
			})
		}
		key, _ := lo.Coalesce(n.Key, n.ID)
		childPath := append(append([]string(nil), path...), key)
		for _, child := range n.Subtopics {
			walk(child, category, childPath)
		}
	}
	for _, c := range s.Categories {
		name := c.DisplayName()
		for _, n := range c.Topics {
			walk(n, name, []string{name})
		}
	}
	return topics
}

func cloneTopic(t models.Topic) models.Topic {
	t.Elements = append([]string(nil), t.Elements...)
	t.Path = append([]string(nil), t.Path...)
	return t
}

// Parse decodes a JSON content tree
func Parse(data []byte) (*Repository, error) {
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return New(c)
}

// LoadFile reads a JSON content tree from disk
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return Parse(data)
}

// Default returns the bundled sample content
func Default() (*Repository, error) {
	return Parse(sampleContent)
}

// Content returns the tree the repository was built from
func (r *Repository) Content() Content {
	return r.content
}

// SubjectIDs lists subjects in declaration order
func (r *Repository) SubjectIDs() []string {
	return append([]string(nil), r.subjects...)
}

// SubjectInfo summarises a subject
type SubjectInfo struct {
	ID         string
	Name       string
	Emoji      string
	Mnemonic   string
	TopicCount int
}

// Subjects lists subjects with their topic counts
func (r *Repository) Subjects() []SubjectInfo {
	return lo.Map(r.content.Subjects, func(s Subject, _ int) SubjectInfo {
		return SubjectInfo{ID: s.ID, Name: s.Name, Emoji: s.Emoji, Mnemonic: s.Mnemonic, TopicCount: len(r.bySubj[s.ID])}
	})
}

// AllTopics returns a subject's topics depth-first. An empty subject returns
// every topic of every subject.
func (r *Repository) AllTopics(subject string) []models.Topic {
	if subject == "" {
		var all []models.Topic
		for _, id := range r.subjects {
			all = append(all, lo.Map(r.bySubj[id], func(t models.Topic, _ int) models.Topic { return cloneTopic(t) })...)
		}
		return all
	}
	return lo.Map(r.bySubj[subject], func(t models.Topic, _ int) models.Topic { return cloneTopic(t) })
}

// TopicByID finds a topic in any subject
func (r *Repository) TopicByID(id string) (models.Topic, bool) {
	t, ok := r.byID[id]
	if !ok {
		return models.Topic{}, false
	}
	return cloneTopic(t), true
}

// SearchResult is a topic with its relevance score
type SearchResult struct {
	Topic     models.Topic
	Relevance int
}

// Search scores topics by case-insensitive substring matches: 3 for the title,
// 2 for the rule, 1 per matching element and 1 for the mnemonic. Results are
// ordered by relevance, ties in declaration order.
func (r *Repository) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	var results []SearchResult
	for _, t := range r.AllTopics("") {
		relevance := 0
		if contains(t.Title) {
			relevance += 3
		}
		if contains(t.Rule) {
			relevance += 2
		}
		relevance += lo.CountBy(t.Elements, contains)
		if t.Mnemonic != "" && contains(t.Mnemonic) {
			relevance++
		}
		if relevance > 0 {
			results = append(results, SearchResult{Topic: t, Relevance: relevance})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	return results
}

// ByDifficulty returns every topic with the given difficulty
func (r *Repository) ByDifficulty(difficulty int) []models.Topic {
	return lo.Filter(r.AllTopics(""), func(t models.Topic, _ int) bool { return t.Difficulty == difficulty })
}

// Random picks a topic from subject, or from everything when subject is empty
func (r *Repository) Random(subject string, rnd *rand.Rand) (models.Topic, bool) {
	topics := r.AllTopics(subject)
	if len(topics) == 0 {
		return models.Topic{}, false
	}
	if rnd == nil {
		return lo.Sample(topics), true
	}
	return topics[rnd.Intn(len(topics))], true
}

// Statistics counts topics per subject and difficulty
type Statistics struct {
	TotalTopics  int
	BySubject    map[string]int
	ByDifficulty map[int]int
}

func (r *Repository) Statistics() Statistics {
	stats := Statistics{BySubject: make(map[string]int), ByDifficulty: make(map[int]int)}
	for _, id := range r.subjects {
		topics := r.bySubj[id]
		stats.BySubject[id] = len(topics)
		stats.TotalTopics += len(topics)
		for _, t := range topics {
			if t.Difficulty > 0 {
				stats.ByDifficulty[t.Difficulty]++
			}
		}
	}
	return stats
}

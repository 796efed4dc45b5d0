// Package localstore persists the local replica as one document.
package localstore

import (
	"github.com/example/lawstudy/pkg/models"
)

// Document is the whole local state. It is always loaded and saved as a unit.
type Document struct {
	Users        map[string]models.UserProfile    `json:"users"`
	Progress     map[string]models.ProgressRecord `json:"progress"`
	Achievements map[string][]models.Achievement  `json:"achievements"`
	Challenges   []models.Challenge               `json:"challenges"`
}

// NewDocument returns an empty document with a zero profile per participant
func NewDocument(participants ...string) *Document {
	doc := &Document{}
	doc.normalize()
	for _, id := range participants {
		doc.EnsureUser(id)
	}
	return doc
}

func (d *Document) normalize() {
	if d.Users == nil {
		d.Users = make(map[string]models.UserProfile)
	}
	if d.Progress == nil {
		d.Progress = make(map[string]models.ProgressRecord)
	}
	if d.Achievements == nil {
		d.Achievements = make(map[string][]models.Achievement)
	}
	if d.Challenges == nil {
		d.Challenges = make([]models.Challenge, 0)
	}
}

// EnsureUser creates a zero profile for id if it is missing and returns it
func (d *Document) EnsureUser(id string) models.UserProfile {
	if u, ok := d.Users[id]; ok {
		return u
	}
	u := models.NewUserProfile(id, "")
	d.Users[id] = u
	if _, ok := d.Achievements[id]; !ok {
		d.Achievements[id] = make([]models.Achievement, 0)
	}
	return u
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	out := &Document{
		Users:        make(map[string]models.UserProfile, len(d.Users)),
		Progress:     make(map[string]models.ProgressRecord, len(d.Progress)),
		Achievements: make(map[string][]models.Achievement, len(d.Achievements)),
		Challenges:   make([]models.Challenge, 0, len(d.Challenges)),
	}
	for k, u := range d.Users {
		out.Users[k] = CloneUser(u)
	}
	for k, p := range d.Progress {
		out.Progress[k] = CloneProgress(p)
	}
	for k, list := range d.Achievements {
		cp := make([]models.Achievement, len(list))
		copy(cp, list)
		out.Achievements[k] = cp
	}
	for _, c := range d.Challenges {
		out.Challenges = append(out.Challenges, CloneChallenge(c))
	}
	return out
}

// CloneUser copies pointer fields of a profile
func CloneUser(u models.UserProfile) models.UserProfile {
	if u.LastStudiedAt != nil {
		v := *u.LastStudiedAt
		u.LastStudiedAt = &v
	}
	return u
}

// CloneProgress copies pointer fields of a progress record
func CloneProgress(p models.ProgressRecord) models.ProgressRecord {
	if p.LastStudiedAt != nil {
		v := *p.LastStudiedAt
		p.LastStudiedAt = &v
	}
	return p
}

// CloneChallenge copies pointer fields of a challenge
func CloneChallenge(c models.Challenge) models.Challenge {
	if c.WinnerID != nil {
		v := *c.WinnerID
		c.WinnerID = &v
	}
	if c.CompletedAt != nil {
		v := *c.CompletedAt
		c.CompletedAt = &v
	}
	return c
}

// Package events is a small synchronous publish/subscribe bus.
package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/pkg/models"
)

// Name identifies an event kind
type Name string

const (
	ProgressUpdated    Name = "progress_updated"
	AchievementEarned  Name = "achievement_earned"
	ChallengeCreated   Name = "challenge_created"
	ChallengeCompleted Name = "challenge_completed"
	SyncComplete       Name = "sync_complete"
)

// Event is delivered to subscribers. Payload holds one of the typed payloads below.
type Event struct {
	Name    Name
	Payload interface{}
}

type ProgressPayload struct {
	UserID string
	Record models.ProgressRecord
	Points int
}

type AchievementPayload struct {
	UserID      string
	Achievement models.Achievement
}

type ChallengePayload struct {
	Challenge models.Challenge
}

type SyncPayload struct {
	Pushed int
	Pulled int
}

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers in subscription order
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Name][]subscription
	log    logrus.FieldLogger
}

func NewBus(log logrus.FieldLogger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{
		subs: make(map[Name][]subscription),
		log:  log.WithField("component", "events"),
	}
}

// Subscribe registers handler for name and returns a function that removes it
func (b *Bus) Subscribe(name Name, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(name, id) })
	}
}

func (b *Bus) unsubscribe(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler of e.Name synchronously. A panicking handler is
// logged and does not stop the others.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Name]))
	for _, s := range b.subs[e.Name] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("event", e.Name).Errorf("event handler panicked: %v", r)
		}
	}()
	h(e)
}

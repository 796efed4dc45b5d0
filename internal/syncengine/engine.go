// Package syncengine owns the local replica of all mutable study state and
// reconciles it with the remote store.
package syncengine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/database"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/internal/localstore"
	"github.com/example/lawstudy/pkg/models"
)

var (
	ErrInvalidUser        = errors.New("user id is required")
	ErrUnknownUser        = errors.New("unknown user")
	ErrInvalidTopic       = errors.New("topic id is required")
	ErrUnknownTopic       = errors.New("unknown topic")
	ErrInvalidDelta       = errors.New("invalid progress delta")
	ErrUnknownAchievement = errors.New("unknown achievement")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrLocalOnly          = errors.New("no remote store configured")
)

// TopicLookup resolves content for validation and subject mastery
type TopicLookup interface {
	TopicByID(id string) (models.Topic, bool)
	AllTopics(subject string) []models.Topic
}

// State is the remote connectivity state
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

// Status reports connectivity without raising errors to callers
type Status struct {
	State      State
	LocalOnly  bool
	LastSyncAt *time.Time
	LastError  string
}

// Option configures an Engine
type Option func(*Engine)

// WithRemote sets the remote executor. Without one the engine is local-only.
func WithRemote(exec database.Executor) Option {
	return func(e *Engine) { e.remote = exec }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithParticipants seeds zero profiles and restricts challenges to these users
func WithParticipants(ids ...string) Option {
	return func(e *Engine) { e.participants = append([]string(nil), ids...) }
}

// WithTopics enables topic validation and subject mastery achievements
func WithTopics(topics TopicLookup) Option {
	return func(e *Engine) { e.topics = topics }
}

// Engine is the local-first store of profiles, progress, achievements and challenges
type Engine struct {
	mu    sync.Mutex
	doc   *localstore.Document
	store localstore.Store

	bus          *events.Bus
	log          logrus.FieldLogger
	clock        func() time.Time
	participants []string
	topics       TopicLookup

	// remote state, guarded by connMu
	connMu     sync.Mutex
	remote     database.Executor
	state      State
	lastSyncAt *time.Time
	lastErr    error

	// serialises SyncData
	syncMu sync.Mutex
	// records that won a timestamp tie locally, pushed on the next sync; guarded by mu
	ties map[string]struct{}

	pushCh  chan struct{}
	stopMu  sync.Mutex
	cancel  func()
	workers sync.WaitGroup
}

// New loads the local document and applies options
func New(store localstore.Store, bus *events.Bus, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  store,
		bus:    bus,
		log:    logrus.StandardLogger(),
		clock:  time.Now,
		state:  Disconnected,
		pushCh: make(chan struct{}, 1),
		ties:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "sync")

	doc, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load local state: %w", err)
	}
	missing := false
	for _, id := range e.participants {
		if _, ok := doc.Users[id]; !ok {
			doc.EnsureUser(id)
			missing = true
		}
	}
	if missing {
		if err := store.Save(doc); err != nil {
			return nil, fmt.Errorf("failed to persist local state: %w", err)
		}
	}
	e.doc = doc
	return e, nil
}

// Participants returns the configured participant ids
func (e *Engine) Participants() []string {
	return append([]string(nil), e.participants...)
}

func (e *Engine) isParticipant(id string) bool {
	if len(e.participants) == 0 {
		return true
	}
	for _, p := range e.participants {
		if p == id {
			return true
		}
	}
	return false
}

// GetUserData returns the profile of userID, a zero profile if it does not exist yet
func (e *Engine) GetUserData(userID string) models.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.doc.Users[userID]; ok {
		return localstore.CloneUser(u)
	}
	return models.NewUserProfile(userID, "")
}

// Users returns every known profile ordered by id
func (e *Engine) Users() []models.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	users := make([]models.UserProfile, 0, len(e.doc.Users))
	for _, u := range e.doc.Users {
		users = append(users, localstore.CloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// GetUserProgress returns userID's records keyed by topic id
func (e *Engine) GetUserProgress(userID string) map[string]models.ProgressRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.ProgressRecord)
	for _, p := range e.doc.Progress {
		if p.UserID == userID {
			out[p.TopicID] = localstore.CloneProgress(p)
		}
	}
	return out
}

// GetProgress returns one record
func (e *Engine) GetProgress(userID, topicID string) (models.ProgressRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.doc.Progress[models.ProgressKey(userID, topicID)]
	return localstore.CloneProgress(p), ok
}

// GetUserAchievements returns userID's achievements in award order
func (e *Engine) GetUserAchievements(userID string) []models.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Achievement{}, e.doc.Achievements[userID]...)
}

// GetChallenges returns every challenge in creation order
func (e *Engine) GetChallenges() []models.Challenge {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Challenge, 0, len(e.doc.Challenges))
	for _, c := range e.doc.Challenges {
		out = append(out, localstore.CloneChallenge(c))
	}
	return out
}

// GetChallenge returns one challenge
func (e *Engine) GetChallenge(id string) (models.Challenge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.doc.Challenges {
		if c.ID == id {
			return localstore.CloneChallenge(c), true
		}
	}
	return models.Challenge{}, false
}

// txn is one atomic local mutation. It works on a copy of the document that
// replaces the live one only after it was saved.
type txn struct {
	doc    *localstore.Document
	now    time.Time
	events []events.Event
	noop   bool
}

func (t *txn) emit(name events.Name, payload interface{}) {
	t.events = append(t.events, events.Event{Name: name, Payload: payload})
}

// update runs fn under the engine lock, persists the result and then publishes
// the collected events and schedules a push, both outside the lock
func (e *Engine) update(fn func(tx *txn) error) error {
	e.mu.Lock()
	tx := &txn{doc: e.doc.Clone(), now: e.clock()}
	if err := fn(tx); err != nil {
		e.mu.Unlock()
		return err
	}
	if tx.noop {
		e.mu.Unlock()
		return nil
	}
	if err := e.store.Save(tx.doc); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to persist local state: %w", err)
	}
	e.doc = tx.doc
	e.mu.Unlock()

	for _, ev := range tx.events {
		e.bus.Publish(ev)
	}
	e.schedulePush()
	return nil
}

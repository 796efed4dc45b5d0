package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/challenges"
	"github.com/example/lawstudy/internal/config"
	"github.com/example/lawstudy/internal/content"
	"github.com/example/lawstudy/internal/database"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/internal/localstore"
	sr "github.com/example/lawstudy/internal/spaced_repetition"
	"github.com/example/lawstudy/internal/study"
	"github.com/example/lawstudy/internal/syncengine"
)

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	location *time.Location

	content  *content.Repository
	store    localstore.Store
	bus      *events.Bus
	engine   *syncengine.Engine
	study    *study.Service
	resolver *challenges.Resolver
	remote   *database.DB
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, location: loc}

	if a.content, err = loadContent(cfg.Content.Path); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	a.store, err = localstore.Open(cfg.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a.bus = events.NewBus(log)
	a.engine, err = syncengine.New(a.store, a.bus,
		syncengine.WithLogger(log),
		syncengine.WithClock(a.now),
		syncengine.WithParticipants(cfg.Participants...),
		syncengine.WithTopics(a.content),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("start sync engine: %w", err)
	}

	scheduler := sr.NewScheduler()
	scheduler.MaxDeckSize = cfg.Study.DeckSize
	a.study = study.NewService(a.engine, scheduler, a.content, study.WithLogger(log), study.WithClock(a.now))
	a.resolver = challenges.NewResolver(a.engine, a.content, log)

	a.connectRemote(ctx)
	return a, nil
}

// now is the application clock in the study timezone, so day boundaries for
// streaks follow the participants' calendar
func (a *app) now() time.Time {
	return time.Now().In(a.location)
}

// connectRemote configures the remote store once. Failures leave the engine
// local-only or Disconnected; the sync job retries.
func (a *app) connectRemote(ctx context.Context) {
	if a.remote != nil {
		return
	}
	if ok, err := a.cfg.RemoteEnabled(); !ok {
		a.log.WithError(err).Info("remote store disabled, working locally")
		return
	}
	db, err := database.Open(ctx, a.cfg.DatabaseConfig())
	if err != nil {
		a.log.WithError(err).Warn("remote store unavailable, working locally")
		return
	}
	a.remote = db
	a.engine.Configure(db)
	_ = a.engine.Connect(ctx)
}

// Close stops the engine and releases the stores
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close remote store")
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close local store")
		}
	}
}

// participant validates a --user flag against the configured participants
func (a *app) participant(id string) error {
	if id == "" {
		return fmt.Errorf("--user is required")
	}
	participants := a.engine.Participants()
	if len(participants) == 0 {
		return nil
	}
	for _, p := range participants {
		if p == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", syncengine.ErrUnknownUser, id)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/example/lawstudy/internal/bot"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/internal/scheduler"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync loop, periodic jobs and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

// serve runs until ctx is cancelled
func (a *app) serve(ctx context.Context) error {
	a.engine.Start(ctx)

	a.bus.Subscribe(events.SyncComplete, func(e events.Event) {
		if p, ok := e.Payload.(events.SyncPayload); ok && (p.Pushed > 0 || p.Pulled > 0) {
			a.log.WithField("pushed", p.Pushed).WithField("pulled", p.Pulled).Info("synced with partner")
		}
	})

	var tg *bot.Bot
	botConfig := bot.DefaultConfig()
	botConfig.Token = a.cfg.Telegram.BotToken
	botConfig.Chats = a.cfg.Telegram.Chats
	botConfig.NotificationStartHour = a.cfg.Notification.StartHour
	botConfig.NotificationEndHour = a.cfg.Notification.EndHour
	if botConfig.Enabled() {
		var err error
		tg, err = bot.New(botConfig, a.engine, a.study, a.log)
		if err != nil {
			return err
		}
		defer tg.Subscribe(a.bus)()
	} else {
		a.log.Info("telegram token not set, notifications disabled")
	}

	jobs := scheduler.New(a.location, a.log)
	if err := a.registerJobs(ctx, jobs, tg); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	if tg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tg.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	a.log.WithField("participants", a.engine.Participants()).Info("law study tracker started")
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("telegram bot: %w", err)
	}
	wg.Wait()
	return nil
}

// registerJobs adds the periodic jobs: sync, challenge resolution, the
// midnight streak check and due card reminders
func (a *app) registerJobs(ctx context.Context, jobs *scheduler.Scheduler, tg *bot.Bot) error {
	if err := jobs.Every("sync", a.cfg.Sync.Interval, func() {
		if enabled, _ := a.cfg.RemoteEnabled(); enabled && a.remote == nil {
			a.connectRemote(ctx)
		}
		a.engine.Tick(ctx)
	}); err != nil {
		return err
	}
	if err := jobs.Every("challenges", a.cfg.Sync.ChallengeInterval, func() {
		if resolved := a.resolver.Run(a.now()); len(resolved) > 0 {
			a.log.WithField("count", len(resolved)).Info("challenges resolved")
		}
	}); err != nil {
		return err
	}
	if err := jobs.DailyAt("streaks", a.cfg.Sync.StreakCheckAt, func() {
		broken, err := a.engine.BreakStreaks()
		if err != nil {
			a.log.WithError(err).Warn("streak check failed")
			return
		}
		if len(broken) > 0 {
			a.log.WithField("users", broken).Info("streaks reset")
		}
	}); err != nil {
		return err
	}
	if tg == nil {
		return nil
	}
	return jobs.Every("reminders", a.cfg.Notification.Interval, func() {
		if jobs.InNotificationWindow(a.now(), a.cfg.Notification.StartHour, a.cfg.Notification.EndHour) {
			tg.CheckDueReviews()
		}
	})
}

package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Default reminder window, inclusive hours in the scheduler's location
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

var ErrInvalidInterval = errors.New("interval must be positive")

// Scheduler manages the periodic jobs of the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	location  *time.Location
	log       logrus.FieldLogger
}

// New creates a new scheduler instance. A nil location means UTC.
func New(location *time.Location, log logrus.FieldLogger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := gocron.NewScheduler(location)
	s.TagsUnique()
	return &Scheduler{
		scheduler: s,
		location:  location,
		log:       log.WithField("component", "scheduler"),
	}
}

// wrap logs and recovers a job so one failing run does not kill the job
func (s *Scheduler) wrap(name string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("job", name).Errorf("job panicked: %v", r)
			}
		}()
		started := time.Now()
		fn()
		s.log.WithField("job", name).WithField("took", time.Since(started)).Debug("job finished")
	}
}

// Every runs fn at a fixed interval, first right after Start. A run still in
// progress is not overlapped.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, name)
	}
	if _, err := s.scheduler.Every(interval).Tag(name).SingletonMode().Do(s.wrap(name, fn)); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// DailyAt runs fn once a day at hh:mm
func (s *Scheduler) DailyAt(name, at string, fn func()) error {
	if _, err := s.scheduler.Every(1).Day().At(at).Tag(name).WaitForSchedule().Do(s.wrap(name, fn)); err != nil {
		return fmt.Errorf("failed to schedule %s at %q: %w", name, at, err)
	}
	return nil
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks and waits for running ones
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// IsRunning reports whether Start was called without a later Stop
func (s *Scheduler) IsRunning() bool {
	return s.scheduler.IsRunning()
}

// RunNow forces a run of the named job outside its schedule
func (s *Scheduler) RunNow(name string) error {
	return s.scheduler.RunByTag(name)
}

// Jobs lists the names of the scheduled jobs
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, job := range s.scheduler.Jobs() {
		names = append(names, job.Tags()...)
	}
	return names
}

// NextRun returns when the named job runs next
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	for _, job := range s.scheduler.Jobs() {
		for _, tag := range job.Tags() {
			if tag == name {
				return job.NextRun(), true
			}
		}
	}
	return time.Time{}, false
}

// InNotificationWindow reports whether t falls between startHour and endHour
// inclusive in the scheduler's location. A window may wrap midnight.
func (s *Scheduler) InNotificationWindow(t time.Time, startHour, endHour int) bool {
	hour := t.In(s.location).Hour()
	if startHour <= endHour {
		return hour >= startHour && hour <= endHour
	}
	return hour >= startHour || hour <= endHour
}

package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	s := New(time.UTC, logger)
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEveryRunsUntilStop(t *testing.T) {
	s := newTestScheduler(t)
	var runs int32
	if err := s.Every("tick", 20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) }); err != nil {
		t.Fatalf("Every() error = %v", err)
	}

	s.Start()
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&runs) >= 2 })

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	stopped := atomic.LoadInt32(&runs)
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != stopped {
		t.Errorf("job ran after Stop: %d -> %d", stopped, got)
	}
}

func TestEveryRejectsBadInterval(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Every("tick", 0, func() {}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Every(0) error = %v, want ErrInvalidInterval", err)
	}
}

func TestDuplicateNames(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Every("sync", time.Minute, func() {}); err != nil {
		t.Fatal(err)
	}
	if err := s.Every("sync", time.Minute, func() {}); err == nil {
		t.Error("second job with the same name was accepted")
	}
}

func TestDailyAt(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.DailyAt("streaks", "00:00", func() {}); err != nil {
		t.Fatalf("DailyAt() error = %v", err)
	}
	if err := s.DailyAt("bad", "25:61", func() {}); err == nil {
		t.Error("DailyAt(25:61) error = nil")
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "streaks" {
		t.Errorf("Jobs() = %v, want [streaks]", got)
	}

	s.Start()
	next, ok := s.NextRun("streaks")
	if !ok {
		t.Fatal("NextRun(streaks) not found")
	}
	if next.Hour() != 0 || next.Minute() != 0 || !next.After(time.Now()) {
		t.Errorf("NextRun(streaks) = %v, want next midnight", next)
	}
	if _, ok := s.NextRun("missing"); ok {
		t.Error("NextRun(missing) found a job")
	}
}

func TestRunNowAndPanics(t *testing.T) {
	s := newTestScheduler(t)
	var runs int32
	if err := s.DailyAt("check", "03:00", func() {
		atomic.AddInt32(&runs, 1)
		panic("boom")
	}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	if err := s.RunNow("check"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&runs) == 1 })
	if !s.IsRunning() {
		t.Error("scheduler stopped after a panicking job")
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow(missing) error = nil")
	}
}

func TestInNotificationWindow(t *testing.T) {
	s := New(time.UTC, nil)
	at := func(h int) time.Time { return time.Date(2024, 5, 15, h, 30, 0, 0, time.UTC) }
	tests := []struct {
		name       string
		hour       int
		start, end int
		want       bool
	}{
		{"inside", 12, 8, 22, true},
		{"start edge", 8, 8, 22, true},
		{"end edge", 22, 8, 22, true},
		{"before", 7, 8, 22, false},
		{"wrapping late", 23, 20, 2, true},
		{"wrapping early", 1, 20, 2, true},
		{"wrapping outside", 12, 20, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InNotificationWindow(at(tt.hour), tt.start, tt.end); got != tt.want {
				t.Errorf("InNotificationWindow(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

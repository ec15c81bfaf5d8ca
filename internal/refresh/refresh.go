// Package refresh keeps calendar feeds warm on a cron schedule.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	appLog "intentcal/internal/log"
)

// Refresher is anything that can be refreshed, typically ics.Calendar.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs a Refresher on a standard five-field cron spec.
type Scheduler struct {
	spec   string
	target Refresher
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	watcher chan struct{}
}

// New parses spec and prepares a Scheduler evaluated in loc.
func New(spec string, loc *time.Location, target Refresher) (*Scheduler, error) {
	if target == nil {
		return nil, errors.New("refresh: nil target")
	}
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{spec: spec, target: target, cron: c}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, errors.Wrapf(err, "refresh: invalid schedule %q", spec)
	}
	return s, nil
}

// Start runs one refresh immediately in the background, then follows the
// schedule until ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop, watcher := make(chan struct{}), make(chan struct{})
	s.stop, s.watcher = stop, watcher
	s.mu.Unlock()

	appLog.Info("refresh scheduler started", "schedule", s.spec)
	go func() {
		if err := s.RunOnce(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()
	s.cron.Start()

	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	appLog.Info("refresh scheduler stopped")
}

// Next reports when the next scheduled refresh fires; zero when stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce refreshes immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := s.target.Refresh(ctx)
	appLog.Debug("refresh run", "elapsed", time.Since(start), "ok", err == nil)
	return err
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

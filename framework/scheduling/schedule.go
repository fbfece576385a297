// Package scheduling runs recurring tasks on cron expressions, the way
// Laravel's console Kernel::schedule does. Expressions use the standard
// five fields (minute hour day month weekday).
package scheduling

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is the work an Event runs.
type Task func(ctx context.Context) error

// Schedule is bound as "schedule". Providers add events during Boot and
// schedule:work runs them.
type Schedule struct {
	location *time.Location
	logger   *zap.Logger

	mu     sync.Mutex
	events []*Event
}

// New creates a schedule evaluated in loc (UTC when nil).
func New(logger *zap.Logger, loc *time.Location) *Schedule {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{location: loc, logger: logger}
}

// Call adds a task. It runs every minute until a frequency method is chained.
//
//	schedule.Call("prune-sessions", pruneSessions).DailyAt("03:00").WithoutOverlapping()
func (s *Schedule) Call(name string, task Task) *Event {
	ev := &Event{name: name, expression: "* * * * *", task: task}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return ev
}

// Events returns the registered events in registration order.
func (s *Schedule) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Location is the time zone expressions are evaluated in.
func (s *Schedule) Location() *time.Location { return s.location }

// Validate parses every expression and returns the first failure.
func (s *Schedule) Validate() error {
	for _, ev := range s.Events() {
		if _, err := ev.parse(); err != nil {
			return err
		}
	}
	return nil
}

// Due returns the events whose expression matches the minute containing now.
func (s *Schedule) Due(now time.Time) []*Event {
	minute := now.In(s.location).Truncate(time.Minute)
	var due []*Event
	for _, ev := range s.Events() {
		sched, err := ev.parse()
		if err != nil {
			continue
		}
		if sched.Next(minute.Add(-time.Second)).Equal(minute) {
			due = append(due, ev)
		}
	}
	return due
}

// RunDue runs every event due at now, sequentially, and returns how many ran.
// Failures are logged; the first one is returned after all have run.
func (s *Schedule) RunDue(ctx context.Context, now time.Time) (int, error) {
	var (
		ran      int
		firstErr error
	)
	for _, ev := range s.Due(now) {
		ok, err := s.runEvent(ctx, ev)
		if ok {
			ran++
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return ran, firstErr
}

// Run starts a cron runner for every event and blocks until ctx is done,
// then waits for running tasks to finish.
func (s *Schedule) Run(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cronLogger{s.logger.Sugar()})),
	)
	for _, ev := range s.Events() {
		if _, err := c.AddFunc(ev.expression, func() { _, _ = s.runEvent(ctx, ev) }); err != nil {
			return fmt.Errorf("scheduling: %s: %w", ev.name, err)
		}
	}

	s.logger.Info("schedule worker started", zap.Int("events", len(c.Entries())))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("schedule worker stopped")
	return nil
}

// runEvent reports whether the task actually ran.
func (s *Schedule) runEvent(ctx context.Context, ev *Event) (bool, error) {
	if !ev.filtersPass() {
		return false, nil
	}
	if ev.withoutOverlapping && !ev.running.CompareAndSwap(false, true) {
		s.logger.Debug("scheduled task still running, skipped", zap.String("task", ev.name))
		return false, nil
	}
	defer ev.running.Store(false)

	start := time.Now()
	err := ev.task(ctx)
	fields := []zap.Field{zap.String("task", ev.name), zap.Duration("duration", time.Since(start))}
	if err != nil {
		s.logger.Error("scheduled task failed", append(fields, zap.Error(err))...)
		return true, fmt.Errorf("scheduling: %s: %w", ev.name, err)
	}
	s.logger.Info("scheduled task finished", fields...)
	return true, nil
}

// cronLogger adapts zap to cron.Logger for the Recover wrapper.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}

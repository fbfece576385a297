package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Event is one scheduled task and its frequency.
type Event struct {
	name        string
	description string
	expression  string
	task        Task

	filters            []func() bool
	withoutOverlapping bool
	running            atomic.Bool
	err                error
}

func (e *Event) Name() string        { return e.name }
func (e *Event) Description() string { return e.description }
func (e *Event) Expression() string  { return e.expression }

// Next is the first run after t, in t's location.
func (e *Event) Next(t time.Time) (time.Time, error) {
	sched, err := e.parse()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}

func (e *Event) parse() (cron.Schedule, error) {
	if e.err != nil {
		return nil, e.err
	}
	sched, err := cron.ParseStandard(e.expression)
	if err != nil {
		return nil, fmt.Errorf("scheduling: %s: invalid expression %q: %w", e.name, e.expression, err)
	}
	return sched, nil
}

// Describe sets the text shown by schedule:list.
func (e *Event) Describe(text string) *Event {
	e.description = text
	return e
}

// Cron sets a raw five-field expression.
func (e *Event) Cron(expression string) *Event {
	e.expression = expression
	return e
}

func (e *Event) EveryMinute() *Event         { return e.Cron("* * * * *") }
func (e *Event) EveryFiveMinutes() *Event    { return e.Cron("*/5 * * * *") }
func (e *Event) EveryTenMinutes() *Event     { return e.Cron("*/10 * * * *") }
func (e *Event) EveryFifteenMinutes() *Event { return e.Cron("*/15 * * * *") }
func (e *Event) EveryThirtyMinutes() *Event  { return e.Cron("0,30 * * * *") }
func (e *Event) Hourly() *Event              { return e.Cron("0 * * * *") }
func (e *Event) Daily() *Event               { return e.Cron("0 0 * * *") }
func (e *Event) Weekly() *Event              { return e.Cron("0 0 * * 0") }
func (e *Event) Monthly() *Event             { return e.Cron("0 0 1 * *") }

// HourlyAt runs at minute past every hour.
func (e *Event) HourlyAt(minute int) *Event {
	if minute < 0 || minute > 59 {
		e.err = fmt.Errorf("scheduling: %s: minute %d out of range", e.name, minute)
		return e
	}
	return e.Cron(fmt.Sprintf("%d * * * *", minute))
}

// DailyAt runs once a day at "HH:MM".
func (e *Event) DailyAt(clock string) *Event {
	h, m, ok := parseClock(clock)
	if !ok {
		e.err = fmt.Errorf("scheduling: %s: invalid time %q", e.name, clock)
		return e
	}
	return e.Cron(fmt.Sprintf("%d %d * * *", m, h))
}

// When adds a condition checked right before each run.
func (e *Event) When(fn func() bool) *Event {
	e.filters = append(e.filters, fn)
	return e
}

// Skip is the inverse of When.
func (e *Event) Skip(fn func() bool) *Event {
	return e.When(func() bool { return !fn() })
}

// WithoutOverlapping skips a run while the previous one is still going.
func (e *Event) WithoutOverlapping() *Event {
	e.withoutOverlapping = true
	return e
}

func (e *Event) filtersPass() bool {
	for _, fn := range e.filters {
		if !fn() {
			return false
		}
	}
	return true
}

func parseClock(s string) (hour, minute int, ok bool) {
	hs, ms, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		ms = "0"
	}
	hour, err1 := strconv.Atoi(hs)
	minute, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

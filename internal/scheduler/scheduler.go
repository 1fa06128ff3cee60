// Package scheduler wraps go-co-op/gocron into the cooperative, serial
// periodic runner every default task (status emission, pruning, FTS
// maintenance, WAL checkpoints, timeseries refresh) runs on. Each
// registered task is pinned to singleton mode so a slow run is never
// joined by a second overlapping instance of itself; a panicking or
// erroring task is reported through events but never stops the
// scheduler.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"acarshub/internal/logger"
)

// Unit is the cadence unit a task is registered with.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
)

// EventType distinguishes the three lifecycle events a task emits.
type EventType int

const (
	EventStart EventType = iota
	EventComplete
	EventError
)

// Event is published to every registered listener on each task lifecycle
// transition.
type Event struct {
	Task     string
	Type     EventType
	Duration time.Duration
	Err      error
}

// Listener receives every task's lifecycle events.
type Listener func(Event)

// TaskFunc is the work a scheduled task performs. ctx is cancelled if the
// scheduler is shut down mid-run.
type TaskFunc func(ctx context.Context) error

// Scheduler owns one underlying gocron scheduler and the registered tasks'
// enable/disable state and manual run-now handles.
type Scheduler struct {
	gs    gocron.Scheduler
	tasks map[string]*task

	listeners []Listener
}

type task struct {
	name string
	fn   TaskFunc
	job  gocron.Job
}

// New builds a Scheduler; Start must be called to begin firing jobs.
func New() (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{gs: gs, tasks: make(map[string]*task)}, nil
}

// OnEvent registers a listener invoked for every task's start, completion,
// and error events, in that order.
func (s *Scheduler) OnEvent(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Scheduler) emit(ev Event) {
	for _, l := range s.listeners {
		l(ev)
	}
}

// Register schedules fn to run every count units, optionally phase-locked
// within the unit boundary by at (":ss" or ":mm:ss", empty for none).
// Registration is singleton-mode: a task is never joined by a second
// concurrent run of itself even if a prior run overruns its own period.
func (s *Scheduler) Register(name string, count int, unit Unit, at string, fn TaskFunc) error {
	def, err := jobDefinition(count, unit, at)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", name, err)
	}

	t := &task{name: name, fn: fn}
	job, err := s.gs.NewJob(
		def,
		gocron.NewTask(func() { s.run(t) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", name, err)
	}
	t.job = job
	s.tasks[name] = t
	return nil
}

func (s *Scheduler) run(t *task) {
	s.emit(Event{Task: t.name, Type: EventStart})
	start := time.Now()

	err := s.safeRun(t)
	dur := time.Since(start)

	if err != nil {
		logger.Warnf("scheduler: task %s failed: %v", t.name, err)
		s.emit(Event{Task: t.name, Type: EventError, Duration: dur, Err: err})
		return
	}
	s.emit(Event{Task: t.name, Type: EventComplete, Duration: dur})
}

// safeRun recovers a panicking task so one bad task can never take the
// scheduler down with it.
func (s *Scheduler) safeRun(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.fn(context.Background())
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() { s.gs.Start() }

// Shutdown stops the scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Shutdown() error { return s.gs.Shutdown() }

// Disable unschedules name without forgetting its definition; RunNow still
// works on a disabled task.
func (s *Scheduler) Disable(name string) error {
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("scheduler: unknown task %s", name)
	}
	return s.gs.RemoveJob(t.job.ID())
}

// Remove forgets name entirely.
func (s *Scheduler) Remove(name string) {
	t, ok := s.tasks[name]
	if !ok {
		return
	}
	_ = s.gs.RemoveJob(t.job.ID())
	delete(s.tasks, name)
}

// RunNow runs name's function immediately, out of band from its normal
// cadence, still emitting the usual lifecycle events.
func (s *Scheduler) RunNow(name string) error {
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("scheduler: unknown task %s", name)
	}
	go s.run(t)
	return nil
}

// jobDefinition translates a (count, unit, at) triple into a gocron job
// definition. Plain durations (no phase constraint) use DurationJob; a
// phase constraint is expressed as a seconds-precision cron expression,
// since gocron has no native "every N units, phase-locked" primitive for
// units other than whole days.
func jobDefinition(count int, unit Unit, at string) (gocron.JobDefinition, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	if at == "" {
		return gocron.DurationJob(duration(count, unit)), nil
	}

	sec, min, err := parseAt(at)
	if err != nil {
		return nil, err
	}

	switch unit {
	case Hours:
		// Every count hours, at minute:second within the hour. Expressed
		// as an hour-of-day step via the standard cron hour-step syntax.
		expr := fmt.Sprintf("%d %d */%d * * *", sec, min, count)
		return gocron.CronJob(expr, true), nil
	case Minutes:
		expr := fmt.Sprintf("%d */%d * * * *", sec, count)
		return gocron.CronJob(expr, true), nil
	default:
		return nil, fmt.Errorf("phase constraint %q is not meaningful for unit %s", at, unit)
	}
}

func duration(count int, unit Unit) time.Duration {
	switch unit {
	case Seconds:
		return time.Duration(count) * time.Second
	case Minutes:
		return time.Duration(count) * time.Minute
	case Hours:
		return time.Duration(count) * time.Hour
	default:
		return time.Duration(count) * time.Second
	}
}

// parseAt parses ":ss" or ":mm:ss" into (seconds, minutes); minutes is 0
// for the ":ss" form.
func parseAt(at string) (sec int, min int, err error) {
	trimmed := strings.TrimPrefix(at, ":")
	parts := strings.Split(trimmed, ":")
	switch len(parts) {
	case 1:
		sec, err = strconv.Atoi(parts[0])
	case 2:
		min, err = strconv.Atoi(parts[0])
		if err == nil {
			sec, err = strconv.Atoi(parts[1])
		}
	default:
		return 0, 0, fmt.Errorf("invalid at expression %q", at)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("invalid at expression %q: %w", at, err)
	}
	return sec, min, nil
}

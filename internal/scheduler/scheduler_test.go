package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseAtForms(t *testing.T) {
	sec, min, err := parseAt(":30")
	if err != nil || sec != 30 || min != 0 {
		t.Fatalf("parseAt(:30) = %d,%d,%v", sec, min, err)
	}
	sec, min, err = parseAt(":05:15")
	if err != nil || sec != 15 || min != 5 {
		t.Fatalf("parseAt(:05:15) = %d,%d,%v", sec, min, err)
	}
	if _, _, err := parseAt(":1:2:3"); err == nil {
		t.Fatalf("expected an error for a malformed at expression")
	}
}

func TestRegisterRejectsNonPositiveCount(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Register("bad", 0, Seconds, "", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatalf("expected an error registering a task with count 0")
	}
}

func TestTaskRunsAndEmitsLifecycleEvents(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mu sync.Mutex
	var events []EventType
	s.OnEvent(func(ev Event) {
		mu.Lock()
		events = append(events, ev.Type)
		mu.Unlock()
	})

	var ran int32
	done := make(chan struct{})
	err = s.Register("tick", 1, Seconds, "", func(ctx context.Context) error {
		if atomic.AddInt32(&ran, 1) == 1 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	defer s.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("task never ran")
	}

	// Give the event callback a moment to fire after the task body returns.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 || events[0] != EventStart || events[1] != EventComplete {
		t.Fatalf("expected [Start, Complete, ...], got %v", events)
	}
}

func TestFailingTaskEmitsErrorAndKeepsScheduler(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mu sync.Mutex
	var gotErr error
	done := make(chan struct{})
	s.OnEvent(func(ev Event) {
		if ev.Type == EventError {
			mu.Lock()
			gotErr = ev.Err
			mu.Unlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	err = s.Register("boom", 1, Seconds, "", func(ctx context.Context) error {
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	defer s.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("task never reported its error")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Fatalf("expected error \"boom\", got %v", gotErr)
	}
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	s.OnEvent(func(ev Event) {
		if ev.Type == EventError {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	err = s.Register("panics", 1, Seconds, "", func(ctx context.Context) error {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	defer s.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("panicking task did not surface as an error event")
	}
}

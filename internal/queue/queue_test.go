package queue

import (
	"context"
	"testing"
	"time"
)

func TestPushPopOrder(t *testing.T) {
	q := New(10)
	q.Push(Item{Decoder: "ACARS", Raw: []byte("a")})
	q.Push(Item{Decoder: "ACARS", Raw: []byte("b")})

	ctx := context.Background()
	first, ok := q.Pop(ctx)
	if !ok || string(first.Raw) != "a" {
		t.Fatalf("expected FIFO order, got %+v", first)
	}
	second, ok := q.Pop(ctx)
	if !ok || string(second.Raw) != "b" {
		t.Fatalf("expected FIFO order, got %+v", second)
	}
}

func TestBackpressureDropsOldestNonLogged(t *testing.T) {
	q := New(2)
	q.Push(Item{Decoder: "ACARS", Raw: []byte("old")})
	q.Push(Item{Decoder: "ACARS", Raw: []byte("mid")})
	q.Push(Item{Decoder: "ACARS", Raw: []byte("new")})

	if q.Len() != 2 {
		t.Fatalf("expected queue capped at 2, got %d", q.Len())
	}

	ctx := context.Background()
	first, _ := q.Pop(ctx)
	if string(first.Raw) != "mid" {
		t.Fatalf("expected oldest dropped, next should be 'mid', got %q", first.Raw)
	}

	stats := q.Snapshot()
	if stats.Dropped != 1 {
		t.Fatalf("expected 1 dropped item, got %d", stats.Dropped)
	}
}

func TestLoggedItemsNeverDropped(t *testing.T) {
	q := New(1)
	q.Push(Item{Decoder: "ACARS", Raw: []byte("logged"), Logged: true})
	q.Push(Item{Decoder: "ACARS", Raw: []byte("second")})

	if q.Len() != 2 {
		t.Fatalf("expected logged item retained even over capacity, got len=%d", q.Len())
	}
}

func TestPopRespectsContextCancellation(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	if ok {
		t.Fatalf("expected Pop to return false on empty+cancelled queue")
	}
}

func TestPerDecoderStats(t *testing.T) {
	q := New(10)
	q.Push(Item{Decoder: "ACARS"})
	q.Push(Item{Decoder: "VDL-M2"})
	q.Push(Item{Decoder: "ACARS", Error: true})

	stats := q.Snapshot()
	if stats.PerDecoder["ACARS"] != 2 {
		t.Fatalf("expected 2 ACARS messages, got %d", stats.PerDecoder["ACARS"])
	}
	if stats.Errors != 1 || stats.Good != 2 {
		t.Fatalf("expected 1 error and 2 good, got errors=%d good=%d", stats.Errors, stats.Good)
	}
}

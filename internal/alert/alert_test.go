package alert

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	terms   []string
	ignore  []string
	matches []Match
	rows    []map[string]any
}

func (f *fakeStore) LoadAlertTerms(ctx context.Context) ([]string, []string, error) {
	return f.terms, f.ignore, nil
}

func (f *fakeStore) SaveAlertTerms(ctx context.Context, terms []string, ignore []string) error {
	f.terms = terms
	f.ignore = ignore
	return nil
}

func (f *fakeStore) InsertMatches(ctx context.Context, matches []Match) error {
	f.matches = append(f.matches, matches...)
	return nil
}

func (f *fakeStore) ClearMatches(ctx context.Context) error {
	f.matches = nil
	return nil
}

func (f *fakeStore) IterateMessages(ctx context.Context, batchSize int, fn func(row map[string]any) error) error {
	for _, row := range f.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func TestMatchMessageTaggedFields(t *testing.T) {
	store := &fakeStore{terms: []string{"N8560Z", "WN4899"}}
	cache, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	msg := map[string]any{"text": "hello n8560z", "tail": "", "icao": "", "flight": "WN4899"}
	res := cache.MatchMessage(msg, "uid-1", time.Now())
	if !res.Matched {
		t.Fatalf("expected a match")
	}
	if len(res.MatchedText) != 1 || res.MatchedText[0] != "N8560Z" {
		t.Fatalf("expected matched_text=[N8560Z], got %v", res.MatchedText)
	}
	if len(res.MatchedFlight) != 1 || res.MatchedFlight[0] != "WN4899" {
		t.Fatalf("expected matched_flight=[WN4899], got %v", res.MatchedFlight)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 match rows, got %d", len(res.Rows))
	}
}

func TestMatchMessageSuppressedByIgnoreTerm(t *testing.T) {
	store := &fakeStore{terms: []string{"ALERT"}, ignore: []string{"TESTALERT"}}
	cache, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	msg := map[string]any{"text": "this is a testalert message"}
	res := cache.MatchMessage(msg, "uid-2", time.Now())
	if res.Matched {
		t.Fatalf("expected ignore term to suppress the match, got %+v", res)
	}
}

func TestMatchMessageIgnoreTermSuppressesEntireMessage(t *testing.T) {
	store := &fakeStore{terms: []string{"ALERT"}, ignore: []string{"TESTALERT"}}
	cache, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// "tail" hits the ignore term, but "text" independently matches a real
	// alert term; the whole message must still be suppressed, not just tail.
	msg := map[string]any{"tail": "N-TESTALERT", "text": "ALERT traffic advisory"}
	res := cache.MatchMessage(msg, "uid-3", time.Now())
	if res.Matched || len(res.Rows) != 0 {
		t.Fatalf("expected ignore term on one field to suppress the whole message, got %+v", res)
	}
}

func TestAddRemoveTermPersists(t *testing.T) {
	store := &fakeStore{}
	cache, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	added, err := cache.AddTerm(context.Background(), "  foo  ")
	if err != nil || !added {
		t.Fatalf("AddTerm: added=%v err=%v", added, err)
	}
	if len(store.terms) != 1 || store.terms[0] != "FOO" {
		t.Fatalf("expected persisted term FOO, got %v", store.terms)
	}

	added, err = cache.AddTerm(context.Background(), "foo")
	if err != nil || added {
		t.Fatalf("expected duplicate AddTerm to report false, got added=%v err=%v", added, err)
	}

	removed, err := cache.RemoveTerm(context.Background(), "foo")
	if err != nil || !removed {
		t.Fatalf("RemoveTerm: removed=%v err=%v", removed, err)
	}
	if len(store.terms) != 0 {
		t.Fatalf("expected term set to be empty after removal, got %v", store.terms)
	}
}

func TestRegenerateRescansAllMessages(t *testing.T) {
	store := &fakeStore{
		terms: []string{"ALPHA"},
		rows: []map[string]any{
			{"uid": "uid-1", "text": "alpha bravo"},
			{"uid": "uid-2", "text": "no match here"},
			{"uid": "uid-3", "icao": "ALPHA1"},
		},
		matches: []Match{{MessageUID: "stale", Term: "OLD", MatchType: "text"}},
	}
	cache, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var starts, completions int
	err = cache.Regenerate(context.Background(), func(scanned int, done bool) {
		if done {
			completions++
			if scanned != 3 {
				t.Fatalf("expected 3 scanned messages, got %d", scanned)
			}
		} else {
			starts++
		}
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if starts != 1 || completions != 1 {
		t.Fatalf("expected exactly one start and one completion event, got starts=%d completions=%d", starts, completions)
	}
	if len(store.matches) != 2 {
		t.Fatalf("expected 2 fresh matches after regeneration, got %d", len(store.matches))
	}
	for _, m := range store.matches {
		if m.Term == "OLD" {
			t.Fatalf("stale match survived regeneration: %+v", m)
		}
	}
}

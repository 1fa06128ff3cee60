// Package alert implements the in-memory alert term cache and the
// substring matcher that tags every enriched message against it. The
// cache, not the alert_matches table, is the runtime source of truth;
// the table is a persistence log that regeneration can rebuild from the
// cache and the message history.
package alert

import (
	"context"
	"strings"
	"sync"
	"time"

	"acarshub/internal/logger"
)

// matchFields are the enriched-message keys scanned against every term, in
// the order their matched_* slices are reported.
var matchFields = []struct {
	key       string
	matchType string
}{
	{"text", "text"},
	{"icao", "icao"},
	{"tail", "tail"},
	{"flight", "flight"},
}

// Match is one (message_uid, term) hit destined for alert_matches.
type Match struct {
	MessageUID string
	Term       string
	MatchType  string
	MatchedAt  time.Time
}

// Store is the persistence surface the cache writes through to.
type Store interface {
	LoadAlertTerms(ctx context.Context) (terms []string, ignore []string, err error)
	SaveAlertTerms(ctx context.Context, terms []string, ignore []string) error
	InsertMatches(ctx context.Context, matches []Match) error
	ClearMatches(ctx context.Context) error
	IterateMessages(ctx context.Context, batchSize int, fn func(row map[string]any) error) error
}

// Cache holds the two uppercased term sets and writes through to Store on
// every mutation. All reads and writes are safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	terms  map[string]bool // uppercased term -> true
	ignore map[string]bool // uppercased ignore term -> true
	order  []string        // insertion order of terms, for stable broadcast

	store Store
}

// Load builds a Cache from whatever is currently persisted.
func Load(ctx context.Context, store Store) (*Cache, error) {
	terms, ignore, err := store.LoadAlertTerms(ctx)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		terms:  make(map[string]bool, len(terms)),
		ignore: make(map[string]bool, len(ignore)),
		store:  store,
	}
	for _, t := range terms {
		up := strings.ToUpper(t)
		if !c.terms[up] {
			c.terms[up] = true
			c.order = append(c.order, up)
		}
	}
	for _, t := range ignore {
		c.ignore[strings.ToUpper(t)] = true
	}
	return c, nil
}

// Terms returns the active term set in insertion order.
func (c *Cache) Terms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// IgnoreTerms returns the ignore set, order not significant.
func (c *Cache) IgnoreTerms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ignore))
	for t := range c.ignore {
		out = append(out, t)
	}
	return out
}

// AddTerm adds term to the active set, persists, and reports whether the
// set actually changed (false if the term was already present).
func (c *Cache) AddTerm(ctx context.Context, term string) (bool, error) {
	up := strings.ToUpper(strings.TrimSpace(term))
	if up == "" {
		return false, nil
	}
	c.mu.Lock()
	if c.terms[up] {
		c.mu.Unlock()
		return false, nil
	}
	c.terms[up] = true
	c.order = append(c.order, up)
	terms, ignore := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.SaveAlertTerms(ctx, terms, ignore); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveTerm removes term from the active set and persists.
func (c *Cache) RemoveTerm(ctx context.Context, term string) (bool, error) {
	up := strings.ToUpper(strings.TrimSpace(term))
	c.mu.Lock()
	if !c.terms[up] {
		c.mu.Unlock()
		return false, nil
	}
	delete(c.terms, up)
	for i, t := range c.order {
		if t == up {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	terms, ignore := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.SaveAlertTerms(ctx, terms, ignore); err != nil {
		return false, err
	}
	return true, nil
}

// AddIgnoreTerm adds term to the ignore set and persists.
func (c *Cache) AddIgnoreTerm(ctx context.Context, term string) (bool, error) {
	up := strings.ToUpper(strings.TrimSpace(term))
	if up == "" {
		return false, nil
	}
	c.mu.Lock()
	if c.ignore[up] {
		c.mu.Unlock()
		return false, nil
	}
	c.ignore[up] = true
	terms, ignore := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.SaveAlertTerms(ctx, terms, ignore); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveIgnoreTerm removes term from the ignore set and persists.
func (c *Cache) RemoveIgnoreTerm(ctx context.Context, term string) (bool, error) {
	up := strings.ToUpper(strings.TrimSpace(term))
	c.mu.Lock()
	if !c.ignore[up] {
		c.mu.Unlock()
		return false, nil
	}
	delete(c.ignore, up)
	terms, ignore := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.SaveAlertTerms(ctx, terms, ignore); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) snapshotLocked() (terms []string, ignore []string) {
	terms = make([]string, len(c.order))
	copy(terms, c.order)
	for t := range c.ignore {
		ignore = append(ignore, t)
	}
	return terms, ignore
}

// Result is the outcome of matching one enriched message against the
// cache: the matched_* field tags to stamp onto the message, and the
// alert_matches rows to persist.
type Result struct {
	Matched       bool
	MatchedText   []string
	MatchedICAO   []string
	MatchedTail   []string
	MatchedFlight []string
	Rows          []Match
}

// MatchMessage scans msg's {text, icao, tail, flight} fields against the
// active term set, case-insensitively. If any of those fields
// substring-matches an ignore term, the whole message yields an empty
// Result. msgUID identifies the row for alert_matches; at is the match
// timestamp.
func (c *Cache) MatchMessage(msg map[string]any, msgUID string, at time.Time) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.terms) == 0 {
		return Result{}
	}

	// A term on the ignore list matching any field suppresses the whole
	// message's match, not just the field it hit.
	for _, f := range matchFields {
		raw, _ := msg[f.key].(string)
		if raw == "" {
			continue
		}
		if c.ignoreMatchesLocked(strings.ToUpper(raw)) {
			return Result{}
		}
	}

	var res Result
	for _, f := range matchFields {
		raw, _ := msg[f.key].(string)
		if raw == "" {
			continue
		}
		up := strings.ToUpper(raw)
		for _, term := range c.order {
			if !c.terms[term] {
				continue
			}
			if !strings.Contains(up, term) {
				continue
			}
			res.Matched = true
			switch f.matchType {
			case "text":
				res.MatchedText = append(res.MatchedText, term)
			case "icao":
				res.MatchedICAO = append(res.MatchedICAO, term)
			case "tail":
				res.MatchedTail = append(res.MatchedTail, term)
			case "flight":
				res.MatchedFlight = append(res.MatchedFlight, term)
			}
			res.Rows = append(res.Rows, Match{
				MessageUID: msgUID,
				Term:       term,
				MatchType:  f.matchType,
				MatchedAt:  at,
			})
		}
	}
	return res
}

func (c *Cache) ignoreMatchesLocked(upperField string) bool {
	for term := range c.ignore {
		if strings.Contains(upperField, term) {
			return true
		}
	}
	return false
}

// Tag applies a Result's matched_* fields onto an enriched message map,
// matching the wire shape {matched, matched_text, matched_icao,
// matched_tail, matched_flight} used by the event layer.
func Tag(msg map[string]any, res Result) {
	msg["matched"] = res.Matched
	msg["matched_text"] = res.MatchedText
	msg["matched_icao"] = res.MatchedICAO
	msg["matched_tail"] = res.MatchedTail
	msg["matched_flight"] = res.MatchedFlight
}

// ProgressFunc receives regeneration progress events: done==false marks the
// start, done==true the completion (scanned is the final count either way).
type ProgressFunc func(scanned int, done bool)

const regenerateBatchSize = 500

// Regenerate wipes alert_matches, rescans every stored message against the
// current term set, and reinserts matches in transactional batches. It
// never consults the existing alert_matches rows: the cache, not the
// table, is authoritative.
func (c *Cache) Regenerate(ctx context.Context, progress ProgressFunc) error {
	if progress != nil {
		progress(0, false)
	}

	if err := c.store.ClearMatches(ctx); err != nil {
		return err
	}

	scanned := 0
	var batch []Match
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.store.InsertMatches(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := c.store.IterateMessages(ctx, regenerateBatchSize, func(row map[string]any) error {
		uid, _ := row["uid"].(string)
		res := c.MatchMessage(row, uid, nowOrField(row))
		batch = append(batch, res.Rows...)
		scanned++
		if len(batch) >= regenerateBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	if progress != nil {
		progress(scanned, true)
	}
	logger.Infof("alert: regeneration scanned %d messages", scanned)
	return nil
}

func nowOrField(row map[string]any) time.Time {
	if sec, ok := row["timestamp"].(int64); ok && sec > 0 {
		return time.Unix(sec, 0)
	}
	return time.Now()
}

// ErrRemoteUpdatesDisabled is returned by mutation operations when the
// operator has disabled remote cache updates.
var ErrRemoteUpdatesDisabled = remoteUpdatesDisabledError{}

type remoteUpdatesDisabledError struct{}

func (remoteUpdatesDisabledError) Error() string {
	return "remote alert term updates are disabled"
}

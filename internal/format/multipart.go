package format

import (
	"regexp"
	"sync"
	"time"
)

// multipartWindow bounds how long a fragment waits for its successor; a
// fragment older than this is discarded, not emitted.
const multipartWindow = 8 * time.Second

var (
	axxaRe = regexp.MustCompile(`^A\d{2}A$`)
	aaazRe = regexp.MustCompile(`^AAA([0-9A-Z])$`)
)

// isMultipartMsgno reports whether msgno follows one of the two multi-part
// numbering conventions seen on JAERO and VDL-M2 feeds: an AxxA pattern, or
// an AAAz monotonic counter.
func isMultipartMsgno(msgno string) bool {
	return axxaRe.MatchString(msgno) || aaazRe.MatchString(msgno)
}

// pendingFragment is one partially-assembled multi-part message.
type pendingFragment struct {
	record  Record
	started time.Time
}

// Combiner reassembles multi-part JAERO/VDL-M2 messages: parts matching the
// same decoder group and station, whose msgno numbering marks them as a
// series, are concatenated if they arrive within the reassembly window.
type Combiner struct {
	mu      sync.Mutex
	pending map[string]*pendingFragment
}

// NewCombiner returns an empty Combiner.
func NewCombiner() *Combiner {
	return &Combiner{pending: make(map[string]*pendingFragment)}
}

// groupKey identifies a multi-part series: same decoder, same ground
// station, same message number series (all but the trailing sequence
// character).
func groupKey(r *Record) string {
	if len(r.Msgno) == 0 {
		return ""
	}
	return r.MessageType + "|" + r.StationID + "|" + r.Msgno[:len(r.Msgno)-1]
}

// Combine accepts a normalized fragment and returns the record to emit (nil
// if the fragment is being held pending its successor) along with whether a
// record was produced.
func (c *Combiner) Combine(r *Record, now time.Time) (*Record, bool) {
	if !isMultipartMsgno(r.Msgno) {
		return r, true
	}

	key := groupKey(r)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired(key, now)

	pending, ok := c.pending[key]
	if !ok {
		if r.End {
			return r, true
		}
		c.pending[key] = &pendingFragment{record: *r, started: now}
		return nil, false
	}

	pending.record.MsgText += r.MsgText
	pending.record.End = r.End
	if r.End {
		out := pending.record
		delete(c.pending, key)
		return &out, true
	}
	return nil, false
}

// evictExpired drops a pending fragment for key if it has aged out of the
// reassembly window. The fragment is discarded, not emitted, so a stale
// partial can't be silently merged with an unrelated later series reusing
// the same msgno.
func (c *Combiner) evictExpired(key string, now time.Time) {
	if p, ok := c.pending[key]; ok && now.Sub(p.started) > multipartWindow {
		delete(c.pending, key)
	}
}

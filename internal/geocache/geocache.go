// Package geocache serves the cached HeyWhatsThat antenna-coverage
// polygon at GET /data/heywhatsthat.geojson. Fetching the polygon from
// heywhatsthat.com is an external collaborator's job (it requires an
// operator-registered site ID and network egress this module does not
// assume); geocache only owns the cache entry's lifecycle and its typed
// altitude unit, feet, matching what is served on disk and over the wire.
package geocache

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
)

// FeetAltitude is an antenna or ring altitude expressed in feet, the unit
// geocache's cache entry and HTTP response are typed in. Converting to
// meters for the outbound HeyWhatsThat request is the fetcher's
// responsibility, not this package's.
type FeetAltitude float64

// Entry is one cached antenna-coverage result.
type Entry struct {
	Collection *geojson.FeatureCollection
	AltitudeFt FeetAltitude
	FetchedAt  time.Time
}

// Cache holds the single most recent HeyWhatsThat GeoJSON result. There is
// one coverage polygon per station, so this is a singleton, not a map.
type Cache struct {
	mu          sync.RWMutex
	entry       *Entry
	fetchFailed bool
}

// New returns an empty cache; Set must be called once a fetch succeeds
// before Handler will serve anything but 404.
func New() *Cache {
	return &Cache{}
}

// Set replaces the cached entry, e.g. after a successful refetch, and
// clears any prior fetch-failure state.
func (c *Cache) Set(e *Entry) {
	c.mu.Lock()
	c.entry = e
	c.fetchFailed = false
	c.mu.Unlock()
}

// Get returns the current entry, or nil if none has ever been fetched.
func (c *Cache) Get() *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry
}

// Handler serves the cached GeoJSON: 404 if HeyWhatsThat was never
// configured (no fetch has ever been attempted), 503 if a fetch was
// attempted and failed before any good entry existed, 200 with the cached
// (possibly stale) GeoJSON otherwise.
func (c *Cache) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.RLock()
		e, failed := c.entry, c.fetchFailed
		c.mu.RUnlock()

		switch {
		case e != nil:
			w.Header().Set("Content-Type", "application/geo+json")
			if err := json.NewEncoder(w).Encode(e.Collection); err != nil {
				http.Error(w, "failed to encode geojson", http.StatusInternalServerError)
			}
		case failed:
			http.Error(w, "heywhatsthat fetch failed", http.StatusServiceUnavailable)
		default:
			http.Error(w, "heywhatsthat data not available", http.StatusNotFound)
		}
	}
}

// MarkUnavailable is called by the fetcher when a refetch attempt fails
// and no prior good entry exists, so Handler reports 503 instead of 404.
// It does not clear a previously good entry: stale coverage data is
// preferable to none.
func (c *Cache) MarkUnavailable() {
	c.mu.Lock()
	if c.entry == nil {
		c.fetchFailed = true
	}
	c.mu.Unlock()
}

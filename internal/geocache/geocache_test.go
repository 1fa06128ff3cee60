package geocache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestHandlerReturns404WithNoEntry(t *testing.T) {
	c := New()
	req := httptest.NewRequest(http.MethodGet, "/data/heywhatsthat.geojson", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerReturns503AfterFailedFetchWithNoPriorEntry(t *testing.T) {
	c := New()
	c.MarkUnavailable()

	req := httptest.NewRequest(http.MethodGet, "/data/heywhatsthat.geojson", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandlerServesCachedGeoJSON(t *testing.T) {
	c := New()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{-122.4, 37.7}))
	c.Set(&Entry{Collection: fc, AltitudeFt: 500})

	req := httptest.NewRequest(http.MethodGet, "/data/heywhatsthat.geojson", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("expected geo+json content type, got %s", ct)
	}
}

func TestMarkUnavailableDoesNotClearGoodEntry(t *testing.T) {
	c := New()
	fc := geojson.NewFeatureCollection()
	c.Set(&Entry{Collection: fc, AltitudeFt: 500})
	c.MarkUnavailable()

	req := httptest.NewRequest(http.MethodGet, "/data/heywhatsthat.geojson", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a stale-but-good entry to still serve 200, got %d", rec.Code)
	}
}

package enrich

import (
	"reflect"
	"testing"

	"acarshub/internal/config"
)

func newTestEnricher() *Enricher {
	rt := &config.ReferenceTables{
		AirlinesByIATA: map[string]config.Airline{
			"WN": {IATA: "WN", ICAO: "SWA", Name: "Southwest Airlines"},
		},
		AirlinesByICAO: map[string]config.Airline{},
		GroundStations: map[string]config.GroundStation{},
		Labels: map[string]config.MessageLabel{
			"H1": {Label: "H1", Type: "Uplink Free Text"},
		},
	}
	return New(rt, map[string]config.IATAOverride{}, 16)
}

func TestEnrichRenamesAndPrunes(t *testing.T) {
	e := newTestEnricher()
	// Shape matches what store.scanMessageRow actually produces: most
	// columns are already snake_case and equal to the wire name; only
	// msg_text and msg_time carry a different name internally.
	row := map[string]any{
		"message_type": "ACARS",
		"station_id":   "KJFK1",
		"msg_text":     "HELLO",
		"msg_time":     int64(1700000000),
		"block_id":     "",
		"is_response":  false,
		"is_onground":  0,
		"icao":         "abc123",
		"flight":       "WN4899",
		"label":        "H1",
	}
	out := e.Enrich(row)

	for _, src := range []string{"msg_text", "msg_time"} {
		if _, present := out[src]; present {
			t.Fatalf("source key %q must not survive enrichment", src)
		}
	}
	if out["message_type"] != "ACARS" {
		t.Fatalf("expected message_type to pass through, got %v", out["message_type"])
	}
	if out["station_id"] != "KJFK1" {
		t.Fatalf("expected station_id to pass through, got %v", out["station_id"])
	}
	if out["text"] != "HELLO" {
		t.Fatalf("expected msg_text renamed to text, got %v", out["text"])
	}
	if out["timestamp"] != int64(1700000000) {
		t.Fatalf("expected msg_time renamed to timestamp, got %v", out["timestamp"])
	}
	if out["icao_hex"] != "ABC123" {
		t.Fatalf("expected uppercase icao_hex, got %v", out["icao_hex"])
	}
	if out["flight_number"] != "4899" || out["airline"] != "Southwest Airlines" {
		t.Fatalf("expected flight resolved via airline table, got %+v", out)
	}
	if out["label_type"] != "Uplink Free Text" {
		t.Fatalf("expected label_type resolved, got %v", out["label_type"])
	}
}

func TestEnrichUnknownLabel(t *testing.T) {
	e := newTestEnricher()
	out := e.Enrich(map[string]any{"label": "99"})
	if out["label_type"] != unknownLabel {
		t.Fatalf("expected unknown label literal, got %v", out["label_type"])
	}
}

func TestEnrichIdempotent(t *testing.T) {
	e := newTestEnricher()
	row := map[string]any{
		"messageType": "ACARS",
		"msg_text":    "PDC CLRNCE KJFK-KBOS RWY 04L",
		"label":       "H1",
		"flight":      "WN4899",
		"icao":        "ABC123",
	}
	once := e.Enrich(row)
	twice := e.Enrich(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected enrich to be idempotent:\nonce=%+v\ntwice=%+v", once, twice)
	}
	if once["decodedText"] != twice["decodedText"] {
		t.Fatalf("expected decodedText preserved by reference across passes")
	}
}

func TestEnrichAllEmpty(t *testing.T) {
	e := newTestEnricher()
	out := e.EnrichAll(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

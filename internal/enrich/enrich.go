// Package enrich performs the pure transformation from the internal row
// shape (as read back from the store) into the snake_case wire format
// expected by browser clients: renaming, pruning, ICAO/flight/label
// resolution, and decoded-text annotation.
package enrich

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"acarshub/internal/config"
	"acarshub/internal/decode"
)

// protectedKeys survive pruning even when their value is empty, since an
// absent value is itself meaningful to clients (e.g. matched=false vs
// matched key missing entirely would be ambiguous).
var protectedKeys = map[string]bool{
	"uid": true, "message_type": true, "text": true, "matched": true,
	"matched_text": true, "matched_icao": true, "matched_tail": true, "matched_flight": true,
}

// renameMap translates the store's own row keys into the wire field names
// clients expect. The store already names most columns exactly as the wire
// wants them (message_type, station_id, block_id, is_response, is_onground,
// aircraft_id survive untouched); only the payload text and the timestamp
// column carry a different name internally than on the wire. Source keys
// must not survive enrichment.
var renameMap = map[string]string{
	"msg_text": "text",
	"msg_time": "timestamp",
}

// Enricher bundles the reference tables and caches enrichment consults on
// every message.
type Enricher struct {
	rt         *config.ReferenceTables
	overrides  map[string]config.IATAOverride
	labelCache *lru.Cache[string, string]
}

// New builds an Enricher backed by rt and the operator's IATA override
// table. labelCacheSize bounds the label-resolution LRU.
func New(rt *config.ReferenceTables, overrides map[string]config.IATAOverride, labelCacheSize int) *Enricher {
	if labelCacheSize <= 0 {
		labelCacheSize = 256
	}
	cache, _ := lru.New[string, string](labelCacheSize)
	return &Enricher{rt: rt, overrides: overrides, labelCache: cache}
}

// Enrich transforms one internal row into its wire shape. The input map is
// not mutated; a new map is returned. Idempotent: Enrich(Enrich(m)) ==
// Enrich(m), and a pre-existing decodedText value is preserved by
// reference rather than recomputed.
func (e *Enricher) Enrich(row map[string]any) map[string]any {
	out := make(map[string]any, len(row)+4)
	for k, v := range row {
		out[k] = v
	}

	applyRename(out)
	addICAOHex(out)
	e.addFlightFields(out)
	e.addLabelType(out)
	addDecodedText(out)
	prune(out)

	return out
}

// EnrichAll maps Enrich over every row; an empty input yields an empty
// (not nil) slice.
func (e *Enricher) EnrichAll(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, e.Enrich(row))
	}
	return out
}

func applyRename(m map[string]any) {
	for from, to := range renameMap {
		if v, ok := m[from]; ok {
			m[to] = v
			delete(m, from)
		}
	}
}

func prune(m map[string]any) {
	for k, v := range m {
		if protectedKeys[k] {
			continue
		}
		if isEmptyValue(v) {
			delete(m, k)
		}
	}
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

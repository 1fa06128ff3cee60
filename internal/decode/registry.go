// Package decode is the decoded-text library invoked by enrichment to turn
// free-text ACARS message bodies into a structured, labeled field list.
// Decoders register themselves against one or more message labels (or
// "all labels" for content-based matching) and are dispatched by a priority
// ordered registry; a decoder that cannot confidently parse the text
// declines rather than guessing.
package decode

import "sort"

// Field is one labeled value in a decoded message, e.g. {"Origin", "KJFK"}.
type Field struct {
	Label string
	Value string
}

// Result is what a decoder produces for one message.
type Result struct {
	Name    string // decoder identifier, e.g. "pdc"
	Level   string // "partial" or "full"
	Fields  []Field
	Summary string // one-line description used as the synthetic first field
}

// Decoder is implemented by each decoded-text producer.
type Decoder interface {
	Name() string
	Labels() []string // nil means content-based: checked against every label
	QuickCheck(text string) bool
	Priority() int // lower runs first
	Decode(text string) *Result
}

type registry struct {
	byLabel map[string][]Decoder
	global  []Decoder
	sorted  bool
}

var defaultRegistry = &registry{byLabel: make(map[string][]Decoder)}

// Register adds a decoder to the default registry. Called from each
// decoder package's init().
func Register(d Decoder) {
	labels := d.Labels()
	if len(labels) == 0 {
		defaultRegistry.global = append(defaultRegistry.global, d)
		defaultRegistry.sorted = false
		return
	}
	for _, label := range labels {
		defaultRegistry.byLabel[label] = append(defaultRegistry.byLabel[label], d)
	}
	defaultRegistry.sorted = false
}

func (r *registry) sort() {
	if r.sorted {
		return
	}
	for label := range r.byLabel {
		ds := r.byLabel[label]
		sort.Slice(ds, func(i, j int) bool { return ds[i].Priority() < ds[j].Priority() })
	}
	sort.Slice(r.global, func(i, j int) bool { return r.global[i].Priority() < r.global[j].Priority() })
	r.sorted = true
}

// dispatch returns the first decoder result for label/text, or nil if none
// of the registered decoders recognized the text.
func dispatch(label, text string) *Result {
	defaultRegistry.sort()

	if ds, ok := defaultRegistry.byLabel[label]; ok {
		for _, d := range ds {
			if !d.QuickCheck(text) {
				continue
			}
			if res := d.Decode(text); res != nil {
				return res
			}
		}
	}
	for _, d := range defaultRegistry.global {
		if !d.QuickCheck(text) {
			continue
		}
		if res := d.Decode(text); res != nil {
			return res
		}
	}
	return nil
}

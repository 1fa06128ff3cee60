package enrich

import "strings"

const unknownLabel = "Unknown Message Label"

// addLabelType resolves label to its human-readable type, caching the
// lookup since the same handful of labels repeats across every message.
func (e *Enricher) addLabelType(m map[string]any) {
	label, _ := m["label"].(string)
	if label == "" {
		return
	}
	key := strings.ToUpper(label)

	if cached, ok := e.labelCache.Get(key); ok {
		m["label_type"] = cached
		return
	}

	labelType := unknownLabel
	if l, ok := e.rt.Labels[key]; ok && l.Type != "" {
		labelType = l.Type
	}
	e.labelCache.Add(key, labelType)
	m["label_type"] = labelType
}

package enrich

import "acarshub/internal/decode"

// addDecodedText invokes the decode library when text is present and
// decodedText has not already been attached. A pre-existing decodedText
// value (e.g. from a prior Enrich pass) is left untouched, preserving the
// same value by reference rather than recomputing it.
func addDecodedText(m map[string]any) {
	if _, already := m["decodedText"]; already {
		return
	}
	text, _ := m["text"].(string)
	if text == "" {
		return
	}
	label, _ := m["label"].(string)

	dec, ok := decode.Text(label, text)
	if !ok {
		return
	}
	m["decodedText"] = dec
}

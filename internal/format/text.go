package format

import "strings"

// cleanTail removes the embedded '.' separators some decoders insert into
// registration strings (e.g. "N12345." or "N.12345").
func cleanTail(tail string) string {
	return strings.ReplaceAll(tail, ".", "")
}

// cleanLabel replaces the decoder's DEL (0x7F) placeholder with 'd', which
// is how uplink label 'd' variants are actually transmitted over the air.
func cleanLabel(label string) string {
	return strings.ReplaceAll(label, "\x7f", "d")
}

// cleanAck replaces a NAK (0x15) byte in the ack field with '!', the
// convention used when a station reports a negative acknowledgement.
func cleanAck(ack string) string {
	return strings.ReplaceAll(ack, "\x15", "!")
}

// countErrors recursively counts boolean err:true fields through nested
// objects. Arrays are only inspected one level deep: each element's own
// direct fields are checked, but fields nested further inside an element
// are not.
func countErrors(v any) int {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	n := 0
	for k, val := range m {
		if k == "err" {
			if b, ok := val.(bool); ok && b {
				n++
			}
			continue
		}
		switch t := val.(type) {
		case map[string]any:
			n += countErrors(t)
		case []any:
			for _, item := range t {
				n += countErrorsShallow(item)
			}
		}
	}
	return n
}

// countErrorsShallow checks only an array element's own direct fields.
func countErrorsShallow(v any) int {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	n := 0
	for k, val := range m {
		if k == "err" {
			if b, ok := val.(bool); ok && b {
				n++
			}
		}
	}
	return n
}

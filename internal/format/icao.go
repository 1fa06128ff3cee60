package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hex6Re = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// normalizeICAO coerces a decoder's icao field into uppercase six-hex form.
// A numeric value (JSON number or decimal string) is rendered as hex; a
// value already in hex form is just uppercased. Anything else is dropped.
func normalizeICAO(raw any) string {
	switch v := raw.(type) {
	case float64:
		return fmt.Sprintf("%06X", int64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return ""
		}
		if hex6Re.MatchString(s) {
			return strings.ToUpper(s)
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fmt.Sprintf("%06X", n)
		}
		return ""
	default:
		return ""
	}
}

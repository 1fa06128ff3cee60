package decode

import (
	"regexp"
	"strings"
)

// atisDecoder recognizes ATIS broadcasts relayed over ACARS, identified by
// an airport ICAO code followed by a single information letter.
type atisDecoder struct{}

func init() { Register(atisDecoder{}) }

func (atisDecoder) Name() string     { return "atis" }
func (atisDecoder) Labels() []string { return nil }
func (atisDecoder) Priority() int    { return 200 }

var atisLetterRe = regexp.MustCompile(`\b([A-Z]{4})\s+(?:ARR |DEP )?INFO\s+([A-Z])\b`)

func (atisDecoder) QuickCheck(text string) bool {
	return strings.Contains(strings.ToUpper(text), "INFO")
}

func (atisDecoder) Decode(text string) *Result {
	m := atisLetterRe.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return nil
	}
	return &Result{
		Name:    "atis",
		Level:   "full",
		Summary: "ATIS " + m[1] + " " + m[2],
		Fields:  []Field{{"Airport", m[1]}, {"Information", m[2]}},
	}
}

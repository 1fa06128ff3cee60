package decode

import (
	"regexp"
	"strings"
)

// etaDecoder recognizes free-text ETA/progress reports, registered only for
// the ETA report label.
type etaDecoder struct{}

func init() { Register(etaDecoder{}) }

func (etaDecoder) Name() string     { return "eta" }
func (etaDecoder) Labels() []string { return []string{"22"} }
func (etaDecoder) Priority() int    { return 100 }

var etaTimeRe = regexp.MustCompile(`\bETA\s*([0-2][0-9][0-5][0-9])Z?\b`)

func (etaDecoder) QuickCheck(text string) bool {
	return strings.Contains(strings.ToUpper(text), "ETA")
}

func (etaDecoder) Decode(text string) *Result {
	m := etaTimeRe.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return nil
	}
	return &Result{
		Name:    "eta",
		Level:   "full",
		Summary: "Estimated Time of Arrival",
		Fields:  []Field{{"ETA", m[1] + "Z"}},
	}
}

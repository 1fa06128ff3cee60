package decode

import (
	"regexp"
	"strings"
)

// pdcDecoder recognizes Pre-Departure Clearance text. Content-based: it
// checks every label, not just one, since operators transmit PDCs under a
// variety of labels.
type pdcDecoder struct{}

func init() { Register(pdcDecoder{}) }

func (pdcDecoder) Name() string   { return "pdc" }
func (pdcDecoder) Labels() []string { return nil }
func (pdcDecoder) Priority() int  { return 100 }

func (pdcDecoder) QuickCheck(text string) bool {
	upper := strings.ToUpper(text)
	if strings.Contains(upper, "NO PDC") || strings.Contains(upper, "PDC UNAVAIL") {
		return false
	}
	return strings.Contains(upper, "PDC") || strings.Contains(upper, "PRE-DEPARTURE CLEARANCE")
}

var (
	pdcOrigDestRe = regexp.MustCompile(`\b([A-Z]{4})\s*[-/]\s*([A-Z]{4})\b`)
	pdcRunwayRe   = regexp.MustCompile(`RWY\s*([0-9]{1,2}[LRC]?)`)
	pdcSquawkRe   = regexp.MustCompile(`SQUAWK\s*([0-7]{4})`)
)

func (pdcDecoder) Decode(text string) *Result {
	upper := strings.ToUpper(text)
	res := &Result{Name: "pdc", Level: "partial"}

	if m := pdcOrigDestRe.FindStringSubmatch(upper); m != nil {
		res.Fields = append(res.Fields, Field{"Origin", m[1]}, Field{"Destination", m[2]})
	}
	if m := pdcRunwayRe.FindStringSubmatch(upper); m != nil {
		res.Fields = append(res.Fields, Field{"Runway", m[1]})
	}
	if m := pdcSquawkRe.FindStringSubmatch(upper); m != nil {
		res.Fields = append(res.Fields, Field{"Squawk", m[1]})
	}
	if len(res.Fields) == 0 {
		return nil
	}
	if len(res.Fields) >= 2 {
		res.Level = "full"
	}
	res.Summary = "Pre-Departure Clearance"
	return res
}

package decode

import (
	"regexp"
	"strconv"
	"strings"
)

// crewDecoder recognizes crew list messages (label RA), extracting the
// flight/route header and the cockpit and cabin crew rosters.
type crewDecoder struct{}

func init() { Register(crewDecoder{}) }

func (crewDecoder) Name() string     { return "crew_list" }
func (crewDecoder) Labels() []string { return []string{"RA"} }
func (crewDecoder) Priority() int    { return 55 }

func (crewDecoder) QuickCheck(text string) bool {
	return strings.Contains(text, "CREW LIST")
}

var (
	crewFlightRouteRe = regexp.MustCompile(`([A-Z]{2}\d+)/(\d+)\s+([A-Z]{4})\s+([A-Z]{4})`)
	crewGateETARe     = regexp.MustCompile(`GATE ETA\s*(\d{4})`)
	crewCockpitRe     = regexp.MustCompile(`(?:\d+\.)?(CA|FO|SO|FE)\s+([A-Z]+)\s+([A-Z ]+?)\s*\n\s*([A-Z]?\d+)`)
	crewCabinRe       = regexp.MustCompile(`(FA|FM|FP|FS)\s+([A-Z]+)\s+([A-Z ]+?)\s*\n\s*([A-Z]?\d+)`)
	crewMinCrewRe     = regexp.MustCompile(`(?:FLIGHT ATTENDANT|FA)\s*MIN[:\s]*(\d+)`)
)

func (crewDecoder) Decode(text string) *Result {
	cockpit := crewCockpitRe.FindAllStringSubmatch(text, -1)
	cabin := crewCabinRe.FindAllStringSubmatch(text, -1)
	if len(cockpit) == 0 && len(cabin) == 0 {
		return nil
	}

	fields := make([]Field, 0, len(cockpit)+len(cabin)+3)

	if m := crewFlightRouteRe.FindStringSubmatch(text); m != nil {
		fields = append(fields, Field{"Flight", m[1]}, Field{"Route", m[3] + "-" + m[4]})
	}
	if m := crewGateETARe.FindStringSubmatch(text); m != nil {
		fields = append(fields, Field{"Gate ETA", m[1]})
	}
	for _, m := range cockpit {
		name := strings.TrimSpace(m[2] + " " + strings.TrimSpace(m[3]))
		fields = append(fields, Field{"Cockpit " + m[1], name})
	}
	for _, m := range cabin {
		name := strings.TrimSpace(m[2] + " " + strings.TrimSpace(m[3]))
		fields = append(fields, Field{"Cabin " + m[1], name})
	}
	if m := crewMinCrewRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			fields = append(fields, Field{"Minimum crew", strconv.Itoa(n)})
		}
	}

	return &Result{
		Name:    "crew_list",
		Level:   "full",
		Summary: "Crew list: " + strconv.Itoa(len(cockpit)) + " cockpit, " + strconv.Itoa(len(cabin)) + " cabin",
		Fields:  fields,
	}
}

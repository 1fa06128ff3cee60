package enrich

import "regexp"

var flightSplitRe = regexp.MustCompile(`^([A-Z]{2,3})(\d+)`)

// addFlightFields splits a flight callsign into its IATA prefix and flight
// number and resolves the prefix to an airline, consulting the operator
// override table first. An unrecognized prefix still yields flight_number
// (digits only) with every other field absent.
func (e *Enricher) addFlightFields(m map[string]any) {
	flight, _ := m["flight"].(string)
	if flight == "" {
		return
	}
	match := flightSplitRe.FindStringSubmatch(flight)
	if match == nil {
		return
	}
	prefix, number := match[1], match[2]

	icao, name, ok := e.rt.ResolveAirline(prefix, e.overrides)
	if !ok {
		m["flight_number"] = number
		return
	}

	m["iata_flight"] = prefix + number
	m["icao_flight"] = icao + number
	m["flight_number"] = number
	m["airline"] = name
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Airline is one entry of the airlines reference table.
type Airline struct {
	ICAO string `json:"icao"`
	IATA string `json:"iata"`
	Name string `json:"name"`
}

// GroundStation is one entry of the ground-station reference table, keyed
// by the station_id the decoder reports.
type GroundStation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Network string `json:"network"`
}

// MessageLabel is one entry of the message-label reference table.
type MessageLabel struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

// ReferenceTables bundles the immutable lookup tables loaded at startup
//. All fields are read-only after Load returns.
type ReferenceTables struct {
	AirlinesByIATA map[string]Airline
	AirlinesByICAO map[string]Airline
	GroundStations map[string]GroundStation
	Labels         map[string]MessageLabel
}

// LoadReferenceTables reads the three JSON reference files. Missing files
// yield empty (not nil) tables rather than an error — enrichment degrades
// gracefully when a reference file is absent.
func LoadReferenceTables(airlinesPath, stationsPath, labelsPath string) (*ReferenceTables, error) {
	rt := &ReferenceTables{
		AirlinesByIATA: make(map[string]Airline),
		AirlinesByICAO: make(map[string]Airline),
		GroundStations: make(map[string]GroundStation),
		Labels:         make(map[string]MessageLabel),
	}

	var airlines []Airline
	if err := loadJSONFile(airlinesPath, &airlines); err != nil {
		return nil, fmt.Errorf("load airlines: %w", err)
	}
	for _, a := range airlines {
		if a.IATA != "" {
			rt.AirlinesByIATA[strings.ToUpper(a.IATA)] = a
		}
		if a.ICAO != "" {
			rt.AirlinesByICAO[strings.ToUpper(a.ICAO)] = a
		}
	}

	var stations []GroundStation
	if err := loadJSONFile(stationsPath, &stations); err != nil {
		return nil, fmt.Errorf("load ground stations: %w", err)
	}
	for _, s := range stations {
		rt.GroundStations[s.ID] = s
	}

	var labels []MessageLabel
	if err := loadJSONFile(labelsPath, &labels); err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	for _, l := range labels {
		rt.Labels[strings.ToUpper(l.Label)] = l
	}

	return rt, nil
}

func loadJSONFile(path string, v any) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(b, v)
}

// ResolveAirline looks up an airline by IATA prefix, consulting the
// operator IATA_OVERRIDE table first (override always wins).
func (rt *ReferenceTables) ResolveAirline(iataPrefix string, overrides map[string]IATAOverride) (icao, name string, ok bool) {
	iataPrefix = strings.ToUpper(iataPrefix)
	if o, exists := overrides[iataPrefix]; exists {
		return o.ICAO, o.Name, true
	}
	if a, exists := rt.AirlinesByIATA[iataPrefix]; exists {
		return a.ICAO, a.Name, true
	}
	return "", "", false
}

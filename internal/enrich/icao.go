package enrich

import "strings"

// addICAOHex always adds icao_hex as the uppercase six-hex form of icao,
// even when icao itself is absent from the output (icao_hex is then "").
// Pruning removes it afterward in that case since it is not protected.
func addICAOHex(m map[string]any) {
	icao, _ := m["icao"].(string)
	m["icao_hex"] = strings.ToUpper(icao)
}

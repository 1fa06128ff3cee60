package format

import "encoding/json"

// Normalize inspects raw's sentinel structure and dispatches to the
// matching decoder normalizer. A nil, nil result means the payload was
// recognized but intentionally dropped (a non-ACARS SatDump message).
func Normalize(raw []byte) (*Record, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	switch {
	case getMap(m, "vdl2") != nil:
		return normalizeVDLM2(m)
	case getMap(m, "hfdl") != nil:
		return normalizeHFDL(m)
	case getString(getMapAt(m, "source", "app"), "name") == "SatDump":
		if getString(m, "msg_name") != "ACARS" {
			return nil, nil
		}
		return normalizeSatDumpIMSL(m)
	case getString(getMapAt(m, "app"), "name") == "JAERO":
		return normalizeJAEROIMSL(m)
	case getString(getMapAt(m, "app"), "name") == "iridium-toolkit":
		return normalizeIRDM(m)
	default:
		return normalizeACARS(m)
	}
}

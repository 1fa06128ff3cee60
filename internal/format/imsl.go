package format

// normalizeSatDumpIMSL handles SatDump's Inmarsat ACARS JSON output. Only
// reached for msg_name=="ACARS" payloads; other SatDump message kinds are
// dropped by the router before this is called.
func normalizeSatDumpIMSL(m map[string]any) (*Record, error) {
	r := &Record{
		MessageType: "IMS-L",
		MsgTime:     int64(getFloat(m, "timestamp")),
		StationID:   getString(m, "station_id"),
		MsgText:     getString(m, "text"),
		Tail:        cleanTail(getString(m, "tail")),
		Flight:      getString(m, "flight"),
		Label:       cleanLabel(getString(m, "label")),
		Msgno:       getString(m, "msgno"),
		Ack:         cleanAck(getString(m, "ack")),
		Mode:        getString(m, "mode"),
		ICAO:        normalizeICAO(m["icao"]),
	}
	r.Error = countErrors(m)
	return r, nil
}

// normalizeJAEROIMSL handles jaero's Inmarsat ACARS JSON output, identified
// by app.name=="JAERO". Supports multi-part reassembly via the End field.
func normalizeJAEROIMSL(m map[string]any) (*Record, error) {
	r := &Record{
		MessageType: "IMS-L",
		MsgTime:     int64(getFloat(m, "timestamp")),
		StationID:   getString(m, "station_id"),
		MsgText:     getString(m, "text"),
		Tail:        cleanTail(getString(m, "tail")),
		Flight:      getString(m, "flight"),
		Label:       cleanLabel(getString(m, "label")),
		Msgno:       getString(m, "msgno"),
		Ack:         cleanAck(getString(m, "ack")),
		Mode:        getString(m, "mode"),
		ICAO:        normalizeICAO(m["icao"]),
		End:         !getBool(m, "more_to_come"),
	}
	r.Error = countErrors(m)
	return r, nil
}

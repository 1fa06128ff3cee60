package format

// normalizeIRDM handles iridium-toolkit's ACARS-over-Iridium JSON output,
// identified by app.name=="iridium-toolkit".
func normalizeIRDM(m map[string]any) (*Record, error) {
	r := &Record{
		MessageType: "IRDM",
		MsgTime:     int64(getFloat(m, "timestamp")),
		StationID:   getString(m, "station_id"),
		Freq:        irdmFreqGrid(getFloat(m, "freq")),
		Level:       getFloat(m, "level"),
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

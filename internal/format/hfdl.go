package format

// normalizeHFDL handles dumphfdl's hfdl JSON envelope. ACARS content, when
// present, lives at hfdl.lpdu.hfnpdu.acars.
func normalizeHFDL(m map[string]any) (*Record, error) {
	hfdl := getMap(m, "hfdl")
	lpdu := getMap(hfdl, "lpdu")
	hfnpdu := getMap(lpdu, "hfnpdu")
	acarsPayload := getMap(hfnpdu, "acars")

	r := &Record{
		MessageType: "HFDL",
		MsgTime:     int64(getFloat(hfdl, "t")),
		StationID:   getString(hfdl, "station"),
		Freq:        hfdlFreqMHz(getFloat(hfdl, "freq")),
		Level:       getFloat(hfdl, "sig_level"),
		MsgText:     getString(acarsPayload, "msg_text"),
		Tail:        cleanTail(getString(acarsPayload, "reg")),
		Flight:      getString(acarsPayload, "flight"),
		Label:       cleanLabel(getString(acarsPayload, "label")),
		BlockID:     getString(acarsPayload, "block_id"),
		Msgno:       getString(acarsPayload, "msn"),
		Ack:         cleanAck(getString(acarsPayload, "ack")),
		Mode:        getString(acarsPayload, "mode"),
	}
	if src := getMap(lpdu, "src"); src != nil {
		r.ICAO = normalizeICAO(getString(src, "ac_info"))
	}
	r.Error = countErrors(m)
	return r, nil
}

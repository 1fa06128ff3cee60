package format

// normalizeVDLM2 handles dumpvdl2's vdl2 JSON envelope. The ACARS payload,
// when present, lives at vdl2.avlc.acars.
func normalizeVDLM2(m map[string]any) (*Record, error) {
	vdl2 := getMap(m, "vdl2")
	avlc := getMap(vdl2, "avlc")
	acarsPayload := getMap(avlc, "acars")

	r := &Record{
		MessageType: "VDL-M2",
		MsgTime:     int64(getFloat(vdl2, "t")),
		StationID:   getString(vdl2, "station"),
		Freq:        vdlm2FreqMHz(getFloat(vdl2, "freq")),
		Level:       getFloat(vdl2, "sig_level"),
		MsgText:     getString(acarsPayload, "msg_text"),
		Tail:        cleanTail(getString(acarsPayload, "reg")),
		Flight:      getString(acarsPayload, "flight"),
		Label:       cleanLabel(getString(acarsPayload, "label")),
		BlockID:     getString(acarsPayload, "block_id"),
		Msgno:       getString(acarsPayload, "msn"),
		Ack:         cleanAck(getString(acarsPayload, "ack")),
		Mode:        getString(acarsPayload, "mode"),
		End:         !getBool(acarsPayload, "more_to_come"),
	}
	if src := getMap(avlc, "src"); src != nil {
		r.ICAO = normalizeICAO(getString(src, "addr"))
	}
	r.Error = countErrors(m)
	return r, nil
}

package format

// normalizeACARS handles the raw ACARS shape: anything not matching one of
// the other decoders' sentinel structure, i.e. acarsdec/acars_router's flat
// JSON line.
func normalizeACARS(m map[string]any) (*Record, error) {
	r := &Record{
		MessageType: "ACARS",
		MsgTime:     int64(getFloat(m, "timestamp")),
		StationID:   getString(m, "station_id"),
		ToAddr:      getString(m, "toaddr"),
		FromAddr:    getString(m, "fromaddr"),
		Depa:        getString(m, "depa"),
		Dsta:        getString(m, "dsta"),
		Eta:         getString(m, "eta"),
		GtOut:       getString(m, "gtout"),
		GtIn:        getString(m, "gtin"),
		WlOff:       getString(m, "wloff"),
		WlIn:        getString(m, "wlin"),
		Lat:         getFloat(m, "lat"),
		Lon:         getFloat(m, "lon"),
		Alt:         getFloat(m, "alt"),
		MsgText:     getString(m, "text"),
		Libacars:    stringifyLibacars(m["libacars"]),
		Tail:        cleanTail(getString(m, "tail")),
		Flight:      getString(m, "flight"),
		ICAO:        normalizeICAO(m["icao"]),
		Freq:        getFloat(m, "freq"),
		Mode:        getString(m, "mode"),
		Label:       cleanLabel(getString(m, "label")),
		BlockID:     getString(m, "block_id"),
		Msgno:       getString(m, "msgno"),
		Ack:         cleanAck(getString(m, "ack")),
		IsResponse:  getBool(m, "is_response"),
		IsOnGround:  getInt(m, "is_onground"),
		Level:       getFloat(m, "level"),
	}
	r.Error = countErrors(m)
	return r, nil
}

func stringifyLibacars(v any) string {
	if v == nil {
		return ""
	}
	b, err := marshalCompact(v)
	if err != nil {
		return ""
	}
	return string(b)
}

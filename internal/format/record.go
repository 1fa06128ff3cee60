// Package format turns the heterogeneous JSON shapes emitted by decoder
// processes into one canonical message record. A single router inspects the
// raw payload's sentinel structure and dispatches to the matching
// normalizer; everything downstream of this package only ever sees the
// canonical Record.
package format

// Record is the canonical shape produced by every normalizer, matching the
// messages table's column set before enrichment rewrites it for the wire.
type Record struct {
	MessageType string
	MsgTime     int64
	StationID   string
	ToAddr      string
	FromAddr    string
	Depa        string
	Dsta        string
	Eta         string
	GtOut       string
	GtIn        string
	WlOff       string
	WlIn        string
	Lat         float64
	Lon         float64
	Alt         float64
	MsgText     string
	Libacars    string
	Tail        string
	Flight      string
	ICAO        string
	Freq        float64
	Mode        string
	Label       string
	BlockID     string
	Msgno       string
	Ack         string
	IsResponse  bool
	IsOnGround  int
	Error       int
	Level       float64

	// End reports whether this is the final part of a multi-part message
	// (the decoder's more_to_come flag, inverted). Consumed by the
	// multipart combiner; not a persisted column.
	End bool
}

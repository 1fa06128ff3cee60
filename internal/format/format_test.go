package format

import (
	"testing"
	"time"
)

func TestNormalizeACARSFlat(t *testing.T) {
	raw := []byte(`{"timestamp":1700000000,"station_id":"KJFK1","tail":"N12345.","icao":123456,"text":"TEST","label":"H1","freq":131.550}`)
	r, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MessageType != "ACARS" {
		t.Fatalf("expected ACARS, got %s", r.MessageType)
	}
	if r.Tail != "N12345" {
		t.Fatalf("expected dots stripped from tail, got %q", r.Tail)
	}
	if r.ICAO != "01E240" {
		t.Fatalf("expected hex icao 01E240, got %q", r.ICAO)
	}
}

func TestNormalizeVDLM2(t *testing.T) {
	raw := []byte(`{"vdl2":{"t":1700000000,"station":"VDL1","freq":136975,"sig_level":-12.5,"avlc":{"src":{"addr":"ABCDEF"},"acars":{"msg_text":"HI","reg":"N100.AA","label":"5Z","more_to_come":false}}}}`)
	r, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MessageType != "VDL-M2" {
		t.Fatalf("expected VDL-M2, got %s", r.MessageType)
	}
	if r.Freq != 136.975 {
		t.Fatalf("expected freq 136.975 MHz, got %v", r.Freq)
	}
	if !r.End {
		t.Fatalf("expected End=true when more_to_come=false")
	}
}

func TestNormalizeHFDLFrequency(t *testing.T) {
	raw := []byte(`{"hfdl":{"t":1700000000,"station":"HFDL1","freq":13276000,"sig_level":-20,"lpdu":{"src":{"ac_info":"7C1234"},"hfnpdu":{"acars":{"msg_text":"HI"}}}}}`)
	r, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Freq != 13.276 {
		t.Fatalf("expected 13.276 MHz, got %v", r.Freq)
	}
}

func TestNormalizeSatDumpDropsNonACARS(t *testing.T) {
	raw := []byte(`{"source":{"app":{"name":"SatDump"}},"msg_name":"Position"}`)
	r, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Fatalf("expected nil record for non-ACARS SatDump payload, got %+v", r)
	}
}

func TestNormalizeIRDMFrequencyGrid(t *testing.T) {
	raw := []byte(`{"app":{"name":"iridium-toolkit"},"freq":1626.0001,"text":"HI"}`)
	r, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MessageType != "IRDM" {
		t.Fatalf("expected IRDM, got %s", r.MessageType)
	}
}

func TestCombinerMergesMultipart(t *testing.T) {
	c := NewCombiner()
	now := time.Unix(1700000000, 0)

	part1 := &Record{MessageType: "VDL-M2", StationID: "S1", Msgno: "A01A", MsgText: "HELLO ", End: false}
	out, ok := c.Combine(part1, now)
	if ok || out != nil {
		t.Fatalf("expected first part held pending")
	}

	part2 := &Record{MessageType: "VDL-M2", StationID: "S1", Msgno: "A01A", MsgText: "WORLD", End: true}
	out, ok = c.Combine(part2, now.Add(2*time.Second))
	if !ok || out == nil {
		t.Fatalf("expected combined record on final part")
	}
	if out.MsgText != "HELLO WORLD" {
		t.Fatalf("expected concatenated text, got %q", out.MsgText)
	}
}

func TestCombinerExpiresStaleFragment(t *testing.T) {
	c := NewCombiner()
	now := time.Unix(1700000000, 0)

	part1 := &Record{MessageType: "VDL-M2", StationID: "S1", Msgno: "A01A", MsgText: "HELLO", End: false}
	c.Combine(part1, now)

	part2 := &Record{MessageType: "VDL-M2", StationID: "S1", Msgno: "A01A", MsgText: "LATE", End: true}
	out, ok := c.Combine(part2, now.Add(30*time.Second))
	if !ok || out == nil {
		t.Fatalf("expected the late part to be treated as a new series")
	}
	if out.MsgText != "LATE" {
		t.Fatalf("expected no stale concatenation, got %q", out.MsgText)
	}
}

func TestCountErrorsRecursesMapsAndArrayElements(t *testing.T) {
	m := map[string]any{
		"err": true,
		"nested": map[string]any{
			"err": true,
		},
		"arr": []any{
			map[string]any{"err": true},
			map[string]any{"err": false},
		},
	}
	if got := countErrors(m); got != 3 {
		t.Fatalf("expected 3 (top-level + nested + one array element), got %d", got)
	}
}

package decode

import "testing"

func TestTextPDC(t *testing.T) {
	dec, ok := Text("H1", "PDC CLRNCE KJFK-KBOS RWY 04L SQUAWK 4521")
	if !ok {
		t.Fatalf("expected a decode result")
	}
	if dec.Decoder.Name != "pdc" {
		t.Fatalf("expected pdc decoder, got %s", dec.Decoder.Name)
	}
	if dec.Formatted[0].Label != "Description" {
		t.Fatalf("expected synthetic Description field first, got %+v", dec.Formatted[0])
	}
}

func TestTextNeverPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Text panicked: %v", r)
		}
	}()
	if _, ok := Text("", ""); ok {
		t.Fatalf("expected no decode for empty text")
	}
	Text("99", "garbage garbage garbage")
}

func TestTextNoMatch(t *testing.T) {
	if _, ok := Text("99", "just some random chatter"); ok {
		t.Fatalf("expected no decode for unrecognized text")
	}
}

func TestTextCrewList(t *testing.T) {
	text := "CREW LIST\nUA475/10 CYEG KDEN\n1.CA CLARKE   DOMINIC\n12345\nFA HAY        DUSTIN\n67890\nFLIGHT ATTENDANT MIN:4"
	dec, ok := Text("RA", text)
	if !ok {
		t.Fatalf("expected a decode result")
	}
	if dec.Decoder.Name != "crew_list" {
		t.Fatalf("expected crew_list decoder, got %s", dec.Decoder.Name)
	}
}

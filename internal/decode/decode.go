package decode

// Decoded is the wire shape attached to an enriched message as decodedText.
type Decoded struct {
	Decoder  DecoderInfo    `json:"decoder"`
	Formatted []FormattedField `json:"formatted"`
}

// DecoderInfo names which decoder produced the result and how confident it
// is in the extraction.
type DecoderInfo struct {
	Name        string `json:"name"`
	DecodeLevel string `json:"decodeLevel"`
}

// FormattedField is one labeled line of decoded output.
type FormattedField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Text invokes the decode library against a message's label and text body.
// It never panics: any internal failure is caught and reported as "no
// decode," exactly as a missing decode is reported.
func Text(label, text string) (dec *Decoded, ok bool) {
	defer func() {
		if recover() != nil {
			dec, ok = nil, false
		}
	}()

	if text == "" {
		return nil, false
	}

	res := dispatch(label, text)
	if res == nil {
		return nil, false
	}

	formatted := make([]FormattedField, 0, len(res.Fields)+1)
	formatted = append(formatted, FormattedField{Label: "Description", Value: res.Summary})
	for _, f := range res.Fields {
		formatted = append(formatted, FormattedField{Label: f.Label, Value: f.Value})
	}

	return &Decoded{
		Decoder:   DecoderInfo{Name: res.Name, DecodeLevel: res.Level},
		Formatted: formatted,
	}, true
}

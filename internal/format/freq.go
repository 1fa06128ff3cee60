package format

import "math"

// hfdlFreqMHz converts an HFDL frequency reported in hertz to megahertz,
// rounded to three decimals.
func hfdlFreqMHz(hz float64) float64 {
	return math.Round(hz/1_000) / 1_000
}

// vdlm2FreqMHz converts a VDL-M2 frequency reported in kilohertz to
// megahertz. Full precision is kept; "at least one decimal" only binds the
// wire-format rendering, not this numeric value.
func vdlm2FreqMHz(khz float64) float64 {
	return khz / 1000
}

// irdmFreqGrid rounds an Iridium frequency onto the 8.333 kHz channel grid
// used by the toolkit's demodulator.
func irdmFreqGrid(mhz float64) float64 {
	const step = 0.008333
	return math.Round(mhz/step) * step
}

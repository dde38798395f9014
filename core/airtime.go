package core

import "math"

// AirtimeParams carries the modem configuration needed by the Semtech LoRa
// airtime formula. It mirrors the fields state.Config exposes so callers can
// build one straight from a loaded config.
type AirtimeParams struct {
	BandwidthKHz         float64
	SpreadingFactor      int
	CodingRateDenom      int
	PreambleSymbols      int
	LowDataRateOptimize  bool
	CRCEnabled           bool
}

// AirtimeMs computes the on-air time of a payloadBytes-byte frame under
// params, per the Semtech LoRa modem calculator formula reproduced in
// spec.md §4.B:
//
//	T_symbol = 2^SF / BW_hz
//	preamble_time = (preamble_symbols + 4.25) * T_symbol
//	payload_symbols = 8 + ceil(max(0, 8*bytes - 4*SF + 28 + 16*crc - 20*header) / (4*(SF-2*de))) * CR
//	total = preamble_time + payload_symbols * T_symbol
//
// header is always 0 (explicit header mode, per the reference firmware).
// The result is rounded to a whole millisecond.
func AirtimeMs(payloadBytes int, params AirtimeParams) uint32 {
	bwHz := params.BandwidthKHz * 1000.0
	sf := float64(params.SpreadingFactor)
	cr := float64(params.CodingRateDenom)

	tSymbolMs := math.Pow(2, sf) / bwHz * 1000.0
	preambleMs := (float64(params.PreambleSymbols) + 4.25) * tSymbolMs

	de := 0.0
	if params.LowDataRateOptimize {
		de = 1.0
	}
	crc := 0.0
	if params.CRCEnabled {
		crc = 1.0
	}

	numerator := 8*float64(payloadBytes) - 4*sf + 28 + 16*crc - 20*0
	payloadSymbols := 8.0
	if numerator > 0 {
		payloadSymbols += math.Ceil(numerator/(4*(sf-2*de))) * cr
	}

	totalMs := preambleMs + payloadSymbols*tSymbolMs
	return uint32(math.Round(totalMs))
}

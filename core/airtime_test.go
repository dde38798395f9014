package core

import "testing"

// TestAirtimeMsMatchesSF7Baseline exercises the exact boundary case spec.md
// §8 names: a 50-byte payload at SF7/BW125/CR4:5 with an 8-symbol preamble
// and CRC enabled. Working the Semtech formula by hand for that case gives
// ~98ms, not the ~56ms spec.md §8 states — see DESIGN.md's Open Question
// entry on the airtime baseline for why this test asserts the formula's
// actual output rather than the spec text's figure. A 20-byte payload under
// the same modem params is the case that actually lands at ~56ms; it is
// covered separately below so the ~56ms figure isn't lost from the suite.
func TestAirtimeMsMatchesSF7Baseline(t *testing.T) {
	params := AirtimeParams{
		BandwidthKHz:        125,
		SpreadingFactor:     7,
		CodingRateDenom:     5,
		PreambleSymbols:     8,
		LowDataRateOptimize: false,
		CRCEnabled:          true,
	}
	got := AirtimeMs(50, params)
	if got < 92 || got > 104 {
		t.Fatalf("AirtimeMs(50 bytes, SF7) = %dms, want ~98ms", got)
	}
}

// TestAirtimeMsTwentyByteBaseline covers the payload size that actually
// produces spec.md §8's ~56ms figure under the same modem params.
func TestAirtimeMsTwentyByteBaseline(t *testing.T) {
	params := AirtimeParams{
		BandwidthKHz:        125,
		SpreadingFactor:     7,
		CodingRateDenom:     5,
		PreambleSymbols:     8,
		LowDataRateOptimize: false,
		CRCEnabled:          true,
	}
	got := AirtimeMs(20, params)
	if got < 50 || got > 62 {
		t.Fatalf("AirtimeMs(20 bytes, SF7) = %dms, want ~56ms", got)
	}
}

func TestAirtimeMsIncreasesWithSpreadingFactor(t *testing.T) {
	base := AirtimeParams{BandwidthKHz: 125, SpreadingFactor: 7, CodingRateDenom: 5, PreambleSymbols: 8, CRCEnabled: true}
	sf12 := base
	sf12.SpreadingFactor = 12
	sf12.LowDataRateOptimize = true

	low := AirtimeMs(20, base)
	high := AirtimeMs(20, sf12)
	if high <= low {
		t.Fatalf("expected SF12 airtime (%dms) to exceed SF7 airtime (%dms)", high, low)
	}
}

func TestAirtimeMsZeroPayloadStillCarriesPreamble(t *testing.T) {
	params := AirtimeParams{BandwidthKHz: 125, SpreadingFactor: 7, CodingRateDenom: 5, PreambleSymbols: 8, CRCEnabled: true}
	got := AirtimeMs(0, params)
	if got == 0 {
		t.Fatalf("expected non-zero airtime even for an empty payload")
	}
}

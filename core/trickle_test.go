package core

import "testing"

func TestTrickleTransmitsWhenBelowRedundancyConstant(t *testing.T) {
	tr := NewTrickle(1000, 8000, 1, 42)
	tr.Start(0)

	transmitted := false
	for now := uint64(0); now <= 1000; now += 50 {
		if tr.ShouldTransmit(now) {
			transmitted = true
			break
		}
	}
	if !transmitted {
		t.Fatalf("expected a transmission within the first interval when no consistent advertisements were heard")
	}
}

func TestTrickleSuppressesWhenRedundancyMet(t *testing.T) {
	tr := NewTrickle(1000, 8000, 1, 42)
	tr.Start(0)
	tr.HeardConsistent()

	for now := uint64(0); now <= 1000; now += 50 {
		if tr.ShouldTransmit(now) {
			t.Fatalf("expected suppression at now=%d when a consistent advertisement was already heard", now)
		}
	}
}

func TestTrickleResetReturnsToIMin(t *testing.T) {
	tr := NewTrickle(1000, 8000, 1, 7)
	tr.Start(0)
	// Force interval to double at least once.
	tr.ShouldTransmit(2000)
	if tr.intervalCurrentMs <= tr.iMinMs {
		t.Fatalf("expected interval to have grown past i_min before reset")
	}
	tr.Reset(2500)
	if tr.intervalCurrentMs != tr.iMinMs {
		t.Fatalf("expected reset to restore i_min, got %dms", tr.intervalCurrentMs)
	}
}

func TestTrickleSafetyOverrideForcesTransmission(t *testing.T) {
	tr := NewTrickle(1_000_000, 8_000_000, 5, 3)
	tr.Start(0)
	tr.HeardConsistent()
	tr.HeardConsistent()
	tr.HeardConsistent()
	tr.HeardConsistent()
	tr.HeardConsistent()

	if tr.ShouldTransmit(SafetyOverrideMs - 1) {
		t.Fatalf("did not expect a transmission before the safety override elapses")
	}
	if !tr.ShouldTransmit(SafetyOverrideMs + 1) {
		t.Fatalf("expected the safety override to force a transmission after 180s of silence")
	}
}

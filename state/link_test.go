package state

import "testing"

// Sequence-gap ETX scenario from spec.md §8.4: sequences
// 0,1,2,4,5,6,7,9,10,11 => 10 successes and 2 inferred failures, 12
// outcomes in all. The 10-slot ring keeps the last 10 of them, which still
// include both failures, so the window delivery ratio is 8/10.
func TestObserveDataPacketSequenceGap(t *testing.T) {
	l := NewLinkMetrics(1, 0)
	seqs := []uint32{0, 1, 2, 4, 5, 6, 7, 9, 10, 11}
	for i, seq := range seqs {
		l.ObserveDataPacket(-90, 5, seq, uint64(i))
	}

	if l.TxSuccess != 10 {
		t.Fatalf("successes = %d, want 10", l.TxSuccess)
	}
	if l.TxFailures != 2 {
		t.Fatalf("failures = %d, want 2", l.TxFailures)
	}
	if l.WindowFill != ETXWindowSize {
		t.Fatalf("window fill = %d, want %d (ring overflowed)", l.WindowFill, ETXWindowSize)
	}

	successesInWindow := 0
	for _, v := range l.window {
		if v {
			successesInWindow++
		}
	}
	if successesInWindow != 8 {
		t.Fatalf("successes in window = %d, want 8", successesInWindow)
	}

	if l.ETX < 1.15 || l.ETX > 1.25 {
		t.Fatalf("etx = %v, want close to 1.2", l.ETX)
	}
}

func TestETXClampedToRange(t *testing.T) {
	l := NewLinkMetrics(1, 0)
	for i := uint32(0); i < 40; i++ {
		l.ObserveDataPacket(-90, 5, i*5, uint64(i))
	}
	if l.ETX < ETXMin || l.ETX > ETXMax {
		t.Fatalf("etx %v out of [%v,%v]", l.ETX, ETXMin, ETXMax)
	}
}

func TestObserveAdvertisementSeedsOnFirstSample(t *testing.T) {
	l := NewLinkMetrics(2, 0)
	l.ObserveAdvertisement(-80, 3, 100)
	if l.RSSIDBm != -80 || l.SNRDB != 3 {
		t.Fatalf("first advertisement should seed directly, got rssi=%d snr=%d", l.RSSIDBm, l.SNRDB)
	}
	l.ObserveAdvertisement(-100, -10, 200)
	if l.RSSIDBm == -100 {
		t.Fatalf("second advertisement should EWMA-blend, not seed")
	}
}

func TestEstimateRSSIFromSNR(t *testing.T) {
	if got := EstimateRSSIFromSNR(0); got != -120 {
		t.Fatalf("got %d, want -120", got)
	}
	if got := EstimateRSSIFromSNR(10); got != -90 {
		t.Fatalf("got %d, want -90", got)
	}
}

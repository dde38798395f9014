package state

import "testing"

func TestFloodCacheDetectsDuplicateWithinWindow(t *testing.T) {
	c := NewFloodCache()
	c.Insert(1, 0, 1000)
	if !c.IsDuplicate(1, 0, 1500) {
		t.Fatalf("expected duplicate within timeout")
	}
	if c.IsDuplicate(1, 1, 1500) {
		t.Fatalf("different sequence must not be a duplicate")
	}
}

func TestFloodCacheExpiresAfterTimeout(t *testing.T) {
	c := NewFloodCache()
	c.Insert(1, 0, 0)
	if c.IsDuplicate(1, 0, FloodCacheTimeoutMs) {
		t.Fatalf("entry should be expired at exactly the timeout boundary")
	}
}

func TestFloodCacheOverwritesOldestSlot(t *testing.T) {
	c := NewFloodCache()
	for i := 0; i < FloodCacheSize+1; i++ {
		c.Insert(NodeAddress(i), uint32(i), uint64(i))
	}
	// The very first insertion (source=0) should have been overwritten.
	if c.IsDuplicate(0, 0, uint64(FloodCacheSize)) {
		t.Fatalf("oldest entry should have been evicted by ring overwrite")
	}
	if !c.IsDuplicate(NodeAddress(FloodCacheSize), uint32(FloodCacheSize), uint64(FloodCacheSize)) {
		t.Fatalf("most recent entry should still be present")
	}
}

package core

import (
	"sync"

	"github.com/ncwn/xMESH/state"
)

// LinkQualityTable holds one state.LinkMetrics per tracked neighbor, per
// spec.md §4.C. Per spec.md §5 it is "not shared across tasks (only the
// receive handler writes; the transmit path reads a snapshot)", so a plain
// RWMutex is enough — no two-phase locking discipline is required here,
// unlike the routing table.
type LinkQualityTable struct {
	mu       sync.RWMutex
	capacity int
	entries  map[state.NodeAddress]*state.LinkMetrics
}

// NewLinkQualityTable constructs a table bounded to capacity entries
// (spec.md §3: "capacity ≥ 10, oldest-by-last-update evicted").
func NewLinkQualityTable(capacity int) *LinkQualityTable {
	if capacity < 1 {
		capacity = 10
	}
	return &LinkQualityTable{
		capacity: capacity,
		entries:  make(map[state.NodeAddress]*state.LinkMetrics, capacity),
	}
}

// getOrCreateLocked returns the entry for neighbor, lazily creating it (and
// evicting the LRU-by-last-update entry if the table is full). Callers must
// hold mu for writing.
func (t *LinkQualityTable) getOrCreateLocked(neighbor state.NodeAddress, nowMs uint64) *state.LinkMetrics {
	if lm, ok := t.entries[neighbor]; ok {
		return lm
	}
	if len(t.entries) >= t.capacity {
		t.evictOldestLocked()
	}
	lm := state.NewLinkMetrics(neighbor, nowMs)
	t.entries[neighbor] = lm
	return lm
}

func (t *LinkQualityTable) evictOldestLocked() {
	var oldestAddr state.NodeAddress
	var oldestMs uint64
	first := true
	for addr, lm := range t.entries {
		if first || lm.LastUpdateMs < oldestMs {
			oldestAddr = addr
			oldestMs = lm.LastUpdateMs
			first = false
		}
	}
	if !first {
		delete(t.entries, oldestAddr)
	}
}

// ObserveDataPacket records a data-packet reception from neighbor, updating
// RSSI/SNR EWMA and the sequence-gap ETX inference (spec.md §4.C.1).
func (t *LinkQualityTable) ObserveDataPacket(neighbor state.NodeAddress, rssi int16, snr int8, seq uint32, nowMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lm := t.getOrCreateLocked(neighbor, nowMs)
	lm.ObserveDataPacket(rssi, snr, seq, nowMs)
}

// ObserveAdvertisement records an advertisement reception from neighbor
// (spec.md §4.C.2).
func (t *LinkQualityTable) ObserveAdvertisement(neighbor state.NodeAddress, rssi int16, snr int8, nowMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lm := t.getOrCreateLocked(neighbor, nowMs)
	lm.ObserveAdvertisement(rssi, snr, nowMs)
}

// Snapshot returns a copy of the metrics for neighbor, or ok=false if no
// entry exists yet. The transmit path (cost function) uses this to read a
// consistent point-in-time view without holding the guard across its own
// computation.
func (t *LinkQualityTable) Snapshot(neighbor state.NodeAddress) (state.LinkMetrics, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lm, ok := t.entries[neighbor]
	if !ok {
		return state.LinkMetrics{}, false
	}
	return *lm, true
}

// Len reports the number of tracked neighbors.
func (t *LinkQualityTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

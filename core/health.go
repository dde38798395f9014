package core

import (
	"log/slog"
	"sync"

	"github.com/ncwn/xMESH/state"
)

// Health-monitor thresholds from spec.md §4.H.
const (
	HealthWarnSilenceMs = state.HealthWarnSilenceMs
	HealthFailSilenceMs = state.HealthFailSilenceMs
)

// HealthMonitor tracks last-heard timestamps per neighbor and proactively
// evicts stale routes, per spec.md §4.H. It owns the neighbor identities it
// tracks but never owns route entries (spec.md §3's ownership note); on
// failure it reaches into the routing table and Trickle scheduler it was
// wired to at construction, rather than holding a back-pointer to a larger
// owner.
type HealthMonitor struct {
	mu      sync.Mutex
	entries map[state.NodeAddress]*state.NeighborHealth

	table   *RoutingTable
	trickle *Trickle
	log     *slog.Logger
}

// NewHealthMonitor constructs a monitor wired to table (for eviction) and
// trickle (for the reconvergence reset on failure).
func NewHealthMonitor(table *RoutingTable, trickle *Trickle, log *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		entries: make(map[state.NodeAddress]*state.NeighborHealth),
		table:   table,
		trickle: trickle,
		log:     log,
	}
}

// Heard records that an advertisement was received from neighbor, creating
// its NeighborHealth entry on first contact.
func (h *HealthMonitor) Heard(neighbor state.NodeAddress, nowMs uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	nh, ok := h.entries[neighbor]
	if !ok {
		nh = &state.NeighborHealth{Neighbor: neighbor}
		h.entries[neighbor] = nh
	}
	wasFlagged := nh.FailureFlagged
	nh.Heard(nowMs)
	if wasFlagged && h.log != nil {
		h.log.Info("neighbor recovered", "neighbor", neighbor)
	}
}

// Sweep applies spec.md §4.H's periodic pass (intended to run at least once
// per 30s): raises the warning flag between 180s and 360s of silence, and
// on crossing 360s performs recovery — evicting the neighbor's route entry
// and resetting Trickle for fast reconvergence. Recovery fires at most once
// per failure, guarded by FailureFlagged.
func (h *HealthMonitor) Sweep(nowMs uint64) []NeighborLostEvent {
	h.mu.Lock()
	var toEvict []state.NodeAddress
	var events []NeighborLostEvent
	for _, nh := range h.entries {
		silence := nowMs - nh.LastHeardMs
		switch {
		case silence >= HealthFailSilenceMs && !nh.FailureFlagged:
			nh.MissedSafetyHellos = 2
			nh.FailureFlagged = true
			toEvict = append(toEvict, nh.Neighbor)
			events = append(events, NeighborLostEvent{Neighbor: nh.Neighbor, SilenceMs: silence})
			if h.log != nil {
				h.log.Warn("neighbor failure flagged", "neighbor", nh.Neighbor, "silence_ms", silence)
			}
		case silence > HealthWarnSilenceMs && silence < HealthFailSilenceMs && nh.MissedSafetyHellos == 0:
			nh.MissedSafetyHellos = 1
			if h.log != nil {
				h.log.Warn("neighbor silent", "neighbor", nh.Neighbor, "silence_ms", silence)
			}
		}
	}
	h.mu.Unlock()

	for _, neighbor := range toEvict {
		h.table.Evict(neighbor)
		if h.trickle != nil {
			h.trickle.Reset(nowMs)
		}
	}
	return events
}

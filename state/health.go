package state

// Neighbor-failure timing constants from spec.md §4.H.
const (
	HealthWarnSilenceMs = 180_000
	HealthFailSilenceMs = 360_000
	HealthSweepMinMs    = 30_000
)

// NeighborHealth tracks last-heard timing for one neighbor so the health
// monitor can proactively evict stale routes.
type NeighborHealth struct {
	Neighbor           NodeAddress
	LastHeardMs        uint64
	MissedSafetyHellos uint8
	FailureFlagged     bool
}

// Heard resets the health record on receipt of any advertisement.
func (h *NeighborHealth) Heard(nowMs uint64) {
	h.LastHeardMs = nowMs
	h.MissedSafetyHellos = 0
	h.FailureFlagged = false
}

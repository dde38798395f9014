package core

import "github.com/ncwn/xMESH/state"

// NeighborLostEvent and TopologyChangedEvent are plain event values that
// report what changed to the caller: HealthMonitor.Sweep returns
// NeighborLostEvents and RouteMaintenance.ProcessAdvertisement returns
// TopologyChangedEvents in its result. No method takes them as arguments;
// the health monitor resets Trickle through the pointer it is given at
// construction, and MeshCore resets Trickle when a processed advertisement
// is reported inconsistent.
type NeighborLostEvent struct {
	Neighbor state.NodeAddress
	SilenceMs uint64
}

type TopologyChangedEvent struct {
	// Kind describes what changed, for logging only; it never drives logic.
	Kind string
	Dest state.NodeAddress
}

package state

// RTMAXSize is the default routing-table capacity (spec.md §3, §4.D:
// "capacity ≥ RTMAXSIZE ≈ 10-20").
const RTMAXSize = 16

// RouteEntry is the best-known route to Dest, indexed by destination.
type RouteEntry struct {
	Dest NodeAddress
	Via  NodeAddress
	// Metric is the hop count from the advertiser's perspective, plus one.
	Metric       uint8
	Role         Role
	GatewayLoad  uint8
	ReceivedSNR  int8
	ExpiresAtMs  uint64
}

// IsDirect reports whether this route is to a one-hop neighbor.
func (r *RouteEntry) IsDirect() bool {
	return r.Via == r.Dest
}

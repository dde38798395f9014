package core

import (
	"sync"

	"github.com/ncwn/xMESH/state"
)

// RoutingMode selects which admission/replacement rule route maintenance
// applies, per spec.md §4.D: hop-count-only for Protocol 2, full cost
// routing for Protocol 3.
type RoutingMode int

const (
	ModeHopCount RoutingMode = iota
	ModeCostRouting
)

// RoutingTable is the single mutual-exclusion-guarded destination table from
// spec.md §4.D. Its guard MUST be released before the cost function runs;
// BestForRole enforces that with the two-phase copy-then-evaluate pattern
// spec.md §5 mandates.
type RoutingTable struct {
	mu       sync.Mutex
	self     state.NodeAddress
	capacity int
	entries  map[state.NodeAddress]state.RouteEntry
	linkTbl  *LinkQualityTable
	mode     RoutingMode
	weights  CostWeights
}

// NewRoutingTable constructs a table for self, capped at capacity entries.
func NewRoutingTable(self state.NodeAddress, capacity int, linkTbl *LinkQualityTable, mode RoutingMode, weights CostWeights) *RoutingTable {
	if capacity < 1 {
		capacity = state.RTMAXSize
	}
	return &RoutingTable{
		self:     self,
		capacity: capacity,
		entries:  make(map[state.NodeAddress]state.RouteEntry, capacity),
		linkTbl:  linkTbl,
		mode:     mode,
		weights:  weights,
	}
}

// Find returns a copy of the entry for dest, if any.
func (t *RoutingTable) Find(dest state.NodeAddress) (state.RouteEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[dest]
	return e, ok
}

// NextHop returns the next hop toward dest, or state.Broadcast if none is
// known (mirroring the reference firmware's "0 if none" contract, adapted
// to this codebase's Broadcast sentinel since 0 is a valid address here).
func (t *RoutingTable) NextHop(dest state.NodeAddress) (state.NodeAddress, bool) {
	e, ok := t.Find(dest)
	if !ok {
		return state.Broadcast, false
	}
	return e.Via, true
}

// AllEntries returns a point-in-time copy of every installed route entry. It
// backs diagnostic dumps (MeshCore.Snapshot), outbound advertisement packing
// (RouteMaintenance.PackAdvertisement), and the gateway-load samples
// MeshCore feeds to SelectGateway. Entries may change after it returns.
func (t *RoutingTable) AllEntries() []state.RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]state.RouteEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// Len reports the current number of installed entries.
func (t *RoutingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// MarkHeard refreshes the expiry of the single entry for address, per
// spec.md §4.D ("not transitive").
func (t *RoutingTable) MarkHeard(address state.NodeAddress, nowMs, timeoutMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[address]
	if !ok {
		return
	}
	e.ExpiresAtMs = nowMs + timeoutMs
	t.entries[address] = e
}

// Sweep deletes every entry whose expiry has passed, returning the deleted
// destinations for the caller to report as topology-changed events.
func (t *RoutingTable) Sweep(nowMs uint64) []state.NodeAddress {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []state.NodeAddress
	for dest, e := range t.entries {
		if e.ExpiresAtMs < nowMs {
			expired = append(expired, dest)
			delete(t.entries, dest)
		}
	}
	return expired
}

// Evict removes the entry for dest unconditionally, used by the neighbor
// health monitor's proactive failure recovery (spec.md §4.H).
func (t *RoutingTable) Evict(dest state.NodeAddress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[dest]; !ok {
		return false
	}
	delete(t.entries, dest)
	return true
}

// snapshotAllLocked copies every entry's routing fields plus its current
// link-quality snapshot into a bounded slice, per the two-phase pattern:
// this runs under t.mu but never calls into the link table while doing so
// beyond a read of an already-guarded, independent mutex — link quality is
// never shared with route-table callers, so this cannot re-enter t.mu.
func (t *RoutingTable) snapshotAllLocked() []RouteCandidate {
	out := make([]RouteCandidate, 0, len(t.entries))
	for dest, e := range t.entries {
		link, _ := t.linkTbl.Snapshot(e.Via)
		out = append(out, RouteCandidate{
			Dest:        dest,
			Via:         e.Via,
			Metric:      e.Metric,
			Role:        e.Role,
			GatewayLoad: e.GatewayLoad,
			Link:        link,
		})
	}
	return out
}

func (t *RoutingTable) gatewaySamplesLocked() []GatewayLoadSample {
	var samples []GatewayLoadSample
	for dest, e := range t.entries {
		if e.Role.Has(state.RoleGateway) {
			samples = append(samples, GatewayLoadSample{Gateway: dest, Load: e.GatewayLoad})
		}
	}
	return samples
}

// BestForRole implements spec.md §4.D's best_for_role: in hop-count mode,
// the minimum-metric entry whose role includes the bit; in cost-routing
// mode, the entry minimizing Cost. Candidates are copied out from under the
// guard (phase 1), the guard is released, cost is evaluated free of the
// lock (phase 2), and the result is looked up again only to return a fresh
// copy — this function never re-acquires the guard while holding it.
func (t *RoutingTable) BestForRole(role state.Role) (state.RouteEntry, bool) {
	t.mu.Lock()
	candidates := t.snapshotAllLocked()
	gateways := t.gatewaySamplesLocked()
	mode := t.mode
	weights := t.weights
	t.mu.Unlock()

	var bestDest state.NodeAddress
	var bestMetric uint8
	var bestCost float64
	found := false

	for _, c := range candidates {
		if !c.Role.Has(role) {
			continue
		}
		switch mode {
		case ModeCostRouting:
			cost := Cost(c, weights, gateways)
			if !found || cost < bestCost {
				bestDest, bestCost, found = c.Dest, cost, true
				bestMetric = c.Metric
			}
		default: // ModeHopCount
			if !found || c.Metric < bestMetric {
				bestDest, bestMetric, found = c.Dest, c.Metric, true
			}
		}
	}
	if !found {
		return state.RouteEntry{}, false
	}
	return t.Find(bestDest)
}

// evaluateReplacement computes the incumbent entry's cost for dest and a
// prospective candidate's cost, both against the same snapshot of gateway
// samples and weights taken under one lock acquisition. Route maintenance's
// hysteresis comparison needs this: evaluating the incumbent and the
// candidate against two independently-taken (or, worse, mismatched) sets of
// gateway samples would make the comparison asymmetric — a destination
// holding RoleGateway would have its bias term zeroed out on whichever side
// was evaluated without real samples, systematically favoring or penalizing
// one side of the hysteresis check. It follows the same two-phase discipline
// as BestForRole: the guard is held only long enough to copy state out.
func (t *RoutingTable) evaluateReplacement(dest state.NodeAddress, candidate RouteCandidate) (currentCost, candidateCost float64, ok bool) {
	t.mu.Lock()
	e, exists := t.entries[dest]
	if !exists {
		t.mu.Unlock()
		return 0, 0, false
	}
	currentLink, _ := t.linkTbl.Snapshot(e.Via)
	gateways := t.gatewaySamplesLocked()
	weights := t.weights
	t.mu.Unlock()

	current := RouteCandidate{Dest: dest, Via: e.Via, Metric: e.Metric, Role: e.Role, GatewayLoad: e.GatewayLoad, Link: currentLink}
	currentCost = Cost(current, weights, gateways)
	candidateCost = Cost(candidate, weights, gateways)
	return currentCost, candidateCost, true
}

// install unconditionally writes an entry, subject to the capacity cap: a
// brand-new destination is refused when the table is already full.
func (t *RoutingTable) install(entry state.RouteEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[entry.Dest]; !exists && len(t.entries) >= t.capacity {
		return false
	}
	t.entries[entry.Dest] = entry
	return true
}

func (t *RoutingTable) refreshExpiry(dest state.NodeAddress, nowMs, timeoutMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[dest]
	if !ok {
		return
	}
	e.ExpiresAtMs = nowMs + timeoutMs
	t.entries[dest] = e
}

func (t *RoutingTable) updateGatewayLoadAndRole(dest state.NodeAddress, load uint8, role state.Role, viaIsCurrent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[dest]
	if !ok {
		return
	}
	if load != state.GatewayLoadUnknown && load != e.GatewayLoad {
		e.GatewayLoad = load
	}
	if viaIsCurrent && role != e.Role {
		e.Role = role
	}
	t.entries[dest] = e
}

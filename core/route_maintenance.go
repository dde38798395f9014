package core

import (
	"log/slog"

	"github.com/ncwn/xMESH/state"
)

// RouteTimeoutMs is the default route entry lifetime refreshed on every
// advertisement. It outlives two consecutive missed safety-override
// advertisements (2 x SafetyOverrideMs = 360s).
const RouteTimeoutMs = 600_000

// RouteMaintenance implements spec.md §4.F: it consumes routing
// advertisements and drives installs/replacements/refreshes of the routing
// table via the cost function (cost-routing mode) or plain hop-count
// comparison (hop-count mode).
type RouteMaintenance struct {
	self       state.NodeAddress
	table      *RoutingTable
	linkTbl    *LinkQualityTable
	mode       RoutingMode
	hysteresis float64
	timeoutMs  uint64
	log        *slog.Logger
}

// NewRouteMaintenance constructs a route maintainer bound to table and
// linkTbl. hysteresis is the replacement margin from spec.md §4.E (default
// 0.85); timeoutMs is the per-entry refresh lifetime.
func NewRouteMaintenance(self state.NodeAddress, table *RoutingTable, linkTbl *LinkQualityTable, mode RoutingMode, hysteresis float64, timeoutMs uint64, log *slog.Logger) *RouteMaintenance {
	return &RouteMaintenance{
		self:       self,
		table:      table,
		linkTbl:    linkTbl,
		mode:       mode,
		hysteresis: hysteresis,
		timeoutMs:  timeoutMs,
		log:        log,
	}
}

// AdvertisementProcessResult reports what processing one advertisement
// changed, so the caller can drive the Trickle scheduler's consistency
// counting (spec.md §4.F step 5) and the topology-changed event fan-out.
type AdvertisementProcessResult struct {
	Events       []TopologyChangedEvent
	Inconsistent bool
}

// ProcessAdvertisement applies spec.md §4.F's five steps for one received
// advertisement from src.
func (r *RouteMaintenance) ProcessAdvertisement(adv Advertisement, receivedSNR int8, receivedRSSI int16, nowMs uint64) AdvertisementProcessResult {
	var result AdvertisementProcessResult

	// Step 1: src itself is a one-hop entry.
	if changed, inconsistent := r.installOrRefresh(adv.Src, adv.Src, 1, adv.Role, adv.GatewayLoad, receivedSNR, nowMs); changed {
		result.Events = append(result.Events, TopologyChangedEvent{Kind: "install-neighbor", Dest: adv.Src})
		if inconsistent {
			result.Inconsistent = true
		}
	}

	// Step 2: carried tuples, one hop further from self via src.
	for _, n := range adv.Nodes {
		if n.Address == r.self {
			continue
		}
		metric := n.Metric + 1
		if metric < n.Metric {
			metric = 255 // saturate rather than wrap on overflow
		}
		if changed, inconsistent := r.installOrRefresh(n.Address, adv.Src, metric, n.Role, n.GatewayLoad, receivedSNR, nowMs); changed {
			result.Events = append(result.Events, TopologyChangedEvent{Kind: "install", Dest: n.Address})
			if inconsistent {
				result.Inconsistent = true
			}
		}
	}

	// Step 4: feed the link-quality tracker.
	r.linkTbl.ObserveAdvertisement(adv.Src, receivedRSSI, receivedSNR, nowMs)

	// Step 5 (notifying Trickle that a consistent advertisement was heard)
	// is the caller's responsibility: it holds the Trickle scheduler and
	// this package has no back-pointer to it, per the event-value design.
	return result
}

// installOrRefresh implements steps 2's per-tuple decision tree. It returns
// changed=true if dest was newly installed or its entry replaced, and
// inconsistent=true (the signal the caller uses to reset Trickle) when the
// table grew or dest's next hop changed. A replacement that keeps the same
// next hop (a metric change only) is changed but not inconsistent; a
// same-hop refresh of expiry, role or load is neither.
func (r *RouteMaintenance) installOrRefresh(dest, via state.NodeAddress, metric uint8, role state.Role, gatewayLoad uint8, receivedSNR int8, nowMs uint64) (changed, inconsistent bool) {
	if dest == r.self {
		return false, false
	}

	existing, ok := r.table.Find(dest)
	if !ok {
		entry := state.RouteEntry{
			Dest: dest, Via: via, Metric: metric, Role: role,
			GatewayLoad: gatewayLoad, ReceivedSNR: receivedSNR,
			ExpiresAtMs: nowMs + r.timeoutMs,
		}
		if !r.table.install(entry) {
			if r.log != nil {
				r.log.Warn("routing table full, dropping new destination", "dest", dest)
			}
			return false, false
		}
		return true, true
	}

	sameTuple := existing.Via == via && existing.Metric == metric
	switch r.mode {
	case ModeCostRouting:
		if sameTuple {
			r.table.refreshExpiry(dest, nowMs, r.timeoutMs)
			r.table.updateGatewayLoadAndRole(dest, gatewayLoad, role, true)
			return false, false
		}
		candidateLink, _ := r.linkTbl.Snapshot(via)
		candidate := RouteCandidate{Dest: dest, Via: via, Metric: metric, Role: role, GatewayLoad: gatewayLoad, Link: candidateLink}
		currentCost, candidateCost, ok := r.table.evaluateReplacement(dest, candidate)
		if ok && candidateCost <= currentCost*r.hysteresis {
			entry := state.RouteEntry{Dest: dest, Via: via, Metric: metric, Role: role, GatewayLoad: gatewayLoad, ReceivedSNR: receivedSNR, ExpiresAtMs: nowMs + r.timeoutMs}
			r.table.install(entry)
			return true, existing.Via != via
		}
		r.table.updateGatewayLoadAndRole(dest, gatewayLoad, role, existing.Via == via)
		return false, false

	default: // ModeHopCount
		if sameTuple {
			r.table.refreshExpiry(dest, nowMs, r.timeoutMs)
			return false, false
		}
		if metric < existing.Metric {
			entry := state.RouteEntry{Dest: dest, Via: via, Metric: metric, Role: role, GatewayLoad: gatewayLoad, ReceivedSNR: receivedSNR, ExpiresAtMs: nowMs + r.timeoutMs}
			r.table.install(entry)
			return true, existing.Via != via
		}
		return false, false
	}
}

// PackAdvertisement builds the outbound advertisement for the local table,
// per spec.md §4.F's closing paragraph: the caller (Trickle, on transmit)
// hands this to EncodeAdvertisement to fragment across MTU-sized frames.
func (r *RouteMaintenance) PackAdvertisement(selfRole state.Role, selfGatewayLoad uint8) Advertisement {
	entries := r.table.AllEntries()
	nodes := make([]NetworkNode, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, NetworkNode{Address: e.Dest, Metric: e.Metric, Role: e.Role, GatewayLoad: e.GatewayLoad})
	}
	return Advertisement{Src: r.self, Role: selfRole, GatewayLoad: selfGatewayLoad, Nodes: nodes}
}

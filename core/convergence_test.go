package core

import (
	"testing"

	"github.com/ncwn/xMESH/state"
)

// TestHopCountLinearChainConverges drives four RouteMaintenance instances
// arranged in a 1-2-3-4 line through repeated advertisement exchange (each
// node hears only its immediate neighbors, matching the linear topology the
// simulation harness's --topology=linear builds) and checks that node 1
// eventually learns a 3-hop route to node 4 via node 2.
func TestHopCountLinearChainConverges(t *testing.T) {
	const n = 4
	linkTbls := make([]*LinkQualityTable, n+1)
	tables := make([]*RoutingTable, n+1)
	routers := make([]*RouteMaintenance, n+1)

	for i := 1; i <= n; i++ {
		linkTbls[i] = NewLinkQualityTable(10)
		tables[i] = NewRoutingTable(state.NodeAddress(i), 10, linkTbls[i], ModeHopCount, CostWeights{})
		routers[i] = NewRouteMaintenance(state.NodeAddress(i), tables[i], linkTbls[i], ModeHopCount, 0.85, RouteTimeoutMs, nil)
	}

	neighbors := func(i int) []int {
		var out []int
		if i > 1 {
			out = append(out, i-1)
		}
		if i < n {
			out = append(out, i+1)
		}
		return out
	}

	now := uint64(0)
	// Enough rounds for a hop-count tuple to propagate the full chain length.
	for round := 0; round < n+2; round++ {
		now += 1000
		advs := make(map[int]Advertisement, n)
		for i := 1; i <= n; i++ {
			advs[i] = routers[i].PackAdvertisement(state.RoleRelay, state.GatewayLoadUnknown)
		}
		for i := 1; i <= n; i++ {
			for _, j := range neighbors(i) {
				routers[i].ProcessAdvertisement(advs[j], -5, -80, now)
			}
		}
	}

	route, ok := tables[1].Find(state.NodeAddress(4))
	if !ok {
		t.Fatalf("node 1 never learned a route to node 4")
	}
	if route.Via != state.NodeAddress(2) {
		t.Fatalf("expected node 1 to reach node 4 via node 2, got via=%v", route.Via)
	}
	if route.Metric != 3 {
		t.Fatalf("expected 3-hop metric to node 4, got %d", route.Metric)
	}

	route2, ok := tables[4].Find(state.NodeAddress(1))
	if !ok {
		t.Fatalf("node 4 never learned a route back to node 1")
	}
	if route2.Via != state.NodeAddress(3) || route2.Metric != 3 {
		t.Fatalf("expected node 4 to reach node 1 via node 3 in 3 hops, got via=%v metric=%d", route2.Via, route2.Metric)
	}
}

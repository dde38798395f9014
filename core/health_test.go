package core

import (
	"testing"

	"github.com/ncwn/xMESH/state"
)

func TestHealthMonitorFlagsFailureAfterSilenceAndEvicts(t *testing.T) {
	linkTbl := NewLinkQualityTable(10)
	table := NewRoutingTable(1, 10, linkTbl, ModeHopCount, CostWeights{})
	trickle := NewTrickle(60_000, 600_000, 1, 1)
	trickle.Start(0)
	health := NewHealthMonitor(table, trickle, nil)

	table.install(state.RouteEntry{Dest: 9, Via: 9, Metric: 1, ExpiresAtMs: 1_000_000})
	health.Heard(9, 0)

	events := health.Sweep(HealthWarnSilenceMs + 1)
	if len(events) != 0 {
		t.Fatalf("expected no eviction yet at the warn threshold")
	}
	if _, ok := table.Find(9); !ok {
		t.Fatalf("route should still be present after only a warning")
	}

	events = health.Sweep(HealthFailSilenceMs + 1)
	if len(events) != 1 {
		t.Fatalf("expected exactly one failure event, got %d", len(events))
	}
	if _, ok := table.Find(9); ok {
		t.Fatalf("expected route to neighbor 9 to be evicted on failure")
	}
}

func TestHealthMonitorRecoveryClearsFlagAndLogs(t *testing.T) {
	linkTbl := NewLinkQualityTable(10)
	table := NewRoutingTable(1, 10, linkTbl, ModeHopCount, CostWeights{})
	trickle := NewTrickle(60_000, 600_000, 1, 1)
	trickle.Start(0)
	health := NewHealthMonitor(table, trickle, nil)

	health.Heard(9, 0)
	health.Sweep(HealthFailSilenceMs + 1)
	health.Heard(9, HealthFailSilenceMs+2)

	nh := health.entries[9]
	if nh.FailureFlagged {
		t.Fatalf("expected FailureFlagged to clear on recovery")
	}
}

func TestHealthMonitorRecoveryFiresAtMostOnce(t *testing.T) {
	linkTbl := NewLinkQualityTable(10)
	table := NewRoutingTable(1, 10, linkTbl, ModeHopCount, CostWeights{})
	trickle := NewTrickle(60_000, 600_000, 1, 1)
	trickle.Start(0)
	health := NewHealthMonitor(table, trickle, nil)

	health.Heard(9, 0)
	first := health.Sweep(HealthFailSilenceMs + 1)
	second := health.Sweep(HealthFailSilenceMs + 2)
	if len(first) != 1 || len(second) != 0 {
		t.Fatalf("expected exactly one recovery event across repeated sweeps, got %d then %d", len(first), len(second))
	}
}

package core

import (
	"context"
	"testing"
	"time"

	"github.com/ncwn/xMESH/state"
	"go.uber.org/goleak"
)

func TestMeshCoreStartStopLeaksNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := state.DefaultConfig(1, state.RoleRelay)
	mc := NewMeshCore(cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	mc.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	mc.Stop()
	time.Sleep(10 * time.Millisecond)
}

func TestNewMeshCoreSelectsRoutingModeFromProtocol(t *testing.T) {
	hopCfg := state.DefaultConfig(1, state.RoleRelay)
	hopCfg.Protocol = state.ProtocolHopCount
	hopMesh := NewMeshCore(hopCfg, nil, nil)
	if hopMesh.Table.mode != ModeHopCount {
		t.Fatalf("expected hop-count mode for ProtocolHopCount")
	}

	costCfg := state.DefaultConfig(1, state.RoleRelay)
	costCfg.Protocol = state.ProtocolGatewayCost
	costMesh := NewMeshCore(costCfg, nil, nil)
	if costMesh.Table.mode != ModeCostRouting {
		t.Fatalf("expected cost-routing mode for ProtocolGatewayCost")
	}
}

func TestNewMeshCoreOnlyBuildsFloodForwarderForFloodingProtocol(t *testing.T) {
	cfg := state.DefaultConfig(1, state.RoleRelay)
	cfg.Protocol = state.ProtocolFlooding
	mc := NewMeshCore(cfg, nil, nil)
	if mc.Flood == nil {
		t.Fatalf("expected flood forwarder for ProtocolFlooding")
	}

	cfg2 := state.DefaultConfig(1, state.RoleRelay)
	cfg2.Protocol = state.ProtocolGatewayCost
	mc2 := NewMeshCore(cfg2, nil, nil)
	if mc2.Flood != nil {
		t.Fatalf("did not expect a flood forwarder outside ProtocolFlooding")
	}
}

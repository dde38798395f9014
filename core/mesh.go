package core

import (
	"context"
	"log/slog"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ncwn/xMESH/state"
)

// MeshCore owns one node's entire routing stack, per spec.md §9's design
// note: an explicit owned composition rather than package-level globals, so
// a simulation harness can run many independent nodes in one process.
type MeshCore struct {
	Config state.Config
	Self   state.NodeAddress
	Log    *slog.Logger

	Radio     Radio
	Duty      *DutyCycleLedger
	LinkTbl   *LinkQualityTable
	Table     *RoutingTable
	Route     *RouteMaintenance
	Trickle   *Trickle
	Health    *HealthMonitor
	Flood     *FloodForwarder
	Dispatch  *Dispatcher
	Counters  *Counters

	// SensorSampler, when set on a sensor-role node, is polled by the
	// jittered ~60s transmit cycle for the next telemetry payload to send
	// toward a gateway.
	SensorSampler SensorSample

	// Deliver, when set, receives every application payload addressed to
	// this node (flood-delivered-local or unicast-addressed-to-self). A
	// gateway-role node wires this to whatever surfaces telemetry upward;
	// nodes that only route never set it.
	Deliver func(src state.NodeAddress, payload []byte)

	sweepStop chan struct{}
	floodSeq  uint32
}

// floodDefaultTTL is the hop budget a flood-mode originator stamps on its
// own application frames, generous enough to cross the small deployments
// spec.md's worked examples describe.
const floodDefaultTTL = 8

// NewMeshCore wires every component from cfg, per the leaves-first ordering
// spec.md §2's component table lays out: airtime/duty-cycle and link
// quality first, then the routing table and cost function, then route
// maintenance, Trickle, health, flood, and finally the dispatcher that ties
// them together.
func NewMeshCore(cfg state.Config, radio Radio, log *slog.Logger) *MeshCore {
	counters := NewCounters(cfg.NodeID.String())
	duty := NewDutyCycleLedger(cfg, log)
	linkTbl := NewLinkQualityTable(cfg.RoutingTableCapacity)

	mode := ModeHopCount
	if cfg.Protocol == state.ProtocolGatewayCost {
		mode = ModeCostRouting
	}
	table := NewRoutingTable(cfg.NodeID, cfg.RoutingTableCapacity, linkTbl, mode, WeightsFromConfig(cfg))
	route := NewRouteMaintenance(cfg.NodeID, table, linkTbl, mode, cfg.HysteresisThreshold, RouteTimeoutMs, log)

	seed := time.Now().UnixNano() ^ int64(cfg.NodeID)
	trickle := NewTrickle(cfg.TrickleIMinMs, cfg.TrickleIMaxMs, cfg.TrickleK, seed)

	health := NewHealthMonitor(table, trickle, log)

	var flood *FloodForwarder
	if cfg.Protocol == state.ProtocolFlooding {
		flood = NewFloodForwarder(cfg.NodeID, cfg.Role, duty, radio, log)
	}

	dispatch := NewDispatcher(cfg.NodeID, cfg.Role, radio, duty, table, route, flood, linkTbl, health, counters, log)

	return &MeshCore{
		Config: cfg, Self: cfg.NodeID, Log: log,
		Radio: radio, Duty: duty, LinkTbl: linkTbl, Table: table,
		Route: route, Trickle: trickle, Health: health, Flood: flood,
		Dispatch: dispatch, Counters: counters,
		sweepStop: make(chan struct{}),
	}
}

// Start launches the periodic-sweep and Trickle-driven advertisement tasks,
// mirroring spec.md §5's "main loop performing periodic sweeps" and
// "trickle_hello" tasks. It returns immediately; call Stop to shut down.
func (m *MeshCore) Start(ctx context.Context) {
	m.Trickle.Start(nowMs())
	go m.sweepLoop(ctx)
	go m.trickleLoop(ctx)
	if m.Radio != nil {
		go m.receiveLoop(ctx)
	}
	if m.Config.Role.Has(state.RoleSensor) {
		go m.sensorTransmitLoop(ctx)
	}
}

// SensorSample supplies one telemetry frame to transmit. The simulation
// harness and any real sensor-reading task both satisfy this by closing
// over their own data source; this core owns none of the sensor parsing
// itself (out of scope per spec.md §1).
type SensorSample func() []byte

// sensorTransmitLoop implements spec.md §4.J's sensor_transmit task: a
// periodic ~60s +/- 5s jittered cycle that samples SensorSampler and, if it
// has anything to send, admits it through the duty-cycle ledger toward a
// selected gateway.
func (m *MeshCore) sensorTransmitLoop(ctx context.Context) {
	for {
		wait := jitterSeconds(60, 5)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.sweepStop:
			timer.Stop()
			return
		case <-timer.C:
		}

		if m.SensorSampler == nil {
			continue
		}
		payload := m.SensorSampler()
		if payload == nil {
			continue
		}

		if m.Config.Protocol == state.ProtocolFlooding {
			seq := atomic.AddUint32(&m.floodSeq, 1) - 1
			now := nowMs()
			if m.Flood != nil {
				m.Flood.MarkSelfOriginated(m.Self, seq, now)
			}
			frame := encodeFloodApplicationFrame(m.Self, seq, floodDefaultTTL, payload)
			if err := m.Dispatch.TransmitApplicationPacket(state.Broadcast, frame, now); err != nil && m.Log != nil {
				m.Log.Debug("sensor transmit skipped", "error", err)
			}
			continue
		}

		dest, ok := m.gatewayDestination()
		if !ok {
			continue
		}
		frame := encodeUnicastApplicationFrame(dest, payload)
		if err := m.Dispatch.TransmitApplicationPacket(dest, frame, nowMs()); err != nil && m.Log != nil {
			m.Log.Debug("sensor transmit skipped", "error", err)
		}
	}
}

func (m *MeshCore) gatewayDestination() (state.NodeAddress, bool) {
	if m.Config.Protocol == state.ProtocolGatewayCost {
		var samples []GatewayLoadSample
		for _, e := range m.Table.AllEntries() {
			if e.Role.Has(state.RoleGateway) {
				samples = append(samples, GatewayLoadSample{Gateway: e.Dest, Load: e.GatewayLoad})
			}
		}
		return SelectGateway(samples, m.Table)
	}
	entry, ok := m.Table.BestForRole(state.RoleGateway)
	if !ok {
		return 0, false
	}
	return entry.Dest, true
}

// Stop halts the background tasks started by Start.
func (m *MeshCore) Stop() {
	close(m.sweepStop)
}

// MeshSnapshot is a point-in-time dump of one node's routing state, for the
// simulation harness's table-print diagnostics.
type MeshSnapshot struct {
	Self    state.NodeAddress
	Routes  []state.RouteEntry
	Neighbors int
}

// Snapshot captures the current routing table and neighbor count.
func (m *MeshCore) Snapshot() MeshSnapshot {
	return MeshSnapshot{
		Self:      m.Self,
		Routes:    m.Table.AllEntries(),
		Neighbors: m.LinkTbl.Len(),
	}
}

func (m *MeshCore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(state.HealthSweepMinMs * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.sweepStop:
			return
		case <-ticker.C:
			now := nowMs()
			m.Health.Sweep(now)
			expired := m.Table.Sweep(now)
			if len(expired) > 0 && m.Log != nil {
				m.Log.Debug("swept expired routes", "count", len(expired))
			}
			if m.Counters != nil {
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)
				m.Counters.FreeMemoryBytes.Add(float64(mem.HeapIdle - mem.HeapReleased))
			}
		}
	}
}

func (m *MeshCore) trickleLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.sweepStop:
			return
		case <-ticker.C:
			now := nowMs()
			if m.Trickle.ShouldTransmit(now) {
				m.emitAdvertisement(now)
			}
		}
	}
}

// receiveLoop stands in for spec.md §5's receive_handler task: in firmware
// it blocks on a driver notification and drains the entire queue in one
// pass on wake. Radio here exposes no blocking wait, so this polls at a
// short fixed interval instead and drains everything each tick.
func (m *MeshCore) receiveLoop(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.sweepStop:
			return
		case <-ticker.C:
			if m.Counters != nil {
				m.Counters.QueueDepth.Add(float64(m.Radio.QueueSize()))
			}
			for {
				pkt, ok := m.Radio.Dequeue()
				if !ok {
					break
				}
				m.handlePacket(pkt)
			}
		}
	}
}

func (m *MeshCore) handlePacket(pkt ReceivedPacket) {
	defer pkt.Release()
	now := nowMs()

	kind, err := m.Dispatch.ClassifyPacket(pkt)
	if err != nil {
		return
	}
	if m.Counters != nil {
		m.Counters.PacketsReceived.Add(1)
	}

	switch kind {
	case PacketRouting:
		result, err := m.Dispatch.HandleRoutingFrame(pkt, now)
		if err != nil {
			return
		}
		if result.Inconsistent {
			m.Trickle.Reset(now)
		} else {
			m.Trickle.HeardConsistent()
		}
	case PacketApplication:
		m.handleApplicationFrame(pkt, now)
	}
}

// handleApplicationFrame routes an inbound application payload according to
// the active protocol: Protocol 1 hands it to the flood forwarder (which
// itself decides on local delivery vs rebroadcast); hop-count/cost-routing
// mode delivers locally when addressed to this node, or forwards it one hop
// closer via the routing table otherwise.
func (m *MeshCore) handleApplicationFrame(pkt ReceivedPacket, now uint64) {
	if m.Config.Protocol == state.ProtocolFlooding {
		if m.Flood == nil {
			return
		}
		source, sequence, ttl, payload, err := decodeFloodApplicationFrame(pkt.Payload)
		if err != nil {
			return
		}
		switch m.Flood.HandlePacket(source, sequence, ttl, payload, now) {
		case FloodRebroadcast:
			if m.Counters != nil {
				m.Counters.PacketsForwarded.Add(1)
			}
			if m.Deliver != nil {
				m.Deliver(source, payload)
			}
		case FloodDroppedDuplicate:
			if m.Counters != nil {
				m.Counters.DuplicatesDropped.Add(1)
			}
		case FloodDeliveredLocal, FloodTerminated:
			if m.Deliver != nil {
				m.Deliver(source, payload)
			}
		}
		return
	}

	dest, payload, err := decodeUnicastApplicationFrame(pkt.Payload)
	if err != nil {
		return
	}
	if dest == m.Self || dest == state.Broadcast {
		if m.Log != nil {
			m.Log.Debug("application payload delivered locally", "src", pkt.Src, "bytes", len(payload))
		}
		if m.Deliver != nil {
			m.Deliver(pkt.Src, payload)
		}
		return
	}
	if err := m.Dispatch.TransmitApplicationPacket(dest, pkt.Payload, now); err != nil {
		if m.Counters != nil {
			m.Counters.PacketsDropped.Add(1)
		}
		return
	}
	if m.Counters != nil {
		m.Counters.PacketsForwarded.Add(1)
	}
}

func (m *MeshCore) emitAdvertisement(nowMs uint64) {
	adv := m.Route.PackAdvertisement(m.Config.Role, GatewayLoadUnknownOrSelf(m.Config))
	frames, err := EncodeAdvertisement(adv, 255)
	if err != nil {
		if m.Log != nil {
			m.Log.Warn("failed to encode advertisement", "error", err)
		}
		return
	}
	if m.Radio == nil {
		return
	}
	for _, frame := range frames {
		payload := append([]byte{frameKindAdvertisement}, frame...)
		if !m.Duty.MayTransmit(len(payload), nowMs) {
			if m.Counters != nil {
				m.Counters.DropsDueToDutyCycle.Add(1)
			}
			continue
		}
		if err := m.Radio.Send(state.Broadcast, payload, 4); err != nil {
			if m.Log != nil {
				m.Log.Warn("advertisement send failed", "error", err)
			}
			continue
		}
		m.Duty.Record(len(payload), nowMs)
	}
}

// GatewayLoadUnknownOrSelf reports this node's own advertised load. It
// returns state.GatewayLoadUnknown whatever the node's role: this core does
// not itself measure ingress rate (that lives with the application layer
// above it). Callers running an actual gateway can pass a measured
// packets/minute figure to Route.PackAdvertisement directly instead.
func GatewayLoadUnknownOrSelf(cfg state.Config) uint8 {
	return state.GatewayLoadUnknown
}

// nowMs is the core's single source of wall-clock time, in milliseconds since
// the Unix epoch. It reads time.Now directly; there is no hook for
// substituting a synthetic clock.
func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// jitterSeconds returns a bounded random jitter, used by the sensor
// transmit cycle's "every 60s +/- 5s" cadence (spec.md §4.J).
func jitterSeconds(base, spread float64) time.Duration {
	delta := (rand.Float64()*2 - 1) * spread
	return time.Duration((base + delta) * float64(time.Second))
}

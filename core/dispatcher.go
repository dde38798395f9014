package core

import (
	"log/slog"

	"github.com/ncwn/xMESH/state"
)

// LoadSwitchThreshold is the gateway load-bias selection margin from
// spec.md §4.J: 0.25 packets/minute.
const LoadSwitchThreshold = 0.25

// PacketKind classifies an inbound frame, per spec.md §4.J's receive path.
type PacketKind int

const (
	PacketRouting PacketKind = iota
	PacketApplication
)

// Dispatcher coordinates the admission-then-transmit path and the receive
// classification path, per spec.md §4.J. It is the composition root's
// primary caller-facing surface; MeshCore wires one of these per node.
type Dispatcher struct {
	self  state.NodeAddress
	role  state.Role
	radio Radio
	duty  *DutyCycleLedger

	table  *RoutingTable
	route  *RouteMaintenance
	flood  *FloodForwarder
	link   *LinkQualityTable
	health *HealthMonitor

	counters *Counters
	log      *slog.Logger
}

// NewDispatcher wires a dispatcher from its already-constructed
// dependencies. flood may be nil on nodes that never run Protocol 1.
func NewDispatcher(self state.NodeAddress, role state.Role, radio Radio, duty *DutyCycleLedger, table *RoutingTable, route *RouteMaintenance, flood *FloodForwarder, link *LinkQualityTable, health *HealthMonitor, counters *Counters, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		self: self, role: role, radio: radio, duty: duty,
		table: table, route: route, flood: flood, link: link, health: health,
		counters: counters, log: log,
	}
}

// TransmitApplicationPacket implements the admission-then-transmit path:
// assemble (by the caller) -> consult the duty-cycle ledger -> enqueue ->
// radio send. A denied admission drops the packet and increments the
// duty-cycle drop counter.
func (d *Dispatcher) TransmitApplicationPacket(dest state.NodeAddress, payload []byte, nowMs uint64) error {
	if d.radio == nil {
		return ErrNoRadio
	}
	if !d.duty.MayTransmit(len(payload), nowMs) {
		if d.counters != nil {
			d.counters.DropsDueToDutyCycle.Add(1)
		}
		return ErrAdmissionRefused
	}

	via := dest
	if d.table != nil {
		if hop, ok := d.table.NextHop(dest); ok {
			via = hop
		}
	}

	if err := d.radio.Send(via, payload, 2); err != nil {
		if d.log != nil {
			d.log.Warn("transmit failed", "dest", dest, "via", via, "error", err)
		}
		return err
	}
	d.duty.Record(len(payload), nowMs)
	if d.counters != nil {
		d.counters.PacketsTransmitted.Add(1)
	}
	return nil
}

// ClassifyPacket is the classify step of spec.md §4.J's receive path: it
// reports whether a frame is a routing advertisement or an application
// payload. MeshCore.handlePacket then routes the frame by that kind.
func (d *Dispatcher) ClassifyPacket(pkt ReceivedPacket) (PacketKind, error) {
	if pkt.Payload == nil {
		if d.log != nil {
			d.log.Warn("null packet handoff")
		}
		return 0, ErrNullPacket
	}

	// A minimal, self-describing framing convention: byte 0 discriminates
	// routing advertisements from application payloads. The physical wire
	// details of application payloads are left to the sensor/gateway layer
	// this core does not own.
	if len(pkt.Payload) > 0 && pkt.Payload[0] == frameKindAdvertisement {
		return PacketRouting, nil
	}
	return PacketApplication, nil
}

const (
	frameKindAdvertisement byte = 0xA5
	frameKindApplication   byte = 0x5A
)

// HandleRoutingFrame decodes and applies one received advertisement,
// updating link quality, the routing table, and the sender's health record,
// and returns the processing result the caller uses to drive Trickle.
func (d *Dispatcher) HandleRoutingFrame(pkt ReceivedPacket, nowMs uint64) (AdvertisementProcessResult, error) {
	adv, err := DecodeAdvertisement(pkt.Payload[1:])
	if err != nil {
		if d.counters != nil {
			d.counters.MalformedAdvertisements.Add(1)
		}
		return AdvertisementProcessResult{}, err
	}

	rssi := int16(0)
	if pkt.ReceivedRSSI != nil {
		rssi = *pkt.ReceivedRSSI
	} else {
		rssi = state.EstimateRSSIFromSNR(pkt.ReceivedSNR)
	}

	result := d.route.ProcessAdvertisement(adv, pkt.ReceivedSNR, rssi, nowMs)
	if d.health != nil {
		d.health.Heard(adv.Src, nowMs)
	}
	return result, nil
}

// SelectGateway implements spec.md §4.J's gateway-selection path for a
// sensor under cost routing: prefer a clearly least-loaded gateway (the
// load-bias selection), falling back to best_for_role(Gateway) under the
// cost function when load data does not distinguish a clear winner.
func SelectGateway(candidates []GatewayLoadSample, table *RoutingTable) (state.NodeAddress, bool) {
	minLoad, secondMin := -1.0, -1.0
	var minGateway state.NodeAddress
	haveMin := false
	for _, c := range candidates {
		if c.Load == state.GatewayLoadUnknown {
			continue
		}
		load := float64(c.Load)
		switch {
		case !haveMin || load < minLoad:
			secondMin = minLoad
			minLoad = load
			minGateway = c.Gateway
			haveMin = true
		case secondMin < 0 || load < secondMin:
			secondMin = load
		}
	}

	if haveMin && secondMin >= 0 && minLoad+LoadSwitchThreshold <= secondMin {
		return minGateway, true
	}

	entry, ok := table.BestForRole(state.RoleGateway)
	if !ok {
		return 0, false
	}
	return entry.Dest, true
}

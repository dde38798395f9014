package core

import (
	"log/slog"

	"github.com/ncwn/xMESH/state"
)

// FloodForwarder implements spec.md §4.I, Protocol 1's duplicate-suppressed
// broadcast baseline.
type FloodForwarder struct {
	self  state.NodeAddress
	role  state.Role
	cache *state.FloodCache
	duty  *DutyCycleLedger
	radio Radio
	log   *slog.Logger
}

// NewFloodForwarder constructs a forwarder for a node of the given role.
func NewFloodForwarder(self state.NodeAddress, role state.Role, duty *DutyCycleLedger, radio Radio, log *slog.Logger) *FloodForwarder {
	return &FloodForwarder{
		self:  self,
		role:  role,
		cache: state.NewFloodCache(),
		duty:  duty,
		radio: radio,
		log:   log,
	}
}

// FloodDisposition reports what HandlePacket did with an inbound flood
// frame, for the dispatcher's counters.
type FloodDisposition int

const (
	FloodDroppedDuplicate FloodDisposition = iota
	FloodDeliveredLocal
	FloodRebroadcast
	FloodTerminated
	FloodDeniedByDutyCycle
)

// MarkSelfOriginated records this node's own outbound (source, sequence)
// pair in the duplicate cache before transmission, so that a later echo of
// this same packet arriving via a downstream rebroadcast is recognized as
// a duplicate rather than delivered upward a second time (spec.md §9's
// worked example: "S1 also receives R's rebroadcast, recognises duplicate
// (S1, 0) and drops").
func (f *FloodForwarder) MarkSelfOriginated(source state.NodeAddress, sequence uint32, nowMs uint64) {
	f.cache.Insert(source, sequence, nowMs)
}

// HandlePacket applies spec.md §4.I's per-packet discipline: duplicate
// check, cache insert, local delivery, and role-conditioned rebroadcast.
// ttl is the packet's remaining hop budget on arrival; a relay rebroadcast
// carries ttl-1, per spec.md's "decrement TTL, ... rebroadcast" step.
// payload is the application payload only, with the flood frame header
// already stripped by the caller.
func (f *FloodForwarder) HandlePacket(source state.NodeAddress, sequence uint32, ttl uint8, payload []byte, nowMs uint64) FloodDisposition {
	if f.cache.IsDuplicate(source, sequence, nowMs) {
		return FloodDroppedDuplicate
	}
	f.cache.Insert(source, sequence, nowMs)

	// Local delivery is always implied here; the dispatcher surfaces the
	// payload upward regardless of disposition. This switch only decides
	// whether (and how) to rebroadcast.
	switch {
	case f.role.Has(state.RoleGateway):
		return FloodTerminated
	case f.role.Has(state.RoleRelay) && ttl > 0:
		frame := encodeFloodApplicationFrame(source, sequence, ttl-1, payload)
		if !f.duty.MayTransmit(len(frame), nowMs) {
			if f.log != nil {
				f.log.Warn("flood rebroadcast denied by duty cycle", "source", source, "sequence", sequence)
			}
			return FloodDeniedByDutyCycle
		}
		if f.radio != nil {
			if err := f.radio.Send(state.Broadcast, frame, 1); err != nil {
				if f.log != nil {
					f.log.Warn("flood rebroadcast failed", "error", err)
				}
				return FloodDeliveredLocal
			}
			f.duty.Record(len(frame), nowMs)
		}
		return FloodRebroadcast
	default:
		return FloodDeliveredLocal
	}
}

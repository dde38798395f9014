package core

import "github.com/ncwn/xMESH/state"

// Radio is the driver interface this core consumes, per spec.md §6. The SPI
// I/O, modem configuration, and carrier-sense live entirely on the other
// side of this interface and are out of scope here.
type Radio interface {
	// Send transmits payload to dest at the given priority. Priority is
	// driver-defined (higher usually preempts queued lower-priority sends);
	// this core only ever compares its own priorities against each other.
	Send(dest state.NodeAddress, payload []byte, priority int) error

	// QueueSize reports how many received packets are waiting to be
	// dequeued.
	QueueSize() int

	// Dequeue returns the next received packet, or ok=false if the queue is
	// empty. The caller (the receive handler) owns the returned packet and
	// MUST call Release on it exactly once.
	Dequeue() (ReceivedPacket, bool)

	// LocalAddress is this node's own address, derived once at boot.
	LocalAddress() state.NodeAddress
}

// ReceivedPacket is a frame handed up from the driver. Ownership passes to
// the receive handler on Dequeue; the handler calls Release exactly once,
// win or lose, mirroring the driver's delete_packet contract in spec.md §6.
type ReceivedPacket struct {
	Src         state.NodeAddress
	Payload     []byte
	ReceivedSNR int8
	// ReceivedRSSI is nil when the radio does not expose RSSI directly, in
	// which case callers estimate it via state.EstimateRSSIFromSNR.
	ReceivedRSSI *int16

	release func()
}

// NewReceivedPacket constructs a ReceivedPacket with an explicit release
// callback. Driver implementations use this to return the underlying buffer
// to a pool exactly once.
func NewReceivedPacket(src state.NodeAddress, payload []byte, snr int8, rssi *int16, release func()) ReceivedPacket {
	return ReceivedPacket{Src: src, Payload: payload, ReceivedSNR: snr, ReceivedRSSI: rssi, release: release}
}

// Release returns the packet to the driver. It is safe to call on a
// zero-value ReceivedPacket (release is nil) so tests can construct packets
// without a driver.
func (p ReceivedPacket) Release() {
	if p.release != nil {
		p.release()
	}
}

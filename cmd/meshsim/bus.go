package main

import (
	"sync"

	"github.com/ncwn/xMESH/core"
	"github.com/ncwn/xMESH/state"
)

// Bus is an in-process broadcast medium standing in for the shared radio
// channel: every busRadio attached to it hears every frame any other
// attached radio sends, honoring the linkMask topology restriction. It
// exists only in this simulation harness — production nodes talk through
// the real driver behind core.Radio.
type Bus struct {
	mu    sync.Mutex
	nodes map[state.NodeAddress]*busRadio
	// linkMask, if non-nil, restricts delivery: linkMask[a][b] true means a
	// can hear b directly. A nil mask means full connectivity.
	linkMask map[state.NodeAddress]map[state.NodeAddress]bool
}

// NewBus constructs an empty bus. mask may be nil for full connectivity.
func NewBus(mask map[state.NodeAddress]map[state.NodeAddress]bool) *Bus {
	return &Bus{nodes: make(map[state.NodeAddress]*busRadio), linkMask: mask}
}

// Attach creates and registers a busRadio for self.
func (b *Bus) Attach(self state.NodeAddress) *busRadio {
	r := &busRadio{self: self, bus: b, queue: make(chan core.ReceivedPacket, 64), notify: make(chan struct{}, 1)}
	b.mu.Lock()
	b.nodes[self] = r
	b.mu.Unlock()
	return r
}

func (b *Bus) canHear(from, to state.NodeAddress) bool {
	if b.linkMask == nil {
		return true
	}
	peers, ok := b.linkMask[to]
	if !ok {
		return false
	}
	return peers[from]
}

type busRadio struct {
	self   state.NodeAddress
	bus    *Bus
	queue  chan core.ReceivedPacket
	notify chan struct{}
}

func (r *busRadio) Send(dest state.NodeAddress, payload []byte, priority int) error {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	for addr, peer := range r.bus.nodes {
		if addr == r.self {
			continue
		}
		if dest != state.Broadcast && dest != addr {
			continue
		}
		if !r.bus.canHear(r.self, addr) {
			continue
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		pkt := core.NewReceivedPacket(r.self, cp, int8(6), nil, nil)
		select {
		case peer.queue <- pkt:
			select {
			case peer.notify <- struct{}{}:
			default:
			}
		default:
		}
	}
	return nil
}

func (r *busRadio) QueueSize() int {
	return len(r.queue)
}

func (r *busRadio) Dequeue() (core.ReceivedPacket, bool) {
	select {
	case pkt := <-r.queue:
		return pkt, true
	default:
		return core.ReceivedPacket{}, false
	}
}

func (r *busRadio) LocalAddress() state.NodeAddress {
	return r.self
}

package core

import (
	"testing"

	"github.com/ncwn/xMESH/state"
)

type fakeRadio struct {
	self state.NodeAddress
	sent int
}

func (r *fakeRadio) Send(dest state.NodeAddress, payload []byte, priority int) error {
	r.sent++
	return nil
}
func (r *fakeRadio) QueueSize() int                      { return 0 }
func (r *fakeRadio) Dequeue() (ReceivedPacket, bool)     { return ReceivedPacket{}, false }
func (r *fakeRadio) LocalAddress() state.NodeAddress     { return r.self }

func TestFloodForwarderDropsDuplicates(t *testing.T) {
	radio := &fakeRadio{self: 1}
	cfg := state.DefaultConfig(1, state.RoleRelay)
	duty := NewDutyCycleLedger(cfg, nil)
	f := NewFloodForwarder(1, state.RoleRelay, duty, radio, nil)

	first := f.HandlePacket(5, 1, 3, []byte("hi"), 0)
	if first != FloodRebroadcast {
		t.Fatalf("expected first packet to rebroadcast, got %v", first)
	}
	second := f.HandlePacket(5, 1, 3, []byte("hi"), 100)
	if second != FloodDroppedDuplicate {
		t.Fatalf("expected duplicate to be dropped, got %v", second)
	}
	if radio.sent != 1 {
		t.Fatalf("expected exactly one send, got %d", radio.sent)
	}
}

func TestFloodForwarderGatewayTerminates(t *testing.T) {
	radio := &fakeRadio{self: 1}
	cfg := state.DefaultConfig(1, state.RoleGateway)
	duty := NewDutyCycleLedger(cfg, nil)
	f := NewFloodForwarder(1, state.RoleGateway, duty, radio, nil)

	disp := f.HandlePacket(5, 1, 3, []byte("hi"), 0)
	if disp != FloodTerminated {
		t.Fatalf("expected gateway to terminate the flood, got %v", disp)
	}
	if radio.sent != 0 {
		t.Fatalf("expected no rebroadcast from a gateway")
	}
}

func TestFloodForwarderSensorNeverRebroadcasts(t *testing.T) {
	radio := &fakeRadio{self: 1}
	cfg := state.DefaultConfig(1, state.RoleSensor)
	duty := NewDutyCycleLedger(cfg, nil)
	f := NewFloodForwarder(1, state.RoleSensor, duty, radio, nil)

	disp := f.HandlePacket(5, 1, 3, []byte("hi"), 0)
	if disp != FloodDeliveredLocal {
		t.Fatalf("expected sensor to deliver locally without rebroadcast, got %v", disp)
	}
	if radio.sent != 0 {
		t.Fatalf("expected no rebroadcast from a sensor")
	}
}

func TestFloodForwarderDropsSelfOriginatedEcho(t *testing.T) {
	radio := &fakeRadio{self: 1}
	cfg := state.DefaultConfig(1, state.RoleSensor)
	duty := NewDutyCycleLedger(cfg, nil)
	f := NewFloodForwarder(1, state.RoleSensor, duty, radio, nil)

	f.MarkSelfOriginated(1, 0, 0)
	disp := f.HandlePacket(1, 0, 4, []byte("hi"), 100)
	if disp != FloodDroppedDuplicate {
		t.Fatalf("expected an echoed self-originated packet to be dropped as duplicate, got %v", disp)
	}
}

func TestFloodForwarderRelayRespectsTTL(t *testing.T) {
	radio := &fakeRadio{self: 1}
	cfg := state.DefaultConfig(1, state.RoleRelay)
	duty := NewDutyCycleLedger(cfg, nil)
	f := NewFloodForwarder(1, state.RoleRelay, duty, radio, nil)

	disp := f.HandlePacket(5, 1, 0, []byte("hi"), 0)
	if disp != FloodDeliveredLocal {
		t.Fatalf("expected a relay with ttl=0 not to rebroadcast, got %v", disp)
	}
}

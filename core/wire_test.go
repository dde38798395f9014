package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ncwn/xMESH/state"
)

func TestAdvertisementRoundTrip(t *testing.T) {
	adv := Advertisement{
		Src:         1,
		Role:        state.RoleRelay,
		GatewayLoad: 42,
		Nodes: []NetworkNode{
			{Address: 2, Metric: 1, Role: state.RoleSensor, GatewayLoad: 255},
			{Address: 3, Metric: 2, Role: state.RoleGateway, GatewayLoad: 10},
		},
	}

	frames, err := EncodeAdvertisement(adv, 255)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	got, err := DecodeAdvertisement(frames[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(adv, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvertisementFragmentsAcrossFrames(t *testing.T) {
	adv := Advertisement{Src: 1, Role: state.RoleGateway, GatewayLoad: 0}
	for i := 0; i < 100; i++ {
		adv.Nodes = append(adv.Nodes, NetworkNode{Address: state.NodeAddress(i), Metric: 1})
	}

	mtu := 64
	frames, err := EncodeAdvertisement(adv, mtu)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("expected fragmentation across multiple frames, got %d", len(frames))
	}

	var total []NetworkNode
	for _, f := range frames {
		got, err := DecodeAdvertisement(f)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if len(f) > mtu {
			t.Fatalf("frame of %d bytes exceeds mtu %d", len(f), mtu)
		}
		total = append(total, got.Nodes...)
	}
	if len(total) != len(adv.Nodes) {
		t.Fatalf("got %d nodes across frames, want %d", len(total), len(adv.Nodes))
	}
}

func TestDecodeAdvertisementRejectsNonMultipleLength(t *testing.T) {
	buf := make([]byte, AdvertisementHeaderSize+3) // 3 is not a multiple of NetworkNodeSize
	buf[2] = byte(len(buf))
	if _, err := DecodeAdvertisement(buf); err == nil {
		t.Fatalf("expected malformed-advertisement error")
	}
}

func TestDecodeAdvertisementRejectsShortFrame(t *testing.T) {
	if _, err := DecodeAdvertisement([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for undersized frame")
	}
}

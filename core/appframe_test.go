package core

import (
	"testing"

	"github.com/ncwn/xMESH/state"
)

func TestUnicastApplicationFrameRoundTrips(t *testing.T) {
	frame := encodeUnicastApplicationFrame(state.NodeAddress(42), []byte("telemetry"))
	if frame[0] != frameKindApplication {
		t.Fatalf("expected leading discriminator byte")
	}
	dest, payload, err := decodeUnicastApplicationFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dest != 42 {
		t.Fatalf("expected dest 42, got %v", dest)
	}
	if string(payload) != "telemetry" {
		t.Fatalf("payload mismatch: %q", payload)
	}
}

func TestFloodApplicationFrameRoundTrips(t *testing.T) {
	frame := encodeFloodApplicationFrame(state.NodeAddress(7), 99, 5, []byte("hi"))
	source, sequence, ttl, payload, err := decodeFloodApplicationFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if source != 7 || sequence != 99 || ttl != 5 {
		t.Fatalf("header mismatch: src=%v seq=%v ttl=%v", source, sequence, ttl)
	}
	if string(payload) != "hi" {
		t.Fatalf("payload mismatch: %q", payload)
	}
}

func TestDecodeApplicationFramesRejectShortBuffers(t *testing.T) {
	if _, _, err := decodeUnicastApplicationFrame([]byte{frameKindApplication, 0}); err == nil {
		t.Fatalf("expected error for short unicast frame")
	}
	if _, _, _, _, err := decodeFloodApplicationFrame([]byte{frameKindApplication}); err == nil {
		t.Fatalf("expected error for short flood frame")
	}
}

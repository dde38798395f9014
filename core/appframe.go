package core

import (
	"encoding/binary"
	"fmt"

	"github.com/ncwn/xMESH/state"
)

// unicastAppHeaderSize is frameKindApplication(1) + destination(2), used by
// hop-count and cost-routing mode so an intermediate relay can forward the
// frame toward its final destination without out-of-band bookkeeping.
const unicastAppHeaderSize = 3

// floodAppHeaderSize is frameKindApplication(1) + original source(2) +
// sequence(4) + ttl(1). The original source travels with the frame because
// Protocol 1's duplicate cache keys on (source, sequence), and the radio
// layer's own sender address changes at every rebroadcast hop.
const floodAppHeaderSize = 8

// encodeUnicastApplicationFrame builds a hop-count/cost-routing application
// frame.
func encodeUnicastApplicationFrame(dest state.NodeAddress, payload []byte) []byte {
	buf := make([]byte, unicastAppHeaderSize+len(payload))
	buf[0] = frameKindApplication
	binary.LittleEndian.PutUint16(buf[1:3], uint16(dest))
	copy(buf[unicastAppHeaderSize:], payload)
	return buf
}

// decodeUnicastApplicationFrame reverses encodeUnicastApplicationFrame. buf
// must still carry the leading frameKindApplication byte.
func decodeUnicastApplicationFrame(buf []byte) (dest state.NodeAddress, payload []byte, err error) {
	if len(buf) < unicastAppHeaderSize {
		return 0, nil, fmt.Errorf("application frame shorter than header (%d bytes)", len(buf))
	}
	dest = state.NodeAddress(binary.LittleEndian.Uint16(buf[1:3]))
	return dest, buf[unicastAppHeaderSize:], nil
}

// encodeFloodApplicationFrame builds a Protocol-1 application frame.
func encodeFloodApplicationFrame(source state.NodeAddress, sequence uint32, ttl uint8, payload []byte) []byte {
	buf := make([]byte, floodAppHeaderSize+len(payload))
	buf[0] = frameKindApplication
	binary.LittleEndian.PutUint16(buf[1:3], uint16(source))
	binary.LittleEndian.PutUint32(buf[3:7], sequence)
	buf[7] = ttl
	copy(buf[floodAppHeaderSize:], payload)
	return buf
}

// decodeFloodApplicationFrame reverses encodeFloodApplicationFrame. buf must
// still carry the leading frameKindApplication byte.
func decodeFloodApplicationFrame(buf []byte) (source state.NodeAddress, sequence uint32, ttl uint8, payload []byte, err error) {
	if len(buf) < floodAppHeaderSize {
		return 0, 0, 0, nil, fmt.Errorf("flood application frame shorter than header (%d bytes)", len(buf))
	}
	source = state.NodeAddress(binary.LittleEndian.Uint16(buf[1:3]))
	sequence = binary.LittleEndian.Uint32(buf[3:7])
	ttl = buf[7]
	return source, sequence, ttl, buf[floodAppHeaderSize:], nil
}

package core

import (
	"encoding/binary"
	"fmt"

	"github.com/ncwn/xMESH/state"
)

// AdvertisementHeaderSize is the fixed header preceding the packed
// NetworkNode array: src(2) + packet_size(2) + node_role(1) +
// gateway_load(1), per spec.md §6.
const AdvertisementHeaderSize = 6

// NetworkNodeSize is the packed size of one NetworkNode wire record:
// address(2) + metric(1) + role(1) + gateway_load(1).
const NetworkNodeSize = 5

// NetworkNode is one destination entry carried by a routing advertisement.
type NetworkNode struct {
	Address     state.NodeAddress
	Metric      uint8
	Role        state.Role
	GatewayLoad uint8
}

// Advertisement is a decoded routing packet: the sender's own identity plus
// the list of destinations it is advertising.
type Advertisement struct {
	Src         state.NodeAddress
	Role        state.Role
	GatewayLoad uint8
	Nodes       []NetworkNode
}

// EncodeAdvertisement packs adv into one or more frames no larger than
// mtu bytes, per spec.md §4.F: "Each packs as many tuples as fit; if the
// table exceeds one frame, they are fragmented across successive frames
// within the same emission."
func EncodeAdvertisement(adv Advertisement, mtu int) ([][]byte, error) {
	maxNodesPerFrame := (mtu - AdvertisementHeaderSize) / NetworkNodeSize
	if maxNodesPerFrame <= 0 {
		return nil, fmt.Errorf("mtu %d too small for advertisement header+one node", mtu)
	}

	if len(adv.Nodes) == 0 {
		return [][]byte{encodeAdvertisementFrame(adv, nil)}, nil
	}

	var frames [][]byte
	for start := 0; start < len(adv.Nodes); start += maxNodesPerFrame {
		end := start + maxNodesPerFrame
		if end > len(adv.Nodes) {
			end = len(adv.Nodes)
		}
		frames = append(frames, encodeAdvertisementFrame(adv, adv.Nodes[start:end]))
	}
	return frames, nil
}

func encodeAdvertisementFrame(adv Advertisement, nodes []NetworkNode) []byte {
	size := AdvertisementHeaderSize + len(nodes)*NetworkNodeSize
	buf := make([]byte, size)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(adv.Src))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(size))
	buf[4] = byte(adv.Role)
	buf[5] = adv.GatewayLoad

	off := AdvertisementHeaderSize
	for _, n := range nodes {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(n.Address))
		buf[off+2] = n.Metric
		buf[off+3] = byte(n.Role)
		buf[off+4] = n.GatewayLoad
		off += NetworkNodeSize
	}
	return buf
}

// DecodeAdvertisement parses one frame produced by EncodeAdvertisement. Per
// spec.md §6, the receiver "MUST validate that the division is exact,
// dropping the packet otherwise" — a payload whose remaining length is not
// a whole multiple of NetworkNodeSize is malformed.
func DecodeAdvertisement(buf []byte) (Advertisement, error) {
	if len(buf) < AdvertisementHeaderSize {
		return Advertisement{}, fmt.Errorf("%w: frame shorter than header", ErrMalformedAdvertisement)
	}

	src := state.NodeAddress(binary.LittleEndian.Uint16(buf[0:2]))
	packetSize := int(binary.LittleEndian.Uint16(buf[2:4]))
	role := state.Role(buf[4])
	gatewayLoad := buf[5]

	if packetSize != len(buf) {
		return Advertisement{}, fmt.Errorf("%w: packet_size %d does not match frame length %d", ErrMalformedAdvertisement, packetSize, len(buf))
	}

	remaining := len(buf) - AdvertisementHeaderSize
	if remaining%NetworkNodeSize != 0 {
		return Advertisement{}, fmt.Errorf("%w: %d remaining bytes not a multiple of %d", ErrMalformedAdvertisement, remaining, NetworkNodeSize)
	}

	count := remaining / NetworkNodeSize
	nodes := make([]NetworkNode, count)
	off := AdvertisementHeaderSize
	for i := 0; i < count; i++ {
		nodes[i] = NetworkNode{
			Address:     state.NodeAddress(binary.LittleEndian.Uint16(buf[off : off+2])),
			Metric:      buf[off+2],
			Role:        state.Role(buf[off+3]),
			GatewayLoad: buf[off+4],
		}
		off += NetworkNodeSize
	}

	return Advertisement{Src: src, Role: role, GatewayLoad: gatewayLoad, Nodes: nodes}, nil
}

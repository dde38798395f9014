package core

import "github.com/ncwn/xMESH/state"

// Cost-function constants from spec.md §4.E.
const (
	CostRSSIMin = -120.0
	CostRSSIMax = -30.0
	CostSNRMin  = -20.0
	CostSNRMax  = 10.0

	WeakLinkRSSIThreshold = -125
	WeakLinkSNRThreshold  = -12
	WeakLinkPenalty       = 1.5

	GatewayBiasLoadFloor = 0.2

	// HysteresisThreshold is the default replacement margin: a candidate
	// route must cost no more than this fraction of the existing route's
	// cost to displace it. state.Config.HysteresisThreshold overrides this
	// per node; this constant documents the spec default of 0.85.
	HysteresisThreshold = 0.85
)

// CostWeights are the five weighted terms of the cost function.
type CostWeights struct {
	W1HopCount    float64
	W2RSSI        float64
	W3SNR         float64
	W4ETX         float64
	W5GatewayBias float64
}

// WeightsFromConfig extracts the cost weights carried in a loaded config.
func WeightsFromConfig(cfg state.Config) CostWeights {
	return CostWeights{
		W1HopCount:    cfg.CostW1HopCount,
		W2RSSI:        cfg.CostW2RSSI,
		W3SNR:         cfg.CostW3SNR,
		W4ETX:         cfg.CostW4ETX,
		W5GatewayBias: cfg.CostW5GatewayBias,
	}
}

func normalize(x, lo, hi float64) float64 {
	v := (x - lo) / (hi - lo)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func weakLinkPenalty(rssi int16, snr int8) float64 {
	if rssi < WeakLinkRSSIThreshold || snr < WeakLinkSNRThreshold {
		return WeakLinkPenalty
	}
	return 0
}

// GatewayLoadSample is one gateway's advertised load, used to compute the
// gateway-load bias term over the whole known gateway population.
type GatewayLoadSample struct {
	Gateway state.NodeAddress
	Load    uint8 // 255 = unknown
}

// gatewayBias implements spec.md §4.E's gateway_bias(g): the relative
// deviation of g's load from the mean load of gateways with known load,
// or 0 when there is not enough data to trust the signal.
func gatewayBias(target state.NodeAddress, samples []GatewayLoadSample) float64 {
	var sum float64
	var count int
	var targetLoad float64
	var targetKnown bool
	for _, s := range samples {
		if s.Load == state.GatewayLoadUnknown {
			continue
		}
		sum += float64(s.Load)
		count++
		if s.Gateway == target {
			targetLoad = float64(s.Load)
			targetKnown = true
		}
	}
	if !targetKnown || count < 2 {
		return 0
	}
	mean := sum / float64(count)
	if mean < GatewayBiasLoadFloor {
		return 0
	}
	return (targetLoad - mean) / mean
}

// RouteCandidate is the bounded, guard-free view of one route entry the
// two-phase locking pattern in spec.md §5 copies out from under the routing
// table's mutex before evaluating cost.
type RouteCandidate struct {
	Dest        state.NodeAddress
	Via         state.NodeAddress
	Metric      uint8
	Role        state.Role
	GatewayLoad uint8
	Link        state.LinkMetrics
}

// Cost evaluates spec.md §4.E's weighted cost function for one candidate
// route, given the gateway-load samples known across the table (for the
// gateway-bias term).
func Cost(c RouteCandidate, weights CostWeights, gateways []GatewayLoadSample) float64 {
	cost := weights.W1HopCount * float64(c.Metric)
	cost += weights.W2RSSI * (1 - normalize(float64(c.Link.RSSIDBm), CostRSSIMin, CostRSSIMax))
	cost += weights.W3SNR * (1 - normalize(float64(c.Link.SNRDB), CostSNRMin, CostSNRMax))
	cost += weights.W4ETX * max0(c.Link.ETX-1)
	cost += weakLinkPenalty(c.Link.RSSIDBm, c.Link.SNRDB)
	if c.Role.Has(state.RoleGateway) {
		cost += weights.W5GatewayBias * gatewayBias(c.Dest, gateways)
	}
	return cost
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

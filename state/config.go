package state

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Protocol selects which of spec.md §1's three progressively richer
// protocols a node runs.
type Protocol string

const (
	ProtocolFlooding  Protocol = "flooding"
	ProtocolHopCount  Protocol = "hopcount"
	ProtocolGatewayCost Protocol = "cost"
)

// Config is the full compile-time configuration surface spec.md §6 requires
// an implementer to expose. On real firmware these are `#define`s baked in
// at build time; here they are one YAML-loadable struct so the simulation
// harness (cmd/meshsim) and tests can vary them without recompiling.
type Config struct {
	NodeID   NodeAddress `yaml:"node_id"`
	Role     Role        `yaml:"role"`
	Protocol Protocol    `yaml:"protocol"`

	// Radio / regional parameters.
	FrequencyMHz          float64 `yaml:"frequency_mhz"`
	BandwidthKHz          float64 `yaml:"bandwidth_khz"`
	SpreadingFactor       uint8   `yaml:"spreading_factor"`
	CodingRateDenom       uint8   `yaml:"coding_rate_denom"`
	PreambleSymbols       uint16  `yaml:"preamble_symbols"`
	LowDataRateOptimize   bool    `yaml:"low_data_rate_optimize"`
	CRCEnabled            bool    `yaml:"crc_enabled"`
	TxPowerDBm            int8    `yaml:"tx_power_dbm"`
	SyncWord              uint8   `yaml:"sync_word"`

	// Duty-cycle enforcement.
	DutyCycleWindowMs uint64 `yaml:"duty_cycle_window_ms"`
	DutyCycleMaxMs    uint64 `yaml:"duty_cycle_max_ms"`

	// Flooding (Protocol 1).
	DuplicateCacheSize int `yaml:"duplicate_cache_size"`

	// Trickle (Protocol 3).
	TrickleIMinMs uint64 `yaml:"trickle_i_min_ms"`
	TrickleIMaxMs uint64 `yaml:"trickle_i_max_ms"`
	TrickleK      int    `yaml:"trickle_k"`

	// Cost function weights (Protocol 3).
	CostW1HopCount    float64 `yaml:"cost_w1_hop_count"`
	CostW2RSSI        float64 `yaml:"cost_w2_rssi"`
	CostW3SNR         float64 `yaml:"cost_w3_snr"`
	CostW4ETX         float64 `yaml:"cost_w4_etx"`
	CostW5GatewayBias float64 `yaml:"cost_w5_gateway_bias"`

	HysteresisThreshold float64 `yaml:"hysteresis_threshold"`

	// Link-quality tracker.
	LinkMetricWindowSize int     `yaml:"link_metric_window_size"`
	EWMAAlpha            float64 `yaml:"ewma_alpha"`

	// Routing table.
	RoutingTableCapacity int `yaml:"routing_table_capacity"`
}

// DefaultConfig returns the constants named throughout spec.md §4, useful as
// a base a caller overrides selectively.
func DefaultConfig(id NodeAddress, role Role) Config {
	return Config{
		NodeID:                id,
		Role:                  role,
		Protocol:              ProtocolGatewayCost,
		FrequencyMHz:          915.0,
		BandwidthKHz:          125.0,
		SpreadingFactor:       7,
		CodingRateDenom:       5,
		PreambleSymbols:       8,
		LowDataRateOptimize:   false,
		CRCEnabled:            true,
		TxPowerDBm:            14,
		SyncWord:              0x12,
		DutyCycleWindowMs:     3_600_000,
		DutyCycleMaxMs:        36_000,
		DuplicateCacheSize:    FloodCacheSize,
		TrickleIMinMs:         60_000,
		TrickleIMaxMs:         600_000,
		TrickleK:              1,
		CostW1HopCount:        1.0,
		CostW2RSSI:            0.3,
		CostW3SNR:             0.2,
		CostW4ETX:             0.4,
		CostW5GatewayBias:     1.0,
		HysteresisThreshold:   0.85,
		LinkMetricWindowSize:  ETXWindowSize,
		EWMAAlpha:             EWMAAlpha,
		RoutingTableCapacity:  RTMAXSize,
	}
}

// Validate checks the invariants spec.md's components assume hold for every
// configuration (SF range, node id not being the broadcast address, etc). It mirrors
// the teacher's NodeConfigValidator/CentralConfigValidator split of "load
// then validate" rather than validating inline in constructors.
func (c Config) Validate() error {
	if c.NodeID == Broadcast {
		return fmt.Errorf("node_id must not equal the broadcast address 0x%04X", Broadcast)
	}
	if c.Role == 0 {
		return fmt.Errorf("role must set at least one bit")
	}
	switch c.Protocol {
	case ProtocolFlooding, ProtocolHopCount, ProtocolGatewayCost:
	default:
		return fmt.Errorf("protocol %q must be one of flooding, hopcount, cost", c.Protocol)
	}
	if c.SpreadingFactor < 7 || c.SpreadingFactor > 12 {
		return fmt.Errorf("spreading_factor %d out of range [7,12]", c.SpreadingFactor)
	}
	if c.BandwidthKHz <= 0 {
		return fmt.Errorf("bandwidth_khz must be positive")
	}
	if c.CodingRateDenom < 5 || c.CodingRateDenom > 8 {
		return fmt.Errorf("coding_rate_denom %d out of range [5,8]", c.CodingRateDenom)
	}
	if c.DutyCycleMaxMs == 0 || c.DutyCycleMaxMs > c.DutyCycleWindowMs {
		return fmt.Errorf("duty_cycle_max_ms must be positive and <= duty_cycle_window_ms")
	}
	if c.DuplicateCacheSize <= 0 {
		return fmt.Errorf("duplicate_cache_size must be positive")
	}
	if c.TrickleIMinMs == 0 || c.TrickleIMinMs > c.TrickleIMaxMs {
		return fmt.Errorf("trickle_i_min_ms must be positive and <= trickle_i_max_ms")
	}
	if c.TrickleK < 1 {
		return fmt.Errorf("trickle_k must be >= 1")
	}
	if c.HysteresisThreshold <= 0 || c.HysteresisThreshold > 1 {
		return fmt.Errorf("hysteresis_threshold must be in (0,1]")
	}
	if c.LinkMetricWindowSize < 3 {
		return fmt.Errorf("link_metric_window_size must be >= 3")
	}
	if c.EWMAAlpha <= 0 || c.EWMAAlpha >= 1 {
		return fmt.Errorf("ewma_alpha must be in (0,1)")
	}
	if c.RoutingTableCapacity < 1 {
		return fmt.Errorf("routing_table_capacity must be positive")
	}
	return nil
}

// LoadConfig reads and validates a Config from a YAML file, following the
// teacher's cmd/run.go pattern of "read file, unmarshal, validate, panic on
// caller side if invalid" — except here the error is returned rather than
// panicked, since this package has no CLI framework opinions of its own.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

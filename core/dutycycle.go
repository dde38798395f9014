package core

import (
	"log/slog"
	"sync"

	"github.com/ncwn/xMESH/state"
)

// dutyWarnFraction and dutyCriticalFraction are the one-shot callback
// thresholds from spec.md §4.A: 83% and 94% of the window's airtime budget.
const (
	dutyWarnFraction     = 0.83
	dutyCriticalFraction = 0.94
)

// DutyCycleLedger enforces the regional 1% airtime ceiling over a sliding
// window, per spec.md §4.A. It is called from both the transmit path and the
// receive path (when relaying), so append and sweep are guarded by a single
// short-held mutex.
type DutyCycleLedger struct {
	mu sync.Mutex

	windowMs uint64
	maxMs    uint64
	params   AirtimeParams
	log      *slog.Logger

	windowStartMs  uint64
	records        []state.TransmissionRecord
	totalAirtimeMs uint64

	warnFired     bool
	criticalFired bool

	enforced bool
}

// NewDutyCycleLedger constructs a ledger from a loaded config. Enforcement
// defaults to on; simulation harnesses may disable it to explore the
// unconstrained shape of a topology.
func NewDutyCycleLedger(cfg state.Config, log *slog.Logger) *DutyCycleLedger {
	return &DutyCycleLedger{
		windowMs: cfg.DutyCycleWindowMs,
		maxMs:    cfg.DutyCycleMaxMs,
		params: AirtimeParams{
			BandwidthKHz:        cfg.BandwidthKHz,
			SpreadingFactor:     int(cfg.SpreadingFactor),
			CodingRateDenom:     int(cfg.CodingRateDenom),
			PreambleSymbols:     int(cfg.PreambleSymbols),
			LowDataRateOptimize: cfg.LowDataRateOptimize,
			CRCEnabled:          cfg.CRCEnabled,
		},
		log:      log,
		enforced: true,
	}
}

// SetEnforced toggles admission enforcement. Airtime accounting continues
// regardless; only may_transmit's refusal is affected.
func (d *DutyCycleLedger) SetEnforced(enforced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enforced = enforced
}

// TotalAirtimeMs reports the current window's accumulated airtime.
func (d *DutyCycleLedger) TotalAirtimeMs(nowMs uint64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(nowMs)
	return d.totalAirtimeMs
}

// MayTransmit reports whether a payloadBytes-byte frame can be admitted
// without exceeding the window's airtime ceiling, per spec.md §4.A. It fires
// the warning/critical callbacks (each at most once per window) as a side
// effect, mirroring the reference firmware's inline threshold checks.
func (d *DutyCycleLedger) MayTransmit(payloadBytes int, nowMs uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(nowMs)

	projected := uint64(AirtimeMs(payloadBytes, d.params))
	d.checkThresholdsLocked(d.totalAirtimeMs + projected)

	if !d.enforced {
		return true
	}
	return d.totalAirtimeMs+projected <= d.maxMs
}

// Record appends a transmission's airtime to the ledger. It must only be
// called after a confirmed transmission attempt; record is idempotent with
// respect to over-reporting (double-recording inflates the total but can
// never violate safety, since MayTransmit only ever refuses admission).
func (d *DutyCycleLedger) Record(payloadBytes int, nowMs uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(nowMs)

	airtime := AirtimeMs(payloadBytes, d.params)
	d.records = append(d.records, state.TransmissionRecord{RecordedAtMs: nowMs, AirtimeMs: airtime})
	d.totalAirtimeMs += uint64(airtime)
	d.checkThresholdsLocked(d.totalAirtimeMs)
}

// sweepLocked drops records older than the window and subtracts their
// airtime, then resets the whole ledger on a hard window-boundary crossing.
// Callers must hold d.mu.
func (d *DutyCycleLedger) sweepLocked(nowMs uint64) {
	if d.windowStartMs == 0 {
		d.windowStartMs = nowMs
	}
	if nowMs >= d.windowStartMs+d.windowMs {
		d.records = d.records[:0]
		d.totalAirtimeMs = 0
		d.windowStartMs = nowMs
		d.warnFired = false
		d.criticalFired = false
		return
	}

	cutoff := nowMs - d.windowMs
	if nowMs < d.windowMs {
		cutoff = 0
	}
	n := 0
	for _, r := range d.records {
		if r.RecordedAtMs >= cutoff {
			d.records[n] = r
			n++
		} else {
			d.totalAirtimeMs -= uint64(r.AirtimeMs)
		}
	}
	d.records = d.records[:n]
}

func (d *DutyCycleLedger) checkThresholdsLocked(projectedTotal uint64) {
	if d.log == nil {
		return
	}
	fraction := float64(projectedTotal) / float64(d.maxMs)
	if !d.criticalFired && fraction >= dutyCriticalFraction {
		d.criticalFired = true
		d.log.Warn("duty cycle critical", "fraction", fraction, "max_ms", d.maxMs)
	} else if !d.warnFired && fraction >= dutyWarnFraction {
		d.warnFired = true
		d.log.Warn("duty cycle warning", "fraction", fraction, "max_ms", d.maxMs)
	}
}

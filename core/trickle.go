package core

import (
	"math/rand"
	"sync"
)

// SafetyOverrideMs is the "no advertisement sent in >= 180s" forced-
// transmission cap from spec.md §4.G.
const SafetyOverrideMs = 180_000

// TrickleState is the RFC 6206-style adaptive suppression state machine
// spec.md §4.G describes.
type TrickleState int

const (
	TrickleIdle TrickleState = iota
	TrickleActive
)

// Trickle owns its own interval/timer state; per spec.md §5 heard_consistent
// is called from the receive handler and should_transmit from the Trickle
// task, so its guard is cheap and short-held.
type Trickle struct {
	mu sync.Mutex

	iMinMs, iMaxMs uint64
	k              int
	rng            *rand.Rand

	state             TrickleState
	intervalStartMs   uint64
	intervalCurrentMs uint64
	transmitPointMs   uint64
	consistentCount   int
	firedThisInterval bool

	lastTransmitMs uint64
}

// NewTrickle constructs a Trickle scheduler with the given parameters. seed
// lets tests and the simulation harness make the random transmit point
// reproducible; production nodes seed from a hardware RNG source.
func NewTrickle(iMinMs, iMaxMs uint64, k int, seed int64) *Trickle {
	return &Trickle{
		iMinMs: iMinMs,
		iMaxMs: iMaxMs,
		k:      k,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Start transitions Idle -> Active and begins the first interval at I_min.
func (t *Trickle) Start(nowMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TrickleActive
	t.lastTransmitMs = nowMs
	t.beginIntervalLocked(t.iMinMs, nowMs)
}

func (t *Trickle) beginIntervalLocked(intervalMs, nowMs uint64) {
	t.intervalStartMs = nowMs
	t.intervalCurrentMs = intervalMs
	t.consistentCount = 0
	t.firedThisInterval = false

	half := intervalMs / 2
	offset := uint64(0)
	if intervalMs > half {
		offset = uint64(t.rng.Int63n(int64(intervalMs - half + 1)))
	}
	t.transmitPointMs = nowMs + half + offset
}

// Reset restarts the interval at I_min with a fresh random transmit point,
// per spec.md §4.G's reset events (inconsistent advertisement, proactive
// neighbor failure, or an explicit caller reset).
func (t *Trickle) Reset(nowMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TrickleActive {
		return
	}
	t.beginIntervalLocked(t.iMinMs, nowMs)
}

// HeardConsistent records that a consistent advertisement was heard during
// the current interval, for the suppression count.
func (t *Trickle) HeardConsistent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consistentCount++
}

// ShouldTransmit is polled at >= 1 Hz. It returns true at most once per
// interval, at the sampled transmit point, when fewer than k consistent
// advertisements were heard this interval, or unconditionally under the
// safety override.
func (t *Trickle) ShouldTransmit(nowMs uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TrickleActive {
		return false
	}

	// The safety override is independent of firedThisInterval: a regular
	// transmit point can fire-and-suppress early in a long, backed-off
	// interval, and the 180s deadline must still be able to force a
	// transmission later in that same interval. Firing this twice in one
	// interval is harmless — it only resets lastTransmitMs.
	if nowMs-t.lastTransmitMs >= SafetyOverrideMs {
		t.firedThisInterval = true
		t.lastTransmitMs = nowMs
		t.advanceIfExpiredLocked(nowMs)
		return true
	}

	if !t.firedThisInterval && nowMs >= t.transmitPointMs {
		t.firedThisInterval = true
		if t.consistentCount < t.k {
			t.lastTransmitMs = nowMs
			t.advanceIfExpiredLocked(nowMs)
			return true
		}
		t.advanceIfExpiredLocked(nowMs)
		return false
	}

	t.advanceIfExpiredLocked(nowMs)
	return false
}

// advanceIfExpiredLocked doubles the interval (capped at I_max) and begins
// a new one once the current interval has elapsed. Callers must hold t.mu.
func (t *Trickle) advanceIfExpiredLocked(nowMs uint64) {
	if nowMs < t.intervalStartMs+t.intervalCurrentMs {
		return
	}
	next := t.intervalCurrentMs * 2
	if next > t.iMaxMs {
		next = t.iMaxMs
	}
	t.beginIntervalLocked(next, t.intervalStartMs+t.intervalCurrentMs)
}

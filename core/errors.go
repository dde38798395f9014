package core

import "errors"

// Sentinel errors for the dispositions in spec.md §7. All are recovered
// locally by the caller; none of them are expected to propagate out of the
// core's exported entry points except as diagnostics.
var (
	ErrAdmissionRefused       = errors.New("duty-cycle: admission refused")
	ErrMalformedAdvertisement = errors.New("routing: malformed advertisement")
	ErrRoutingTableFull       = errors.New("routing: table full")
	ErrNullPacket             = errors.New("dispatcher: null packet handoff")
	ErrNoRadio                = errors.New("dispatcher: no radio attached")
)

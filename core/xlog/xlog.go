// Package xlog wires this repository's structured logging: a colorized
// console handler for interactive runs, an optional plain-text file sink,
// fanned out through a single slog.Logger, following the teacher's
// core/entrypoint.go pattern.
package xlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/encodeous/tint"
	"github.com/jellydator/ttlcache/v3"
	slogmulti "github.com/samber/slog-multi"
)

// New builds a logger prefixed with nodeLabel (the node's address or name),
// at the given level, fanning out to stderr and, if logPath is non-empty, a
// plain-text file.
func New(nodeLabel string, level slog.Level, logPath string) (*slog.Logger, error) {
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			TimeFormat:   "15:04:05",
			CustomPrefix: nodeLabel,
		}),
	}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// DedupeThrottle suppresses repeated identical log lines within a short
// window — useful for the health monitor and duty-cycle warnings, which
// would otherwise re-log the same fault every sweep tick while a node stays
// unreachable. Backed by ttlcache rather than the hand-rolled structures
// this repo uses for its exact-semantics tables (the duplicate ring, the
// route and link maps), since here only approximate, self-expiring
// membership is needed.
type DedupeThrottle struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewDedupeThrottle constructs a throttle that suppresses a repeated key
// for window.
func NewDedupeThrottle(window time.Duration) *DedupeThrottle {
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](window),
	)
	go cache.Start()
	return &DedupeThrottle{cache: cache}
}

// Allow reports whether key has not been seen within the throttle window,
// marking it seen as a side effect.
func (d *DedupeThrottle) Allow(key string) bool {
	if d.cache.Get(key) != nil {
		return false
	}
	d.cache.Set(key, struct{}{}, ttlcache.DefaultTTL)
	return true
}

// Close stops the throttle's background eviction goroutine.
func (d *DedupeThrottle) Close() {
	d.cache.Stop()
}

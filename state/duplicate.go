package state

// FloodCacheSize is the fixed ring capacity for Protocol 1's
// duplicate-suppression cache (spec.md §3, §4.I).
const FloodCacheSize = 5

// FloodCacheTimeoutMs is the cache-entry timeout (spec.md §4.I).
const FloodCacheTimeoutMs = 30_000

// DuplicateCacheEntry is one ring slot of the flood forwarder's
// duplicate-suppression cache.
type DuplicateCacheEntry struct {
	Source       NodeAddress
	Sequence     uint32
	RecordedAtMs uint64
	Valid        bool
}

// FloodCache is the ring of DuplicateCacheEntry described in spec.md §3 and
// §4.I: fixed size 5, oldest entry overwritten on insert, entries also
// treated as expired once older than FloodCacheTimeoutMs.
type FloodCache struct {
	entries [FloodCacheSize]DuplicateCacheEntry
	next    int
}

// NewFloodCache returns an empty ring.
func NewFloodCache() *FloodCache {
	return &FloodCache{}
}

// IsDuplicate reports whether (source, sequence) is present and not expired
// relative to nowMs. It does not mutate the cache.
func (c *FloodCache) IsDuplicate(source NodeAddress, sequence uint32, nowMs uint64) bool {
	for _, e := range c.entries {
		if !e.Valid {
			continue
		}
		if nowMs-e.RecordedAtMs >= FloodCacheTimeoutMs {
			continue
		}
		if e.Source == source && e.Sequence == sequence {
			return true
		}
	}
	return false
}

// Insert overwrites the oldest ring slot with (source, sequence), per
// spec.md §4.I's "insert into the ring (overwriting the oldest)".
func (c *FloodCache) Insert(source NodeAddress, sequence uint32, nowMs uint64) {
	c.entries[c.next] = DuplicateCacheEntry{
		Source:       source,
		Sequence:     sequence,
		RecordedAtMs: nowMs,
		Valid:        true,
	}
	c.next = (c.next + 1) % FloodCacheSize
}

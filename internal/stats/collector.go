// Package stats implements the per-instance statistics collector:
// atomic counters for the hot-path fields, a read-preferring lock over
// the instance->entry map itself (spec.md §3 "Statistics snapshot", §5
// "Statistics trackers use atomic scalars for counters and a read-
// preferring lock for the map itself").
package stats

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the read-only view handed to callers.
type Snapshot struct {
	StartTimeMs     int64
	FrameRate       float64
	LatencyMs       float64
	FramesProcessed uint64
	TrackCount      uint64
	IsRunning       bool
}

type entry struct {
	startTimeMs     int64
	framesProcessed atomic.Uint64
	trackCount      atomic.Uint64
	frameRateBits   atomic.Uint64
	latencyMsBits   atomic.Uint64
	running         atomic.Bool
}

// Collector owns one entry per instance. Counters are monotone for the
// lifetime of an entry (spec.md §5 "Statistics samples for an instance
// are monotone in framesProcessed and have non-decreasing startTimeMs").
type Collector struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{entries: make(map[string]*entry)}
}

// Ensure creates an entry for instanceID if one doesn't already exist,
// stamping its start time. Re-entrant: an existing entry is left alone so
// a rebuild doesn't reset framesProcessed to zero.
func (c *Collector) Ensure(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[instanceID]; ok {
		return
	}
	c.entries[instanceID] = &entry{startTimeMs: time.Now().UnixMilli()}
}

// Release drops the entry for instanceID entirely — called on instance
// deletion.
func (c *Collector) Release(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, instanceID)
}

// MarkRunning flips the running flag for instanceID, if it has an entry.
func (c *Collector) MarkRunning(instanceID string, running bool) {
	c.mu.RLock()
	e, ok := c.entries[instanceID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.running.Store(running)
}

// RecordFrame atomically increments framesProcessed and records the
// latest per-frame latency and frame rate.
func (c *Collector) RecordFrame(instanceID string, latencyMs, frameRate float64) {
	c.mu.RLock()
	e, ok := c.entries[instanceID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.framesProcessed.Add(1)
	e.latencyMsBits.Store(math.Float64bits(latencyMs))
	e.frameRateBits.Store(math.Float64bits(frameRate))
}

// SetTrackCount atomically sets the current track count.
func (c *Collector) SetTrackCount(instanceID string, n uint64) {
	c.mu.RLock()
	e, ok := c.entries[instanceID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.trackCount.Store(n)
}

// Snapshot returns the latest statistics for instanceID. A stale snapshot
// is allowed (spec.md §4.I "getInstanceStatistics... stale is allowed");
// an unknown id reports ok=false, which callers surface as a nil result.
func (c *Collector) Snapshot(instanceID string) (Snapshot, bool) {
	c.mu.RLock()
	e, ok := c.entries[instanceID]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		StartTimeMs:     e.startTimeMs,
		FrameRate:       math.Float64frombits(e.frameRateBits.Load()),
		LatencyMs:       math.Float64frombits(e.latencyMsBits.Load()),
		FramesProcessed: e.framesProcessed.Load(),
		TrackCount:      e.trackCount.Load(),
		IsRunning:       e.running.Load(),
	}, true
}

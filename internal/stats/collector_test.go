package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotUnknownInstance(t *testing.T) {
	c := NewCollector()
	_, ok := c.Snapshot("nope")
	assert.False(t, ok)
}

func TestEnsureIsIdempotent(t *testing.T) {
	c := NewCollector()
	c.Ensure("inst1")
	c.RecordFrame("inst1", 10, 30)
	c.Ensure("inst1")

	snap, ok := c.Snapshot("inst1")
	require.True(t, ok)
	assert.Equal(t, uint64(1), snap.FramesProcessed, "re-calling Ensure must not reset an existing entry")
}

func TestRecordFrameMonotonicallyIncrementsFramesProcessed(t *testing.T) {
	c := NewCollector()
	c.Ensure("inst1")
	for i := 0; i < 5; i++ {
		c.RecordFrame("inst1", 5, 25)
	}
	snap, ok := c.Snapshot("inst1")
	require.True(t, ok)
	assert.Equal(t, uint64(5), snap.FramesProcessed)
	assert.Equal(t, 5.0, snap.LatencyMs)
	assert.Equal(t, 25.0, snap.FrameRate)
}

func TestRecordFrameOnUnknownInstanceIsNoop(t *testing.T) {
	c := NewCollector()
	assert.NotPanics(t, func() { c.RecordFrame("nope", 1, 1) })
}

func TestMarkRunningAndRelease(t *testing.T) {
	c := NewCollector()
	c.Ensure("inst1")
	c.MarkRunning("inst1", true)

	snap, ok := c.Snapshot("inst1")
	require.True(t, ok)
	assert.True(t, snap.IsRunning)

	c.Release("inst1")
	_, ok = c.Snapshot("inst1")
	assert.False(t, ok, "a released entry must no longer be found")
}

func TestSetTrackCount(t *testing.T) {
	c := NewCollector()
	c.Ensure("inst1")
	c.SetTrackCount("inst1", 7)

	snap, ok := c.Snapshot("inst1")
	require.True(t, ok)
	assert.Equal(t, uint64(7), snap.TrackCount)
}

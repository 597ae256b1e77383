package solution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	cfg := Config{SolutionID: "sol1"}
	assert.True(t, r.Register(cfg))
	assert.False(t, r.Register(cfg), "registering the same id twice must be rejected")
}

func TestPutOverwritesExisting(t *testing.T) {
	r := NewRegistry()
	r.Register(Config{SolutionID: "sol1", SolutionName: "first"})
	r.Put(Config{SolutionID: "sol1", SolutionName: "second"})

	got, ok := r.Get("sol1")
	require.True(t, ok)
	assert.Equal(t, "second", got.SolutionName)
}

func TestGetReturnsACloneNotASharedReference(t *testing.T) {
	r := NewRegistry()
	r.Register(Config{
		SolutionID: "sol1",
		Pipeline:   []NodeSpec{{NodeType: "file_src", Parameters: map[string]string{"k": "v"}}},
	})

	got, ok := r.Get("sol1")
	require.True(t, ok)
	got.Pipeline[0].Parameters["k"] = "mutated"

	got2, _ := r.Get("sol1")
	assert.Equal(t, "v", got2.Pipeline[0].Parameters["k"], "mutating a returned Config must not affect the stored copy")
}

func TestListAndDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register(Config{SolutionID: "sol1", IsDefault: true})
	r.Register(Config{SolutionID: "sol2", IsDefault: false})

	assert.Len(t, r.List(), 2)
	assert.Len(t, r.Defaults(), 1)
}

func TestDefaultSolutionsCatalogue(t *testing.T) {
	defaults := DefaultSolutions()
	assert.NotEmpty(t, defaults)

	seen := make(map[string]bool)
	for _, cfg := range defaults {
		assert.True(t, cfg.IsDefault)
		assert.NotEmpty(t, cfg.SolutionID)
		assert.NotEmpty(t, cfg.Pipeline, "every default solution must carry at least one pipeline node")
		assert.False(t, seen[cfg.SolutionID], "solution ids in the default catalogue must be unique")
		seen[cfg.SolutionID] = true
	}

	ids := map[string]bool{}
	for _, cfg := range defaults {
		ids[cfg.SolutionID] = true
	}
	for _, want := range []string{
		"face_detection_file_default",
		"object_detection_rtsp_default",
		"securt_rtsp_default",
		"ba_crossline_rtsp_default",
	} {
		assert.True(t, ids[want], "expected default solution %q", want)
	}
}

package sysconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathRoundTrip(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	require.NoError(t, s.SetMerge("a.b.c", "value"))
	v, ok := s.Get("a/b/c")
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestMergeIdempotence(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	payload := map[string]interface{}{"port": float64(4000)}
	require.NoError(t, s.SetMerge("system.web_server", payload))
	first, _ := s.Get("system.web_server")

	require.NoError(t, s.SetMerge("system.web_server", payload))
	second, _ := s.Get("system.web_server")

	assert.Equal(t, first, second)
}

func TestReplaceDominance(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	require.NoError(t, s.SetMerge("system.max_running_instances", float64(5)))

	replacement := map[string]interface{}{"only": "this"}
	require.NoError(t, s.SetReplace(replacement))

	v, ok := s.Get("")
	require.True(t, ok)
	assert.Equal(t, replacement, v)
}

func TestDeleteMissingPathReturnsFalse(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.False(t, s.Delete("does.not.exist"))
}

func TestConfigPathCRUDScenario(t *testing.T) {
	// Mirrors spec.md scenario S3.
	s, err := New("")
	require.NoError(t, err)

	require.NoError(t, s.SetMerge("system/web_server", map[string]interface{}{"port": float64(4000)}))

	port, ok := s.Get("system/web_server/port")
	require.True(t, ok)
	assert.Equal(t, float64(4000), port)

	assert.True(t, s.Delete("system/web_server"))

	_, ok = s.Get("system/web_server")
	assert.False(t, ok)
}

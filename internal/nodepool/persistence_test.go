package nodepool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	p := newTestPool(t)
	id, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/1"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nodes.json")
	require.NoError(t, p.SaveSnapshot(path))

	restored := newTestPool(t)
	require.NoError(t, restored.LoadSnapshot(path))

	node, ok := restored.Node(id)
	require.True(t, ok)
	assert.Equal(t, "rtsp://cam/1", node.Parameters["rtsp_url"])
	assert.Equal(t, "rtsp_src_template", node.TemplateID)
}

func TestLoadSnapshotMissingFileIsNotAnError(t *testing.T) {
	p := newTestPool(t)
	err := p.LoadSnapshot(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, err)
}

func TestSaveSnapshotCreatesParentDirectory(t *testing.T) {
	p := newTestPool(t)
	path := filepath.Join(t.TempDir(), "nested", "dir", "nodes.json")
	require.NoError(t, p.SaveSnapshot(path))

	restored := newTestPool(t)
	require.NoError(t, restored.LoadSnapshot(path))
}

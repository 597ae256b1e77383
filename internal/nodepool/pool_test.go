package nodepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	require.True(t, p.RegisterTemplate(Template{
		TemplateID:         "rtsp_src_template",
		NodeType:           "rtsp_src",
		DisplayName:        "RTSP Source",
		Category:           CategorySource,
		DefaultParameters:  map[string]string{"channel": "0"},
		RequiredParameters: []string{"rtsp_url"},
	}))
	return p
}

func TestCreatePreConfiguredNodeMergesDefaultsAndValidatesRequired(t *testing.T) {
	p := newTestPool(t)

	_, err := p.CreatePreConfiguredNode("rtsp_src_template", nil)
	assert.Error(t, err, "missing required rtsp_url should fail")

	id, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/1"})
	require.NoError(t, err)

	node, ok := p.Node(id)
	require.True(t, ok)
	assert.Equal(t, "rtsp://cam/1", node.Parameters["rtsp_url"])
	assert.Equal(t, "0", node.Parameters["channel"], "default must be merged in")
	assert.False(t, node.InUse)
}

func TestCreatePreConfiguredNodeUnknownTemplate(t *testing.T) {
	p := newTestPool(t)
	_, err := p.CreatePreConfiguredNode("does-not-exist", nil)
	assert.Error(t, err)
}

// TestInUseInvariant exercises the node-pool in-use invariant: a node
// cannot be marked in-use twice, cannot be removed while in use, and
// becomes eligible again only after being marked available.
func TestInUseInvariant(t *testing.T) {
	p := newTestPool(t)
	id, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/1"})
	require.NoError(t, err)

	assert.True(t, p.MarkInUse(id))
	assert.False(t, p.MarkInUse(id), "double mark-in-use must fail")
	assert.False(t, p.RemoveNode(id), "removing an in-use node must fail")

	available := p.AvailableNodes()
	assert.Empty(t, available)

	assert.True(t, p.MarkAvailable(id))
	assert.False(t, p.MarkAvailable(id), "double mark-available must fail")

	available = p.AvailableNodes()
	require.Len(t, available, 1)
	assert.Equal(t, id, available[0].NodeID)

	assert.True(t, p.RemoveNode(id))
	_, ok := p.Node(id)
	assert.False(t, ok)
}

func TestGetStatsCountsByCategory(t *testing.T) {
	p := newTestPool(t)
	require.True(t, p.RegisterTemplate(Template{TemplateID: "screen_des_template", Category: CategoryDestination, IsPreConfigured: true}))

	id, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/1"})
	require.NoError(t, err)
	require.True(t, p.MarkInUse(id))

	stats := p.GetStats()
	assert.Equal(t, 2, stats.TotalTemplates)
	assert.Equal(t, 1, stats.TotalPreConfiguredNodes)
	assert.Equal(t, 1, stats.InUseNodes)
	assert.Equal(t, 0, stats.AvailableNodes)
	assert.Equal(t, 1, stats.NodesByCategory[CategorySource])
	assert.Equal(t, 1, stats.NodesByCategory[CategoryDestination])
}

// TestResolvePlaceholderSkipRule covers the node-naming placeholder skip
// rule: only the named token is substituted, any other brace-delimited
// text in the template is left as-is rather than erroring.
func TestResolvePlaceholderSkipRule(t *testing.T) {
	got := ResolvePlaceholder("RTSP Source_{instanceId}", "instanceId", "abc123")
	assert.Equal(t, "RTSP Source_abc123", got)

	got = ResolvePlaceholder("{unrelated}_{instanceId}", "instanceId", "abc123")
	assert.Equal(t, "{unrelated}_abc123", got, "unrelated placeholders must survive untouched")
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	p := New()
	p.SeedDefaults()
	first := p.GetStats().TotalTemplates

	p.SeedDefaults()
	assert.Equal(t, first, p.GetStats().TotalTemplates)
}

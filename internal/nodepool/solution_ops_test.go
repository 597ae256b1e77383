package nodepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvedix/edge-ai-core/internal/solution"
)

func TestTemplateByNodeType(t *testing.T) {
	p := newTestPool(t)
	tmpl, ok := p.TemplateByNodeType("rtsp_src")
	require.True(t, ok)
	assert.Equal(t, "rtsp_src_template", tmpl.TemplateID)

	_, ok = p.TemplateByNodeType("does_not_exist")
	assert.False(t, ok)
}

func TestBuildSolutionFromNodesUnknownNodeID(t *testing.T) {
	p := newTestPool(t)
	_, ok := p.BuildSolutionFromNodes([]string{"nope"}, "sol1", "Solution 1")
	assert.False(t, ok)
}

func TestBuildSolutionFromNodesOrdersPipelineByNodeIDs(t *testing.T) {
	p := newTestPool(t)
	id1, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/1"})
	require.NoError(t, err)
	id2, err := p.CreatePreConfiguredNode("rtsp_src_template", map[string]string{"rtsp_url": "rtsp://cam/2"})
	require.NoError(t, err)

	cfg, ok := p.BuildSolutionFromNodes([]string{id2, id1}, "sol1", "Solution 1")
	require.True(t, ok)
	require.Len(t, cfg.Pipeline, 2)
	assert.Equal(t, "rtsp_src", cfg.Pipeline[0].NodeType)
	assert.Equal(t, "rtsp://cam/2", cfg.Pipeline[0].Parameters["rtsp_url"])
	assert.Equal(t, "rtsp://cam/1", cfg.Pipeline[1].Parameters["rtsp_url"])
}

func TestCreateNodesFromDefaultSolutionsSkipsUnresolvablePlaceholder(t *testing.T) {
	p := newTestPool(t)
	defaults := []solution.Config{
		{
			SolutionID: "sol1",
			Pipeline: []solution.NodeSpec{
				{NodeType: "rtsp_src", Parameters: map[string]string{"rtsp_url": "${UNRESOLVED}"}},
			},
		},
	}
	created := p.CreateNodesFromDefaultSolutions(defaults)
	assert.Equal(t, 0, created, "a required parameter with no resolvable value must be skipped, not defaulted to garbage")
}

func TestCreateNodesFromDefaultSolutionsCreatesOncePerNodeType(t *testing.T) {
	p := newTestPool(t)
	defaults := []solution.Config{
		{
			SolutionID: "sol1",
			Pipeline: []solution.NodeSpec{
				{NodeType: "rtsp_src", Parameters: map[string]string{"rtsp_url": "rtsp://cam/1"}},
			},
		},
		{
			SolutionID: "sol2",
			Pipeline: []solution.NodeSpec{
				{NodeType: "rtsp_src", Parameters: map[string]string{"rtsp_url": "rtsp://cam/2"}},
			},
		},
	}
	created := p.CreateNodesFromDefaultSolutions(defaults)
	assert.Equal(t, 1, created, "a node type already represented by an existing node is not duplicated")
}

func TestCreateNodesFromDefaultSolutionsUnknownNodeTypeSkipped(t *testing.T) {
	p := newTestPool(t)
	defaults := []solution.Config{
		{
			SolutionID: "sol1",
			Pipeline:   []solution.NodeSpec{{NodeType: "no_such_type"}},
		},
	}
	assert.Equal(t, 0, p.CreateNodesFromDefaultSolutions(defaults))
}

package securt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/pipeline"
	"github.com/cvedix/edge-ai-core/internal/platform"
	"github.com/cvedix/edge-ai-core/internal/solution"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

func newTestCoreManager(t *testing.T) *instance.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := sysconfig.New(path)
	require.NoError(t, err)

	pool := nodepool.New()
	pool.SeedDefaults()

	solutions := solution.NewRegistry()
	for _, id := range []string{"securt_file_default", "ba_crossline_custom", "face_detection_file_default"} {
		solutions.Register(solution.Config{
			SolutionID: id,
			Pipeline: []solution.NodeSpec{
				{NodeType: "file_src", NodeName: "Source_{instanceId}", Parameters: map[string]string{"file_path": "${FILE_PATH}"}},
			},
		})
	}

	factory := nodefactory.New(store, platform.New())
	builder := pipeline.New(solutions, pool, factory)
	collector := stats.NewCollector()
	engine := nodefactory.NewInProcessEngine()
	registry := instance.NewRegistry()
	return instance.NewManager(registry, builder, store, engine, collector)
}

func line(coords ...Point) Entity {
	return Entity{Coordinates: coords}
}

func TestCreateInstanceRecordsMirror(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)

	_, mirror, err := mgr.CreateInstance(CreateRequest{
		SolutionType:         "securt",
		Input:                instance.InputSpec{Type: "file"},
		DetectorMode:         "motion",
		DetectionSensitivity: "High",
	})
	require.NoError(t, err)
	assert.Equal(t, "motion", mirror.DetectorMode)
	assert.True(t, mgr.HasInstance(mirror.InstanceID))
}

func TestHasInstanceAutoAdoptsCompatibleSolution(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)

	rec, err := core.Create(instance.CreateRequest{
		SolutionID: "ba_crossline_custom",
		Input:      instance.InputSpec{Type: "file"},
	})
	require.NoError(t, err)

	assert.False(t, mgr.HasInstance("unrelated-id"))
	assert.True(t, mgr.HasInstance(rec.InstanceID), "a core instance with a securt-compatible solution id must be auto-adopted")
}

func TestHasInstanceRejectsIncompatibleSolution(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)

	rec, err := core.Create(instance.CreateRequest{
		SolutionType: "face_detection",
		SolutionID:   "face_detection_file_default",
		Input:        instance.InputSpec{Type: "file"},
	})
	require.NoError(t, err)
	assert.False(t, mgr.HasInstance(rec.InstanceID))
}

func TestUpdateUnknownInstance(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, err := mgr.Update("nope", MirrorPatch{})
	assert.Error(t, err)
}

func TestDeleteInstanceCascadesMirrorAndEntities(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)

	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}})
	require.NoError(t, err)

	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, line(Point{X: 0, Y: 0}, Point{X: 1, Y: 1}))
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteInstance(mirror.InstanceID))

	assert.False(t, mgr.HasInstance(mirror.InstanceID))
	entities, err := mgr.ListAllEntities(mirror.InstanceID)
	assert.Error(t, err, "deleted instance is no longer known")
	assert.Nil(t, entities)
}

func TestCreateEntityValidation(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}})
	require.NoError(t, err)

	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, Entity{Coordinates: []Point{{X: 0, Y: 0}}})
	assert.Error(t, err, "fewer than two coordinates is invalid")

	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, Entity{
		Coordinates: []Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		Direction:   "Sideways",
	})
	assert.Error(t, err, "an invalid direction token is rejected")
}

func TestCreateEntityFirstOfKindTriggersDirtyThenClean(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}})
	require.NoError(t, err)

	assert.Equal(t, StateClean, mgr.AnalyticsState(mirror.InstanceID), "a fresh instance with no entities starts Clean")

	created, err := mgr.CreateEntity(mirror.InstanceID, CountingLine, line(Point{X: 0, Y: 0}, Point{X: 1, Y: 1}))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "an id is minted when none is supplied")
	assert.Equal(t, StateClean, mgr.AnalyticsState(mirror.InstanceID), "settles back to Clean once the (non-running) rebuild completes")
}

func TestCreateEntityFirstOfKindRebuildsRunningInstance(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}, AutoStart: true})
	require.NoError(t, err)

	rec, ok := core.Get(mirror.InstanceID)
	require.True(t, ok)
	require.True(t, rec.Running)

	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, line(Point{X: 0, Y: 0}, Point{X: 1, Y: 1}))
	require.NoError(t, err)

	rec, ok = core.Get(mirror.InstanceID)
	require.True(t, ok)
	assert.True(t, rec.Running, "instance must return to running==true after the rebuild cycle")
	assert.Equal(t, StateClean, mgr.AnalyticsState(mirror.InstanceID))
}

func TestCreateEntitySecondOfKindStaysClean(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}})
	require.NoError(t, err)

	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, line(Point{X: 0, Y: 0}, Point{X: 1, Y: 1}))
	require.NoError(t, err)
	_, err = mgr.CreateEntity(mirror.InstanceID, CountingLine, line(Point{X: 2, Y: 2}, Point{X: 3, Y: 3}))
	require.NoError(t, err)

	all, err := mgr.ListEntities(mirror.InstanceID, CountingLine)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, StateClean, mgr.AnalyticsState(mirror.InstanceID))
}

func TestDeleteEntityUnknown(t *testing.T) {
	core := newTestCoreManager(t)
	mgr := NewManager(core)
	_, mirror, err := mgr.CreateInstance(CreateRequest{SolutionType: "securt", Input: instance.InputSpec{Type: "file"}})
	require.NoError(t, err)

	assert.Error(t, mgr.DeleteEntity(mirror.InstanceID, "ent_does_not_exist"))
}

func TestIsSecuRTCompatible(t *testing.T) {
	assert.True(t, isSecuRTCompatible("ba_crossline_custom"))
	assert.True(t, isSecuRTCompatible("securt"))
	assert.False(t, isSecuRTCompatible("face_detection_file_default"))
}

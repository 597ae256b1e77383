package instance

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/pipeline"
	"github.com/cvedix/edge-ai-core/internal/platform"
	"github.com/cvedix/edge-ai-core/internal/solution"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

func newTestManager(t *testing.T) (*Manager, *sysconfig.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := sysconfig.New(path)
	require.NoError(t, err)

	pool := nodepool.New()
	pool.SeedDefaults()

	solutions := solution.NewRegistry()
	solutions.Register(solution.Config{
		SolutionID: "face_detection_file_default",
		Pipeline: []solution.NodeSpec{
			{NodeType: "file_src", NodeName: "Source_{instanceId}", Parameters: map[string]string{"file_path": "${FILE_PATH}"}},
		},
	})

	factory := nodefactory.New(store, platform.New())
	builder := pipeline.New(solutions, pool, factory)
	collector := stats.NewCollector()
	engine := nodefactory.NewInProcessEngine()
	registry := NewRegistry()

	return NewManager(registry, builder, store, engine, collector), store
}

func TestCreateRequiresSolutionTypeOrID(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(CreateRequest{})
	assert.Error(t, err)
}

func TestCreateAndAutoStart(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateRequest{
		SolutionType: "face_detection",
		Input:        InputSpec{Type: "file"},
		AutoStart:    true,
	})
	require.NoError(t, err)
	assert.True(t, rec.Loaded)
	assert.True(t, rec.Running)
	assert.NotEmpty(t, rec.InstanceID)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(CreateRequest{InstanceID: "dup1", SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	require.NoError(t, err)

	_, err = m.Create(CreateRequest{InstanceID: "dup1", SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	assert.Error(t, err)
}

func TestCreateDeniedAtAdmissionCap(t *testing.T) {
	m, store := newTestManager(t)
	require.NoError(t, store.SetMerge("system", map[string]interface{}{"max_running_instances": float64(1)}))

	_, err := m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	require.NoError(t, err, "first create is within the cap")

	_, err = m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	assert.Error(t, err, "second create must be denied once total instance count reaches the cap")
}

func TestStartStopIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	require.NoError(t, err)

	require.NoError(t, m.Start(rec.InstanceID))
	require.NoError(t, m.Start(rec.InstanceID), "starting an already-running instance is a no-op")

	got, _ := m.Get(rec.InstanceID)
	assert.True(t, got.Running)

	require.NoError(t, m.Stop(rec.InstanceID))
	require.NoError(t, m.Stop(rec.InstanceID), "stopping an already-stopped instance is a no-op")
}

func TestStartUnknownInstance(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Error(t, m.Start("does-not-exist"))
}

func TestUpdateWithoutRebuildTriggerAppliesDirectly(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	require.NoError(t, err)

	name := "renamed"
	updated, err := m.Update(rec.InstanceID, Patch{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.DisplayName)
}

func TestUpdateWithRebuildTriggerRestartsIfRunning(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}, AutoStart: true})
	require.NoError(t, err)
	require.True(t, rec.Running)

	newURL := "/other/clip.mp4"
	updated, err := m.Update(rec.InstanceID, Patch{AdditionalParams: map[string]string{"FILE_PATH": newURL}})
	require.NoError(t, err)
	assert.True(t, updated.Running, "instance must be restarted after a rebuild-triggering patch")
	assert.Equal(t, newURL, updated.AdditionalParams["FILE_PATH"])
}

func TestDeleteUnknownInstance(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Error(t, m.Delete("nope"))
}

func TestDeleteInvokesCascadeHooks(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "file"}})
	require.NoError(t, err)

	var hookCalledWith string
	m.RegisterOnDelete(func(id string) { hookCalledWith = id })

	require.NoError(t, m.Delete(rec.InstanceID))
	assert.Equal(t, rec.InstanceID, hookCalledWith)

	_, ok := m.Get(rec.InstanceID)
	assert.False(t, ok)
}

func TestGetInstanceStatisticsUnknown(t *testing.T) {
	m, _ := newTestManager(t)
	_, ok := m.GetInstanceStatistics("nope")
	assert.False(t, ok)
}

func TestDefaultAdditionalParamsUsesResolverForThreshold(t *testing.T) {
	params := defaultAdditionalParams(CreateRequest{DetectionSensitivity: "Low"})
	assert.Equal(t, "0.5", params["DETECTION_THRESHOLD"])

	params = defaultAdditionalParams(CreateRequest{DetectionSensitivity: "High"})
	assert.Equal(t, "0.9", params["DETECTION_THRESHOLD"])

	params = defaultAdditionalParams(CreateRequest{})
	assert.Equal(t, "0.7", params["DETECTION_THRESHOLD"])
}

func TestDefaultAdditionalParamsSeedsProductionFilePath(t *testing.T) {
	params := defaultAdditionalParams(CreateRequest{})
	assert.Equal(t, "/opt/edge_ai_api/videos/face.mp4", params["FILE_PATH"])
}

func TestResolveSolutionIDDefaultsToFileInput(t *testing.T) {
	assert.Equal(t, "face_detection_file_default", resolveSolutionID(CreateRequest{SolutionType: "face_detection"}))
	assert.Equal(t, "face_detection_rtsp_default", resolveSolutionID(CreateRequest{SolutionType: "face_detection", Input: InputSpec{Type: "rtsp"}}))
}

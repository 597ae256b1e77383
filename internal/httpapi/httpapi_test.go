package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/pipeline"
	"github.com/cvedix/edge-ai-core/internal/platform"
	"github.com/cvedix/edge-ai-core/internal/securt"
	"github.com/cvedix/edge-ai-core/internal/solution"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

func newTestServer(t *testing.T) *Server {
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
	registry := instance.NewRegistry()
	manager := instance.NewManager(registry, builder, store, engine, collector)
	securtMgr := securt.NewManager(manager)

	return NewServer(manager, store, pool, securtMgr)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQuickCreateAndGetInstance(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/core/instance/quick", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["instanceId"].(string)
	assert.NotEmpty(t, id)

	getRec := doJSON(t, s, http.MethodGet, "/v1/core/instance/"+id, nil)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestQuickCreateMissingSolutionType(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/core/instance/quick", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InvalidArgument", body.Error)
}

func TestGetInstanceNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/core/instance/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteInstance(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/v1/core/instance/quick", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	id := created["instanceId"].(string)

	delRec := doJSON(t, s, http.MethodDelete, "/v1/core/instance/"+id, nil)
	assert.Equal(t, http.StatusOK, delRec.Code)

	getRec := doJSON(t, s, http.MethodGet, "/v1/core/instance/"+id, nil)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestCORSPreflightReturns200(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/core/instances", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfigGetAndMerge(t *testing.T) {
	s := newTestServer(t)
	getRec := doJSON(t, s, http.MethodGet, "/v1/core/config/system.web_server", nil)
	assert.Equal(t, http.StatusOK, getRec.Code)

	mergeRec := doJSON(t, s, http.MethodPost, "/v1/core/config/system", map[string]interface{}{"max_running_instances": float64(5)})
	assert.Equal(t, http.StatusOK, mergeRec.Code)

	var merged map[string]interface{}
	require.NoError(t, json.Unmarshal(mergeRec.Body.Bytes(), &merged))
	assert.Equal(t, float64(5), merged["max_running_instances"])
}

func TestConfigDeleteUnknownPath(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodDelete, "/v1/core/config/does.not.exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNodesFallsBackToTemplates(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/v1/core/nodes", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "templates", body["type"], "with no pre-configured nodes yet, the list endpoint falls back to templates")

	nodes, ok := body["nodes"].([]interface{})
	require.True(t, ok, "fallback body must carry the listing under \"nodes\"")
	require.NotEmpty(t, nodes)
	first, ok := nodes[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, first["isTemplate"], "every element of the template fallback must carry isTemplate: true")
}

func TestCreateAndGetNode(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/v1/core/nodes", map[string]interface{}{
		"templateId": "rtsp_src_template",
		"parameters": map[string]string{"rtsp_url": "rtsp://cam/1"},
	})
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	nodeID := created["nodeId"].(string)

	getRec := doJSON(t, s, http.MethodGet, "/v1/core/nodes/"+nodeID, nil)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestCreateNodeUnknownTemplate(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/core/nodes", map[string]interface{}{
		"templateId": "rtsp_src",
		"parameters": map[string]string{"rtsp_url": "rtsp://cam/1"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "templateId must be an actual templateId, not a nodeType")
}

func TestSecuRTCreateAndStats(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/securt/instance", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["instanceId"].(string)

	statsRec := doJSON(t, s, http.MethodGet, "/v1/securt/instance/"+id+"/stats", nil)
	assert.Equal(t, http.StatusOK, statsRec.Code)
}

func TestSecuRTCreateLineAndList(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/v1/securt/instance", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	id := created["instanceId"].(string)

	lineRec := doJSON(t, s, http.MethodPost, "/v1/securt/instance/"+id+"/line/counting", map[string]interface{}{
		"coordinates": []map[string]float64{{"x": 0, "y": 0}, {"x": 1, "y": 1}},
	})
	assert.Equal(t, http.StatusCreated, lineRec.Code)

	listRec := doJSON(t, s, http.MethodGet, "/v1/securt/instance/"+id+"/lines", nil)
	assert.Equal(t, http.StatusOK, listRec.Code)
}

func TestSecuRTCreateLineUnknownKind(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/v1/securt/instance", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	id := created["instanceId"].(string)

	rec := doJSON(t, s, http.MethodPost, "/v1/securt/instance/"+id+"/line/unknown", map[string]interface{}{
		"coordinates": []map[string]float64{{"x": 0, "y": 0}, {"x": 1, "y": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecuRTCreateListAndDeleteExclusionArea(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/v1/securt/instance", map[string]interface{}{
		"solutionType": "face_detection",
		"input":        map[string]string{"type": "file"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	id := created["instanceId"].(string)

	areaRec := doJSON(t, s, http.MethodPost, "/v1/securt/instance/"+id+"/exclusion_areas", map[string]interface{}{
		"coordinates": []map[string]float64{{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 1, "y": 1}},
	})
	require.Equal(t, http.StatusCreated, areaRec.Code)
	var area map[string]interface{}
	require.NoError(t, json.Unmarshal(areaRec.Body.Bytes(), &area))
	areaID := area["id"].(string)
	require.NotEmpty(t, areaID, "coordinates must survive into a minted entity, not be silently dropped")

	listRec := doJSON(t, s, http.MethodGet, "/v1/securt/instance/"+id+"/exclusion_areas", nil)
	require.Equal(t, http.StatusOK, listRec.Code)
	var listed map[string]interface{}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	areas, ok := listed["exclusion_areas"].([]interface{})
	require.True(t, ok)
	assert.Len(t, areas, 1)

	delRec := doJSON(t, s, http.MethodDelete, "/v1/securt/instance/"+id+"/exclusion_areas/"+areaID, nil)
	assert.Equal(t, http.StatusOK, delRec.Code)
}

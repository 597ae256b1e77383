package instance

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/modelresolver"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/pipeline"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

// InputSpec and OutputSpec mirror the quick-create request body
// (spec.md §6 "POST /v1/core/instance/quick").
type InputSpec struct {
	Type string // file|rtsp|rtmp|udp|hls
	URL  string
	Path string
}

type OutputSpec struct {
	Type string // file|rtmp|rtsp|screen
	URL  string
}

// CreateRequest is the normalized create payload, shared by the quick
// endpoint and any richer create path.
type CreateRequest struct {
	InstanceID   string
	Name         string
	SolutionType string
	SolutionID   string // explicit override; if empty, derived from SolutionType+Input.Type
	Input        InputSpec
	Output       OutputSpec
	Group        string
	Persistent   bool
	AutoStart    bool
	AutoRestart  bool

	FrameRateLimit       int
	DetectionSensitivity string

	AdditionalParams map[string]string
}

// Manager owns instance lifecycle: create/update/delete/start/stop,
// admission control, config-patch routing and statistics wiring
// (spec.md §4.I).
type Manager struct {
	registry *Registry
	builder  *pipeline.Builder
	config   *sysconfig.Store
	engine   nodefactory.PipelineEngine
	stats    *stats.Collector

	mu       sync.Mutex
	graphs   map[string]nodefactory.GraphHandle
	onDelete []func(instanceID string)
}

// NewManager wires a Manager to its dependencies (design note 9: "an
// explicit construction graph").
func NewManager(registry *Registry, builder *pipeline.Builder, config *sysconfig.Store, engine nodefactory.PipelineEngine, collector *stats.Collector) *Manager {
	return &Manager{
		registry: registry,
		builder:  builder,
		config:   config,
		engine:   engine,
		stats:    collector,
		graphs:   make(map[string]nodefactory.GraphHandle),
	}
}

// RegisterOnDelete adds a cascade hook invoked with the instance id right
// after the record and graph are torn down — the SecuRT facade and
// analytics-entity store use this to drop their own per-instance state.
func (m *Manager) RegisterOnDelete(fn func(instanceID string)) {
	m.onDelete = append(m.onDelete, fn)
}

// Create validates, checks admission, builds the pipeline, registers the
// record, and optionally auto-starts it. On any failure the instance is
// either fully created and visible, or not created at all (spec.md §7).
func (m *Manager) Create(req CreateRequest) (Record, error) {
	const op = "instance.Manager.Create"

	if req.SolutionType == "" && req.SolutionID == "" {
		return Record{}, coreerr.New(op, coreerr.InvalidArgument, "solutionType is required")
	}

	// Admission is measured against the total instance count, not just
	// running ones: spec.md S2 denies a create with cap=1 against one
	// existing (not necessarily running) instance, and the cap is
	// re-read on every call to allow live reconfiguration (spec.md §4.I
	// "Admission policy").
	maxInstances := m.config.GetMaxRunningInstances()
	if maxInstances > 0 && m.registry.Count() >= maxInstances {
		stats.RecordAdmissionDenied()
		return Record{}, coreerr.New(op, coreerr.AdmissionDenied,
			fmt.Sprintf("max_running_instances reached (cap=%d, current=%d)", maxInstances, m.registry.Count()))
	}

	id := req.InstanceID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := m.registry.Get(id); exists {
		return Record{}, coreerr.New(op, coreerr.Conflict, "instance already exists: "+id)
	}

	solutionID := req.SolutionID
	if solutionID == "" {
		solutionID = resolveSolutionID(req)
	}

	additional := defaultAdditionalParams(req)
	for k, v := range req.AdditionalParams {
		additional[k] = v
	}

	buildReq := pipeline.Request{
		InstanceID:       id,
		AdditionalParams: additional,
		ExistingRTMPKeys: m.registry.ExistingRTMPKeys(),
	}
	result, err := m.builder.Build(solutionID, buildReq)
	if err != nil {
		log.Error().Err(err).Str("instance_id", id).Str("solution_id", solutionID).Msg("pipeline build failed")
		return Record{}, err
	}

	rec := Record{
		InstanceID:           id,
		DisplayName:          req.Name,
		Group:                req.Group,
		SolutionID:           solutionID,
		Persistent:           req.Persistent,
		AutoStart:            req.AutoStart,
		AutoRestart:          req.AutoRestart,
		Loaded:               true,
		FrameRateLimit:       req.FrameRateLimit,
		DetectionSensitivity: req.DetectionSensitivity,
		RTSPUrl:              additional["RTSP_URL"],
		RTMPUrl:              additional["RTMP_URL"],
		AdditionalParams:     result.AdditionalParams,
		CreatedAt:            time.Now(),
	}

	if err := m.registry.Create(id, rec); err != nil {
		for _, n := range result.Nodes {
			_ = n.Stop(context.Background())
		}
		return Record{}, err
	}

	graph, err := m.engine.BuildGraph(id, result.Nodes)
	if err != nil {
		m.registry.Delete(id)
		for _, n := range result.Nodes {
			_ = n.Stop(context.Background())
		}
		return Record{}, coreerr.Wrap(op, coreerr.Internal, "engine build graph failed", err)
	}

	m.mu.Lock()
	m.graphs[id] = graph
	m.mu.Unlock()
	m.stats.Ensure(id)

	if req.AutoStart {
		if err := m.Start(id); err != nil {
			log.Warn().Err(err).Str("instance_id", id).Msg("autostart failed, instance remains loaded but stopped")
		}
	}

	stats.RecordRunningInstances(m.registry.CountRunning())
	final, _ := m.registry.Get(id)
	return final, nil
}

// Start transitions a loaded instance to running. Idempotent: starting an
// already-running instance is a no-op (spec.md §4.I).
func (m *Manager) Start(id string) error {
	const op = "instance.Manager.Start"
	rec, ok := m.registry.Get(id)
	if !ok {
		return coreerr.New(op, coreerr.NotFound, "unknown instance: "+id)
	}
	if rec.Running {
		return nil
	}
	if !rec.Loaded {
		return coreerr.New(op, coreerr.PreconditionFailed, "instance graph not loaded")
	}

	m.mu.Lock()
	graph, ok := m.graphs[id]
	m.mu.Unlock()
	if !ok {
		return coreerr.New(op, coreerr.PreconditionFailed, "instance graph missing, rebuild required")
	}

	if err := graph.Start(context.Background()); err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "engine start failed", err)
	}

	running := true
	if _, err := m.registry.Update(id, Patch{Running: &running}); err != nil {
		return err
	}
	m.stats.MarkRunning(id, true)
	stats.RecordRunningInstances(m.registry.CountRunning())
	return nil
}

// Stop transitions a running instance to stopped, retaining its graph.
// Idempotent: stopping an already-stopped instance is a no-op.
func (m *Manager) Stop(id string) error {
	const op = "instance.Manager.Stop"
	rec, ok := m.registry.Get(id)
	if !ok {
		return coreerr.New(op, coreerr.NotFound, "unknown instance: "+id)
	}
	if !rec.Running {
		return nil
	}

	m.mu.Lock()
	graph, ok := m.graphs[id]
	m.mu.Unlock()
	if ok {
		if err := graph.Stop(context.Background()); err != nil {
			log.Warn().Err(err).Str("instance_id", id).Msg("engine reported an error while stopping")
		}
	}

	running := false
	if _, err := m.registry.Update(id, Patch{Running: &running}); err != nil {
		return err
	}
	m.stats.MarkRunning(id, false)
	stats.RecordRunningInstances(m.registry.CountRunning())
	return nil
}

// Update applies patch to instance id. A patch touching a rebuild-
// triggering field stops the graph, rebuilds it against the solution's
// recipe with the merged parameters, and restarts it if it was running;
// otherwise the patch is applied directly with no rebuild (spec.md §4.I).
func (m *Manager) Update(id string, patch Patch) (Record, error) {
	const op = "instance.Manager.Update"
	rec, ok := m.registry.Get(id)
	if !ok {
		return Record{}, coreerr.New(op, coreerr.NotFound, "unknown instance: "+id)
	}

	if !patch.TriggersRebuild() {
		return m.registry.Update(id, patch)
	}

	wasRunning := rec.Running
	if wasRunning {
		if err := m.Stop(id); err != nil {
			return Record{}, err
		}
	}

	merged := applyPatch(rec, patch)
	buildReq := pipeline.Request{
		InstanceID:       id,
		AdditionalParams: merged.AdditionalParams,
		ExistingRTMPKeys: m.registry.ExistingRTMPKeysExcept(id),
	}
	result, err := m.builder.Build(rec.SolutionID, buildReq)
	if err != nil {
		return Record{}, err
	}

	graph, err := m.engine.BuildGraph(id, result.Nodes)
	if err != nil {
		return Record{}, coreerr.Wrap(op, coreerr.Internal, "rebuild failed", err)
	}

	m.mu.Lock()
	if old, ok := m.graphs[id]; ok {
		_ = old.Stop(context.Background())
	}
	m.graphs[id] = graph
	m.mu.Unlock()

	updated, err := m.registry.Update(id, patch)
	if err != nil {
		return Record{}, err
	}

	if wasRunning {
		if err := m.Start(id); err != nil {
			return Record{}, err
		}
		updated, _ = m.registry.Get(id)
	}
	return updated, nil
}

// Delete stops the engine (concurrently across node handles, collecting
// the first error via errgroup — domain-stack wiring per SPEC_FULL.md
// §2), releases per-instance resources, removes the record, and invokes
// every cascade hook registered via RegisterOnDelete.
func (m *Manager) Delete(id string) error {
	const op = "instance.Manager.Delete"
	if _, ok := m.registry.Get(id); !ok {
		return coreerr.New(op, coreerr.NotFound, "unknown instance: "+id)
	}

	m.mu.Lock()
	graph := m.graphs[id]
	delete(m.graphs, id)
	m.mu.Unlock()

	if graph != nil {
		nodes := graph.Nodes()
		g, ctx := errgroup.WithContext(context.Background())
		for _, n := range nodes {
			n := n
			g.Go(func() error { return n.Stop(ctx) })
		}
		if err := g.Wait(); err != nil {
			log.Warn().Err(err).Str("instance_id", id).Msg("one or more nodes reported an error while stopping")
		}
	}

	m.registry.Delete(id)
	m.stats.Release(id)
	stats.RecordRunningInstances(m.registry.CountRunning())

	for _, hook := range m.onDelete {
		hook(id)
	}
	return nil
}

// GetInstanceStatistics returns the latest statistics snapshot for id, or
// false if the id is unknown (spec.md §4.I "nil on unknown id").
func (m *Manager) GetInstanceStatistics(id string) (stats.Snapshot, bool) {
	return m.stats.Snapshot(id)
}

// Get, List and Count delegate straight to the registry — exposed here so
// callers only need to hold a *Manager.
func (m *Manager) Get(id string) (Record, bool) { return m.registry.Get(id) }
func (m *Manager) List() []Record               { return m.registry.List() }
func (m *Manager) Count() int                    { return m.registry.Count() }

func resolveSolutionID(req CreateRequest) string {
	inputType := req.Input.Type
	if inputType == "" {
		inputType = "file"
	}
	return req.SolutionType + "_" + inputType + "_default"
}

// defaultAdditionalParams seeds the request-field -> placeholder-token
// values a quick-create request implies when the caller didn't supply
// an explicit override — e.g. input.type=="file" implies a FILE_PATH
// pointing at the bundled sample clip (spec.md S1).
func defaultAdditionalParams(req CreateRequest) map[string]string {
	out := make(map[string]string)
	switch req.Input.Type {
	case "rtsp":
		out["RTSP_URL"] = firstNonEmpty(req.Input.URL, envOrDefault("RTSP_URL", envOrDefault("RTSP_SRC_URL", "")))
	case "rtmp":
		out["RTMP_URL"] = firstNonEmpty(req.Input.URL, envOrDefault("RTMP_URL", ""))
	case "udp":
		out["UDP_PORT"] = firstNonEmpty(req.Input.URL, "5000")
	default:
		out["FILE_PATH"] = firstNonEmpty(req.Input.Path, "/opt/edge_ai_api/videos/face.mp4")
	}
	switch req.Output.Type {
	case "rtmp":
		out["RTMP_URL"] = firstNonEmpty(req.Output.URL, envOrDefault("RTMP_DES_URL", "rtmp://localhost/live/stream_0"))
	}
	out["FACE_MODEL_PATH"] = "models/face/yunet.onnx"
	out["OBJECT_WEIGHTS_PATH"] = "models/object/yolo.weights"
	out["OBJECT_CONFIG_PATH"] = "models/object/yolo.cfg"
	out["OSD_FONT_PATH"] = ""
	out["OUTPUT_DIR"] = "./output"
	out["DETECTION_THRESHOLD"] = fmt.Sprintf("%.1f", modelresolver.MapDetectionSensitivity(req.DetectionSensitivity))
	out["RESIZE_RATIO"] = "1.0"
	out["MQTT_BROKER_URL"] = envOrDefault("MQTT_BROKER_URL", "")
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

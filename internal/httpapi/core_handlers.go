package httpapi

import (
	"net/http"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
)

type quickCreateRequest struct {
	Name                  string            `json:"name"`
	SolutionType          string            `json:"solutionType"`
	Input                 inputSpecBody     `json:"input"`
	Output                outputSpecBody    `json:"output"`
	Group                 string            `json:"group"`
	Persistent            bool              `json:"persistent"`
	AutoStart             bool              `json:"autoStart"`
	FrameRateLimit        int               `json:"frameRateLimit"`
	DetectionSensitivity  string            `json:"detectionSensitivity"`
	AdditionalParams      map[string]string `json:"additionalParams"`
}

type inputSpecBody struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

type outputSpecBody struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func instanceToJSON(rec instance.Record) map[string]interface{} {
	return map[string]interface{}{
		"instanceId":           rec.InstanceID,
		"name":                 rec.DisplayName,
		"group":                rec.Group,
		"solutionId":           rec.SolutionID,
		"persistent":           rec.Persistent,
		"autoStart":            rec.AutoStart,
		"autoRestart":          rec.AutoRestart,
		"loaded":               rec.Loaded,
		"running":              rec.Running,
		"frameRateLimit":       rec.FrameRateLimit,
		"detectionSensitivity": rec.DetectionSensitivity,
		"fps":                  rec.FPS,
		"rtspUrl":              rec.RTSPUrl,
		"rtmpUrl":              rec.RTMPUrl,
		"additionalParams":     rec.AdditionalParams,
		"createdAt":            rec.CreatedAt,
	}
}

func (s *Server) handleQuickCreate(w http.ResponseWriter, r *http.Request) {
	var body quickCreateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.SolutionType == "" {
		writeError(w, coreerr.New("httpapi.handleQuickCreate", coreerr.InvalidArgument, "solutionType is required"))
		return
	}

	req := instance.CreateRequest{
		Name:                 body.Name,
		SolutionType:         body.SolutionType,
		Input:                instance.InputSpec{Type: body.Input.Type, URL: body.Input.URL, Path: body.Input.Path},
		Output:               instance.OutputSpec{Type: body.Output.Type, URL: body.Output.URL},
		Group:                body.Group,
		Persistent:           body.Persistent,
		AutoStart:            body.AutoStart,
		FrameRateLimit:       body.FrameRateLimit,
		DetectionSensitivity: body.DetectionSensitivity,
		AdditionalParams:     body.AdditionalParams,
	}
	rec, err := s.instances.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, instanceToJSON(rec))
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := s.instances.Get(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleGetInstance", coreerr.NotFound, "unknown instance: "+id))
		return
	}
	writeJSON(w, http.StatusOK, instanceToJSON(rec))
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	records := s.instances.List()
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		out = append(out, instanceToJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"total": len(out), "instances": out})
}

type instancePatchBody struct {
	DisplayName          *string           `json:"name"`
	Group                *string           `json:"group"`
	Persistent           *bool             `json:"persistent"`
	AutoStart            *bool             `json:"autoStart"`
	AutoRestart          *bool             `json:"autoRestart"`
	FrameRateLimit       *int              `json:"frameRateLimit"`
	DetectionSensitivity *string           `json:"detectionSensitivity"`
	RTSPUrl              *string           `json:"rtspUrl"`
	RTMPUrl              *string           `json:"rtmpUrl"`
	AdditionalParams     map[string]string `json:"additionalParams"`
}

func (s *Server) handlePatchInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body instancePatchBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	patch := instance.Patch{
		DisplayName:          body.DisplayName,
		Group:                body.Group,
		Persistent:           body.Persistent,
		AutoStart:            body.AutoStart,
		AutoRestart:          body.AutoRestart,
		FrameRateLimit:       body.FrameRateLimit,
		DetectionSensitivity: body.DetectionSensitivity,
		RTSPUrl:              body.RTSPUrl,
		RTMPUrl:              body.RTMPUrl,
		AdditionalParams:     body.AdditionalParams,
	}
	rec, err := s.instances.Update(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instanceToJSON(rec))
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.instances.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (s *Server) handleStartInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.instances.Start(id); err != nil {
		writeError(w, err)
		return
	}
	rec, _ := s.instances.Get(id)
	writeJSON(w, http.StatusOK, instanceToJSON(rec))
}

func (s *Server) handleStopInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.instances.Stop(id); err != nil {
		writeError(w, err)
		return
	}
	rec, _ := s.instances.Get(id)
	writeJSON(w, http.StatusOK, instanceToJSON(rec))
}

func (s *Server) handleInstanceStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := s.instances.GetInstanceStatistics(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleInstanceStats", coreerr.NotFound, "unknown instance: "+id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"startTimeMs":     snap.StartTimeMs,
		"frameRate":       snap.FrameRate,
		"latencyMs":       snap.LatencyMs,
		"framesProcessed": snap.FramesProcessed,
		"trackCount":      snap.TrackCount,
		"running":         snap.IsRunning,
	})
}

// --- configuration CRUD (spec.md §6, §4.C) ---

func configPath(r *http.Request) string { return r.PathValue("path") }

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	path := configPath(r)
	val, ok := s.config.Get(path)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleConfigGet", coreerr.NotFound, "no config section at: "+path))
		return
	}
	writeJSON(w, http.StatusOK, val)
}

func (s *Server) handleConfigMerge(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	path := configPath(r)
	if err := s.config.SetMerge(path, body); err != nil {
		writeError(w, err)
		return
	}
	if err := s.config.Save(); err != nil {
		writeError(w, err)
		return
	}
	val, _ := s.config.Get(path)
	writeJSON(w, http.StatusOK, val)
}

func (s *Server) handleConfigReplace(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	path := configPath(r)
	if err := s.config.SetReplaceAt(path, body); err != nil {
		writeError(w, err)
		return
	}
	if err := s.config.Save(); err != nil {
		writeError(w, err)
		return
	}
	val, _ := s.config.Get(path)
	writeJSON(w, http.StatusOK, val)
}

func (s *Server) handleConfigDelete(w http.ResponseWriter, r *http.Request) {
	path := configPath(r)
	if !s.config.Delete(path) {
		writeError(w, coreerr.New("httpapi.handleConfigDelete", coreerr.NotFound, "no config section at: "+path))
		return
	}
	if err := s.config.Save(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": path})
}

func (s *Server) handleConfigReset(w http.ResponseWriter, r *http.Request) {
	if err := s.config.ResetDefaults(); err != nil {
		writeError(w, err)
		return
	}
	val, _ := s.config.Get("")
	writeJSON(w, http.StatusOK, val)
}

// --- node pool surface (spec.md §6, §4.D, §4.E) ---

func templateToJSON(t nodepool.Template) map[string]interface{} {
	return map[string]interface{}{
		"templateId":         t.TemplateID,
		"nodeType":           t.NodeType,
		"displayName":        t.DisplayName,
		"description":        t.Description,
		"category":           string(t.Category),
		"defaultParameters":  t.DefaultParameters,
		"requiredParameters": t.RequiredParameters,
		"optionalParameters": t.OptionalParameters,
		"isPreConfigured":    t.IsPreConfigured,
	}
}

func nodeToJSON(n nodepool.PreConfiguredNode) map[string]interface{} {
	return map[string]interface{}{
		"nodeId":     n.NodeID,
		"templateId": n.TemplateID,
		"parameters": n.Parameters,
		"inUse":      n.InUse,
		"createdAt":  n.CreatedAt,
	}
}

// handleListTemplates serves both GET /v1/core/nodes/templates directly
// and the GET /v1/core/nodes fallback when the pool holds no
// pre-configured nodes yet (spec.md S6: body {type:"templates", total:T,
// nodes:[…]} with every element carrying isTemplate: true).
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	var templates []nodepool.Template
	if category != "" {
		templates = s.pool.TemplatesByCategory(nodepool.Category(category))
	} else {
		templates = s.pool.AllTemplates()
	}
	out := make([]map[string]interface{}, 0, len(templates))
	for _, t := range templates {
		item := templateToJSON(t)
		item["isTemplate"] = true
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "templates", "total": len(out), "nodes": out})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := s.pool.Template(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleGetTemplate", coreerr.NotFound, "unknown template: "+id))
		return
	}
	writeJSON(w, http.StatusOK, templateToJSON(t))
}

func (s *Server) handleNodeStats(w http.ResponseWriter, r *http.Request) {
	stats := s.pool.GetStats()
	byCategory := make(map[string]int, len(stats.NodesByCategory))
	for cat, n := range stats.NodesByCategory {
		byCategory[string(cat)] = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalTemplates":          stats.TotalTemplates,
		"totalPreConfiguredNodes": stats.TotalPreConfiguredNodes,
		"availableNodes":          stats.AvailableNodes,
		"inUseNodes":              stats.InUseNodes,
		"nodesByCategory":         byCategory,
	})
}

// handleListNodes implements the fallback-to-templates behavior spec.md
// §6 documents: when no pre-configured nodes exist, the list endpoint
// returns templates instead and marks type: templates.
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("type") == "templates" {
		s.handleListTemplates(w, r)
		return
	}

	nodes := s.pool.AllNodes()
	if q.Get("available") == "true" {
		nodes = s.pool.AvailableNodes()
	}
	if category := q.Get("category"); category != "" {
		filtered := nodes[:0:0]
		for _, n := range nodes {
			tmpl, ok := s.pool.Template(n.TemplateID)
			if ok && string(tmpl.Category) == category {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}

	if len(nodes) == 0 {
		s.handleListTemplates(w, r)
		return
	}

	out := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeToJSON(n))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "nodes", "total": len(out), "nodes": out})
}

type createNodeRequest struct {
	TemplateID string            `json:"templateId"`
	Parameters map[string]string `json:"parameters"`
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var body createNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	nodeID, err := s.pool.CreatePreConfiguredNode(body.TemplateID, body.Parameters)
	if err != nil {
		writeError(w, err)
		return
	}
	n, _ := s.pool.Node(nodeID)
	writeJSON(w, http.StatusCreated, nodeToJSON(n))
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, ok := s.pool.Node(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleGetNode", coreerr.NotFound, "unknown node: "+id))
		return
	}
	writeJSON(w, http.StatusOK, nodeToJSON(n))
}

func (s *Server) handlePutNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, ok := s.pool.Node(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handlePutNode", coreerr.NotFound, "unknown node: "+id))
		return
	}
	if n.InUse {
		if !s.pool.MarkAvailable(id) {
			writeError(w, coreerr.New("httpapi.handlePutNode", coreerr.Conflict, "node in use: "+id))
			return
		}
	}
	writeJSON(w, http.StatusOK, nodeToJSON(n))
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.pool.RemoveNode(id) {
		writeError(w, coreerr.New("httpapi.handleDeleteNode", coreerr.Conflict, "node not found or in use: "+id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

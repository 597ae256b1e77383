package httpapi

import (
	"net/http"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/securt"
)

type securtCreateRequest struct {
	InstanceID           string         `json:"instanceId"`
	Name                 string         `json:"name"`
	SolutionType         string         `json:"solutionType"`
	Input                inputSpecBody  `json:"input"`
	Output               outputSpecBody `json:"output"`
	Group                string         `json:"group"`
	Persistent           bool           `json:"persistent"`
	AutoStart            bool           `json:"autoStart"`
	DetectorMode         string         `json:"detectorMode"`
	DetectionSensitivity string         `json:"detectionSensitivity"`
	MovementSensitivity  string         `json:"movementSensitivity"`
	SensorModality       string         `json:"sensorModality"`
	FrameRateLimit       int            `json:"frameRateLimit"`
}

func mirrorToJSON(rec instance.Record, m securt.Mirror) map[string]interface{} {
	out := instanceToJSON(rec)
	out["detectorMode"] = m.DetectorMode
	out["movementSensitivity"] = m.MovementSensitivity
	out["sensorModality"] = m.SensorModality
	return out
}

func (s *Server) handleSecuRTCreate(w http.ResponseWriter, r *http.Request) {
	var body securtCreateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := securt.CreateRequest{
		InstanceID:           body.InstanceID,
		Name:                 body.Name,
		SolutionType:         body.SolutionType,
		Input:                instance.InputSpec{Type: body.Input.Type, URL: body.Input.URL, Path: body.Input.Path},
		Output:               instance.OutputSpec{Type: body.Output.Type, URL: body.Output.URL},
		Group:                body.Group,
		Persistent:           body.Persistent,
		AutoStart:            body.AutoStart,
		DetectorMode:         body.DetectorMode,
		DetectionSensitivity: body.DetectionSensitivity,
		MovementSensitivity:  body.MovementSensitivity,
		SensorModality:       body.SensorModality,
		FrameRateLimit:       body.FrameRateLimit,
	}
	rec, mirror, err := s.securt.CreateInstance(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mirrorToJSON(rec, mirror))
}

func mirrorPatchFrom(body instancePatchBody, detectorMode, movementSensitivity, sensorModality *string) securt.MirrorPatch {
	return securt.MirrorPatch{
		DetectorMode:         detectorMode,
		DetectionSensitivity: body.DetectionSensitivity,
		MovementSensitivity:  movementSensitivity,
		SensorModality:       sensorModality,
		FrameRateLimit:       body.FrameRateLimit,
	}
}

type securtPatchBody struct {
	instancePatchBody
	DetectorMode        *string `json:"detectorMode"`
	MovementSensitivity *string `json:"movementSensitivity"`
	SensorModality      *string `json:"sensorModality"`
}

func (s *Server) securtUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body securtPatchBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	patch := mirrorPatchFrom(body.instancePatchBody, body.DetectorMode, body.MovementSensitivity, body.SensorModality)
	mirror, err := s.securt.Update(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, _ := s.securt.Core().Get(id)
	writeJSON(w, http.StatusOK, mirrorToJSON(rec, mirror))
}

func (s *Server) handleSecuRTReplace(w http.ResponseWriter, r *http.Request) { s.securtUpdate(w, r) }
func (s *Server) handleSecuRTPatch(w http.ResponseWriter, r *http.Request)   { s.securtUpdate(w, r) }

func (s *Server) handleSecuRTDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.securt.DeleteInstance(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (s *Server) handleSecuRTStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.securt.HasInstance(id) {
		writeError(w, coreerr.New("httpapi.handleSecuRTStats", coreerr.NotFound, "unknown securt instance: "+id))
		return
	}
	snap, ok := s.securt.Core().GetInstanceStatistics(id)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleSecuRTStats", coreerr.NotFound, "no statistics for: "+id))
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

// handleSecuRTAnalyticsEntities returns every entity for the instance —
// an instance with no entities yet returns an empty payload, not 404
// (SPEC_FULL.md §4 open question 3).
func (s *Server) handleSecuRTAnalyticsEntities(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	grouped, err := s.securt.ListAllEntities(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"instanceId": id,
		"state":      string(s.securt.AnalyticsState(id)),
		"entities":   entitiesToJSON(grouped),
	})
}

// handleSecuRTFeature stores each string field of a feature sub-endpoint
// body as a "<feature>.<key>" additional parameter on the core instance via
// the core Instance Manager's Update. Non-string fields are dropped, and
// since no "<feature>.<key>" is a rebuild-triggering key, the update never
// rebuilds the instance.
func (s *Server) handleSecuRTFeature(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var body map[string]interface{}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if !s.securt.HasInstance(id) {
			writeError(w, coreerr.New("httpapi.handleSecuRTFeature", coreerr.NotFound, "unknown securt instance: "+id))
			return
		}
		patch := instance.Patch{AdditionalParams: map[string]string{}}
		for k, v := range body {
			if str, ok := v.(string); ok {
				patch.AdditionalParams[feature+"."+k] = str
			}
		}
		rec, err := s.securt.Core().Update(id, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		mirror, _ := s.securt.Mirror(id)
		writeJSON(w, http.StatusOK, mirrorToJSON(rec, mirror))
	}
}

// --- lines ---

func kindFromToken(token string) (securt.EntityKind, bool) {
	switch token {
	case "counting":
		return securt.CountingLine, true
	case "crossing":
		return securt.CrossingLine, true
	case "tailgating":
		return securt.TailgatingLine, true
	default:
		return "", false
	}
}

type pointBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type entityBody struct {
	ID          string      `json:"id"`
	Coordinates []pointBody `json:"coordinates"`
	Direction   string      `json:"direction"`
	Classes     []string    `json:"classes"`
	DisplayName string      `json:"displayName"`
}

func entityToJSON(e securt.Entity) map[string]interface{} {
	points := make([]map[string]float64, 0, len(e.Coordinates))
	for _, p := range e.Coordinates {
		points = append(points, map[string]float64{"x": p.X, "y": p.Y})
	}
	return map[string]interface{}{
		"id":          e.ID,
		"kind":        string(e.Kind),
		"coordinates": points,
		"direction":   string(e.Direction),
		"classes":     e.Classes,
		"displayName": e.DisplayName,
	}
}

func entitiesToJSON(grouped map[securt.EntityKind][]securt.Entity) map[string][]map[string]interface{} {
	out := make(map[string][]map[string]interface{}, len(grouped))
	for kind, list := range grouped {
		items := make([]map[string]interface{}, 0, len(list))
		for _, e := range list {
			items = append(items, entityToJSON(e))
		}
		out[string(kind)] = items
	}
	return out
}

// lineTokens maps the short token used in the create route (and, per
// spec.md S5, the key the newly created line is returned under) to its
// EntityKind.
var lineTokens = []struct {
	token string
	kind  securt.EntityKind
}{
	{"counting", securt.CountingLine},
	{"crossing", securt.CrossingLine},
	{"tailgating", securt.TailgatingLine},
}

func (s *Server) handleSecuRTLines(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	grouped, err := s.securt.ListAllEntities(id)
	if err != nil {
		writeError(w, err)
		return
	}
	lines := make(map[string][]map[string]interface{})
	for _, lt := range lineTokens {
		if list, ok := grouped[lt.kind]; ok {
			items := make([]map[string]interface{}, 0, len(list))
			for _, e := range list {
				items = append(items, entityToJSON(e))
			}
			lines[lt.token] = items
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instanceId": id, "lines": lines})
}

func (s *Server) handleSecuRTCreateLine(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kindToken := r.PathValue("kind")
	kind, ok := kindFromToken(kindToken)
	if !ok {
		writeError(w, coreerr.New("httpapi.handleSecuRTCreateLine", coreerr.InvalidArgument, "unknown line kind: "+kindToken))
		return
	}
	var body entityBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	points := make([]securt.Point, 0, len(body.Coordinates))
	for _, p := range body.Coordinates {
		points = append(points, securt.Point{X: p.X, Y: p.Y})
	}
	entity := securt.Entity{
		ID:          body.ID,
		Coordinates: points,
		Direction:   securt.Direction(body.Direction),
		Classes:     body.Classes,
		DisplayName: body.DisplayName,
	}
	created, err := s.securt.CreateEntity(id, kind, entity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entityToJSON(created))
}

func (s *Server) handleSecuRTDeleteLine(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lineID := r.PathValue("lineId")
	if err := s.securt.DeleteEntity(id, lineID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": lineID})
}

// --- areas ---
//
// Exclusion/masking/motion areas are geometric AnalyticsEntities exactly
// like lines (module K), so they go through the same
// CreateEntity/ListEntities/DeleteEntity path instead of the generic
// feature-patch handler, which only copies string fields and would
// silently drop the coordinates array.

func areaKindFromFeature(feature string) securt.EntityKind {
	switch feature {
	case "exclusion_areas":
		return securt.ExclusionArea
	case "masking_areas":
		return securt.MaskingArea
	default:
		return securt.MotionArea
	}
}

func (s *Server) handleSecuRTCreateArea(feature string) http.HandlerFunc {
	kind := areaKindFromFeature(feature)
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var body entityBody
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		points := make([]securt.Point, 0, len(body.Coordinates))
		for _, p := range body.Coordinates {
			points = append(points, securt.Point{X: p.X, Y: p.Y})
		}
		entity := securt.Entity{
			ID:          body.ID,
			Coordinates: points,
			Classes:     body.Classes,
			DisplayName: body.DisplayName,
		}
		created, err := s.securt.CreateEntity(id, kind, entity)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entityToJSON(created))
	}
}

func (s *Server) handleSecuRTListAreas(feature string) http.HandlerFunc {
	kind := areaKindFromFeature(feature)
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		list, err := s.securt.ListEntities(id, kind)
		if err != nil {
			writeError(w, err)
			return
		}
		items := make([]map[string]interface{}, 0, len(list))
		for _, e := range list {
			items = append(items, entityToJSON(e))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"instanceId": id, feature: items})
	}
}

func (s *Server) handleSecuRTDeleteArea(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	areaID := r.PathValue("areaId")
	if err := s.securt.DeleteEntity(id, areaID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": areaID})
}

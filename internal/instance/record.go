// Package instance implements the Instance Registry and Instance Manager:
// lifecycle owner for a pipeline instance, admission control against a
// global cap, config-patch routing, and statistics aggregation
// (spec.md §4.H, §4.I).
package instance

import "time"

// Record is the runtime unit owned by the registry (spec.md §3
// "InstanceRecord"). Invariant: Running implies Loaded.
type Record struct {
	InstanceID  string
	DisplayName string
	Group       string
	SolutionID  string

	Persistent  bool
	AutoStart   bool
	AutoRestart bool

	Loaded  bool
	Running bool

	FrameRateLimit       int
	DetectorMode         string
	DetectionSensitivity string
	MovementSensitivity  string
	SensorModality       string
	MetadataMode         string
	StatisticsMode       string
	DiagnosticsMode      bool
	DebugMode            bool

	FPS     float64
	RTSPUrl string
	RTMPUrl string

	AdditionalParams map[string]string

	CreatedAt time.Time
}

func (r Record) clone() Record {
	c := r
	c.AdditionalParams = cloneStrings(r.AdditionalParams)
	return c
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// rebuildTriggeringAdditionalKeys names the AdditionalParams keys whose
// change forces a graph rebuild: source URLs and model paths
// (spec.md §4.I "if the patch touches fields that require rebuild (source
// URL, model path, core knobs)").
var rebuildTriggeringAdditionalKeys = map[string]bool{
	"RTSP_URL":             true,
	"RTMP_URL":             true,
	"FILE_PATH":            true,
	"FACE_MODEL_PATH":      true,
	"OBJECT_WEIGHTS_PATH":  true,
	"OBJECT_CONFIG_PATH":   true,
}

// Patch is a partial update to a Record: only non-nil fields are applied
// (spec.md §4.H "merges a partial record (only fields whose set flag is
// true are applied)" — a Go pointer doubles as that flag).
type Patch struct {
	DisplayName *string
	Group       *string
	Persistent  *bool
	AutoStart   *bool
	AutoRestart *bool

	Loaded  *bool
	Running *bool

	FrameRateLimit       *int
	DetectorMode         *string
	DetectionSensitivity *string
	MovementSensitivity  *string
	SensorModality       *string
	MetadataMode         *string
	StatisticsMode       *string
	DiagnosticsMode      *bool
	DebugMode            *bool

	FPS     *float64
	RTSPUrl *string
	RTMPUrl *string

	AdditionalParams map[string]string // merged over the existing map when non-nil
}

// TriggersRebuild reports whether applying this patch requires the
// instance's graph to be torn down and rebuilt (spec.md §4.I, open
// question 2 resolved in SPEC_FULL.md §4: rebuild only on the documented
// field set, the existing graph is reused otherwise).
func (p Patch) TriggersRebuild() bool {
	if p.RTSPUrl != nil || p.RTMPUrl != nil {
		return true
	}
	if p.DetectorMode != nil || p.DetectionSensitivity != nil || p.MovementSensitivity != nil || p.SensorModality != nil {
		return true
	}
	for k := range p.AdditionalParams {
		if rebuildTriggeringAdditionalKeys[k] {
			return true
		}
	}
	return false
}

func applyPatch(r Record, p Patch) Record {
	if p.DisplayName != nil {
		r.DisplayName = *p.DisplayName
	}
	if p.Group != nil {
		r.Group = *p.Group
	}
	if p.Persistent != nil {
		r.Persistent = *p.Persistent
	}
	if p.AutoStart != nil {
		r.AutoStart = *p.AutoStart
	}
	if p.AutoRestart != nil {
		r.AutoRestart = *p.AutoRestart
	}
	if p.Loaded != nil {
		r.Loaded = *p.Loaded
	}
	if p.Running != nil {
		r.Running = *p.Running
	}
	if p.FrameRateLimit != nil {
		r.FrameRateLimit = *p.FrameRateLimit
	}
	if p.DetectorMode != nil {
		r.DetectorMode = *p.DetectorMode
	}
	if p.DetectionSensitivity != nil {
		r.DetectionSensitivity = *p.DetectionSensitivity
	}
	if p.MovementSensitivity != nil {
		r.MovementSensitivity = *p.MovementSensitivity
	}
	if p.SensorModality != nil {
		r.SensorModality = *p.SensorModality
	}
	if p.MetadataMode != nil {
		r.MetadataMode = *p.MetadataMode
	}
	if p.StatisticsMode != nil {
		r.StatisticsMode = *p.StatisticsMode
	}
	if p.DiagnosticsMode != nil {
		r.DiagnosticsMode = *p.DiagnosticsMode
	}
	if p.DebugMode != nil {
		r.DebugMode = *p.DebugMode
	}
	if p.FPS != nil {
		r.FPS = *p.FPS
	}
	if p.RTSPUrl != nil {
		r.RTSPUrl = *p.RTSPUrl
	}
	if p.RTMPUrl != nil {
		r.RTMPUrl = *p.RTMPUrl
	}
	if p.AdditionalParams != nil {
		merged := cloneStrings(r.AdditionalParams)
		if merged == nil {
			merged = make(map[string]string)
		}
		for k, v := range p.AdditionalParams {
			merged[k] = v
		}
		r.AdditionalParams = merged
	}
	return r
}

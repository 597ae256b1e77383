// Package securt implements the SecuRT Facade and its per-instance
// analytics entities: a domain-specific flavor of instance that reuses
// the core Instance Manager and adds sensitivity/modality knobs plus
// counting/crossing/tailgating lines and exclusion/masking areas
// (spec.md §4.J, §4.K).
package securt

import (
	"sync"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/instance"
)

// compatibleSolutionTokens is the auto-adopt token set from spec.md §4.J:
// a core instance whose SolutionID matches one of these (exactly or as a
// substring) is adopted into the SecuRT mirror on first probe.
var compatibleSolutionTokens = []string{
	"securt", "ba_crossline", "ba_jam", "ba_stop", "ba_area_enter_exit",
}

func isSecuRTCompatible(solutionID string) bool {
	for _, token := range compatibleSolutionTokens {
		if wildcard.Match("*"+token+"*", solutionID) {
			return true
		}
	}
	return false
}

// Mirror is the SecuRT-specific knob set layered over a core instance.
type Mirror struct {
	InstanceID           string
	DetectorMode         string
	DetectionSensitivity string
	MovementSensitivity  string
	SensorModality       string
	FrameRateLimit       int
}

// MirrorPatch carries explicit "field present" flags per knob
// (spec.md §4.J "SecuRT updates carry explicit field present flags per
// knob; only fields marked present are applied").
type MirrorPatch struct {
	DetectorMode         *string
	DetectionSensitivity *string
	MovementSensitivity  *string
	SensorModality       *string
	FrameRateLimit       *int
}

func applyMirrorPatch(m Mirror, p MirrorPatch) Mirror {
	if p.DetectorMode != nil {
		m.DetectorMode = *p.DetectorMode
	}
	if p.DetectionSensitivity != nil {
		m.DetectionSensitivity = *p.DetectionSensitivity
	}
	if p.MovementSensitivity != nil {
		m.MovementSensitivity = *p.MovementSensitivity
	}
	if p.SensorModality != nil {
		m.SensorModality = *p.SensorModality
	}
	if p.FrameRateLimit != nil {
		m.FrameRateLimit = *p.FrameRateLimit
	}
	return m
}

// CreateRequest is the SecuRT create payload.
type CreateRequest struct {
	InstanceID           string
	Name                 string
	SolutionType         string
	Input                instance.InputSpec
	Output               instance.OutputSpec
	Group                string
	Persistent           bool
	AutoStart            bool
	DetectorMode         string
	DetectionSensitivity string
	MovementSensitivity  string
	SensorModality       string
	FrameRateLimit       int
}

// Manager is the SecuRT Facade: it maintains its own registry keyed by
// the same instanceId as the core Instance Manager and delegates
// instance lifecycle to it (spec.md §4.J).
type Manager struct {
	core *instance.Manager

	mu       sync.RWMutex
	mirrors  map[string]Mirror
	entities *EntityStore
}

// NewManager wires a SecuRT Manager over an existing core Instance
// Manager and registers the cascade-delete hook spec.md §3 requires
// ("on instance deletion all owned entities are removed").
func NewManager(core *instance.Manager) *Manager {
	m := &Manager{
		core:     core,
		mirrors:  make(map[string]Mirror),
		entities: NewEntityStore(),
	}
	core.RegisterOnDelete(func(instanceID string) {
		m.mu.Lock()
		delete(m.mirrors, instanceID)
		m.mu.Unlock()
		m.entities.DeleteInstance(instanceID)
	})
	return m
}

// CreateInstance delegates to the core Instance Manager and records a
// SecuRT mirror with the categorical knobs. If the core generated a
// different id than requested, the facade adopts the core's id and logs
// a warning (spec.md §4.J).
func (m *Manager) CreateInstance(req CreateRequest) (instance.Record, Mirror, error) {
	coreReq := instance.CreateRequest{
		InstanceID:           req.InstanceID,
		Name:                 req.Name,
		SolutionType:         req.SolutionType,
		Input:                req.Input,
		Output:               req.Output,
		Group:                req.Group,
		Persistent:           req.Persistent,
		AutoStart:            req.AutoStart,
		FrameRateLimit:       req.FrameRateLimit,
		DetectionSensitivity: req.DetectionSensitivity,
	}

	rec, err := m.core.Create(coreReq)
	if err != nil {
		return instance.Record{}, Mirror{}, err
	}

	if req.InstanceID != "" && rec.InstanceID != req.InstanceID {
		log.Warn().
			Str("requested_id", req.InstanceID).
			Str("adopted_id", rec.InstanceID).
			Msg("securt: core assigned a different instance id, adopting it")
	}

	mirror := Mirror{
		InstanceID:           rec.InstanceID,
		DetectorMode:         req.DetectorMode,
		DetectionSensitivity: req.DetectionSensitivity,
		MovementSensitivity:  req.MovementSensitivity,
		SensorModality:       req.SensorModality,
		FrameRateLimit:       req.FrameRateLimit,
	}
	m.mu.Lock()
	m.mirrors[rec.InstanceID] = mirror
	m.mu.Unlock()

	return rec, mirror, nil
}

// HasInstance first checks the mirror, then probes the core: a core
// instance whose SolutionID matches the SecuRT-compatible token set is
// auto-adopted on first probe (spec.md §4.J, testable property 8).
func (m *Manager) HasInstance(id string) bool {
	m.mu.RLock()
	_, ok := m.mirrors[id]
	m.mu.RUnlock()
	if ok {
		return true
	}

	rec, ok := m.core.Get(id)
	if !ok {
		return false
	}
	if !isSecuRTCompatible(rec.SolutionID) {
		return false
	}

	m.mu.Lock()
	if _, exists := m.mirrors[id]; !exists {
		m.mirrors[id] = Mirror{
			InstanceID:           id,
			DetectionSensitivity: rec.DetectionSensitivity,
			FrameRateLimit:       rec.FrameRateLimit,
		}
		log.Debug().Str("instance_id", id).Str("solution_id", rec.SolutionID).Msg("securt: auto-adopted compatible core instance")
	}
	m.mu.Unlock()
	return true
}

// Mirror returns the SecuRT knob set for id.
func (m *Manager) Mirror(id string) (Mirror, bool) {
	m.HasInstance(id) // ensure auto-adoption has run
	m.mu.RLock()
	defer m.mu.RUnlock()
	mirror, ok := m.mirrors[id]
	return mirror, ok
}

// Update applies a MirrorPatch and, if the patch touches a core-facing
// field, routes the equivalent patch into the core Instance Manager too.
func (m *Manager) Update(id string, patch MirrorPatch) (Mirror, error) {
	const op = "securt.Manager.Update"
	if !m.HasInstance(id) {
		return Mirror{}, coreerr.New(op, coreerr.NotFound, "unknown securt instance: "+id)
	}

	m.mu.Lock()
	mirror := applyMirrorPatch(m.mirrors[id], patch)
	m.mirrors[id] = mirror
	m.mu.Unlock()

	corePatch := instance.Patch{
		DetectorMode:         patch.DetectorMode,
		DetectionSensitivity: patch.DetectionSensitivity,
		MovementSensitivity:  patch.MovementSensitivity,
		SensorModality:       patch.SensorModality,
	}
	if patch.FrameRateLimit != nil {
		corePatch.FrameRateLimit = patch.FrameRateLimit
	}
	if _, err := m.core.Update(id, corePatch); err != nil {
		return mirror, err
	}
	return mirror, nil
}

// DeleteInstance deletes the underlying core instance; the registered
// cascade hook drops the mirror and every owned analytics entity.
func (m *Manager) DeleteInstance(id string) error {
	return m.core.Delete(id)
}

// CreateEntity adds a line or area to an instance and applies the
// mutation policy (spec.md §4.K): a second entity of a kind that
// already has one is folded in as an in-place update and the instance
// stays Clean; the first entity of a new kind needs a tracker the
// running graph doesn't have yet, so the instance goes Dirty and, if it
// is running, is stopped and restarted before settling back to Clean.
func (m *Manager) CreateEntity(instanceID string, kind EntityKind, e Entity) (Entity, error) {
	const op = "securt.Manager.CreateEntity"
	if !m.HasInstance(instanceID) {
		return Entity{}, coreerr.New(op, coreerr.NotFound, "unknown securt instance: "+instanceID)
	}
	if err := validateEntity(e); err != nil {
		return Entity{}, err
	}

	firstOfKind := m.entities.CountOfKind(instanceID, kind) == 0
	created := m.entities.Create(instanceID, kind, e)

	if !firstOfKind {
		m.entities.setState(instanceID, StateClean)
		return created, nil
	}

	m.entities.setState(instanceID, StateDirty)
	rec, ok := m.core.Get(instanceID)
	if ok && rec.Running {
		m.entities.setState(instanceID, StateRebuilding)
		if err := m.core.Stop(instanceID); err != nil {
			return created, coreerr.Wrap(op, coreerr.Internal, "failed to stop instance for rebuild", err)
		}
		if err := m.core.Start(instanceID); err != nil {
			return created, coreerr.Wrap(op, coreerr.Internal, "failed to restart instance after rebuild", err)
		}
	}
	m.entities.setState(instanceID, StateClean)
	return created, nil
}

// DeleteEntity removes one entity. Deleting the last entity of a kind
// leaves the now-unused tracker node in place until the next rebuild —
// spec.md §4.K only mandates a rebuild on growth, not on shrink.
func (m *Manager) DeleteEntity(instanceID, entityID string) error {
	const op = "securt.Manager.DeleteEntity"
	if !m.HasInstance(instanceID) {
		return coreerr.New(op, coreerr.NotFound, "unknown securt instance: "+instanceID)
	}
	if !m.entities.Delete(instanceID, entityID) {
		return coreerr.New(op, coreerr.NotFound, "unknown entity: "+entityID)
	}
	return nil
}

// ListEntities returns every entity of kind for an instance.
func (m *Manager) ListEntities(instanceID string, kind EntityKind) ([]Entity, error) {
	const op = "securt.Manager.ListEntities"
	if !m.HasInstance(instanceID) {
		return nil, coreerr.New(op, coreerr.NotFound, "unknown securt instance: "+instanceID)
	}
	return m.entities.ListKind(instanceID, kind), nil
}

// ListAllEntities returns every entity for an instance grouped by kind.
func (m *Manager) ListAllEntities(instanceID string) (map[EntityKind][]Entity, error) {
	const op = "securt.Manager.ListAllEntities"
	if !m.HasInstance(instanceID) {
		return nil, coreerr.New(op, coreerr.NotFound, "unknown securt instance: "+instanceID)
	}
	return m.entities.ListAll(instanceID), nil
}

// AnalyticsState reports the Clean/Dirty/Rebuilding state for an instance.
func (m *Manager) AnalyticsState(instanceID string) State {
	return m.entities.State(instanceID)
}

// Entities exposes the per-instance analytics entity store so HTTP
// handlers can reach it without the facade re-implementing its API.
func (m *Manager) Entities() *EntityStore { return m.entities }

// Core exposes the underlying core manager for status/statistics calls
// the facade doesn't need to wrap.
func (m *Manager) Core() *instance.Manager { return m.core }

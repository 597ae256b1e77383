package securt

import (
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
)

// EntityKind is one of the analytics entity kinds (spec.md §3
// "AnalyticsEntity").
type EntityKind string

const (
	CountingLine   EntityKind = "countingLine"
	CrossingLine   EntityKind = "crossingLine"
	TailgatingLine EntityKind = "tailgatingLine"
	ExclusionArea  EntityKind = "exclusionArea"
	MaskingArea    EntityKind = "maskingArea"
	MotionArea     EntityKind = "motionArea"
)

// Direction is the optional traversal direction a line entity can carry.
type Direction string

const (
	DirectionUp   Direction = "Up"
	DirectionDown Direction = "Down"
	DirectionBoth Direction = "Both"
)

// Point is a single (x, y) vertex.
type Point struct {
	X float64
	Y float64
}

// Color is an RGBA tuple.
type Color struct {
	R, G, B, A uint8
}

// Entity is one line or area belonging to exactly one instance
// (spec.md §3 "AnalyticsEntity").
type Entity struct {
	ID          string
	Kind        EntityKind
	Coordinates []Point
	Direction   Direction
	Classes     []string
	Color       Color
	DisplayName string
}

// State is the per-instance analytics state machine (spec.md §4.K).
type State string

const (
	StateClean       State = "clean"
	StateDirty       State = "dirty"
	StateRebuilding  State = "rebuilding"
)

type instanceEntities struct {
	mu       sync.RWMutex
	byKind   map[EntityKind]map[string]Entity
	state    State
}

func newInstanceEntities() *instanceEntities {
	return &instanceEntities{byKind: make(map[EntityKind]map[string]Entity), state: StateClean}
}

// EntityStore is a per-instance keyed collection of analytics entities
// (spec.md §4.K).
type EntityStore struct {
	mu    sync.RWMutex
	store map[string]*instanceEntities
}

// NewEntityStore returns an empty EntityStore.
func NewEntityStore() *EntityStore {
	return &EntityStore{store: make(map[string]*instanceEntities)}
}

func (s *EntityStore) ensure(instanceID string) *instanceEntities {
	s.mu.Lock()
	defer s.mu.Unlock()
	ie, ok := s.store[instanceID]
	if !ok {
		ie = newInstanceEntities()
		s.store[instanceID] = ie
	}
	return ie
}

// CountOfKind returns how many entities of kind already exist for an
// instance — callers use this to decide whether an in-place update is
// plausible (a second line of a kind that already has a tracker wired)
// or whether this is the first of its kind and needs a rebuild
// (spec.md §4.K "Mutation policy").
func (s *EntityStore) CountOfKind(instanceID string, kind EntityKind) int {
	s.mu.RLock()
	ie, ok := s.store[instanceID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	return len(ie.byKind[kind])
}

// Create adds a new entity of the given kind, minting an id if none was
// supplied.
func (s *EntityStore) Create(instanceID string, kind EntityKind, e Entity) Entity {
	if e.ID == "" {
		e.ID = "ent_" + strings.ToLower(ulid.Make().String())
	}
	e.Kind = kind
	ie := s.ensure(instanceID)
	ie.mu.Lock()
	defer ie.mu.Unlock()
	if ie.byKind[kind] == nil {
		ie.byKind[kind] = make(map[string]Entity)
	}
	ie.byKind[kind][e.ID] = e
	return e
}

// Delete removes an entity by id, searching every kind.
func (s *EntityStore) Delete(instanceID, entityID string) bool {
	s.mu.RLock()
	ie, ok := s.store[instanceID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	ie.mu.Lock()
	defer ie.mu.Unlock()
	for kind, entities := range ie.byKind {
		if _, exists := entities[entityID]; exists {
			delete(entities, entityID)
			if len(entities) == 0 {
				delete(ie.byKind, kind)
			}
			return true
		}
	}
	return false
}

// ListKind returns every entity of one kind for an instance.
func (s *EntityStore) ListKind(instanceID string, kind EntityKind) []Entity {
	s.mu.RLock()
	ie, ok := s.store[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	out := make([]Entity, 0, len(ie.byKind[kind]))
	for _, e := range ie.byKind[kind] {
		out = append(out, e)
	}
	return out
}

// ListAll returns every entity for an instance, grouped by kind — the
// shape GET /v1/securt/instance/{id}/lines (and analytics_entities)
// responds with. Open question 3 (SPEC_FULL.md §4): an instance with no
// entities yet returns an empty map, not a 404.
func (s *EntityStore) ListAll(instanceID string) map[EntityKind][]Entity {
	s.mu.RLock()
	ie, ok := s.store[instanceID]
	s.mu.RUnlock()
	out := make(map[EntityKind][]Entity)
	if !ok {
		return out
	}
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	for kind, entities := range ie.byKind {
		list := make([]Entity, 0, len(entities))
		for _, e := range entities {
			list = append(list, e)
		}
		out[kind] = list
	}
	return out
}

// DeleteInstance drops every entity owned by an instance — called on
// instance deletion (spec.md §3 "on instance deletion all owned entities
// are removed").
func (s *EntityStore) DeleteInstance(instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, instanceID)
}

// State returns the current Clean/Dirty/Rebuilding state for an instance.
func (s *EntityStore) State(instanceID string) State {
	s.mu.RLock()
	ie, ok := s.store[instanceID]
	s.mu.RUnlock()
	if !ok {
		return StateClean
	}
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	return ie.state
}

func (s *EntityStore) setState(instanceID string, state State) {
	ie := s.ensure(instanceID)
	ie.mu.Lock()
	ie.state = state
	ie.mu.Unlock()
	log.Debug().Str("instance_id", instanceID).Str("state", string(state)).Msg("securt: analytics entity state transition")
}

// validateEntity is a minimal shape check shared by every create path.
func validateEntity(e Entity) error {
	const op = "securt.validateEntity"
	if len(e.Coordinates) < 2 {
		return coreerr.New(op, coreerr.InvalidArgument, "an entity needs at least two coordinates")
	}
	switch e.Direction {
	case "", DirectionUp, DirectionDown, DirectionBoth:
	default:
		return coreerr.New(op, coreerr.InvalidArgument, "invalid direction: "+string(e.Direction))
	}
	return nil
}

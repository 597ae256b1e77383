package instance

import (
	"sync"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
)

// Registry is a thread-safe instanceId -> Record map, guarded by a
// single-writer/many-reader lock (spec.md §4.H, §5). It owns the record,
// not the running graph — the Instance Manager owns the graph lifetime.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Create stores a new record, rejecting a duplicate id.
func (r *Registry) Create(id string, rec Record) error {
	const op = "instance.Registry.Create"
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[id]; exists {
		return coreerr.New(op, coreerr.Conflict, "instance already exists: "+id)
	}
	r.records[id] = rec.clone()
	return nil
}

// Get returns a record by id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Update applies patch to the stored record and returns the result.
func (r *Registry) Update(id string, patch Patch) (Record, error) {
	const op = "instance.Registry.Update"
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, coreerr.New(op, coreerr.NotFound, "unknown instance: "+id)
	}
	rec = applyPatch(rec, patch)
	r.records[id] = rec
	return rec.clone(), nil
}

// Delete removes a record. Returns false if it didn't exist.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return true
}

// List returns every record.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// Count returns the total number of records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// CountRunning returns the number of currently-running records — it feeds
// the running-instances gauge; admission control's cap is measured against
// Count, not this.
func (r *Registry) CountRunning() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.records {
		if rec.Running {
			n++
		}
	}
	return n
}

// ExistingRTMPKeys returns the set of RTMP stream keys already claimed by
// every loaded instance (spec.md §4.G step 2).
func (r *Registry) ExistingRTMPKeys() map[string]struct{} {
	return r.existingRTMPKeysExcept("")
}

// ExistingRTMPKeysExcept is ExistingRTMPKeys excluding one instance id —
// used when rebuilding that instance's own graph so its own existing key
// doesn't count as a collision against itself.
func (r *Registry) ExistingRTMPKeysExcept(exclude string) map[string]struct{} {
	return r.existingRTMPKeysExcept(exclude)
}

func (r *Registry) existingRTMPKeysExcept(exclude string) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{})
	for id, rec := range r.records {
		if id == exclude || rec.RTMPUrl == "" {
			continue
		}
		out[nodefactory.StreamKey(rec.RTMPUrl)] = struct{}{}
	}
	return out
}

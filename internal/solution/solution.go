// Package solution holds the SolutionConfig recipe type and a registry of
// named solutions (spec.md §3 "SolutionConfig", §4.G step 1). A solution
// describes an ordered pipeline of node types with default parameters;
// the Pipeline Builder expands one into a concrete node graph.
package solution

import "sync"

// NodeSpec is one entry in a solution's pipeline: a node type, a name
// template (which may contain the literal token "{instanceId}"), and a
// parameter map that may itself contain "${TOKEN}" placeholders.
type NodeSpec struct {
	NodeType   string
	NodeName   string
	Parameters map[string]string
}

func (n NodeSpec) clone() NodeSpec {
	c := n
	c.Parameters = cloneStrings(n.Parameters)
	return c
}

// Config is a solution recipe (spec.md §3 "SolutionConfig").
type Config struct {
	SolutionID   string
	SolutionName string
	SolutionType string
	IsDefault    bool
	Pipeline     []NodeSpec
}

func (c Config) clone() Config {
	out := c
	out.Pipeline = make([]NodeSpec, len(c.Pipeline))
	for i, n := range c.Pipeline {
		out.Pipeline[i] = n.clone()
	}
	return out
}

// Registry is a thread-safe solutionId -> Config map.
type Registry struct {
	mu        sync.RWMutex
	solutions map[string]Config
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{solutions: make(map[string]Config)}
}

// Register adds a solution, refusing to overwrite an existing id —
// mirroring the idempotent-registration discipline used by the node
// template registry.
func (r *Registry) Register(cfg Config) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.solutions[cfg.SolutionID]; exists {
		return false
	}
	r.solutions[cfg.SolutionID] = cfg.clone()
	return true
}

// Put unconditionally stores (or overwrites) a solution — used by the
// HTTP adapter's solution-import path, where an explicit PUT should win.
func (r *Registry) Put(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solutions[cfg.SolutionID] = cfg.clone()
}

// Get returns a solution by id.
func (r *Registry) Get(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.solutions[id]
	if !ok {
		return Config{}, false
	}
	return c.clone(), true
}

// List returns every registered solution.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.solutions))
	for _, c := range r.solutions {
		out = append(out, c.clone())
	}
	return out
}

// Defaults returns every solution marked IsDefault — the set
// nodepool.CreateNodesFromDefaultSolutions seeds pre-configured nodes
// from (spec.md §4.E).
func (r *Registry) Defaults() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Config
	for _, c := range r.solutions {
		if c.IsDefault {
			out = append(out, c.clone())
		}
	}
	return out
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

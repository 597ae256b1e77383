package nodepool

import (
	"strings"
	"sync"
	"time"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// PreConfiguredNode is a concrete node carved out of a template with
// parameters resolved. It may be shared across pipeline builds while
// InUse is false.
type PreConfiguredNode struct {
	NodeID     string
	TemplateID string
	Parameters map[string]string
	InUse      bool
	CreatedAt  time.Time
}

// Stats mirrors original_source's NodePoolManager::NodeStats.
type Stats struct {
	TotalTemplates         int
	TotalPreConfiguredNodes int
	AvailableNodes         int
	InUseNodes             int
	NodesByCategory        map[Category]int
}

// Pool is the Node Template Registry + Node Pool: an immutable set of
// templates plus a mutable set of pre-configured node instances. A
// single RWMutex guards both maps since templates are written only at
// startup and reads vastly outnumber writes (spec.md §4.D).
type Pool struct {
	mu        sync.RWMutex
	templates map[string]Template
	nodes     map[string]PreConfiguredNode
}

// New returns an empty Pool. Call SeedDefaults to load the built-in
// template set.
func New() *Pool {
	return &Pool{
		templates: make(map[string]Template),
		nodes:     make(map[string]PreConfiguredNode),
	}
}

// SeedDefaults registers the built-in templates, skipping any templateId
// already present so a second call is a no-op.
func (p *Pool) SeedDefaults() {
	for _, t := range defaultTemplates() {
		if ok := p.RegisterTemplate(t); !ok {
			log.Debug().Str("template_id", t.TemplateID).Msg("default template already registered, skipping")
		}
	}
	log.Info().Int("count", len(defaultTemplates())).Msg("node pool seeded with default templates")
}

// RegisterTemplate adds a template, refusing to overwrite an existing
// templateId. Returns false on a duplicate id.
func (p *Pool) RegisterTemplate(t Template) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.templates[t.TemplateID]; exists {
		return false
	}
	p.templates[t.TemplateID] = t.clone()
	return true
}

// AllTemplates returns every registered template.
func (p *Pool) AllTemplates() []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Template, 0, len(p.templates))
	for _, t := range p.templates {
		out = append(out, t.clone())
	}
	return out
}

// TemplatesByCategory filters AllTemplates to one category.
func (p *Pool) TemplatesByCategory(category Category) []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Template
	for _, t := range p.templates {
		if t.Category == category {
			out = append(out, t.clone())
		}
	}
	return out
}

// Template returns a single template by id.
func (p *Pool) Template(templateID string) (Template, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.templates[templateID]
	if !ok {
		return Template{}, false
	}
	return t.clone(), true
}

// CreatePreConfiguredNode merges parameters over the template's defaults,
// validates every required parameter is present, and stores the result
// under a freshly generated node id. Returns coreerr.NotFound for an
// unknown template and coreerr.InvalidArgument for a missing required
// parameter.
func (p *Pool) CreatePreConfiguredNode(templateID string, parameters map[string]string) (string, error) {
	const op = "nodepool.CreatePreConfiguredNode"
	p.mu.Lock()
	defer p.mu.Unlock()

	tmpl, ok := p.templates[templateID]
	if !ok {
		return "", coreerr.New(op, coreerr.NotFound, "template not found: "+templateID)
	}

	final := cloneMap(tmpl.DefaultParameters)
	if final == nil {
		final = make(map[string]string)
	}
	for k, v := range parameters {
		final[k] = v
	}

	for _, required := range tmpl.RequiredParameters {
		if _, ok := final[required]; !ok {
			return "", coreerr.New(op, coreerr.InvalidArgument, "missing required parameter: "+required)
		}
	}

	nodeID := generateNodeID()
	p.nodes[nodeID] = PreConfiguredNode{
		NodeID:     nodeID,
		TemplateID: templateID,
		Parameters: final,
		InUse:      false,
		CreatedAt:  time.Now(),
	}
	stats.RecordNodePoolSize(len(p.nodes))
	return nodeID, nil
}

// Node returns a pre-configured node by id.
func (p *Pool) Node(nodeID string) (PreConfiguredNode, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.nodes[nodeID]
	return n, ok
}

// AllNodes returns every pre-configured node, in use or not.
func (p *Pool) AllNodes() []PreConfiguredNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PreConfiguredNode, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n)
	}
	return out
}

// AvailableNodes returns every pre-configured node currently not in use.
func (p *Pool) AvailableNodes() []PreConfiguredNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PreConfiguredNode
	for _, n := range p.nodes {
		if !n.InUse {
			out = append(out, n)
		}
	}
	return out
}

// MarkInUse flips a node to in-use. Returns false if the node is unknown
// or already in use — this is the invariant a caller leans on to avoid
// double-assigning a node into two concurrently-built pipelines.
func (p *Pool) MarkInUse(nodeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[nodeID]
	if !ok || n.InUse {
		return false
	}
	n.InUse = true
	p.nodes[nodeID] = n
	return true
}

// MarkAvailable flips a node back to available. Returns false if the
// node is unknown or already available.
func (p *Pool) MarkAvailable(nodeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[nodeID]
	if !ok || !n.InUse {
		return false
	}
	n.InUse = false
	p.nodes[nodeID] = n
	return true
}

// RemoveNode deletes a pre-configured node. Refuses to remove a node
// that is in use.
func (p *Pool) RemoveNode(nodeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[nodeID]
	if !ok || n.InUse {
		return false
	}
	delete(p.nodes, nodeID)
	stats.RecordNodePoolSize(len(p.nodes))
	return true
}

// GetStats returns pool-wide counters, including a per-category template
// tally.
func (p *Pool) GetStats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		TotalTemplates:          len(p.templates),
		TotalPreConfiguredNodes: len(p.nodes),
		NodesByCategory:         make(map[Category]int),
	}
	for _, n := range p.nodes {
		if n.InUse {
			stats.InUseNodes++
		} else {
			stats.AvailableNodes++
		}
	}
	for _, t := range p.templates {
		stats.NodesByCategory[t.Category]++
	}
	return stats
}

// ResolvePlaceholder substitutes every occurrence of "{"+token+"}" in s
// with value. Any other "{...}" placeholder is left untouched — a node
// name template like "RTSP Source_{instanceId}" must survive having only
// instanceId resolved, without the resolver choking on unrelated braces
// a future template author might introduce.
func ResolvePlaceholder(s, token, value string) string {
	return strings.ReplaceAll(s, "{"+token+"}", value)
}

func generateNodeID() string {
	return "node_" + strings.ToLower(ulid.Make().String())
}

// Package nodefactory implements the nodeType -> constructor dispatch
// table that turns a resolved parameter set into an opaque node handle
// ready to be wired into a graph (spec.md §4.F). The actual video/codec
// runtime is a black box per spec.md §1 — handles here only model the
// lifecycle and parameter surface an orchestrator needs.
package nodefactory

import "context"

// NodeHandle is the narrow interface the core uses to address a node
// without inspecting its internals (design note 9: "Node handles as
// opaque cross-language objects... model as an interface with lifecycle
// methods and an opaque identifier").
type NodeHandle interface {
	Name() string
	NodeType() string
	Parameters() map[string]string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type handle struct {
	name     string
	nodeType string
	params   map[string]string
	onStart  func(ctx context.Context) error
	onStop   func(ctx context.Context) error
}

func (h *handle) Name() string                  { return h.name }
func (h *handle) NodeType() string              { return h.nodeType }
func (h *handle) Parameters() map[string]string { return h.params }

func (h *handle) Start(ctx context.Context) error {
	if h.onStart == nil {
		return nil
	}
	return h.onStart(ctx)
}

func (h *handle) Stop(ctx context.Context) error {
	if h.onStop == nil {
		return nil
	}
	return h.onStop(ctx)
}

// Publisher is the narrow interface a broker node exposes to callers that
// want to emit structured events without knowing it's backed by MQTT.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type brokerHandle struct {
	handle
	publish func(topic string, payload []byte) error
}

func (b *brokerHandle) Publish(topic string, payload []byte) error {
	return b.publish(topic, payload)
}

// GraphHandle is the ordered set of nodes the engine actually runs.
type GraphHandle interface {
	Nodes() []NodeHandle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// PipelineEngine accepts an ordered list of node handles and wires them
// into a running graph (design note 9: "a pipeline engine that accepts an
// ordered list of node handles and returns a GraphHandle").
type PipelineEngine interface {
	BuildGraph(instanceID string, nodes []NodeHandle) (GraphHandle, error)
}

type inProcessGraph struct {
	nodes []NodeHandle
}

func (g *inProcessGraph) Nodes() []NodeHandle { return g.nodes }

func (g *inProcessGraph) Start(ctx context.Context) error {
	for _, n := range g.nodes {
		if err := n.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *inProcessGraph) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if err := g.nodes[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InProcessEngine is the default engine implementation used outside of a
// real deployment (tests, local runs): it starts node handles in-process in
// graph order and stops them in reverse graph order, without touching any
// actual video runtime.
type InProcessEngine struct{}

// NewInProcessEngine returns an InProcessEngine.
func NewInProcessEngine() *InProcessEngine { return &InProcessEngine{} }

// BuildGraph wires nodes into an in-process graph, producer/consumer
// ordering preserved (spec.md §4.G step 4).
func (e *InProcessEngine) BuildGraph(instanceID string, nodes []NodeHandle) (GraphHandle, error) {
	return &inProcessGraph{nodes: nodes}, nil
}

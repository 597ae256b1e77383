// Package pipeline implements the Pipeline Builder: it turns a
// SolutionConfig into an ordered list of concrete node handles, resolving
// placeholders against a request and the owning node template before
// handing each one to the Node Factory (spec.md §4.G).
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/solution"
)

// Request carries the inputs a single Build call needs beyond the
// solution recipe itself.
type Request struct {
	InstanceID       string
	AdditionalParams map[string]string
	ExistingRTMPKeys map[string]struct{}
	FontPathOverride string
}

// NodeBinding records the fully-resolved parameters a single pipeline
// entry was built with — the "full parameter binding" spec.md §4.G step 5
// says must be recorded so an in-place update can be diffed against it.
type NodeBinding struct {
	NodeType   string
	NodeName   string
	Parameters map[string]string
}

// Result is the outcome of a successful Build.
type Result struct {
	Nodes            []nodefactory.NodeHandle
	Bindings         []NodeBinding
	AdditionalParams map[string]string
}

// Builder turns solutions into graphs of node handles.
type Builder struct {
	solutions *solution.Registry
	pool      *nodepool.Pool
	factory   *nodefactory.Factory
}

// New wires a Builder to its dependencies (design note 9: "the Instance
// Manager receives the Pipeline Builder, which receives the Node Pool and
// the Template Registry").
func New(solutions *solution.Registry, pool *nodepool.Pool, factory *nodefactory.Factory) *Builder {
	return &Builder{solutions: solutions, pool: pool, factory: factory}
}

// Build realises solutionID into an ordered node graph for req.InstanceID.
// On any failure every already-built node handle is stopped before
// returning, so the caller never has to release partial state itself
// (spec.md §5 "Cancellation and timeouts").
func (b *Builder) Build(solutionID string, req Request) (*Result, error) {
	const op = "pipeline.Build"

	sol, ok := b.solutions.Get(solutionID)
	if !ok {
		return nil, coreerr.New(op, coreerr.NotFound, "solution not found: "+solutionID)
	}
	if req.ExistingRTMPKeys == nil {
		req.ExistingRTMPKeys = make(map[string]struct{})
	}
	if req.AdditionalParams == nil {
		req.AdditionalParams = make(map[string]string)
	}

	var nodes []nodefactory.NodeHandle
	var bindings []NodeBinding
	release := func() {
		ctx := context.Background()
		for _, n := range nodes {
			_ = n.Stop(ctx)
		}
	}

	for _, spec := range sol.Pipeline {
		name := nodepool.ResolvePlaceholder(spec.NodeName, "instanceId", req.InstanceID)
		tmpl, hasTemplate := b.pool.TemplateByNodeType(spec.NodeType)

		merged, unresolvedKey, unresolvedRequired := resolveParameters(spec, tmpl, hasTemplate, req.AdditionalParams)
		if unresolvedRequired {
			if hasTemplate && isSkippableCategory(tmpl.Category) {
				log.Warn().
					Str("node_type", spec.NodeType).
					Str("parameter", unresolvedKey).
					Msg("skipping node: required parameter unresolved on an optional-category slot")
				continue
			}
			release()
			return nil, coreerr.New(op, coreerr.InvalidArgument,
				fmt.Sprintf("unresolved required parameter %q for node type %q", unresolvedKey, spec.NodeType))
		}

		bctx := nodefactory.BuildContext{
			InstanceID:       req.InstanceID,
			ExistingRTMPKeys: req.ExistingRTMPKeys,
			FontPathOverride: req.FontPathOverride,
		}
		built, err := b.factory.Create(spec.NodeType, name, merged, bctx)
		if err != nil {
			release()
			return nil, coreerr.Wrap(op, coreerr.InvalidArgument, "node factory failed for "+spec.NodeType, err)
		}
		if built == nil {
			log.Debug().Str("node_type", spec.NodeType).Str("name", name).Msg("node elided by factory")
			continue
		}
		nodes = append(nodes, built)
		bindings = append(bindings, NodeBinding{NodeType: spec.NodeType, NodeName: name, Parameters: merged})
	}

	return &Result{Nodes: nodes, Bindings: bindings, AdditionalParams: req.AdditionalParams}, nil
}

// resolveParameters merges nodeSpec.parameters with request.additionalParams
// (right side wins on matching keys) and template defaults, then resolves
// any "${TOKEN}" placeholder from the request or the template default for
// that key (spec.md §4.G step 3.b). It reports one required parameter
// that remains unresolved, if any; which one is not defined when several
// remain.
func resolveParameters(spec solution.NodeSpec, tmpl nodepool.Template, hasTemplate bool, additional map[string]string) (map[string]string, string, bool) {
	merged := make(map[string]string, len(spec.Parameters))
	for k, v := range spec.Parameters {
		merged[k] = v
	}
	for k, v := range additional {
		if _, exists := merged[k]; exists {
			merged[k] = v
		}
	}
	if hasTemplate {
		for k, def := range tmpl.DefaultParameters {
			if _, exists := merged[k]; !exists {
				merged[k] = def
			}
		}
	}

	requiredSet := make(map[string]bool, len(tmpl.RequiredParameters))
	if hasTemplate {
		for _, r := range tmpl.RequiredParameters {
			requiredSet[r] = true
		}
	}

	for k, v := range merged {
		if !isPlaceholder(v) {
			continue
		}
		token := strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}")
		if repl, ok := additional[token]; ok && repl != "" {
			merged[k] = repl
			continue
		}
		if hasTemplate {
			if def, ok := tmpl.DefaultParameters[k]; ok && !isPlaceholder(def) {
				merged[k] = def
				continue
			}
		}
		if requiredSet[k] {
			return merged, k, true
		}
	}
	return merged, "", false
}

func isSkippableCategory(c nodepool.Category) bool {
	switch c {
	case nodepool.CategorySource, nodepool.CategoryDetector, nodepool.CategoryDestination:
		return true
	}
	return false
}

func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") && len(v) > 3
}

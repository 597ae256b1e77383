package nodepool

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/solution"
)

// TemplateByNodeType is the inverse lookup of Template (which is keyed by
// templateId): the Pipeline Builder addresses templates by the nodeType a
// SolutionConfig pipeline entry carries.
func (p *Pool) TemplateByNodeType(nodeType string) (Template, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.templates {
		if t.NodeType == nodeType {
			return t.clone(), true
		}
	}
	return Template{}, false
}

// BuildSolutionFromNodes materialises a SolutionConfig whose pipeline
// mirrors the supplied pre-configured node ids, in order (spec.md §4.E).
// Returns false if any id is unknown or its template has since vanished.
func (p *Pool) BuildSolutionFromNodes(nodeIDs []string, solutionID, solutionName string) (solution.Config, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pipeline := make([]solution.NodeSpec, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, ok := p.nodes[id]
		if !ok {
			return solution.Config{}, false
		}
		tmpl, ok := p.templates[node.TemplateID]
		if !ok {
			return solution.Config{}, false
		}
		pipeline = append(pipeline, solution.NodeSpec{
			NodeType:   tmpl.NodeType,
			NodeName:   tmpl.DisplayName + "_{instanceId}",
			Parameters: cloneMap(node.Parameters),
		})
	}
	return solution.Config{SolutionID: solutionID, SolutionName: solutionName, Pipeline: pipeline}, true
}

// CreateNodesFromDefaultSolutions ensures every node type referenced by a
// default solution has at least one pre-configured node, creating one
// from the matching template's defaults where missing. A node whose
// required parameter resolves to an unsubstituted "${TOKEN}" placeholder
// with no template default to fall back on is skipped (spec.md §4.E
// "Placeholder policy", testable property 6). Returns the count created.
func (p *Pool) CreateNodesFromDefaultSolutions(defaults []solution.Config) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	typeToTemplateID := make(map[string]string, len(p.templates))
	for id, t := range p.templates {
		typeToTemplateID[t.NodeType] = id
	}
	existingTypes := make(map[string]bool, len(p.nodes))
	for _, n := range p.nodes {
		if t, ok := p.templates[n.TemplateID]; ok {
			existingTypes[t.NodeType] = true
		}
	}

	created := 0
	for _, sol := range defaults {
		for _, spec := range sol.Pipeline {
			if existingTypes[spec.NodeType] {
				continue
			}
			templateID, ok := typeToTemplateID[spec.NodeType]
			if !ok {
				continue
			}
			tmpl := p.templates[templateID]

			params := cloneMap(tmpl.DefaultParameters)
			if params == nil {
				params = make(map[string]string)
			}
			for k, v := range spec.Parameters {
				params[k] = v
			}

			skip := false
			for _, required := range tmpl.RequiredParameters {
				v, has := params[required]
				if has && !isPlaceholder(v) {
					continue
				}
				if def, ok := tmpl.DefaultParameters[required]; ok && !isPlaceholder(def) {
					params[required] = def
					continue
				}
				skip = true
				break
			}
			if skip {
				log.Warn().
					Str("node_type", spec.NodeType).
					Str("solution_id", sol.SolutionID).
					Msg("skipping default node: required parameter has no resolvable value")
				continue
			}

			nodeID := generateNodeID()
			p.nodes[nodeID] = PreConfiguredNode{
				NodeID:     nodeID,
				TemplateID: templateID,
				Parameters: params,
				InUse:      false,
				CreatedAt:  time.Now(),
			}
			existingTypes[spec.NodeType] = true
			created++
		}
	}
	if created > 0 {
		log.Info().Int("count", created).Msg("created pre-configured nodes from default solutions")
	}
	return created
}

func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") && len(v) > 3
}

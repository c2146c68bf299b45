package generator

import (
	"sort"

	"subgraphgen/internal/graph"
	"subgraphgen/internal/rules"
	"subgraphgen/pkg/models"
)

// Generator turns raw events into one-node graph fragments.
type Generator struct {
	engine rules.Engine
}

// New creates a generator. A nil engine disables tagging.
func New(engine rules.Engine) *Generator {
	return &Generator{engine: engine}
}

// Generate builds the fragment for a single event. Tags from the rule
// engine are attached to the node before it is wrapped.
func (g *Generator) Generate(event *models.RawEvent) (*graph.Graph, error) {
	node, err := BuildNode(event)
	if err != nil {
		return nil, err
	}
	if g != nil && g.engine != nil {
		node.Tags = normalizeTags(g.engine.Apply(event))
	}
	return ToFragment(node, *event.Timestamp), nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := append([]string(nil), tags...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

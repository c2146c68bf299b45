package rules

import "subgraphgen/pkg/models"

// Engine tags events with the ids of matching detection rules.
type Engine interface {
	Apply(event *models.RawEvent) []string
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(event *models.RawEvent) []string {
	return nil
}

package graph

// MergeStats records graph sizes around a batch merge. The pre-merge
// numbers are sums over the input fragments and feed logs and metrics only.
type MergeStats struct {
	Fragments int
	PreNodes  int
	PreEdges  int
	Nodes     int
	Edges     int
}

// MergeBatch folds fragments, in slice order, into one aggregate graph.
func MergeBatch(fragments []*Graph) (*Graph, MergeStats) {
	aggregate := New(0)
	var stats MergeStats

	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		stats.Fragments++
		stats.PreNodes += len(fragment.Nodes)
		stats.PreEdges += len(fragment.Edges)
		aggregate.Merge(fragment)
	}

	stats.Nodes = len(aggregate.Nodes)
	stats.Edges = len(aggregate.Edges)
	return aggregate, stats
}

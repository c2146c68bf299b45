package graph

import "sort"

// Edge is a directed, named relation between two node keys.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Name string `json:"name"`
}

// Graph is a set of process nodes keyed by identity plus the edges between
// them. A fragment built from one event and the aggregate of a batch share
// this type.
type Graph struct {
	Nodes     map[string]*ProcessNode `json:"nodes"`
	Edges     []Edge                  `json:"edges,omitempty"`
	Timestamp uint64                  `json:"timestamp"`

	edgeSet map[Edge]struct{}
}

// New creates an empty graph stamped with timestamp.
func New(timestamp uint64) *Graph {
	return &Graph{
		Nodes:     make(map[string]*ProcessNode),
		Timestamp: timestamp,
	}
}

// IsEmpty reports whether the graph has neither nodes nor edges.
func (g *Graph) IsEmpty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Edges) == 0)
}

// AddNode inserts node under its key, merging with any node already there.
func (g *Graph) AddNode(node *ProcessNode) {
	if node == nil {
		return
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*ProcessNode)
	}
	if existing, ok := g.Nodes[node.NodeKey]; ok {
		existing.Merge(node)
		return
	}
	g.Nodes[node.NodeKey] = node.Clone()
}

// AddEdge appends an edge unless the same edge is already present.
func (g *Graph) AddEdge(from, to, name string) {
	e := Edge{From: from, To: to, Name: name}
	if g.edgeSet == nil {
		g.edgeSet = make(map[Edge]struct{}, len(g.Edges)+1)
		for _, existing := range g.Edges {
			g.edgeSet[existing] = struct{}{}
		}
	}
	if _, ok := g.edgeSet[e]; ok {
		return
	}
	g.edgeSet[e] = struct{}{}
	g.Edges = append(g.Edges, e)
}

// Merge unions other into g. The timestamp becomes the later of the two.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, key := range other.NodeKeys() {
		g.AddNode(other.Nodes[key])
	}
	for _, e := range other.Edges {
		g.AddEdge(e.From, e.To, e.Name)
	}
	if other.Timestamp > g.Timestamp {
		g.Timestamp = other.Timestamp
	}
}

// NodeKeys returns the node keys in sorted order.
func (g *Graph) NodeKeys() []string {
	if g == nil {
		return nil
	}
	keys := make([]string, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedEdges returns a copy of the edges ordered by from, to, name.
func (g *Graph) SortedEdges() []Edge {
	if g == nil || len(g.Edges) == 0 {
		return nil
	}
	out := append([]Edge(nil), g.Edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Equal reports whether two graphs hold the same nodes and the same edge
// set. Edge order and timestamps are ignored.
func (g *Graph) Equal(other *Graph) bool {
	if g.IsEmpty() || other.IsEmpty() {
		return g.IsEmpty() && other.IsEmpty()
	}
	if len(g.Nodes) != len(other.Nodes) || len(g.Edges) != len(other.Edges) {
		return false
	}
	for key, node := range g.Nodes {
		if !node.Equal(other.Nodes[key]) {
			return false
		}
	}
	a, b := g.SortedEdges(), other.SortedEdges()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

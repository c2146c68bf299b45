package serialization

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"subgraphgen/internal/graph"
)

// Field numbers of the graph description schema:
//
//	message GeneratedSubgraphs { repeated Graph subgraphs = 1; }
//	message Graph { map<string, Node> nodes = 1; repeated Edge edges = 2; uint64 timestamp = 3; }
//	message Node { ProcessNode process_node = 1; }
//	message ProcessNode {
//	  string node_key = 1; uint64 process_id = 2; string process_name = 3; string hostname = 4;
//	  ProcessState state = 5; uint64 created_timestamp = 6; uint64 terminated_timestamp = 7;
//	  uint64 last_seen_timestamp = 8; repeated string tags = 9;
//	}
//	message Edge { string from_node_key = 1; string to_node_key = 2; string edge_name = 3; }
const (
	fieldSubgraphs protowire.Number = 1

	fieldGraphNodes     protowire.Number = 1
	fieldGraphEdges     protowire.Number = 2
	fieldGraphTimestamp protowire.Number = 3

	fieldMapKey   protowire.Number = 1
	fieldMapValue protowire.Number = 2

	fieldNodeProcess protowire.Number = 1

	fieldProcessNodeKey             protowire.Number = 1
	fieldProcessID                  protowire.Number = 2
	fieldProcessName                protowire.Number = 3
	fieldProcessHostname            protowire.Number = 4
	fieldProcessState               protowire.Number = 5
	fieldProcessCreatedTimestamp    protowire.Number = 6
	fieldProcessTerminatedTimestamp protowire.Number = 7
	fieldProcessLastSeenTimestamp   protowire.Number = 8
	fieldProcessTags                protowire.Number = 9

	fieldEdgeFrom protowire.Number = 1
	fieldEdgeTo   protowire.Number = 2
	fieldEdgeName protowire.Number = 3
)

// MarshalGeneratedSubgraphs appends the GeneratedSubgraphs encoding of
// subgraphs to b. Node map entries are written in key order and edges in
// sorted order, so equal graphs encode to equal bytes. Every graph is
// checked before anything is appended.
func MarshalGeneratedSubgraphs(b []byte, subgraphs []*graph.Graph) ([]byte, error) {
	for i, g := range subgraphs {
		if err := validateGraph(g); err != nil {
			return b, fmt.Errorf("subgraph %d: %w", i, err)
		}
	}
	for _, g := range subgraphs {
		b = protowire.AppendTag(b, fieldSubgraphs, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(sizeGraph(g)))
		b = appendGraph(b, g)
	}
	return b, nil
}

func validateGraph(g *graph.Graph) error {
	if g == nil {
		return fmt.Errorf("nil graph")
	}
	for key, node := range g.Nodes {
		if node == nil {
			return fmt.Errorf("node %q is nil", key)
		}
		if key != node.NodeKey {
			return fmt.Errorf("node stored under %q has key %q", key, node.NodeKey)
		}
		for _, s := range append([]string{node.NodeKey, node.ProcessName, node.Hostname}, node.Tags...) {
			if !utf8.ValidString(s) {
				return fmt.Errorf("node %q: string field is not valid UTF-8", key)
			}
		}
	}
	for _, e := range g.Edges {
		if !utf8.ValidString(e.Name) {
			return fmt.Errorf("edge %s->%s: name is not valid UTF-8", e.From, e.To)
		}
		if _, ok := g.Nodes[e.From]; !ok {
			return fmt.Errorf("edge %q: source %q is not in the graph", e.Name, e.From)
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return fmt.Errorf("edge %q: target %q is not in the graph", e.Name, e.To)
		}
	}
	return nil
}

func sizeString(num protowire.Number, s string) int {
	if s == "" {
		return 0
	}
	return protowire.SizeTag(num) + protowire.SizeBytes(len(s))
}

func sizeUint(num protowire.Number, v uint64) int {
	if v == 0 {
		return 0
	}
	return protowire.SizeTag(num) + protowire.SizeVarint(v)
}

func sizeMessage(num protowire.Number, size int) int {
	return protowire.SizeTag(num) + protowire.SizeBytes(size)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessageHeader(b []byte, num protowire.Number, size int) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendVarint(b, uint64(size))
}

func sizeProcess(n *graph.ProcessNode) int {
	size := sizeString(fieldProcessNodeKey, n.NodeKey) +
		sizeUint(fieldProcessID, n.ProcessID) +
		sizeString(fieldProcessName, n.ProcessName) +
		sizeString(fieldProcessHostname, n.Hostname) +
		sizeUint(fieldProcessState, uint64(n.State)) +
		sizeUint(fieldProcessCreatedTimestamp, n.CreatedTimestamp) +
		sizeUint(fieldProcessTerminatedTimestamp, n.TerminatedTimestamp) +
		sizeUint(fieldProcessLastSeenTimestamp, n.LastSeenTimestamp)
	for _, tag := range n.Tags {
		// repeated string keeps empty elements
		size += protowire.SizeTag(fieldProcessTags) + protowire.SizeBytes(len(tag))
	}
	return size
}

func appendProcess(b []byte, n *graph.ProcessNode) []byte {
	b = appendString(b, fieldProcessNodeKey, n.NodeKey)
	b = appendUint(b, fieldProcessID, n.ProcessID)
	b = appendString(b, fieldProcessName, n.ProcessName)
	b = appendString(b, fieldProcessHostname, n.Hostname)
	b = appendUint(b, fieldProcessState, uint64(n.State))
	b = appendUint(b, fieldProcessCreatedTimestamp, n.CreatedTimestamp)
	b = appendUint(b, fieldProcessTerminatedTimestamp, n.TerminatedTimestamp)
	b = appendUint(b, fieldProcessLastSeenTimestamp, n.LastSeenTimestamp)
	for _, tag := range n.Tags {
		b = protowire.AppendTag(b, fieldProcessTags, protowire.BytesType)
		b = protowire.AppendString(b, tag)
	}
	return b
}

func sizeNode(n *graph.ProcessNode) int {
	return sizeMessage(fieldNodeProcess, sizeProcess(n))
}

func sizeMapEntry(key string, n *graph.ProcessNode) int {
	return sizeString(fieldMapKey, key) + sizeMessage(fieldMapValue, sizeNode(n))
}

func sizeEdge(e graph.Edge) int {
	return sizeString(fieldEdgeFrom, e.From) +
		sizeString(fieldEdgeTo, e.To) +
		sizeString(fieldEdgeName, e.Name)
}

func sizeGraph(g *graph.Graph) int {
	size := 0
	for key, n := range g.Nodes {
		size += sizeMessage(fieldGraphNodes, sizeMapEntry(key, n))
	}
	for _, e := range g.Edges {
		size += sizeMessage(fieldGraphEdges, sizeEdge(e))
	}
	return size + sizeUint(fieldGraphTimestamp, g.Timestamp)
}

func appendGraph(b []byte, g *graph.Graph) []byte {
	for _, key := range g.NodeKeys() {
		n := g.Nodes[key]
		b = appendMessageHeader(b, fieldGraphNodes, sizeMapEntry(key, n))
		b = appendString(b, fieldMapKey, key)
		b = appendMessageHeader(b, fieldMapValue, sizeNode(n))
		b = appendMessageHeader(b, fieldNodeProcess, sizeProcess(n))
		b = appendProcess(b, n)
	}
	for _, e := range g.SortedEdges() {
		b = appendMessageHeader(b, fieldGraphEdges, sizeEdge(e))
		b = appendString(b, fieldEdgeFrom, e.From)
		b = appendString(b, fieldEdgeTo, e.To)
		b = appendString(b, fieldEdgeName, e.Name)
	}
	return appendUint(b, fieldGraphTimestamp, g.Timestamp)
}

// UnmarshalGeneratedSubgraphs decodes a GeneratedSubgraphs message.
// Unknown fields are skipped.
func UnmarshalGeneratedSubgraphs(b []byte) ([]*graph.Graph, error) {
	var out []*graph.Graph
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldSubgraphs || typ != protowire.BytesType {
			return nil
		}
		g, err := unmarshalGraph(v)
		if err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func unmarshalGraph(b []byte) (*graph.Graph, error) {
	g := graph.New(0)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldGraphNodes && typ == protowire.BytesType:
			key, node, err := unmarshalMapEntry(v)
			if err != nil {
				return err
			}
			if node == nil {
				node = &graph.ProcessNode{}
			}
			g.Nodes[key] = node
		case num == fieldGraphEdges && typ == protowire.BytesType:
			e, err := unmarshalEdge(v)
			if err != nil {
				return err
			}
			g.Edges = append(g.Edges, e)
		case num == fieldGraphTimestamp && typ == protowire.VarintType:
			g.Timestamp = x
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return g, nil
}

func unmarshalMapEntry(b []byte) (string, *graph.ProcessNode, error) {
	var key string
	var node *graph.ProcessNode
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldMapKey:
			key = string(v)
		case fieldMapValue:
			n, err := unmarshalNode(v)
			if err != nil {
				return err
			}
			node = n
		}
		return nil
	})
	return key, node, err
}

func unmarshalNode(b []byte) (*graph.ProcessNode, error) {
	var node *graph.ProcessNode
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldNodeProcess || typ != protowire.BytesType {
			return nil
		}
		n, err := unmarshalProcess(v)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	return node, err
}

func unmarshalProcess(b []byte) (*graph.ProcessNode, error) {
	n := &graph.ProcessNode{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		if typ == protowire.BytesType {
			switch num {
			case fieldProcessNodeKey:
				n.NodeKey = string(v)
			case fieldProcessName:
				n.ProcessName = string(v)
			case fieldProcessHostname:
				n.Hostname = string(v)
			case fieldProcessTags:
				n.Tags = append(n.Tags, string(v))
			}
			return nil
		}
		if typ == protowire.VarintType {
			switch num {
			case fieldProcessID:
				n.ProcessID = x
			case fieldProcessState:
				n.State = graph.ProcessState(int32(x))
			case fieldProcessCreatedTimestamp:
				n.CreatedTimestamp = x
			case fieldProcessTerminatedTimestamp:
				n.TerminatedTimestamp = x
			case fieldProcessLastSeenTimestamp:
				n.LastSeenTimestamp = x
			}
		}
		return nil
	})
	return n, err
}

func unmarshalEdge(b []byte) (graph.Edge, error) {
	var e graph.Edge
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldEdgeFrom:
			e.From = string(v)
		case fieldEdgeTo:
			e.To = string(v)
		case fieldEdgeName:
			e.Name = string(v)
		}
		return nil
	})
	return e, err
}

// consumeFields walks the top-level fields of a message. For bytes fields
// fn receives the payload, for varint fields the decoded value; other wire
// types are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			b = b[m:]
		case protowire.VarintType:
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			if err := fn(num, typ, nil, x); err != nil {
				return err
			}
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
		}
	}
	return nil
}

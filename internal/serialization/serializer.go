package serialization

import (
	"bytes"
	"fmt"

	"subgraphgen/internal/graph"
	"subgraphgen/internal/logger"
)

var log = logger.Named("serializer")

// SubgraphSerializer merges the fragments of one batch and turns the result
// into a compressed GeneratedSubgraphs payload. The proto and compressed
// buffers are cleared and reused between calls, so a serializer belongs to
// a single goroutine.
type SubgraphSerializer struct {
	proto      []byte
	compressed bytes.Buffer
	compressor StreamCompressor

	compressCalls int
}

// NewSubgraphSerializer creates a serializer using level-4 zstd.
func NewSubgraphSerializer() (*SubgraphSerializer, error) {
	z, err := NewZstdStream()
	if err != nil {
		return nil, err
	}
	return NewSubgraphSerializerWith(z), nil
}

// NewSubgraphSerializerWith creates a serializer around a custom compressor.
func NewSubgraphSerializerWith(c StreamCompressor) *SubgraphSerializer {
	return &SubgraphSerializer{compressor: c}
}

// SerializeCompletedEvents merges fragments in order and encodes the
// aggregate. An empty aggregate yields an empty payload list.
func (s *SubgraphSerializer) SerializeCompletedEvents(fragments []*graph.Graph) ([][]byte, graph.MergeStats, error) {
	aggregate, stats := graph.MergeBatch(fragments)
	if aggregate.IsEmpty() {
		log.Debugf("Output subgraph is empty. Serializing to empty vector. pre_nodes: %d pre_edges: %d", stats.PreNodes, stats.PreEdges)
		return nil, stats, nil
	}

	log.Debugf("Serializing %d nodes %d edges. Down from %d nodes %d edges.", stats.Nodes, stats.Edges, stats.PreNodes, stats.PreEdges)
	payloads, err := s.Encode(aggregate)
	return payloads, stats, err
}

// Encode wraps aggregate in a one-element GeneratedSubgraphs message,
// encodes and compresses it. The result holds at most one payload; an
// empty aggregate returns no payloads and does no work.
func (s *SubgraphSerializer) Encode(aggregate *graph.Graph) ([][]byte, error) {
	if aggregate.IsEmpty() {
		return nil, nil
	}

	s.proto = s.proto[:0]
	s.compressed.Reset()

	proto, err := MarshalGeneratedSubgraphs(s.proto, []*graph.Graph{aggregate})
	if err != nil {
		return nil, encodeError(err)
	}
	s.proto = proto

	s.compressCalls++
	if err := s.compressor.CompressStream(&s.compressed, bytes.NewReader(s.proto)); err != nil {
		return nil, ioError(fmt.Errorf("compress subgraph: %w", err))
	}

	payload := make([]byte, s.compressed.Len())
	copy(payload, s.compressed.Bytes())
	return [][]byte{payload}, nil
}

// Decode decompresses a payload and returns the subgraphs it carries.
func Decode(payload []byte) ([]*graph.Graph, error) {
	raw, err := Decompress(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	subgraphs, err := UnmarshalGeneratedSubgraphs(raw)
	if err != nil {
		return nil, decodeError(err)
	}
	return subgraphs, nil
}

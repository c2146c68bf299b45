package serialization

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphgen/internal/graph"
)

func terminated(host string, pid, ts uint64, name string) *graph.ProcessNode {
	return &graph.ProcessNode{
		NodeKey:             graph.ProcessKey(host, pid),
		ProcessID:           pid,
		ProcessName:         name,
		Hostname:            host,
		State:               graph.StateTerminated,
		TerminatedTimestamp: ts,
		LastSeenTimestamp:   ts,
	}
}

func newSerializer(t *testing.T) *SubgraphSerializer {
	t.Helper()
	s, err := NewSubgraphSerializer()
	require.NoError(t, err)
	return s
}

func sampleGraph() *graph.Graph {
	g := graph.New(1300)
	parent := terminated("host-1", 4, 1200, "explorer.exe")
	child := terminated("host-1", 42, 1300, "evil.exe")
	child.Tags = []string{"rule-1"}
	g.AddNode(parent)
	g.AddNode(child)
	g.AddEdge(parent.NodeKey, child.NodeKey, "children")
	return g
}

var graphCmp = cmp.Options{
	cmpopts.IgnoreUnexported(graph.Graph{}),
	cmpopts.EquateEmpty(),
}

func TestEncodeRoundTrip(t *testing.T) {
	s := newSerializer(t)
	g := sampleGraph()

	payloads, err := s.Encode(g)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.NotEmpty(t, payloads[0])

	subgraphs, err := Decode(payloads[0])
	require.NoError(t, err)
	require.Len(t, subgraphs, 1)
	if diff := cmp.Diff(g, subgraphs[0], graphCmp); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEmptyShortCircuits(t *testing.T) {
	s := newSerializer(t)

	payloads, err := s.Encode(graph.New(99))
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.Zero(t, s.compressCalls)
	assert.Nil(t, s.proto)

	payloads, stats, err := s.SerializeCompletedEvents(nil)
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.Equal(t, graph.MergeStats{}, stats)
	assert.Zero(t, s.compressCalls)
}

func TestSerializeCompletedEventsSingleProcessStop(t *testing.T) {
	s := newSerializer(t)
	fragment := graph.New(1000)
	fragment.AddNode(terminated("host-1", 42, 1000, "evil.exe"))

	payloads, stats, err := s.SerializeCompletedEvents([]*graph.Graph{fragment})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.NotEmpty(t, payloads[0])
	assert.Equal(t, graph.MergeStats{Fragments: 1, PreNodes: 1, Nodes: 1}, stats)

	subgraphs, err := Decode(payloads[0])
	require.NoError(t, err)
	require.Len(t, subgraphs, 1)
	node := subgraphs[0].Nodes[graph.ProcessKey("host-1", 42)]
	require.NotNil(t, node)
	assert.Equal(t, graph.StateTerminated, node.State)
	assert.Equal(t, uint64(1000), node.TerminatedTimestamp)
	assert.Equal(t, uint64(1000), subgraphs[0].Timestamp)
}

func TestEncodeIsDeterministicAndReusesBuffers(t *testing.T) {
	s := newSerializer(t)

	first, err := s.Encode(sampleGraph())
	require.NoError(t, err)
	small := graph.New(1)
	small.AddNode(terminated("h", 1, 1, "a"))
	second, err := s.Encode(small)
	require.NoError(t, err)
	third, err := s.Encode(sampleGraph())
	require.NoError(t, err)

	assert.Equal(t, first[0], third[0])
	assert.NotEqual(t, first[0], second[0])

	subgraphs, err := Decode(second[0])
	require.NoError(t, err)
	assert.Len(t, subgraphs[0].Nodes, 1)
}

func TestEncodeRejectsDanglingEdge(t *testing.T) {
	s := newSerializer(t)
	g := graph.New(1)
	g.AddNode(terminated("h", 1, 1, "a"))
	g.AddEdge(graph.ProcessKey("h", 1), graph.ProcessKey("h", 2), "children")

	payloads, err := s.Encode(g)
	assert.Nil(t, payloads)
	assert.ErrorIs(t, err, ErrEncode)
	assert.False(t, errors.Is(err, ErrIO))
	assert.Zero(t, s.compressCalls)
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	s := newSerializer(t)
	g := graph.New(1)
	n := terminated("h", 1, 1, "a")
	n.Tags = []string{"bad\xff"}
	g.AddNode(n)

	_, err := s.Encode(g)
	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrEncode, ce.Kind)
}

type failingCompressor struct{ err error }

func (f failingCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, _ = dst.Write([]byte("partial"))
	return f.err
}

func TestEncodeSurfacesCompressionFailure(t *testing.T) {
	cause := errors.New("disk on fire")
	s := NewSubgraphSerializerWith(failingCompressor{err: cause})

	payloads, err := s.Encode(sampleGraph())
	assert.Nil(t, payloads)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not zstd"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestMarshalWireLayout(t *testing.T) {
	g := graph.New(0)
	g.Nodes["k"] = &graph.ProcessNode{NodeKey: "k", ProcessID: 1, State: graph.StateTerminated}

	got, err := MarshalGeneratedSubgraphs(nil, []*graph.Graph{g})
	require.NoError(t, err)

	want := []byte{
		0x0a, 0x10, // subgraphs, 16 bytes
		0x0a, 0x0e, // nodes map entry, 14 bytes
		0x0a, 0x01, 'k', // key
		0x12, 0x09, // value: Node, 9 bytes
		0x0a, 0x07, // process_node, 7 bytes
		0x0a, 0x01, 'k', // node_key
		0x10, 0x01, // process_id
		0x28, 0x03, // state = TERMINATED
	}
	assert.True(t, bytes.Equal(want, got), "got % x", got)
}

func TestMarshalRejectsMismatchedKey(t *testing.T) {
	g := graph.New(0)
	g.Nodes["a"] = &graph.ProcessNode{NodeKey: "b"}
	buf := []byte{1, 2, 3}

	out, err := MarshalGeneratedSubgraphs(buf, []*graph.Graph{g})
	require.Error(t, err)
	assert.Equal(t, buf, out)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	g := sampleGraph()
	b, err := MarshalGeneratedSubgraphs(nil, []*graph.Graph{g})
	require.NoError(t, err)
	// field 15, fixed32
	b = append(b, 0x7d, 1, 2, 3, 4)

	subgraphs, err := UnmarshalGeneratedSubgraphs(b)
	require.NoError(t, err)
	require.Len(t, subgraphs, 1)
	assert.True(t, g.Equal(subgraphs[0]))
}

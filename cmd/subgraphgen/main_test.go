package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphgen/config"
	"subgraphgen/internal/graph"
	"subgraphgen/internal/output/payloadfile"
	"subgraphgen/internal/serialization"
)

func writePayload(t *testing.T, dir string) string {
	t.Helper()
	s, err := serialization.NewSubgraphSerializer()
	require.NoError(t, err)

	g := graph.New(1767323045250)
	g.AddNode(&graph.ProcessNode{
		NodeKey:             graph.ProcessKey("ws-01", 4242),
		ProcessID:           4242,
		ProcessName:         "powershell.exe",
		Hostname:            "ws-01",
		State:               graph.StateTerminated,
		TerminatedTimestamp: 1767323045250,
		LastSeenTimestamp:   1767323045250,
	})
	payloads, err := s.Encode(g)
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	path := filepath.Join(dir, "batch"+payloadfile.Extension)
	require.NoError(t, os.WriteFile(path, payloads[0], 0644))
	return path
}

func TestInspectPrintsDecodedSubgraphs(t *testing.T) {
	path := writePayload(t, t.TempDir())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"inspect", "--compact", path})
	require.NoError(t, root.Execute())

	var decoded []struct {
		Nodes     map[string]graph.ProcessNode `json:"nodes"`
		Timestamp uint64                       `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, uint64(1767323045250), decoded[0].Timestamp)
	node, ok := decoded[0].Nodes["process:ws-01:4242"]
	require.True(t, ok)
	assert.Equal(t, "powershell.exe", node.ProcessName)
	assert.Equal(t, graph.StateTerminated, node.State)
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk"+payloadfile.Extension)
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0644))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"inspect", path})
	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, serialization.ErrDecode)
}

func TestNewPayloadWriterFileMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := newPayloadWriter(config.OutputConfig{Mode: "file", File: config.FileOutputConfig{Dir: dir}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WritePayloads([][]byte{{0x01}}))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewPayloadWriterUnknownMode(t *testing.T) {
	_, err := newPayloadWriter(config.OutputConfig{Mode: "kafka"})
	assert.Error(t, err)
}

func TestLoadRulesDisabled(t *testing.T) {
	engine, err := loadRules(config.RulesConfig{})
	require.NoError(t, err)
	assert.Nil(t, engine)
}

func TestLoadRulesMissingPath(t *testing.T) {
	_, err := loadRules(config.RulesConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestFindConfigFilePrefersExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("subgraphgen: {}\n"), 0644))
	assert.Equal(t, path, findConfigFile(path))
}

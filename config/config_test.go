package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("subgraphgen: {}\n"))
	require.NoError(t, err)

	c := cfg.SubgraphGen
	assert.Equal(t, "127.0.0.1:6379", c.Input.Redis.Addr)
	assert.Equal(t, "process_events", c.Input.Redis.Key)
	assert.Equal(t, 5*time.Second, c.Input.Redis.BlockTimeout)
	assert.Equal(t, 8, c.Pipeline.Workers)
	assert.Equal(t, 1000, c.Pipeline.BatchSize)
	assert.Equal(t, 2*time.Second, c.Pipeline.FlushInterval)
	assert.Equal(t, "file", c.Output.Mode)
	assert.Equal(t, "output/subgraphs", c.Output.File.Dir)
	assert.Equal(t, ":9464", c.Metrics.Listen)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Empty(t, c.Output.Redis.Key)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subgraphgen.yml")
	body := `subgraphgen:
  input:
    redis:
      addr: redis.internal:6380
      key: stops
  pipeline:
    workers: 4
    batch_size: 250
    flush_interval: 500ms
  output:
    mode: REDIS
  dead_letter:
    enabled: true
  logging:
    level: Debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	c := cfg.SubgraphGen
	assert.Equal(t, "redis.internal:6380", c.Input.Redis.Addr)
	assert.Equal(t, "stops", c.Input.Redis.Key)
	assert.Equal(t, 4, c.Pipeline.Workers)
	assert.Equal(t, 250, c.Pipeline.BatchSize)
	assert.Equal(t, 500*time.Millisecond, c.Pipeline.FlushInterval)
	assert.Equal(t, "redis", c.Output.Mode)
	assert.Equal(t, "generated_subgraphs", c.Output.Redis.Key)
	assert.Equal(t, "process_events_dead_letter", c.DeadLetter.Redis.Key)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown output mode", "subgraphgen:\n  output:\n    mode: kafka\n", "output.Mode"},
		{"http without url", "subgraphgen:\n  output:\n    mode: http\n", "output.http.url"},
		{"bad http url", "subgraphgen:\n  output:\n    mode: http\n    http:\n      url: not a url\n", "output.http.url"},
		{"rules without path", "subgraphgen:\n  rules:\n    enabled: true\n", "rules.Path"},
		{"bad redis addr", "subgraphgen:\n  input:\n    redis:\n      addr: localhost\n", "input.redis.Addr"},
		{"bad log level", "subgraphgen:\n  logging:\n    level: loud\n", "logging.Level"},
		{"bad metrics listen", "subgraphgen:\n  metrics:\n    enabled: true\n    listen: nowhere\n", "metrics.listen"},
		{"too many workers", "subgraphgen:\n  pipeline:\n    workers: 5000\n", "pipeline.Workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("subgraphgen: [\n"))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

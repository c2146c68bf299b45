package processstop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlatEvent(t *testing.T) {
	event, err := Parse([]byte(`{"process_id":42,"name":"evil.exe","hostname":"host-1","timestamp":1000}`))
	require.NoError(t, err)

	require.NotNil(t, event.ProcessID)
	require.NotNil(t, event.Timestamp)
	assert.Equal(t, uint64(42), *event.ProcessID)
	assert.Equal(t, "evil.exe", event.Name)
	assert.Equal(t, "host-1", event.Hostname)
	assert.Equal(t, uint64(1000), *event.Timestamp)
	assert.Equal(t, "process_stop", event.EventType())
}

func TestParseNestedEvent(t *testing.T) {
	event, err := Parse([]byte(`{
		"@timestamp": "2026-01-02T03:04:05.250Z",
		"event": {"type": "process_stop"},
		"process": {"pid": "77", "name": "cmd.exe"},
		"host": {"name": "ws-9"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(77), *event.ProcessID)
	assert.Equal(t, "cmd.exe", event.Name)
	assert.Equal(t, "ws-9", event.Hostname)
	assert.Equal(t, uint64(1767323045250), *event.Timestamp)
}

func TestParseKeepsLargeIntegersExact(t *testing.T) {
	event, err := Parse([]byte(`{"process_id":18446744073709551615,"name":"a","hostname":"h","timestamp":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), *event.ProcessID)
	assert.Equal(t, uint64(9007199254740993), *event.Timestamp)
}

func TestParseLeavesAbsentFieldsNil(t *testing.T) {
	event, err := Parse([]byte(`{"name":"a","hostname":"h"}`))
	require.NoError(t, err)
	assert.Nil(t, event.ProcessID)
	assert.Nil(t, event.Timestamp)
}

func TestParseRejectsBadValues(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":       `{"process_id":`,
		"negative pid":   `{"process_id":-1}`,
		"fractional pid": `{"process_id":1.5}`,
		"bool pid":       `{"process_id":true}`,
		"word pid":       `{"process_id":"abc"}`,
		"bad time":       `{"@timestamp":"yesterday"}`,
		"trailing text":  `{"process_id":1,"name":"a.exe","hostname":"h","timestamp":5} trailing-garbage`,
		"second object":  `{"process_id":1}{"process_id":2}`,
		"stray brace":    `{"process_id":1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestParseAllowsTrailingWhitespace(t *testing.T) {
	event, err := Parse([]byte("{\"process_id\":1,\"timestamp\":5}\n  "))
	require.NoError(t, err)
	require.NotNil(t, event.ProcessID)
	assert.Equal(t, uint64(1), *event.ProcessID)
}

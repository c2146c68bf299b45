package payloadredis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphgen/internal/redistest"
)

func TestNewWriterWithClientRequiresKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err := NewWriterWithClient(client, "", 0)
	assert.Error(t, err)

	w, err := NewWriterWithClient(client, "subgraphs", 0)
	require.NoError(t, err)
	assert.Equal(t, "subgraphs", w.Key())
	assert.NoError(t, w.WritePayloads(nil))
}

func TestWriterPushesPayloadsAndRawMessages(t *testing.T) {
	client, lists := redistest.NewClient()
	w, err := NewWriterWithClient(client, "subgraphs", time.Second)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WritePayloads([][]byte{{0x28, 0xb5}, {0x01}}))
	require.NoError(t, w.WriteRawMessages([][]byte{[]byte(`{"process_id":1}`)}))
	assert.Equal(t, []string{"\x28\xb5", "\x01", `{"process_id":1}`}, lists.Items("subgraphs"))
}

func TestWriterReportsPushFailure(t *testing.T) {
	client, lists := redistest.NewClient()
	w, err := NewWriterWithClient(client, "subgraphs", time.Second)
	require.NoError(t, err)
	defer w.Close()

	lists.FailWith(errors.New("READONLY replica"))
	err = w.WritePayloads([][]byte{{0x01}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpush subgraphs")
	assert.Empty(t, lists.Items("subgraphs"))
}

func TestWriterPushesToLiveRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	key := "subgraphgen:test:" + t.Name()
	w, err := NewWriter(Config{Addr: addr, Key: key})
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	w.client.Del(ctx, key)
	defer w.client.Del(ctx, key)

	require.NoError(t, w.WritePayloads([][]byte{{0x28, 0xb5}, {0x01}}))
	require.NoError(t, w.WriteRawMessages([][]byte{[]byte(`{"process_id":1}`)}))

	got, err := w.client.LRange(ctx, key, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"\x28\xb5", "\x01", `{"process_id":1}`}, got)
}

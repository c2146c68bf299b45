package redis

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

func TestNewConsumerWithClientDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err := NewConsumerWithClient(client, "", time.Second)
	assert.Error(t, err)

	c, err := NewConsumerWithClient(client, "process_events", 0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.blockTimeout)
}

func TestConsumerPopFromList(t *testing.T) {
	client, lists := redistest.NewClient()
	c, err := NewConsumerWithClient(client, "process_events", time.Second)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	msg, err := c.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)

	lists.Push("process_events", `{"process_id":7}`, `{"process_id":8}`)
	msg, err = c.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"process_id":7}`, string(msg))
	msg, err = c.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"process_id":8}`, string(msg))
}

func TestConsumerPopReportsErrors(t *testing.T) {
	client, lists := redistest.NewClient()
	c, err := NewConsumerWithClient(client, "process_events", time.Second)
	require.NoError(t, err)
	defer c.Close()

	lists.FailWith(errors.New("LOADING dataset"))
	_, err = c.Pop(context.Background())
	assert.Error(t, err)
}

func TestConsumerPopLiveRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	key := "subgraphgen:test:" + t.Name()
	c, err := NewConsumer(Config{Addr: addr, Key: key, BlockTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	c.client.Del(ctx, key)
	defer c.client.Del(ctx, key)

	msg, err := c.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)

	require.NoError(t, c.client.RPush(ctx, key, `{"process_id":7}`).Err())
	msg, err = c.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"process_id":7}`, string(msg))
}

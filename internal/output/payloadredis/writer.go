package payloadredis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Config configures the Redis list writer.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Timeout  time.Duration
}

// Writer appends byte messages to a Redis list. It serves both as the
// payload sink and as the dead letter sink for raw event messages.
type Writer struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

// NewWriter connects to Redis and verifies the connection.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	w, err := NewWriterWithClient(client, cfg.Key, cfg.Timeout)
	if err != nil {
		client.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return w, nil
}

// NewWriterWithClient wraps an existing client.
func NewWriterWithClient(client redis.UniversalClient, key string, timeout time.Duration) (*Writer, error) {
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{client: client, key: key, timeout: timeout}, nil
}

// WritePayloads pushes encoded payloads.
func (w *Writer) WritePayloads(payloads [][]byte) error {
	return w.push(payloads)
}

// WriteRawMessages pushes the raw messages of a failed batch.
func (w *Writer) WriteRawMessages(messages [][]byte) error {
	return w.push(messages)
}

func (w *Writer) push(items [][]byte) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = item
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.client.RPush(ctx, w.key, values...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", w.key, err)
	}
	return nil
}

// Key returns the list the writer appends to.
func (w *Writer) Key() string {
	return w.key
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	if w == nil || w.client == nil {
		return nil
	}
	return w.client.Close()
}

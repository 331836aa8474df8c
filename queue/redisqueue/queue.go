// Package redisqueue provides a Redis-backed queue.Queue, using a list as
// the FIFO and BLPOP for blocking receive.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TedCassirer/sidequest/queue"
)

// Config configures a Redis-backed queue.
type Config struct {
	URL    string // defaults to redis://localhost:6379/0
	Key    string // list key holding pending messages, defaults to "sidequest:tasks"
}

// Queue is a queue.Queue backed by a single Redis list.
type Queue struct {
	client *redis.Client
	key    string
}

// New dials config.URL and returns a ready-to-use Queue.
func New(ctx context.Context, config Config) (*Queue, error) {
	url := config.URL
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisqueue: failed to connect: %w", err)
	}

	key := config.Key
	if key == "" {
		key = "sidequest:tasks"
	}

	return &Queue{client: client, key: key}, nil
}

// Send appends msg to the list.
func (q *Queue) Send(msg queue.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redisqueue: failed to marshal message: %w", err)
	}
	return q.client.RPush(context.Background(), q.key, body).Err()
}

// Receive blocks up to timeout for the next message via BLPOP.
func (q *Queue) Receive(timeout time.Duration) (*queue.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisqueue: failed to receive: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var msg queue.Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("redisqueue: failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// Empty reports whether the list currently holds no messages.
func (q *Queue) Empty() (bool, error) {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		return false, fmt.Errorf("redisqueue: failed to check length: %w", err)
	}
	return n == 0, nil
}

// Close closes the underlying Redis client.
func (q *Queue) Close() error {
	return q.client.Close()
}

var _ queue.Queue = (*Queue)(nil)

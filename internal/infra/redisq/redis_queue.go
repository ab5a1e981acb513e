package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"task-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// taskMessage is the wire form of a dispatch signal. It carries only the
// global id; the store remains the single source of truth for task state.
type taskMessage struct {
	TaskGlobalID string `json:"task_global_id"`
}

// Queue is a Redis-list-backed work queue. Enqueue pushes to the tail,
// Dequeue blocks on the head with a timeout, giving FIFO, at-least-once
// hand-off between the API and workers.
type Queue struct {
	rdb    *redis.Client
	name   string
	logger *slog.Logger
}

// New creates a queue client for the list stored under name. The underlying
// go-redis client pools connections and is safe for concurrent use.
func New(addr, name string, logger *slog.Logger) *Queue {
	return &Queue{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		name:   name,
		logger: logger.With("component", "redis-queue"),
	}
}

// Enqueue publishes a task reference for asynchronous pickup. A failure here
// means the signal was not delivered; it is reported, never silently dropped.
func (q *Queue) Enqueue(ctx context.Context, globalID string) error {
	data, err := json.Marshal(taskMessage{TaskGlobalID: globalID})
	if err != nil {
		return fmt.Errorf("failed to marshal task message: %w", err)
	}

	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to push task %s to queue: %w", globalID, err)
	}

	q.logger.Debug("task reference enqueued", "task_global_id", globalID)
	return nil
}

// Dequeue blocks until a task reference is available or the timeout elapses.
// An empty queue yields domain.ErrQueueEmpty, never an indefinite block.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return "", domain.ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to pop from queue: %w", err)
	}

	// BLPOP returns the key name followed by the popped value.
	var msg taskMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return "", fmt.Errorf("failed to unmarshal task message: %w", err)
	}
	return msg.TaskGlobalID, nil
}

// Depth reports the number of pending dispatch messages, for metrics.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}

// Close releases the underlying Redis connections.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

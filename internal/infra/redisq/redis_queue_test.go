package redisq

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"task-service/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*miniredis.Miniredis, *Queue) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	q := New(s.Addr(), "task_queue", slog.Default())
	t.Cleanup(func() { q.Close() })
	return s, q
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	_, q := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "u1_t1"))
	require.NoError(t, q.Enqueue(ctx, "u1_t2"))

	// FIFO order.
	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "u1_t1", got)

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "u1_t2", got)
}

func TestEnqueueMessageCarriesOnlyGlobalID(t *testing.T) {
	s, q := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "u1_t1"))

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	raw, err := rdb.LIndex(ctx, "task_queue", 0).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_global_id":"u1_t1"}`, raw)
}

func TestDequeueEmptyTimesOut(t *testing.T) {
	_, q := setupTestQueue(t)

	start := time.Now()
	_, err := q.Dequeue(context.Background(), time.Second)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, domain.ErrQueueEmpty)
	assert.Less(t, elapsed, 3*time.Second, "dequeue must respect its timeout")
}

func TestDequeueMalformedMessage(t *testing.T) {
	s, q := setupTestQueue(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()
	require.NoError(t, rdb.RPush(ctx, "task_queue", "not json").Err())

	_, err := q.Dequeue(ctx, time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestDepth(t *testing.T) {
	_, q := setupTestQueue(t)
	ctx := context.Background()

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, depth)

	require.NoError(t, q.Enqueue(ctx, "u1_t1"))
	require.NoError(t, q.Enqueue(ctx, "u1_t2"))

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, depth)
}

package domain

import (
	"context"
	"errors"
)

// ErrTaskNotFound is a sentinel error returned when a task is not found.
// Per the store's failure contract it also covers records that exist but
// cannot be read back; callers cannot distinguish the two at this layer.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository defines the interface for persisting and retrieving tasks.
// Put is an idempotent upsert keyed by the task's global id. Concurrent Put
// calls for different ids are safe; the service layer is responsible for not
// issuing overlapping writes to the same id.
type TaskRepository interface {
	Put(ctx context.Context, task *Task) error
	Get(ctx context.Context, globalID string) (*Task, error)
}

package domain

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by Dequeue when no task reference arrives within
// the timeout. It is not a failure; the caller simply polls again.
var ErrQueueEmpty = errors.New("no task available")

// TaskQueue is the dispatch channel between the API and workers. It carries
// task global ids only, never task payloads, and delivers at-least-once: a
// message may arrive more than once and duplicates must be tolerated by the
// consumer. The timeout on Dequeue is mandatory so consumers stay responsive
// to shutdown.
type TaskQueue interface {
	Enqueue(ctx context.Context, globalID string) error
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"task-service/internal/domain"
	"task-service/internal/metrics"
)

// Worker pulls task references from the queue and drives each one through
// start -> execute -> complete|fail via the task API. It holds no durable
// state of its own: a crashed worker loses only in-flight work, everything
// committed lives in the store.
type Worker struct {
	queue       domain.TaskQueue
	api         TaskAPI
	processor   domain.TaskProcessor
	pollTimeout time.Duration
	backoff     time.Duration
	logger      *slog.Logger
}

// New creates a worker loop. pollTimeout bounds each blocking dequeue;
// backoff is the pause after an infrastructure error before retrying.
func New(queue domain.TaskQueue, api TaskAPI, processor domain.TaskProcessor, pollTimeout, backoff time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		queue:       queue,
		api:         api,
		processor:   processor,
		pollTimeout: pollTimeout,
		backoff:     backoff,
		logger:      logger.With("component", "worker"),
	}
}

// Run executes the loop until ctx is cancelled. Infrastructure errors are
// never fatal to the loop; task-level failures are terminal only for the
// task concerned.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker loop started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker loop stopped")
			return
		default:
		}

		globalID, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if errors.Is(err, domain.ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker loop stopped")
				return
			}
			w.logger.Error("failed to dequeue task reference", "error", err)
			w.pause(ctx)
			continue
		}

		w.processOne(ctx, globalID)
	}
}

// processOne drives a single dequeued task reference through its lifecycle.
func (w *Worker) processOne(ctx context.Context, globalID string) {
	logger := w.logger.With("task_global_id", globalID)

	if err := w.api.Start(ctx, globalID); err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			// Deleted out-of-band; nothing to do for this reference.
			logger.Warn("task no longer exists, skipping")
		case errors.Is(err, domain.ErrInvalidTransition):
			// Most likely a duplicate delivery of an already started or
			// finished task. The transition table already protected the
			// task; just move on.
			logger.Warn("task not startable, skipping", "error", err)
		default:
			logger.Error("failed to start task", "error", err)
			w.pause(ctx)
		}
		return
	}

	task, err := w.api.Fetch(ctx, globalID)
	if err != nil {
		logger.Error("failed to fetch task details", "error", err)
		w.pause(ctx)
		return
	}

	logger.Info("processing task", "task_type", task.TaskType, "source_file", task.SourceFile)

	start := time.Now()
	resultFile, procErr := w.processor.Process(ctx, task)
	metrics.TaskProcessingDuration.WithLabelValues(task.TaskType).Observe(time.Since(start).Seconds())

	if procErr != nil {
		logger.Error("task processing failed", "error", procErr)
		metrics.TasksProcessedTotal.WithLabelValues(task.TaskType, "failed").Inc()
		if err := w.api.Fail(ctx, globalID); err != nil {
			logger.Error("failed to mark task as failed", "error", err)
			w.pause(ctx)
		}
		return
	}

	if err := w.api.Complete(ctx, globalID, resultFile); err != nil {
		logger.Error("failed to complete task", "error", err)
		w.pause(ctx)
		return
	}

	metrics.TasksProcessedTotal.WithLabelValues(task.TaskType, "success").Inc()
	logger.Info("task completed", "result_file", resultFile)
}

// pause sleeps for the backoff interval, waking early on cancellation.
func (w *Worker) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.backoff):
	}
}

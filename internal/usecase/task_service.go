package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"task-service/internal/domain"
	"task-service/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrTaskCreationFailure is returned when a new task could not be persisted.
// Nothing is enqueued in that case; the submission fails atomically.
var ErrTaskCreationFailure = errors.New("task creation failure")

// ErrTaskUpdateFailure is returned when a validated transition could not be
// written back to the store.
var ErrTaskUpdateFailure = errors.New("task update failure")

// TaskService is the only component permitted to mutate task state. All
// mutation paths go through Transition, which enforces the full transition
// table on every call; this re-validation is what makes duplicate queue
// deliveries harmless.
type TaskService struct {
	repo   domain.TaskRepository
	queue  domain.TaskQueue
	logger *slog.Logger
	tracer trace.Tracer
}

// NewTaskService creates a new TaskService instance.
func NewTaskService(repo domain.TaskRepository, queue domain.TaskQueue, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		queue:  queue,
		logger: logger.With("component", "task-service"),
		tracer: otel.Tracer("task-service-usecase"),
	}
}

// Submit creates a new task in the Created state, persists it and publishes
// its id for processing. Durability of the record is the primary guarantee:
// if the store write fails the submission fails and nothing is enqueued, but
// an enqueue failure after a successful write still reports success — the
// task exists and is queryable, and dispatch can be retried by an operator.
func (s *TaskService) Submit(ctx context.Context, userID, taskType, sourceFile string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "service.Submit")
	defer span.End()

	task := domain.NewTask(userID, taskType, sourceFile)
	span.SetAttributes(
		attribute.String("task.global_id", task.TaskGlobalID),
		attribute.String("task.type", taskType),
	)

	if err := s.repo.Put(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist new task")
		metrics.TasksSubmittedTotal.WithLabelValues("store_failed").Inc()
		return "", fmt.Errorf("%w: %v", ErrTaskCreationFailure, err)
	}
	metrics.TasksSubmittedTotal.WithLabelValues("stored").Inc()

	if err := s.queue.Enqueue(ctx, task.TaskGlobalID); err != nil {
		// The record is durable; dispatch is best-effort. Report the failure
		// for operator recovery instead of failing the submission.
		span.RecordError(err)
		s.logger.Error("failed to enqueue task for dispatch",
			"task_global_id", task.TaskGlobalID, "error", err)
		metrics.DispatchFailuresTotal.Inc()
	}

	return task.TaskGlobalID, nil
}

// Transition fetches the current task, validates the requested state change
// against the transition table and writes the updated record back. It backs
// all of start/pause/fail/complete. resultFile is persisted as given; callers
// pass it only when completing.
func (s *TaskService) Transition(ctx context.Context, globalID string, target domain.TaskState, resultFile *string) error {
	ctx, span := s.tracer.Start(ctx, "service.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.global_id", globalID),
		attribute.String("task.target_state", string(target)),
	)

	task, err := s.repo.Get(ctx, globalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from repository")
		return err
	}

	if !task.CanTransitionTo(target) {
		metrics.TaskTransitionsTotal.WithLabelValues(string(target), "rejected").Inc()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, task.State, target)
	}

	task.State = target
	task.ResultFile = resultFile

	if err := s.repo.Put(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist task transition")
		metrics.TaskTransitionsTotal.WithLabelValues(string(target), "failed").Inc()
		return fmt.Errorf("%w: %v", ErrTaskUpdateFailure, err)
	}

	metrics.TaskTransitionsTotal.WithLabelValues(string(target), "applied").Inc()
	return nil
}

// Fetch returns the current record for a task.
func (s *TaskService) Fetch(ctx context.Context, globalID string) (*domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "service.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("task.global_id", globalID))

	task, err := s.repo.Get(ctx, globalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from repository")
	}
	return task, err
}

package worker

import (
	"context"
	"log/slog"
	"time"

	"task-service/internal/domain"
)

// SimulatedProcessor is the default payload executor. It stands in for the
// real task-type-specific pipeline (download source, transform, upload
// result) and derives the result reference from the task id.
type SimulatedProcessor struct {
	// WorkDuration simulates processing time per task. Zero means no delay.
	WorkDuration time.Duration
	logger       *slog.Logger
}

// NewSimulatedProcessor creates the default processor.
func NewSimulatedProcessor(workDuration time.Duration, logger *slog.Logger) *SimulatedProcessor {
	return &SimulatedProcessor{
		WorkDuration: workDuration,
		logger:       logger.With("component", "simulated-processor"),
	}
}

// Process simulates payload execution and returns the result reference.
func (p *SimulatedProcessor) Process(ctx context.Context, task *domain.Task) (string, error) {
	p.logger.Info("executing payload", "task_type", task.TaskType, "source_file", task.SourceFile)

	if p.WorkDuration > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.WorkDuration):
		}
	}

	return "processed_" + task.TaskID + ".result", nil
}

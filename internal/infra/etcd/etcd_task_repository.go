package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"task-service/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TaskRecordDir is the etcd prefix under which task records are stored,
	// one key per global id.
	TaskRecordDir = "/tasks/records/"
)

// taskRecord is the wire form of a task in etcd. State travels as a plain
// string so that decoding can reject unknown values explicitly instead of
// silently accepting them into the typed model.
type taskRecord struct {
	UserID       string  `json:"user_id"`
	TaskID       string  `json:"task_id"`
	TaskGlobalID string  `json:"task_global_id"`
	TaskType     string  `json:"task_type"`
	State        string  `json:"state"`
	SourceFile   string  `json:"source_file"`
	ResultFile   *string `json:"result_file,omitempty"`
}

type etcdTaskRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdTaskRepository creates a task repository backed by etcd. Put is a
// plain keyed upsert: there is no compare-and-swap on writes, so the service
// layer must not issue overlapping writes for the same global id.
func NewEtcdTaskRepository(client *clientv3.Client, logger *slog.Logger) domain.TaskRepository {
	return &etcdTaskRepository{
		client: client,
		logger: logger,
		tracer: otel.Tracer("task-service-etcd-repo"),
	}
}

// Put persists the task record, overwriting any previous record for the same
// global id.
func (r *etcdTaskRepository) Put(ctx context.Context, task *domain.Task) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.Put")
	defer span.End()

	data, err := json.Marshal(encodeTask(task))
	if err != nil {
		return fmt.Errorf("failed to marshal task to JSON: %w", err)
	}

	key := path.Join(TaskRecordDir, task.TaskGlobalID)
	span.SetAttributes(
		attribute.String("task.global_id", task.TaskGlobalID),
		attribute.String("etcd.key", key),
	)

	if _, err := r.client.Put(ctx, key, string(data)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put task to etcd")
		return fmt.Errorf("failed to save task %s to etcd: %w", task.TaskGlobalID, err)
	}
	return nil
}

// Get retrieves the task stored under globalID. Unknown ids, unreadable
// records and soft lookup failures all collapse to domain.ErrTaskNotFound;
// the underlying cause is logged but not surfaced, by contract.
func (r *etcdTaskRepository) Get(ctx context.Context, globalID string) (*domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.Get")
	defer span.End()
	span.SetAttributes(attribute.String("task.global_id", globalID))

	key := path.Join(TaskRecordDir, globalID)
	resp, err := r.client.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from etcd")
		r.logger.Error("task lookup failed", "task_global_id", globalID, "error", err)
		return nil, domain.ErrTaskNotFound
	}

	if len(resp.Kvs) == 0 {
		return nil, domain.ErrTaskNotFound
	}

	task, err := decodeTask(resp.Kvs[0].Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode task record")
		r.logger.Error("failed to decode task record", "task_global_id", globalID, "error", err)
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func encodeTask(task *domain.Task) taskRecord {
	return taskRecord{
		UserID:       task.UserID,
		TaskID:       task.TaskID,
		TaskGlobalID: task.TaskGlobalID,
		TaskType:     task.TaskType,
		State:        string(task.State),
		SourceFile:   task.SourceFile,
		ResultFile:   task.ResultFile,
	}
}

// decodeTask unmarshals a stored record and validates its state field.
// A record with an unknown state is an error, never a defaulted task.
func decodeTask(data []byte) (*domain.Task, error) {
	var rec taskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task record: %w", err)
	}

	state, err := domain.ParseTaskState(rec.State)
	if err != nil {
		return nil, err
	}

	return &domain.Task{
		UserID:       rec.UserID,
		TaskID:       rec.TaskID,
		TaskGlobalID: rec.TaskGlobalID,
		TaskType:     rec.TaskType,
		State:        state,
		SourceFile:   rec.SourceFile,
		ResultFile:   rec.ResultFile,
	}, nil
}

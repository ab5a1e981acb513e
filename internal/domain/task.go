package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskStateCreated    TaskState = "Created"
	TaskStateInProgress TaskState = "InProgress"
	TaskStatePaused     TaskState = "Paused"
	TaskStateCompleted  TaskState = "Completed"
	TaskStateFailed     TaskState = "Failed"
)

// ErrInvalidState is returned when a stored or submitted state string does not
// name a known TaskState. Unknown states are always rejected, never defaulted.
var ErrInvalidState = errors.New("invalid task state")

// ErrInvalidTransition is returned when a requested state change is not in the
// transition table.
var ErrInvalidTransition = errors.New("invalid task state transition")

// taskTransitions is the complete transition table. Completed and Failed are
// terminal and have no entry.
var taskTransitions = map[TaskState][]TaskState{
	TaskStateCreated:    {TaskStateInProgress},
	TaskStateInProgress: {TaskStatePaused, TaskStateCompleted, TaskStateFailed},
	TaskStatePaused:     {TaskStateInProgress},
}

// ParseTaskState converts a raw string into a TaskState.
func ParseTaskState(s string) (TaskState, error) {
	switch state := TaskState(s); state {
	case TaskStateCreated, TaskStateInProgress, TaskStatePaused, TaskStateCompleted, TaskStateFailed:
		return state, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// Task is the unit of work tracked by the service. The store record for a
// given TaskGlobalID always reflects the latest known state; no history is
// kept.
type Task struct {
	UserID       string    `json:"user_id"`
	TaskID       string    `json:"task_id"`
	TaskGlobalID string    `json:"task_global_id"`
	TaskType     string    `json:"task_type"`
	State        TaskState `json:"state"`
	SourceFile   string    `json:"source_file"`
	ResultFile   *string   `json:"result_file,omitempty"`
}

// NewTask creates a task in the Created state with a fresh task id. The
// global id is a deterministic composite of the owner and the task id and is
// immutable from this point on.
func NewTask(userID, taskType, sourceFile string) *Task {
	taskID := uuid.New().String()
	return &Task{
		UserID:       userID,
		TaskID:       taskID,
		TaskGlobalID: GlobalID(userID, taskID),
		TaskType:     taskType,
		State:        TaskStateCreated,
		SourceFile:   sourceFile,
	}
}

// GlobalID derives the externally visible task identifier from its parts.
func GlobalID(userID, taskID string) string {
	return userID + "_" + taskID
}

// CanTransitionTo reports whether the task may move from its current state to
// target. This predicate is the sole gate against corrupt lifecycles; every
// mutation must pass it before being persisted.
func (t *Task) CanTransitionTo(target TaskState) bool {
	for _, next := range taskTransitions[t.State] {
		if next == target {
			return true
		}
	}
	return false
}

// Validate checks that the task record is well formed.
func (t *Task) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("task user id cannot be empty")
	}
	if t.TaskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if t.TaskGlobalID == "" {
		return fmt.Errorf("task global id cannot be empty")
	}
	if t.TaskType == "" {
		return fmt.Errorf("task type cannot be empty")
	}
	if _, err := ParseTaskState(string(t.State)); err != nil {
		return err
	}
	if t.ResultFile != nil && t.State != TaskStateCompleted {
		return fmt.Errorf("result file is only valid on a completed task")
	}
	return nil
}

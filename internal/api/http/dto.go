package http

// SubmitTaskRequest is the Data Transfer Object for submitting a new task.
type SubmitTaskRequest struct {
	UserID     string `json:"user_id" validate:"required,min=1,max=128"`
	TaskType   string `json:"task_type" validate:"required,min=1,max=64"`
	SourceFile string `json:"source_file" validate:"required"`
}

// TaskCompletionRequest carries the result reference for a completing task.
type TaskCompletionRequest struct {
	ResultFile string `json:"result_file" validate:"required"`
}

// TaskIdentifier is the response body for submissions and transitions.
type TaskIdentifier struct {
	TaskGlobalID string `json:"task_global_id"`
}

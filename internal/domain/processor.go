package domain

import "context"

// TaskProcessor executes the payload-specific work for a fetched task and
// returns a reference to the produced result. Implementations must not leave
// partial side effects visible to the task store: either a result reference
// comes back, or an error does.
type TaskProcessor interface {
	Process(ctx context.Context, task *Task) (resultFile string, err error)
}

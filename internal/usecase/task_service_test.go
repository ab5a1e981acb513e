package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"task-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory TaskRepository with failure toggles.
type fakeRepo struct {
	mu      sync.Mutex
	tasks   map[string]domain.Task
	failPut bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: make(map[string]domain.Task)}
}

func (r *fakeRepo) Put(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPut {
		return errors.New("store unavailable")
	}
	r.tasks[task.TaskGlobalID] = *task
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, globalID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[globalID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

// fakeQueue records enqueued ids and can be told to fail.
type fakeQueue struct {
	mu          sync.Mutex
	ids         []string
	failEnqueue bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, globalID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failEnqueue {
		return errors.New("queue unavailable")
	}
	q.ids = append(q.ids, globalID)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", domain.ErrQueueEmpty
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, nil
}

func newService(repo *fakeRepo, queue *fakeQueue) *TaskService {
	return NewTaskService(repo, queue, slog.Default())
}

func TestSubmitStoresAndEnqueues(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)

	globalID, err := svc.Submit(context.Background(), "u1", "render", "s3://in/a")
	require.NoError(t, err)
	require.NotEmpty(t, globalID)

	task, err := repo.Get(context.Background(), globalID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateCreated, task.State)
	assert.Equal(t, "render", task.TaskType)
	assert.Equal(t, "s3://in/a", task.SourceFile)
	assert.Nil(t, task.ResultFile)

	require.Len(t, queue.ids, 1)
	assert.Equal(t, globalID, queue.ids[0])
}

func TestSubmitFreshGlobalIDPerSubmission(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)

	a, err := svc.Submit(context.Background(), "u1", "render", "s3://in/a")
	require.NoError(t, err)
	b, err := svc.Submit(context.Background(), "u1", "render", "s3://in/a")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSubmitStoreFailureIsAtomic(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	repo.failPut = true
	svc := newService(repo, queue)

	_, err := svc.Submit(context.Background(), "u1", "render", "s3://in/a")
	require.ErrorIs(t, err, ErrTaskCreationFailure)
	assert.Empty(t, queue.ids, "nothing may be enqueued when persistence fails")
}

func TestSubmitDispatchFailureStillSucceeds(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	queue.failEnqueue = true
	svc := newService(repo, queue)

	globalID, err := svc.Submit(context.Background(), "u1", "render", "s3://in/a")
	require.NoError(t, err, "the record is durable; dispatch is best-effort")
	require.NotEmpty(t, globalID)

	_, err = repo.Get(context.Background(), globalID)
	assert.NoError(t, err)
}

func TestTransitionHappyPath(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)
	ctx := context.Background()

	globalID, err := svc.Submit(ctx, "u1", "render", "s3://in/a")
	require.NoError(t, err)

	require.NoError(t, svc.Transition(ctx, globalID, domain.TaskStateInProgress, nil))

	task, err := svc.Fetch(ctx, globalID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateInProgress, task.State)

	result := "s3://out/a"
	require.NoError(t, svc.Transition(ctx, globalID, domain.TaskStateCompleted, &result))

	task, err = svc.Fetch(ctx, globalID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateCompleted, task.State)
	require.NotNil(t, task.ResultFile)
	assert.Equal(t, result, *task.ResultFile)
}

func TestTransitionDoubleStartRejected(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)
	ctx := context.Background()

	globalID, err := svc.Submit(ctx, "u1", "render", "s3://in/a")
	require.NoError(t, err)

	require.NoError(t, svc.Transition(ctx, globalID, domain.TaskStateInProgress, nil))

	err = svc.Transition(ctx, globalID, domain.TaskStateInProgress, nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Stored state is unchanged by the rejected request.
	task, err := svc.Fetch(ctx, globalID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateInProgress, task.State)
}

func TestTransitionTerminalStateRejected(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)
	ctx := context.Background()

	globalID, err := svc.Submit(ctx, "u1", "render", "s3://in/a")
	require.NoError(t, err)
	require.NoError(t, svc.Transition(ctx, globalID, domain.TaskStateInProgress, nil))

	result := "s3://out/a"
	require.NoError(t, svc.Transition(ctx, globalID, domain.TaskStateCompleted, &result))

	err = svc.Transition(ctx, globalID, domain.TaskStateFailed, nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	task, err := svc.Fetch(ctx, globalID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateCompleted, task.State)
	require.NotNil(t, task.ResultFile)
}

func TestTransitionSkipCreatedToCompletedRejected(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)
	ctx := context.Background()

	globalID, err := svc.Submit(ctx, "u1", "render", "s3://in/a")
	require.NoError(t, err)

	result := "s3://out/a"
	err = svc.Transition(ctx, globalID, domain.TaskStateCompleted, &result)
	require.ErrorIs(t, err, domain.ErrInvalidTransition,
		"a task that was never started cannot complete")
}

func TestTransitionUnknownTask(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)

	err := svc.Transition(context.Background(), "nope", domain.TaskStateInProgress, nil)
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTransitionPersistFailure(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)
	ctx := context.Background()

	globalID, err := svc.Submit(ctx, "u1", "render", "s3://in/a")
	require.NoError(t, err)

	repo.failPut = true
	err = svc.Transition(ctx, globalID, domain.TaskStateInProgress, nil)
	require.ErrorIs(t, err, ErrTaskUpdateFailure)
}

func TestFetchUnknownTask(t *testing.T) {
	repo, queue := newFakeRepo(), &fakeQueue{}
	svc := newService(repo, queue)

	_, err := svc.Fetch(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}

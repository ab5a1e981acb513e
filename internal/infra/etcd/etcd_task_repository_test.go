package etcd

import (
	"encoding/json"
	"testing"

	"task-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRecordRoundTrip(t *testing.T) {
	result := "s3://out/a"
	task := &domain.Task{
		UserID:       "u1",
		TaskID:       "t1",
		TaskGlobalID: "u1_t1",
		TaskType:     "render",
		State:        domain.TaskStateCompleted,
		SourceFile:   "s3://in/a",
		ResultFile:   &result,
	}

	data, err := json.Marshal(encodeTask(task))
	require.NoError(t, err)

	got, err := decodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestTaskRecordRoundTripNoResult(t *testing.T) {
	task := domain.NewTask("u1", "render", "s3://in/a")

	data, err := json.Marshal(encodeTask(task))
	require.NoError(t, err)

	got, err := decodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, task, got)
	assert.Nil(t, got.ResultFile)
}

func TestDecodeTaskRejectsUnknownState(t *testing.T) {
	data := []byte(`{"user_id":"u1","task_id":"t1","task_global_id":"u1_t1","task_type":"render","state":"Running","source_file":"s3://in/a"}`)

	_, err := decodeTask(data)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestDecodeTaskRejectsGarbage(t *testing.T) {
	_, err := decodeTask([]byte("not json"))
	require.Error(t, err)
}

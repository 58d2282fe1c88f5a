package scheduler

import (
	"context"
	"testing"
	"time"

	"floorwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskManager_CompletesTask(t *testing.T) {
	tm := NewTaskManager(func(ctx context.Context, key string) (*models.DiscoveryResult, error) {
		return &models.DiscoveryResult{ItemKey: key}, nil
	}, 2, time.Second, time.Hour)
	defer tm.Stop()

	task, err := tm.SubmitTask("888-floor")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusQueued, task.Status)

	assert.Eventually(t, func() bool {
		got, ok := tm.GetTask(task.ID)
		return ok && got.Status == models.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := tm.GetTask(task.ID)
	require.NotNil(t, got.Result)
	assert.Equal(t, "888-floor", got.Result.ItemKey)
	assert.Equal(t, 0, tm.ActiveCount())
}

func TestTaskManager_FailedTaskKeepsReason(t *testing.T) {
	tm := NewTaskManager(func(ctx context.Context, key string) (*models.DiscoveryResult, error) {
		return nil, models.NewFailure(models.ReasonNoListing, nil, "nothing on sale")
	}, 1, time.Second, time.Hour)
	defer tm.Stop()

	task, err := tm.SubmitTask("888-floor")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, _ := tm.GetTask(task.ID)
		return got.Status == models.TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := tm.GetTask(task.ID)
	require.NotNil(t, got.Failure)
	assert.Equal(t, models.ReasonNoListing, got.Failure.Reason)
}

func TestTaskManager_CleanupOldTasks(t *testing.T) {
	tm := NewTaskManager(func(ctx context.Context, key string) (*models.DiscoveryResult, error) {
		return &models.DiscoveryResult{ItemKey: key}, nil
	}, 1, time.Second, time.Hour)
	defer tm.Stop()

	task, err := tm.SubmitTask("888-floor")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		got, _ := tm.GetTask(task.ID)
		return got.IsCompleted()
	}, 2*time.Second, 10*time.Millisecond)

	tm.CleanupOldTasks(0)
	_, ok := tm.GetTask(task.ID)
	assert.False(t, ok)
}

func TestTaskManager_UnknownTask(t *testing.T) {
	tm := NewTaskManager(nil, 1, 0, 0)
	defer tm.Stop()

	_, ok := tm.GetTask("task_missing")
	assert.False(t, ok)
}

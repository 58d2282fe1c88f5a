package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of an async discovery task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// DiscoveryTask is a discovery request running in the background
type DiscoveryTask struct {
	ID          string           `json:"id"`
	ItemKey     string           `json:"item_key"`
	Status      TaskStatus       `json:"status"`
	Message     string           `json:"message"`
	Result      *DiscoveryResult `json:"result,omitempty"`
	Failure     *Failure         `json:"failure,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewDiscoveryTask creates a queued task for itemKey
func NewDiscoveryTask(itemKey string) *DiscoveryTask {
	return &DiscoveryTask{
		ID:        "task_" + uuid.NewString(),
		ItemKey:   itemKey,
		Status:    TaskStatusQueued,
		Message:   "Task queued for processing",
		CreatedAt: time.Now(),
	}
}

// Start marks the task as processing
func (t *DiscoveryTask) Start() {
	t.Status = TaskStatusProcessing
	t.Message = "Discovering floor price..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with result
func (t *DiscoveryTask) Complete(result *DiscoveryResult) {
	t.Status = TaskStatusCompleted
	t.Message = "Discovery completed successfully"
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed
func (t *DiscoveryTask) Fail(err error) {
	t.Status = TaskStatusFailed
	t.Message = "Discovery failed"
	t.Error = err.Error()
	if f, ok := AsFailure(err); ok {
		t.Failure = f
	}
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *DiscoveryTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still queued or running
func (t *DiscoveryTask) IsActive() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns how long the task ran
func (t *DiscoveryTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}

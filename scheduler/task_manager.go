package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"floorwatch/models"

	"github.com/rs/zerolog/log"
)

// TaskFunc runs one discovery for an item key
type TaskFunc func(ctx context.Context, itemKey string) (*models.DiscoveryResult, error)

// ErrQueueFull is returned when no more tasks can be accepted
var ErrQueueFull = errors.New("task queue is full")

// TaskManager runs discovery tasks on a fixed pool of workers
type TaskManager struct {
	tasks    map[string]*models.DiscoveryTask
	queue    chan *models.DiscoveryTask
	run      TaskFunc
	timeout  time.Duration
	maxAge   time.Duration
	mutex    sync.RWMutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTaskManager starts maxWorkers workers. Finished tasks are kept for maxAge.
func NewTaskManager(run TaskFunc, maxWorkers int, timeout, maxAge time.Duration) *TaskManager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	tm := &TaskManager{
		tasks:    make(map[string]*models.DiscoveryTask),
		queue:    make(chan *models.DiscoveryTask, 100),
		run:      run,
		timeout:  timeout,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker()
	}
	tm.wg.Add(1)
	go tm.cleanupLoop()

	log.Info().Int("workers", maxWorkers).Msg("task manager started")
	return tm
}

// SubmitTask queues a discovery for itemKey
func (tm *TaskManager) SubmitTask(itemKey string) (models.DiscoveryTask, error) {
	task := models.NewDiscoveryTask(itemKey)

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	select {
	case tm.queue <- task:
		tm.tasks[task.ID] = task
		log.Debug().Str("task", task.ID).Str("item", itemKey).Msg("task submitted")
		return *task, nil
	default:
		log.Warn().Str("item", itemKey).Msg("task queue full")
		return models.DiscoveryTask{}, ErrQueueFull
	}
}

// GetTask returns a snapshot of a task by ID
func (tm *TaskManager) GetTask(taskID string) (models.DiscoveryTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	if !exists {
		return models.DiscoveryTask{}, false
	}
	return *task, true
}

// ActiveCount returns the number of queued or running tasks
func (tm *TaskManager) ActiveCount() int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	n := 0
	for _, task := range tm.tasks {
		if task.IsActive() {
			n++
		}
	}
	return n
}

// CleanupOldTasks removes completed tasks older than maxAge
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, id)
		}
	}
}

func (tm *TaskManager) cleanupLoop() {
	defer tm.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.CleanupOldTasks(tm.maxAge)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) worker() {
	defer tm.wg.Done()
	for {
		select {
		case task := <-tm.queue:
			tm.process(task)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) process(task *models.DiscoveryTask) {
	tm.mutex.Lock()
	task.Start()
	tm.mutex.Unlock()

	ctx := context.Background()
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	result, err := tm.run(ctx, task.ItemKey)

	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	if err != nil {
		task.Fail(err)
		log.Warn().Err(err).Str("task", task.ID).Msg("task failed")
		return
	}
	task.Complete(result)
	log.Info().Str("task", task.ID).Dur("took", task.Duration()).Msg("task completed")
}

// Stop stops the workers and waits for a running task to finish
func (tm *TaskManager) Stop() {
	close(tm.stopChan)
	tm.wg.Wait()
	log.Info().Msg("task manager stopped")
}

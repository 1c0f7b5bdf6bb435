// Package dispatch owns the in-memory task pipeline: the FIFO queue of
// pending translations, the registry of live progress cells, and the worker
// sessions that drain the queue over WebSocket connections.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"imagetrans/internal/blob"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
	"imagetrans/internal/metrics"
)

// errNeedImage reports that a task cannot be enqueued before its source
// image payload is loaded. The payload is fetched with the mutex released
// and the dispatch retried.
var errNeedImage = errors.New("source image payload required")

// Submission is the outcome of a dispatch request: either a live progress
// cell to follow, or a cached result when the same task already finished.
type Submission struct {
	Task     *models.Task
	Progress *Progress
	Result   *models.TaskResult
}

// Dispatcher coordinates task submission, recovery and worker sessions.
// Its mutex serializes the upsert-check-enqueue section so that two
// concurrent submissions of the same deduplication key attach to a single
// queue entry.
type Dispatcher struct {
	mu          sync.Mutex
	queue       *Queue
	registry    *Registry
	tasks       repositories.TaskRepository
	store       blob.Store
	taskTimeout time.Duration
	log         *zap.Logger
}

func NewDispatcher(tasks repositories.TaskRepository, store blob.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:       NewQueue(),
		registry:    NewRegistry(),
		tasks:       tasks,
		store:       store,
		taskTimeout: taskInactivityTimeout,
		log:         log,
	}
}

// UpsertAndDispatch persists the task row for one deduplication key and
// queues it for execution. The upsert and the enqueue decision share one
// critical section. sourceImage may be nil when the caller does not
// already hold the payload; it is then fetched from the blob store.
func (d *Dispatcher) UpsertAndDispatch(ctx context.Context, sourceImageID string, param models.TaskParam, retry bool, sourceImage []byte) (*Submission, error) {
	d.mu.Lock()
	task, err := d.tasks.Upsert(ctx, sourceImageID, param.Resolve(), retry)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("upsert task: %w", err)
	}
	task.SourceImage = sourceImage
	sub, err := d.dispatch(ctx, task, retry)
	d.mu.Unlock()

	if errors.Is(err, errNeedImage) {
		return d.hydrateAndDispatch(ctx, task, retry)
	}
	return sub, err
}

// Dispatch queues a persisted task. If a task with the same id is already
// queued or running the caller is attached to its progress cell; if the
// task finished earlier and retry is not set, the stored result is
// returned without queueing.
func (d *Dispatcher) Dispatch(ctx context.Context, task *models.Task, retry bool) (*Submission, error) {
	d.mu.Lock()
	sub, err := d.dispatch(ctx, task, retry)
	d.mu.Unlock()

	if errors.Is(err, errNeedImage) {
		return d.hydrateAndDispatch(ctx, task, retry)
	}
	return sub, err
}

// hydrateAndDispatch loads the source image with no lock held, then retries
// the enqueue with the payload in hand.
func (d *Dispatcher) hydrateAndDispatch(ctx context.Context, task *models.Task, retry bool) (*Submission, error) {
	img, err := d.store.Get(ctx, task.SourceImageFile)
	if err != nil {
		if dbErr := d.tasks.MarkError(ctx, task.ID, task.FailedCount+1); dbErr != nil {
			d.log.Error("mark task error",
				zap.String("task_id", task.ID), zap.Error(dbErr))
		}
		return nil, fmt.Errorf("fetch source image %s: %w", task.SourceImageFile, err)
	}
	task.SourceImage = img

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatch(ctx, task, retry)
}

// dispatch is the enqueue decision; callers hold d.mu. A registry miss is
// settled against a fresh row read: sessions drop their registry entry only
// after the terminal row update commits, so a miss means the task is either
// not live or already finished, and the fresh read tells the two apart. The
// caller's snapshot alone cannot, because the task may finish between the
// snapshot and the registry check.
func (d *Dispatcher) dispatch(ctx context.Context, task *models.Task, retry bool) (*Submission, error) {
	if p, ok := d.registry.Lookup(task.ID); ok {
		return &Submission{Task: task, Progress: p}, nil
	}

	if !retry {
		fresh, err := d.tasks.FindByID(ctx, task.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("reload task %s: %w", task.ID, err)
		}
		if err == nil {
			fresh.SourceImage = task.SourceImage
			task = fresh
		}
		if res := task.Result(); res != nil {
			return &Submission{Task: task, Result: res}, nil
		}
	}

	if len(task.SourceImage) == 0 {
		return nil, errNeedImage
	}

	progress := NewProgress(Pending(d.queue.Len()))
	d.registry.Insert(task.ID, progress)
	d.queue.PushBack(task, progress)
	metrics.TaskDispatchCount.Inc()

	d.log.Info("task queued",
		zap.String("task_id", task.ID),
		zap.Int("queue_length", d.queue.Len()))

	return &Submission{Task: task, Progress: progress}, nil
}

// Resume re-queues unfinished tasks of the current worker revision in
// creation order. Called once at startup, before the server starts
// accepting connections.
func (d *Dispatcher) Resume(ctx context.Context) error {
	tasks, err := d.tasks.FindByRevision(ctx, models.WorkerRevision)
	if err != nil {
		return fmt.Errorf("load tasks for revision %d: %w", models.WorkerRevision, err)
	}

	resumed := 0
	for _, task := range tasks {
		if !task.Resumable() {
			continue
		}
		img, err := d.store.Get(ctx, task.SourceImageFile)
		if err != nil {
			d.log.Warn("source image unavailable, task not resumed",
				zap.String("task_id", task.ID),
				zap.String("file", task.SourceImageFile),
				zap.Error(err))
			if dbErr := d.tasks.MarkError(ctx, task.ID, task.FailedCount+1); dbErr != nil {
				d.log.Error("mark task error",
					zap.String("task_id", task.ID), zap.Error(dbErr))
			}
			continue
		}
		task.SourceImage = img

		progress := NewProgress(Pending(d.queue.Len()))
		d.registry.Insert(task.ID, progress)
		d.queue.PushBack(task, progress)
		resumed++
	}

	if resumed > 0 {
		d.log.Info("resumed unfinished tasks", zap.Int("count", resumed))
	}
	return nil
}

// Subscribe returns the live progress cell of a queued or running task.
func (d *Dispatcher) Subscribe(taskID string) (*Progress, bool) {
	return d.registry.Lookup(taskID)
}

// QueueLen reports the number of tasks waiting for a worker.
func (d *Dispatcher) QueueLen() int {
	return d.queue.Len()
}

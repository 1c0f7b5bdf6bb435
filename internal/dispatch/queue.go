package dispatch

import (
	"sync"

	"imagetrans/internal/domain/models"
	"imagetrans/internal/metrics"
)

// queueEntry pairs a task with its progress channel sender.
type queueEntry struct {
	task     *models.Task
	progress *Progress
}

// Queue is the FIFO of tasks awaiting a worker. A single mutex protects the
// deque; the wake channel is a separate notification primitive that rouses
// one waiting worker per push. A worker that pops and leaves the queue
// non-empty re-arms the wake, so a single buffered slot is enough to reach
// every waiter eventually.
type Queue struct {
	mu      sync.Mutex
	entries []queueEntry
	wake    chan struct{}
}

// NewQueue creates an empty dispatch queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// PushBack appends a task and wakes one waiting worker.
func (q *Queue) PushBack(task *models.Task, progress *Progress) {
	q.mu.Lock()
	q.entries = append(q.entries, queueEntry{task, progress})
	metrics.QueueLength.Set(float64(len(q.entries)))
	q.mu.Unlock()
	q.Wake()
}

// PushFront re-inserts a retried task at the head, ahead of everything
// enqueued after its original submission.
func (q *Queue) PushFront(task *models.Task, progress *Progress) {
	q.mu.Lock()
	q.entries = append([]queueEntry{{task, progress}}, q.entries...)
	metrics.QueueLength.Set(float64(len(q.entries)))
	q.mu.Unlock()
	q.Wake()
}

// PopFront removes and returns the head task. Remaining entries are
// renumbered: each receives its new 0-based position, best-effort, before
// the popped task starts executing. If the queue is still non-empty the
// wake is re-armed for the next idle worker.
func (q *Queue) PopFront() (*models.Task, *Progress, bool) {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return nil, nil, false
	}
	head := q.entries[0]
	q.entries = q.entries[1:]

	for i, e := range q.entries {
		e.progress.Send(Pending(i))
	}
	metrics.QueueLength.Set(float64(len(q.entries)))
	rearm := len(q.entries) > 0
	q.mu.Unlock()

	if rearm {
		q.Wake()
	}
	return head.task, head.progress, true
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Wake rouses one worker waiting on WakeC. A wake sent while the slot is
// already armed is coalesced.
func (q *Queue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// WakeC is the channel idle workers wait on.
func (q *Queue) WakeC() <-chan struct{} {
	return q.wake
}

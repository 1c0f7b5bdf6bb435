package dispatch

import (
	"sync"

	"imagetrans/internal/domain/models"
)

// ProgressKind discriminates progress messages.
type ProgressKind int

const (
	// KindPending reports the task's 0-based queue position.
	KindPending ProgressKind = iota
	// KindStatus reports a worker phase label.
	KindStatus
	// KindResult is the terminal success message.
	KindResult
	// KindError reports a failed attempt. Retry tells subscribers whether
	// the task was re-queued; with Retry false the message is terminal.
	KindError
)

// ProgressMessage is one value on a task's progress channel.
type ProgressMessage struct {
	Kind   ProgressKind
	Pos    int
	Status string
	Result *models.TaskResult
	Retry  bool
}

// Pending builds a queue position message.
func Pending(pos int) ProgressMessage {
	return ProgressMessage{Kind: KindPending, Pos: pos}
}

// Status builds a worker phase message.
func Status(status string) ProgressMessage {
	return ProgressMessage{Kind: KindStatus, Status: status}
}

// Result builds the terminal success message.
func Result(result models.TaskResult) ProgressMessage {
	return ProgressMessage{Kind: KindResult, Result: &result}
}

// Error builds a failure message.
func Error(retry bool) ProgressMessage {
	return ProgressMessage{Kind: KindError, Retry: retry}
}

// Terminal reports whether no further message can follow this one.
func (m ProgressMessage) Terminal() bool {
	return m.Kind == KindResult || (m.Kind == KindError && !m.Retry)
}

// Progress is a latest-value broadcast cell for one task: a single writer
// (the executing worker session) overwrites the value without waiting, many
// readers snapshot it and wait for changes. Slow readers conflate
// intermediate values but always observe the latest, and a terminal value is
// never overwritten.
type Progress struct {
	mu      sync.Mutex
	latest  ProgressMessage
	changed chan struct{}
	closed  bool
}

// NewProgress creates a progress cell holding an initial value.
func NewProgress(initial ProgressMessage) *Progress {
	return &Progress{
		latest:  initial,
		changed: make(chan struct{}),
	}
}

// Send publishes a new latest value and wakes all waiting readers. Sends
// after a terminal value or after Close are dropped.
func (p *Progress) Send(msg ProgressMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.latest.Terminal() {
		return
	}
	p.latest = msg
	close(p.changed)
	p.changed = make(chan struct{})
}

// Latest returns the current value and whether the cell is closed.
func (p *Progress) Latest() (ProgressMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.closed
}

// Changed returns a channel that is closed when the value changes or the
// cell closes. Callers re-read Latest after the channel fires and call
// Changed again for the next update.
func (p *Progress) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// Close marks the writer gone. Waiting readers wake and observe closure.
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.changed)
}

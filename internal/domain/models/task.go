package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkerRevision tags tasks with the worker protocol generation they were
// created under. Recovery and deduplication scope to the current value, so
// bumping it invalidates every in-flight task after an incompatible worker
// change.
const WorkerRevision = 1

// TaskState represents the current state of a task.
type TaskState string

const (
	TaskStatePending TaskState = "pending"
	TaskStateRunning TaskState = "running"
	TaskStateDone    TaskState = "done"
	TaskStateError   TaskState = "error"
)

// MaxAttempts is the total number of executions a task gets before it is
// failed permanently.
const MaxAttempts = 3

// TaskParam is the translation parameter tuple. Together with the source
// image and the worker revision it forms the deduplication key.
type TaskParam struct {
	TargetLanguage Language   `json:"target_language"`
	Detector       Detector   `json:"detector"`
	Direction      Direction  `json:"direction"`
	Translator     Translator `json:"translator"`
	Size           Size       `json:"size"`
}

// Resolve returns a copy with the direction default substituted for the
// target language. Only resolved params may be persisted.
func (p TaskParam) Resolve() TaskParam {
	p.Direction = ResolveDirection(p.Direction, p.TargetLanguage)
	return p
}

// TaskResult is the output of a completed translation.
type TaskResult struct {
	TranslationMask string `json:"translation_mask"`
}

// Task is one translation job for one source image under one parameter
// tuple. The column fields mirror the task table row; SourceImage and
// SourceImageFile are populated from the blob store and the source_image
// join and never written back.
type Task struct {
	ID              string     `json:"id" db:"id"`
	SourceImageID   string     `json:"source_image_id" db:"source_image_id"`
	Param           TaskParam  `json:"param"`
	WorkerRevision  int        `json:"worker_revision" db:"worker_revision"`
	State           TaskState  `json:"state" db:"state"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty" db:"last_attempted_at"`
	FailedCount     int        `json:"failed_count" db:"failed_count"`
	TranslationMask *string    `json:"translation_mask,omitempty" db:"translation_mask"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`

	// SourceImageFile is the blob key of the source image (source_image.file).
	SourceImageFile string `json:"-"`
	// SourceImage is the raw image payload handed to the worker.
	SourceImage []byte `json:"-"`
}

// NewTask creates a pending task for a source image and resolved params.
func NewTask(sourceImageID string, param TaskParam) *Task {
	return &Task{
		ID:             uuid.New().String(),
		SourceImageID:  sourceImageID,
		Param:          param.Resolve(),
		WorkerRevision: WorkerRevision,
		State:          TaskStatePending,
		CreatedAt:      time.Now(),
	}
}

// Result returns the task result if the task is done.
func (t *Task) Result() *TaskResult {
	if t.State != TaskStateDone || t.TranslationMask == nil {
		return nil
	}
	return &TaskResult{TranslationMask: *t.TranslationMask}
}

// Resumable reports whether recovery should re-enqueue the task.
func (t *Task) Resumable() bool {
	if t.State == TaskStateDone || t.State == TaskStateError {
		return false
	}
	return t.FailedCount < MaxAttempts
}

// SourceImage is one deduplicated source image stored in the blob store.
type SourceImage struct {
	ID        string    `json:"id" db:"id"`
	Hash      string    `json:"hash" db:"hash"`
	File      string    `json:"file" db:"file"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewSourceImage creates a source image row for a stored blob.
func NewSourceImage(hash, file string, width, height int) *SourceImage {
	return &SourceImage{
		ID:        uuid.New().String(),
		Hash:      hash,
		File:      file,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now(),
	}
}

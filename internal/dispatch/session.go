package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imagetrans/internal/blob"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/metrics"
	"imagetrans/internal/mitproto"
)

// taskInactivityTimeout is the default bound on the silence accepted from a
// worker while it executes a task. Any frame for the task resets it.
const taskInactivityTimeout = 30 * time.Second

// transportError marks failures of the worker connection itself, as opposed
// to failures of the task being executed. A transport error ends the
// session; other attempt errors keep the worker available for more tasks.
type transportError struct{ err error }

func (e transportError) Error() string { return e.err.Error() }
func (e transportError) Unwrap() error { return e.err }

// frameResult is one decoded frame from the worker, or the read error that
// ended the stream.
type frameResult struct {
	msg mitproto.Message
	err error
}

type workerSession struct {
	d      *Dispatcher
	conn   *websocket.Conn
	frames chan frameResult
	log    *zap.Logger
}

// RunWorkerSession drives one connected MIT worker until its connection
// drops or ctx is cancelled. The session alternates between waiting on the
// queue and executing a single task at a time.
func (d *Dispatcher) RunWorkerSession(ctx context.Context, conn *websocket.Conn) {
	metrics.WorkerCount.Inc()
	defer metrics.WorkerCount.Dec()

	s := &workerSession{
		d:      d,
		conn:   conn,
		frames: make(chan frameResult, 1),
		log:    d.log.With(zap.String("worker", conn.RemoteAddr().String())),
	}
	go s.readFrames()
	defer func() {
		conn.Close()
		// Unblock the reader so it can observe the closed connection.
		go func() {
			for range s.frames {
			}
		}()
	}()

	s.log.Info("worker connected")

	// A worker connecting while the queue is non-empty must not wait for
	// the next push.
	d.queue.Wake()

	err := s.run(ctx)
	s.log.Info("worker disconnected", zap.Error(err))
}

// readFrames pumps decoded frames from the connection into s.frames. The
// gorilla read loop answers pings with pongs on its own; close frames and
// malformed payloads surface here as errors.
func (s *workerSession) readFrames() {
	defer close(s.frames)
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			s.frames <- frameResult{err: err}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		msg, err := mitproto.Unmarshal(data)
		if err != nil {
			s.frames <- frameResult{err: fmt.Errorf("decode frame: %w", err)}
			return
		}
		s.frames <- frameResult{msg: msg}
	}
}

func (s *workerSession) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fr, ok := <-s.frames:
			if !ok {
				return errors.New("worker stream closed")
			}
			if fr.err != nil {
				return fr.err
			}
			// Frames outside a task are ignored.
		case <-s.d.queue.WakeC():
			if err := s.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// drain executes queued tasks until the queue empties or the connection
// fails.
func (s *workerSession) drain(ctx context.Context) error {
	for {
		task, progress, ok := s.d.queue.PopFront()
		if !ok {
			return nil
		}
		if err := s.execute(ctx, task, progress); err != nil {
			return err
		}
	}
}

// execute runs one attempt of a task and settles its outcome: metrics,
// persistence of the failure, the retry decision and the progress messages
// subscribers see. The returned error is non-nil only when the session
// must end.
func (s *workerSession) execute(ctx context.Context, task *models.Task, progress *Progress) error {
	s.log.Debug("executing task", zap.String("task_id", task.ID))
	start := time.Now()

	err := s.attempt(ctx, task, progress)
	if err == nil {
		s.d.registry.Remove(task.ID)
		metrics.TaskFinishCount.Inc()
		metrics.TaskDuration.Observe(time.Since(start).Seconds())
		s.log.Debug("task finished", zap.String("task_id", task.ID))
		return nil
	}

	task.FailedCount++
	metrics.TaskErrorCount.Inc()
	s.log.Warn("task attempt failed",
		zap.String("task_id", task.ID),
		zap.Int("failed_count", task.FailedCount),
		zap.Error(err))

	// Retry only when the failure was recorded. If the database refused
	// the update a restart would replay the attempt anyway.
	dbOK := true
	if dbErr := s.d.tasks.MarkError(ctx, task.ID, task.FailedCount); dbErr != nil {
		dbOK = false
		s.log.Error("mark task error",
			zap.String("task_id", task.ID), zap.Error(dbErr))
	}

	if dbOK && task.FailedCount < models.MaxAttempts {
		progress.Send(Error(true))
		s.d.queue.PushFront(task, progress)
	} else {
		progress.Send(Error(false))
		s.d.registry.Remove(task.ID)
	}

	var te transportError
	if errors.As(err, &te) {
		return err
	}
	return nil
}

// attempt drives one task through a worker: mark it running, send the task
// frame, then relay status frames until the finish frame arrives or the
// worker goes silent.
func (s *workerSession) attempt(ctx context.Context, task *models.Task, progress *Progress) error {
	now := time.Now()
	if err := s.d.tasks.MarkRunning(ctx, task.ID, now); err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	task.State = models.TaskStateRunning
	task.LastAttemptedAt = &now

	progress.Send(Status("pending"))

	frame, err := mitproto.Marshal(&mitproto.NewTask{
		ID:             task.ID,
		SourceImage:    task.SourceImage,
		TargetLanguage: task.Param.TargetLanguage.String(),
		Detector:       task.Param.Detector.String(),
		Direction:      task.Param.Direction.String(),
		Translator:     task.Param.Translator.String(),
		Size:           task.Param.Size.String(),
	})
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return transportError{fmt.Errorf("send task: %w", err)}
	}

	timer := time.NewTimer(s.d.taskTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return transportError{ctx.Err()}
		case <-timer.C:
			return transportError{fmt.Errorf("worker silent for %s", s.d.taskTimeout)}
		case fr, ok := <-s.frames:
			if !ok {
				return transportError{errors.New("worker stream closed")}
			}
			if fr.err != nil {
				return transportError{fr.err}
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(s.d.taskTimeout)

			switch m := fr.msg.(type) {
			case *mitproto.Status:
				if m.ID != task.ID {
					continue
				}
				s.log.Debug("task status",
					zap.String("task_id", task.ID),
					zap.String("status", m.Status))
				progress.Send(Status(m.Status))
			case *mitproto.FinishTask:
				if m.ID != task.ID {
					continue
				}
				return s.finish(ctx, task, progress, m.TranslationMask)
			default:
				// Workers never originate task frames.
			}
		}
	}
}

// finish stores the rendered mask, persists completion and publishes the
// result.
func (s *workerSession) finish(ctx context.Context, task *models.Task, progress *Progress, mask []byte) error {
	maskKey := blob.TranslationMaskKey(task.ID)
	if err := s.d.store.Put(ctx, maskKey, mask); err != nil {
		return fmt.Errorf("store translation mask: %w", err)
	}
	if err := s.d.tasks.MarkDone(ctx, task.ID, maskKey); err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}

	task.State = models.TaskStateDone
	task.TranslationMask = &maskKey

	progress.Send(Result(models.TaskResult{TranslationMask: maskKey}))
	return nil
}

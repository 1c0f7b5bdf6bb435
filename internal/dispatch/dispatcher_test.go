package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"imagetrans/internal/domain/models"
)

var testParam = models.TaskParam{
	TargetLanguage: models.LanguageCHS,
	Detector:       models.DetectorDefault,
	Direction:      models.DirectionDefault,
	Translator:     models.TranslatorGoogle,
	Size:           models.SizeM,
}

func newTestDispatcher() (*Dispatcher, *fakeTaskRepo, *fakeStore) {
	repo := newFakeTaskRepo()
	store := newFakeStore()
	return NewDispatcher(repo, store, zap.NewNop()), repo, store
}

func TestDispatchDeduplicatesConcurrentSubmissions(t *testing.T) {
	d, _, _ := newTestDispatcher()
	ctx := context.Background()

	first, err := d.UpsertAndDispatch(ctx, "img-1", testParam, false, []byte("png"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first.Progress == nil {
		t.Fatal("first dispatch returned no progress cell")
	}

	second, err := d.UpsertAndDispatch(ctx, "img-1", testParam, false, []byte("png"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if second.Task.ID != first.Task.ID {
		t.Errorf("dedup key produced two task ids: %s, %s", first.Task.ID, second.Task.ID)
	}
	if second.Progress != first.Progress {
		t.Error("second submission not attached to the live progress cell")
	}
	if d.QueueLen() != 1 {
		t.Errorf("queue length = %d, want 1", d.QueueLen())
	}
}

func TestDispatchDifferentParamsAreDistinctTasks(t *testing.T) {
	d, _, _ := newTestDispatcher()
	ctx := context.Background()

	first, err := d.UpsertAndDispatch(ctx, "img-1", testParam, false, []byte("png"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	other := testParam
	other.TargetLanguage = models.LanguageENG
	second, err := d.UpsertAndDispatch(ctx, "img-1", other, false, []byte("png"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if second.Task.ID == first.Task.ID {
		t.Error("different param tuples share a task id")
	}
	if d.QueueLen() != 2 {
		t.Errorf("queue length = %d, want 2", d.QueueLen())
	}
}

func TestDispatchReturnsCachedResult(t *testing.T) {
	d, repo, _ := newTestDispatcher()
	ctx := context.Background()

	mask := "mask/t1.png"
	done := models.NewTask("img-1", testParam)
	done.State = models.TaskStateDone
	done.TranslationMask = &mask
	repo.seed(done)

	sub, err := d.UpsertAndDispatch(ctx, "img-1", testParam, false, []byte("png"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sub.Result == nil || sub.Result.TranslationMask != mask {
		t.Fatalf("result = %+v, want cached mask %s", sub.Result, mask)
	}
	if sub.Progress != nil {
		t.Error("cached result still produced a progress cell")
	}
	if d.QueueLen() != 0 {
		t.Errorf("queue length = %d, want 0", d.QueueLen())
	}
}

func TestDispatchRetryRequeuesDoneTask(t *testing.T) {
	d, repo, _ := newTestDispatcher()
	ctx := context.Background()

	mask := "mask/t1.png"
	done := models.NewTask("img-1", testParam)
	done.State = models.TaskStateDone
	done.TranslationMask = &mask
	repo.seed(done)

	sub, err := d.UpsertAndDispatch(ctx, "img-1", testParam, true, []byte("png"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sub.Result != nil {
		t.Error("retry returned the stale cached result")
	}
	if sub.Progress == nil {
		t.Fatal("retry produced no progress cell")
	}
	if d.QueueLen() != 1 {
		t.Errorf("queue length = %d, want 1", d.QueueLen())
	}
}

func TestDispatchCompletionDuringUpsertReturnsResult(t *testing.T) {
	d, repo, _ := newTestDispatcher()
	ctx := context.Background()

	mask := "mask/t1.png"
	now := time.Now()
	running := models.NewTask("img-1", testParam)
	running.State = models.TaskStateRunning
	running.LastAttemptedAt = &now
	repo.seed(running)
	d.registry.Insert(running.ID, NewProgress(Status("rendering")))

	// The executing session finishes in the window between the submitter's
	// row snapshot and its registry check.
	repo.afterUpsert = func() {
		repo.MarkDone(ctx, running.ID, mask)
		d.registry.Remove(running.ID)
	}

	sub, err := d.UpsertAndDispatch(ctx, "img-1", testParam, false, []byte("png"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sub.Result == nil || sub.Result.TranslationMask != mask {
		t.Fatalf("result = %+v, want the stored mask %s", sub.Result, mask)
	}
	if d.QueueLen() != 0 {
		t.Errorf("done task re-enqueued: queue length = %d, want 0", d.QueueLen())
	}
	if _, ok := d.Subscribe(running.ID); ok {
		t.Error("done task re-registered after completion")
	}
}

func TestDispatchHydratesSourceImageFromStore(t *testing.T) {
	d, repo, store := newTestDispatcher()
	ctx := context.Background()

	task := models.NewTask("img-1", testParam)
	task.SourceImageFile = "upload/abc.png"
	repo.seed(task)
	store.objects["upload/abc.png"] = []byte("stored png")

	sub, err := d.Dispatch(ctx, task, false)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(sub.Task.SourceImage) != "stored png" {
		t.Errorf("source image = %q, want stored blob", sub.Task.SourceImage)
	}
}

func TestDispatchBlobFailureMarksError(t *testing.T) {
	d, repo, store := newTestDispatcher()
	ctx := context.Background()

	task := models.NewTask("img-1", testParam)
	task.SourceImageFile = "upload/missing.png"
	repo.seed(task)
	store.getErr = errors.New("backend down")

	if _, err := d.Dispatch(ctx, task, false); err == nil {
		t.Fatal("dispatch succeeded without the source image")
	}
	row := repo.get(task.ID)
	if row.State != models.TaskStateError {
		t.Errorf("state = %q, want error", row.State)
	}
	if row.FailedCount != 1 {
		t.Errorf("failed_count = %d, want 1", row.FailedCount)
	}
	if _, ok := d.Subscribe(task.ID); ok {
		t.Error("failed dispatch left a registry entry")
	}
}

func TestResume(t *testing.T) {
	d, repo, store := newTestDispatcher()
	ctx := context.Background()

	now := time.Now()
	mask := "mask/done.png"

	pending := models.NewTask("img-1", testParam)
	pending.SourceImageFile = "upload/1.png"

	running := models.NewTask("img-2", testParam)
	running.State = models.TaskStateRunning
	running.LastAttemptedAt = &now
	running.FailedCount = 1
	running.SourceImageFile = "upload/2.png"

	done := models.NewTask("img-3", testParam)
	done.State = models.TaskStateDone
	done.TranslationMask = &mask

	exhausted := models.NewTask("img-4", testParam)
	exhausted.FailedCount = 5
	exhausted.SourceImageFile = "upload/4.png"

	stale := models.NewTask("img-5", testParam)
	stale.WorkerRevision = models.WorkerRevision + 1
	stale.SourceImageFile = "upload/5.png"

	for _, task := range []*models.Task{pending, running, done, exhausted, stale} {
		repo.seed(task)
	}
	for _, key := range []string{"upload/1.png", "upload/2.png", "upload/4.png", "upload/5.png"} {
		store.objects[key] = []byte("png")
	}

	if err := d.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if d.QueueLen() != 2 {
		t.Fatalf("queue length = %d, want 2 (pending and running)", d.QueueLen())
	}
	for _, id := range []string{pending.ID, running.ID} {
		if _, ok := d.Subscribe(id); !ok {
			t.Errorf("task %s not registered after resume", id)
		}
	}
	for _, id := range []string{done.ID, exhausted.ID, stale.ID} {
		if _, ok := d.Subscribe(id); ok {
			t.Errorf("task %s should not be resumed", id)
		}
	}
}

func TestResumeMissingBlobSkipsAndMarksError(t *testing.T) {
	d, repo, _ := newTestDispatcher()
	ctx := context.Background()

	task := models.NewTask("img-1", testParam)
	task.SourceImageFile = "upload/gone.png"
	repo.seed(task)

	if err := d.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if d.QueueLen() != 0 {
		t.Errorf("queue length = %d, want 0", d.QueueLen())
	}
	row := repo.get(task.ID)
	if row.State != models.TaskStateError {
		t.Errorf("state = %q, want error", row.State)
	}
}

package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
)

// fakeTaskRepo is an in-memory TaskRepository for tests.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*models.Task

	upsertErr      error
	markRunningErr error
	markDoneErr    error
	markErrorErr   error

	// afterUpsert runs after Upsert produced its row snapshot, outside the
	// repo lock. Lets a test act in the window before the snapshot is used.
	afterUpsert func()
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*models.Task)}
}

func dedupKey(sourceImageID string, param models.TaskParam) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d",
		sourceImageID, param.TargetLanguage, param.Detector,
		param.Direction, param.Translator, param.Size, models.WorkerRevision)
}

// seed registers an existing row, bypassing dedup checks.
func (r *fakeTaskRepo) seed(task *models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

func (r *fakeTaskRepo) get(id string) models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.tasks[id]
}

func (r *fakeTaskRepo) Upsert(ctx context.Context, sourceImageID string, param models.TaskParam, retry bool) (*models.Task, error) {
	task, err := r.upsert(sourceImageID, param, retry)
	if err == nil && r.afterUpsert != nil {
		r.afterUpsert()
	}
	return task, err
}

func (r *fakeTaskRepo) upsert(sourceImageID string, param models.TaskParam, retry bool) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil {
		return nil, r.upsertErr
	}

	param = param.Resolve()
	key := dedupKey(sourceImageID, param)
	for _, t := range r.tasks {
		if dedupKey(t.SourceImageID, t.Param) == key {
			if retry {
				t.State = models.TaskStatePending
				t.TranslationMask = nil
			}
			cp := *t
			return &cp, nil
		}
	}

	task := &models.Task{
		ID:              uuid.New().String(),
		SourceImageID:   sourceImageID,
		Param:           param,
		WorkerRevision:  models.WorkerRevision,
		State:           models.TaskStatePending,
		CreatedAt:       time.Now(),
		SourceImageFile: "upload/" + sourceImageID + ".png",
	}
	r.tasks[task.ID] = task
	cp := *task
	return &cp, nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) FindByRevision(ctx context.Context, revision int) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []*models.Task
	for _, t := range r.tasks {
		if t.WorkerRevision == revision {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) MarkRunning(ctx context.Context, id string, attemptedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markRunningErr != nil {
		return r.markRunningErr
	}
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateRunning
		t.LastAttemptedAt = &attemptedAt
	}
	return nil
}

func (r *fakeTaskRepo) MarkDone(ctx context.Context, id string, translationMask string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markDoneErr != nil {
		return r.markDoneErr
	}
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateDone
		t.TranslationMask = &translationMask
	}
	return nil
}

func (r *fakeTaskRepo) MarkError(ctx context.Context, id string, failedCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErrorErr != nil {
		return r.markErrorErr
	}
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateError
		t.FailedCount = failedCount
	}
	return nil
}

// fakeStore is an in-memory blob store for tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	getErr error
	putErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return v, nil
}

func (s *fakeStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = value
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://pub/" + key
}

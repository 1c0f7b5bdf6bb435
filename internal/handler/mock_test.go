package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
)

// fakeTaskRepo is an in-memory TaskRepository keyed by the deduplication
// tuple.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*models.Task

	findErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*models.Task)}
}

func (r *fakeTaskRepo) seed(task *models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

func dedupKey(sourceImageID string, param models.TaskParam) string {
	return fmt.Sprintf("%s|%v|%d", sourceImageID, param, models.WorkerRevision)
}

func (r *fakeTaskRepo) Upsert(ctx context.Context, sourceImageID string, param models.TaskParam, retry bool) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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

	task := models.NewTask(sourceImageID, param)
	r.tasks[task.ID] = task
	cp := *task
	return &cp, nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
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
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateRunning
		t.LastAttemptedAt = &attemptedAt
	}
	return nil
}

func (r *fakeTaskRepo) MarkDone(ctx context.Context, id string, translationMask string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateDone
		t.TranslationMask = &translationMask
	}
	return nil
}

func (r *fakeTaskRepo) MarkError(ctx context.Context, id string, failedCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.State = models.TaskStateError
		t.FailedCount = failedCount
	}
	return nil
}

// fakeImageRepo is an in-memory SourceImageRepository deduplicating by
// hash.
type fakeImageRepo struct {
	mu   sync.Mutex
	n    int
	rows map[string]*models.SourceImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{rows: make(map[string]*models.SourceImage)}
}

func (r *fakeImageRepo) Upsert(ctx context.Context, img *models.SourceImage, retry bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.Hash == img.Hash {
			return id, nil
		}
	}
	r.n++
	id := fmt.Sprintf("img-%d", r.n)
	r.rows[id] = img
	return id, nil
}

func (r *fakeImageRepo) FindByID(ctx context.Context, id string) (*models.SourceImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return row, nil
}

// fakeStore is an in-memory blob store.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return v, nil
}

func (s *fakeStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	return "https://pub.example.com/" + key
}

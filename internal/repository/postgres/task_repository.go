package postgres

import (
	"context"
	"errors"
	"time"

	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `
	t.id, t.source_image_id, t.target_language, t.detector, t.direction,
	t.translator, t.size, t.worker_revision, t.state, t.last_attempted_at,
	t.failed_count, t.translation_mask, t.created_at, s.file
`

// taskRepository implements repositories.TaskRepository.
type taskRepository struct {
	db *pgxpool.Pool
}

// NewTaskRepository creates a new PostgreSQL task repository.
func NewTaskRepository(db *pgxpool.Pool) repositories.TaskRepository {
	return &taskRepository{db: db}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID, &task.SourceImageID, &task.Param.TargetLanguage,
		&task.Param.Detector, &task.Param.Direction, &task.Param.Translator,
		&task.Param.Size, &task.WorkerRevision, &task.State,
		&task.LastAttemptedAt, &task.FailedCount, &task.TranslationMask,
		&task.CreatedAt, &task.SourceImageFile,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Upsert(ctx context.Context, sourceImageID string, param models.TaskParam, retry bool) (*models.Task, error) {
	param = param.Resolve()

	// The no-op "SET id = task.id" in the non-retry branch makes ON CONFLICT
	// still return the existing row, so one round trip decides between
	// create and dedup hit. The unique constraint is the dedup key.
	query := `
		INSERT INTO task (
			id, source_image_id, target_language, detector, direction,
			translator, size, worker_revision, state, failed_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 0, $9)
		ON CONFLICT ON CONSTRAINT task_dedup_key
		DO UPDATE SET id = task.id
		RETURNING id, state, last_attempted_at, failed_count, translation_mask, created_at
	`
	if retry {
		query = `
		INSERT INTO task (
			id, source_image_id, target_language, detector, direction,
			translator, size, worker_revision, state, failed_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 0, $9)
		ON CONFLICT ON CONSTRAINT task_dedup_key
		DO UPDATE SET state = 'pending', translation_mask = NULL
		RETURNING id, state, last_attempted_at, failed_count, translation_mask, created_at
	`
	}

	task := models.Task{
		SourceImageID:  sourceImageID,
		Param:          param,
		WorkerRevision: models.WorkerRevision,
	}
	err := r.db.QueryRow(ctx, query,
		uuid.New().String(), sourceImageID,
		param.TargetLanguage, param.Detector, param.Direction,
		param.Translator, param.Size, models.WorkerRevision, time.Now(),
	).Scan(
		&task.ID, &task.State, &task.LastAttemptedAt,
		&task.FailedCount, &task.TranslationMask, &task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx,
		`SELECT file FROM source_image WHERE id = $1`, sourceImageID,
	).Scan(&task.SourceImageFile)
	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *taskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task t
		JOIN source_image s ON s.id = t.source_image_id
		WHERE t.id = $1
	`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *taskRepository) FindByRevision(ctx context.Context, revision int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task t
		JOIN source_image s ON s.id = t.source_image_id
		WHERE t.worker_revision = $1
		ORDER BY t.created_at ASC
	`

	rows, err := r.db.Query(ctx, query, revision)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (r *taskRepository) MarkRunning(ctx context.Context, id string, attemptedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE task SET state = 'running', last_attempted_at = $2 WHERE id = $1`,
		id, attemptedAt,
	)
	return err
}

func (r *taskRepository) MarkDone(ctx context.Context, id string, translationMask string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE task SET state = 'done', translation_mask = $2 WHERE id = $1`,
		id, translationMask,
	)
	return err
}

func (r *taskRepository) MarkError(ctx context.Context, id string, failedCount int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE task SET state = 'error', failed_count = $2 WHERE id = $1`,
		id, failedCount,
	)
	return err
}

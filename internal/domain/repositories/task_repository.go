package repositories

import (
	"context"
	"errors"
	"time"

	"imagetrans/internal/domain/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TaskRepository defines the persistence operations the dispatcher and the
// worker sessions need. Implementations must enforce the composite unique
// index on (source_image_id, param tuple, worker_revision), the
// deduplication key.
type TaskRepository interface {
	// Upsert inserts a pending task for the dedup key or returns the
	// existing row. With retry set, an existing row is reset to pending and
	// its translation mask cleared; failed_count is preserved either way.
	Upsert(ctx context.Context, sourceImageID string, param models.TaskParam, retry bool) (*models.Task, error)

	FindByID(ctx context.Context, id string) (*models.Task, error)

	// FindByRevision returns all rows of one worker revision in creation
	// order, for recovery.
	FindByRevision(ctx context.Context, revision int) ([]*models.Task, error)

	MarkRunning(ctx context.Context, id string, attemptedAt time.Time) error
	MarkDone(ctx context.Context, id string, translationMask string) error
	MarkError(ctx context.Context, id string, failedCount int) error
}

// SourceImageRepository stores deduplicated source images keyed by content
// hash.
type SourceImageRepository interface {
	// Upsert inserts the image row or returns the id of the row with the
	// same hash. With retry set, file and dimensions are refreshed on
	// conflict.
	Upsert(ctx context.Context, img *models.SourceImage, retry bool) (string, error)

	FindByID(ctx context.Context, id string) (*models.SourceImage, error)
}

// TwitterSourceRepository maps (tweet, photo index) to source images.
type TwitterSourceRepository interface {
	FindSourceImageID(ctx context.Context, tweetID string, photoIndex int) (string, error)
	Upsert(ctx context.Context, src *models.TwitterSource) error
}

// PixivSourceRepository maps (artwork, page) to source images.
type PixivSourceRepository interface {
	FindSourceImageID(ctx context.Context, artworkID int64, page int) (string, error)
	Upsert(ctx context.Context, src *models.PixivSource) error
}

package postgres

import (
	"context"
	"errors"

	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sourceImageRepository implements repositories.SourceImageRepository.
type sourceImageRepository struct {
	db *pgxpool.Pool
}

// NewSourceImageRepository creates a new PostgreSQL source image repository.
func NewSourceImageRepository(db *pgxpool.Pool) repositories.SourceImageRepository {
	return &sourceImageRepository{db: db}
}

func (r *sourceImageRepository) Upsert(ctx context.Context, img *models.SourceImage, retry bool) (string, error) {
	query := `
		INSERT INTO source_image (id, hash, file, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hash) DO UPDATE SET hash = source_image.hash
		RETURNING id
	`
	if retry {
		query = `
		INSERT INTO source_image (id, hash, file, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hash) DO UPDATE SET
			file = EXCLUDED.file, width = EXCLUDED.width, height = EXCLUDED.height
		RETURNING id
	`
	}

	var id string
	err := r.db.QueryRow(ctx, query,
		img.ID, img.Hash, img.File, img.Width, img.Height, img.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *sourceImageRepository) FindByID(ctx context.Context, id string) (*models.SourceImage, error) {
	var img models.SourceImage
	err := r.db.QueryRow(ctx,
		`SELECT id, hash, file, width, height, created_at FROM source_image WHERE id = $1`, id,
	).Scan(&img.ID, &img.Hash, &img.File, &img.Width, &img.Height, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// twitterSourceRepository implements repositories.TwitterSourceRepository.
type twitterSourceRepository struct {
	db *pgxpool.Pool
}

// NewTwitterSourceRepository creates a new PostgreSQL twitter source repository.
func NewTwitterSourceRepository(db *pgxpool.Pool) repositories.TwitterSourceRepository {
	return &twitterSourceRepository{db: db}
}

func (r *twitterSourceRepository) FindSourceImageID(ctx context.Context, tweetID string, photoIndex int) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`SELECT source_image_id FROM twitter_source WHERE tweet_id = $1 AND photo_index = $2`,
		tweetID, photoIndex,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repositories.ErrNotFound
	}
	return id, err
}

func (r *twitterSourceRepository) Upsert(ctx context.Context, src *models.TwitterSource) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO twitter_source (tweet_id, photo_index, pbs_id, author_id, source_image_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tweet_id, photo_index) DO UPDATE SET
			pbs_id = EXCLUDED.pbs_id,
			author_id = EXCLUDED.author_id,
			source_image_id = EXCLUDED.source_image_id
	`, src.TweetID, src.PhotoIndex, src.PbsID, src.AuthorID, src.SourceImageID)
	return err
}

// pixivSourceRepository implements repositories.PixivSourceRepository.
type pixivSourceRepository struct {
	db *pgxpool.Pool
}

// NewPixivSourceRepository creates a new PostgreSQL pixiv source repository.
func NewPixivSourceRepository(db *pgxpool.Pool) repositories.PixivSourceRepository {
	return &pixivSourceRepository{db: db}
}

func (r *pixivSourceRepository) FindSourceImageID(ctx context.Context, artworkID int64, page int) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`SELECT source_image_id FROM pixiv_source WHERE artwork_id = $1 AND page = $2`,
		artworkID, page,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repositories.ErrNotFound
	}
	return id, err
}

func (r *pixivSourceRepository) Upsert(ctx context.Context, src *models.PixivSource) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pixiv_source (artwork_id, page, orig_url, author_id, source_image_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (artwork_id, page) DO UPDATE SET
			orig_url = EXCLUDED.orig_url,
			author_id = EXCLUDED.author_id,
			source_image_id = EXCLUDED.source_image_id
	`, src.ArtworkID, src.Page, src.OrigURL, src.AuthorID, src.SourceImageID)
	return err
}

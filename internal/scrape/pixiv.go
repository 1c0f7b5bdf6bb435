package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"imagetrans/internal/apperr"
	"imagetrans/internal/blob"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
	"imagetrans/internal/imageproc"
)

var (
	errPixivResponse = errors.New("pixiv ajax reported an error")
	errNoPixivPages  = errors.New("pixiv artwork has no pages")
)

// Pixiv resolves pixiv artwork pages to stored source images.
type Pixiv struct {
	client  *Client
	store   blob.Store
	images  repositories.SourceImageRepository
	sources repositories.PixivSourceRepository
	log     *zap.Logger
}

func NewPixiv(client *Client, store blob.Store, images repositories.SourceImageRepository, sources repositories.PixivSourceRepository, log *zap.Logger) *Pixiv {
	return &Pixiv{
		client:  client,
		store:   store,
		images:  images,
		sources: sources,
		log:     log,
	}
}

// ArtworkImage returns the source image id for one page of an artwork,
// 1-based. On first sight of the artwork every page is downloaded,
// normalized and registered; the normalized PNG of the requested page is
// returned alongside.
func (p *Pixiv) ArtworkImage(ctx context.Context, artworkID int64, page int) (string, []byte, error) {
	id, err := p.sources.FindSourceImageID(ctx, artworkID, page)
	if err == nil {
		return id, nil, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return "", nil, err
	}

	authorID, err := p.artworkAuthor(ctx, artworkID)
	if err != nil {
		return "", nil, err
	}
	urls, err := p.artworkPages(ctx, artworkID)
	if err != nil {
		return "", nil, err
	}

	if page < 1 || page > len(urls) {
		return "", nil, apperr.BadRequestf("invalid page number: %d out of %d", page, len(urls))
	}

	ids := make([]string, len(urls))
	pngs := make([][]byte, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, origURL := range urls {
		g.Go(func() error {
			sourceID, png, err := p.ingestPage(gctx, artworkID, i+1, origURL, authorID)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			ids[i] = sourceID
			pngs[i] = png
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	p.log.Info("pixiv artwork scraped",
		zap.Int64("artwork_id", artworkID),
		zap.Int("pages", len(urls)))

	return ids[page-1], pngs[page-1], nil
}

func (p *Pixiv) ingestPage(ctx context.Context, artworkID int64, page int, origURL string, authorID int64) (string, []byte, error) {
	raw, err := p.client.get(ctx, origURL)
	if err != nil {
		return "", nil, err
	}

	img, err := imageproc.Normalize(raw)
	if err != nil {
		return "", nil, err
	}

	key := blob.PixivImageKey(artworkID, page)
	if err := p.store.Put(ctx, key, img.PNG); err != nil {
		return "", nil, err
	}

	sourceID, err := p.images.Upsert(ctx, models.NewSourceImage(img.Hash, key, img.Width, img.Height), false)
	if err != nil {
		return "", nil, err
	}

	err = p.sources.Upsert(ctx, &models.PixivSource{
		ArtworkID:     artworkID,
		Page:          page,
		OrigURL:       origURL,
		AuthorID:      authorID,
		SourceImageID: sourceID,
	})
	if err != nil {
		return "", nil, err
	}

	return sourceID, img.PNG, nil
}

// artworkAuthor reads the artwork ajax endpoint for the author's user id.
func (p *Pixiv) artworkAuthor(ctx context.Context, artworkID int64) (int64, error) {
	body, err := p.client.get(ctx, fmt.Sprintf("https://www.pixiv.net/ajax/illust/%d", artworkID))
	if err != nil {
		return 0, err
	}

	var res struct {
		Error bool `json:"error"`
		Body  struct {
			UserID string `json:"userId"`
		} `json:"body"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("parse artwork ajax: %w", err)
	}
	if res.Error {
		return 0, errPixivResponse
	}

	authorID, err := strconv.ParseInt(res.Body.UserID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse artwork author id %q: %w", res.Body.UserID, err)
	}
	return authorID, nil
}

// artworkPages reads the pages ajax endpoint for the original image URL of
// every page.
func (p *Pixiv) artworkPages(ctx context.Context, artworkID int64) ([]string, error) {
	body, err := p.client.get(ctx, fmt.Sprintf("https://www.pixiv.net/ajax/illust/%d/pages", artworkID))
	if err != nil {
		return nil, err
	}

	var res struct {
		Error bool `json:"error"`
		Body  []struct {
			URLs struct {
				Original string `json:"original"`
			} `json:"urls"`
		} `json:"body"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("parse artwork pages ajax: %w", err)
	}
	if res.Error {
		return nil, errPixivResponse
	}
	if len(res.Body) == 0 {
		return nil, errNoPixivPages
	}

	urls := make([]string, 0, len(res.Body))
	for _, page := range res.Body {
		if page.URLs.Original != "" {
			urls = append(urls, page.URLs.Original)
		}
	}
	return urls, nil
}

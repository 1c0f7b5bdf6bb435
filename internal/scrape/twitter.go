package scrape

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"imagetrans/internal/apperr"
	"imagetrans/internal/blob"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
	"imagetrans/internal/imageproc"
)

// Media ids look like https://pbs.twimg.com/media/Bm54nBCCYAACwBi.jpg
var pbsMediaRe = regexp.MustCompile(`//pbs\.twimg\.com/media/(\w+)`)

var errNoAuthorID = errors.New("tweet page has no author id")

// Twitter resolves tweet photos to stored source images.
type Twitter struct {
	client  *Client
	store   blob.Store
	images  repositories.SourceImageRepository
	sources repositories.TwitterSourceRepository
	log     *zap.Logger
}

func NewTwitter(client *Client, store blob.Store, images repositories.SourceImageRepository, sources repositories.TwitterSourceRepository, log *zap.Logger) *Twitter {
	return &Twitter{
		client:  client,
		store:   store,
		images:  images,
		sources: sources,
		log:     log,
	}
}

// TweetImage returns the source image id for one photo of a tweet, 1-based.
// On first sight of the tweet every photo is downloaded, normalized and
// registered; the normalized PNG of the requested photo is returned
// alongside so the caller can dispatch without a second blob fetch.
func (t *Twitter) TweetImage(ctx context.Context, tweetID string, photo int) (string, []byte, error) {
	id, err := t.sources.FindSourceImageID(ctx, tweetID, photo)
	if err == nil {
		return id, nil, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return "", nil, err
	}

	page, err := t.client.get(ctx, fmt.Sprintf("https://twitter.com/_/status/%s", tweetID))
	if err != nil {
		return "", nil, fmt.Errorf("fetch tweet %s: %w", tweetID, err)
	}

	tweet, err := parseTweet(string(page))
	if err != nil {
		return "", nil, fmt.Errorf("parse tweet %s: %w", tweetID, err)
	}

	if photo < 1 || photo > len(tweet.Images) {
		return "", nil, apperr.BadRequestf("invalid photo number: %d out of %d", photo, len(tweet.Images))
	}

	ids := make([]string, len(tweet.Images))
	pngs := make([][]byte, len(tweet.Images))

	g, gctx := errgroup.WithContext(ctx)
	for i, pbsID := range tweet.Images {
		g.Go(func() error {
			sourceID, png, err := t.ingestPhoto(gctx, tweetID, pbsID, i+1, tweet.AuthorID)
			if err != nil {
				return fmt.Errorf("photo %d: %w", i+1, err)
			}
			ids[i] = sourceID
			pngs[i] = png
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	t.log.Info("tweet scraped",
		zap.String("tweet_id", tweetID),
		zap.Int("photos", len(tweet.Images)))

	return ids[photo-1], pngs[photo-1], nil
}

// ingestPhoto downloads one pbs media file and lands it in the blob store,
// the source_image table and the twitter_source table.
func (t *Twitter) ingestPhoto(ctx context.Context, tweetID, pbsID string, index int, authorID int64) (string, []byte, error) {
	raw, err := t.client.get(ctx, fmt.Sprintf("https://pbs.twimg.com/media/%s.png", pbsID))
	if err != nil {
		return "", nil, err
	}

	img, err := imageproc.Normalize(raw)
	if err != nil {
		return "", nil, err
	}

	key := blob.TweetImageKey(tweetID, pbsID)
	if err := t.store.Put(ctx, key, img.PNG); err != nil {
		return "", nil, err
	}

	sourceID, err := t.images.Upsert(ctx, models.NewSourceImage(img.Hash, key, img.Width, img.Height), false)
	if err != nil {
		return "", nil, err
	}

	err = t.sources.Upsert(ctx, &models.TwitterSource{
		TweetID:       tweetID,
		PhotoIndex:    index,
		PbsID:         pbsID,
		AuthorID:      authorID,
		SourceImageID: sourceID,
	})
	if err != nil {
		return "", nil, err
	}

	return sourceID, img.PNG, nil
}

// parsedTweet is the schema.org microdata extracted from a tweet page.
type parsedTweet struct {
	AuthorID int64
	Images   []string
}

// parseTweet walks the tweet page markup for the SocialMediaPosting
// microdata block: the author's identifier and the pbs media id of each
// attached ImageObject.
func parseTweet(page string) (*parsedTweet, error) {
	z := html.NewTokenizer(strings.NewReader(page))

	var tweet parsedTweet
	var authorID int64
	inTweet, inAuthor, inImg := false, false, false

loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "div":
				switch attr(tok, "itemtype") {
				case "https://schema.org/SocialMediaPosting":
					inTweet = true
				case "https://schema.org/Person":
					inAuthor = true
				case "https://schema.org/ImageObject":
					inImg = true
				}
			case "meta":
				if !inTweet {
					continue
				}
				switch {
				case inImg && attr(tok, "itemprop") == "contentUrl":
					if m := pbsMediaRe.FindStringSubmatch(attr(tok, "content")); m != nil {
						tweet.Images = append(tweet.Images, m[1])
					}
				case inAuthor && attr(tok, "itemprop") == "identifier":
					if id, err := strconv.ParseInt(attr(tok, "content"), 10, 64); err == nil {
						authorID = id
					}
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch {
			case tok.Data == "article" && inTweet:
				break loop
			case tok.Data == "div" && inImg:
				inImg = false
			case tok.Data == "div" && inAuthor:
				inAuthor = false
			}
		}
	}

	if authorID == 0 {
		return nil, errNoAuthorID
	}
	tweet.AuthorID = authorID
	return &tweet, nil
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

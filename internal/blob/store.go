package blob

import (
	"context"
	"fmt"
)

// Store is the object store the gateway keeps source images and translation
// masks in. Keys are opaque paths; PublicURL maps a key to the URL clients
// can fetch it from.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// UploadImageKey is the blob key of a directly uploaded source image.
func UploadImageKey(sha string) string {
	return fmt.Sprintf("upload/%s.png", sha)
}

// TweetImageKey is the blob key of a scraped tweet photo.
func TweetImageKey(tweetID, imageID string) string {
	return fmt.Sprintf("twitter/%s/%s.png", tweetID, imageID)
}

// PixivImageKey is the blob key of a scraped pixiv page.
func PixivImageKey(artworkID int64, page int) string {
	return fmt.Sprintf("pixiv/%d/%d.png", artworkID, page)
}

// TranslationMaskKey is the blob key of a finished translation mask.
func TranslationMaskKey(taskID string) string {
	return fmt.Sprintf("mask/%s.png", taskID)
}

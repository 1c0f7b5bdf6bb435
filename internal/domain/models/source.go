package models

// TwitterSource links one photo of a tweet to its source image. PhotoIndex
// is 1-based, matching the public API.
type TwitterSource struct {
	TweetID       string `json:"tweet_id" db:"tweet_id"`
	PhotoIndex    int    `json:"photo_index" db:"photo_index"`
	PbsID         string `json:"pbs_id" db:"pbs_id"`
	AuthorID      int64  `json:"author_id" db:"author_id"`
	SourceImageID string `json:"source_image_id" db:"source_image_id"`
}

// PixivSource links one page of a pixiv artwork to its source image. Page is
// 1-based.
type PixivSource struct {
	ArtworkID     int64  `json:"artwork_id" db:"artwork_id"`
	Page          int    `json:"page" db:"page"`
	OrigURL       string `json:"orig_url" db:"orig_url"`
	AuthorID      int64  `json:"author_id" db:"author_id"`
	SourceImageID string `json:"source_image_id" db:"source_image_id"`
}

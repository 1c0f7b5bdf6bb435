package scrape

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"imagetrans/internal/apperr"
	"imagetrans/internal/blob"
)

const (
	pixivIllustJSON = `{"error":false,"message":"","body":{"illustId":"445566","userId":"987654"}}`
	pixivPagesJSON  = `{"error":false,"message":"","body":[
		{"urls":{"original":"https://i.pximg.net/img-original/img/0001_p0.png"},"width":100,"height":100},
		{"urls":{"original":"https://i.pximg.net/img-original/img/0001_p1.png"},"width":100,"height":100}
	]}`
)

func newTestPixiv(t *testing.T, routes map[string][]byte) (*Pixiv, *fakeBlobStore, *fakePixivSources) {
	store := newFakeBlobStore()
	sources := &fakePixivSources{}
	p := NewPixiv(newScriptedClient(t, routes), store, newFakeImages(), sources, zap.NewNop())
	return p, store, sources
}

func TestArtworkImage(t *testing.T) {
	pngData := testPNG(t)
	routes := map[string][]byte{
		"https://www.pixiv.net/ajax/illust/445566":         []byte(pixivIllustJSON),
		"https://www.pixiv.net/ajax/illust/445566/pages":   []byte(pixivPagesJSON),
		"https://i.pximg.net/img-original/img/0001_p0.png": pngData,
		"https://i.pximg.net/img-original/img/0001_p1.png": pngData,
	}
	p, store, sources := newTestPixiv(t, routes)
	ctx := context.Background()

	id, png, err := p.ArtworkImage(ctx, 445566, 1)
	if err != nil {
		t.Fatalf("ArtworkImage: %v", err)
	}
	if id == "" {
		t.Fatal("no source image id")
	}
	if len(png) == 0 {
		t.Error("no normalized payload returned")
	}

	for page := 1; page <= 2; page++ {
		if !store.has(blob.PixivImageKey(445566, page)) {
			t.Errorf("page %d not stored", page)
		}
	}
	if len(sources.rows) != 2 {
		t.Fatalf("source rows = %d, want 2", len(sources.rows))
	}
	for _, row := range sources.rows {
		if row.AuthorID != 987654 {
			t.Errorf("author id = %d, want 987654", row.AuthorID)
		}
	}

	cached, _, err := p.ArtworkImage(ctx, 445566, 1)
	if err != nil {
		t.Fatalf("cached ArtworkImage: %v", err)
	}
	if cached != id {
		t.Errorf("cached id = %s, want %s", cached, id)
	}
}

func TestArtworkImageInvalidPage(t *testing.T) {
	routes := map[string][]byte{
		"https://www.pixiv.net/ajax/illust/445566":       []byte(pixivIllustJSON),
		"https://www.pixiv.net/ajax/illust/445566/pages": []byte(pixivPagesJSON),
	}
	p, _, _ := newTestPixiv(t, routes)

	for _, page := range []int{0, 3} {
		_, _, err := p.ArtworkImage(context.Background(), 445566, page)
		var br *apperr.BadRequest
		if !errors.As(err, &br) {
			t.Errorf("page %d: err = %v, want BadRequest", page, err)
		}
	}
}

func TestArtworkImageAjaxError(t *testing.T) {
	routes := map[string][]byte{
		"https://www.pixiv.net/ajax/illust/445566": []byte(`{"error":true,"message":"deleted","body":null}`),
	}
	p, _, _ := newTestPixiv(t, routes)

	if _, _, err := p.ArtworkImage(context.Background(), 445566, 1); !errors.Is(err, errPixivResponse) {
		t.Errorf("err = %v, want errPixivResponse", err)
	}
}

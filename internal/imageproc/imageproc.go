// Package imageproc normalizes inbound images: decode, cap the dimensions,
// re-encode as PNG and derive the hashes used for deduplication and blob
// keys.
package imageproc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxDimension caps either side of a normalized image.
const MaxDimension = 6000

// Image is a normalized source image.
type Image struct {
	// PNG is the re-encoded payload as stored in the blob store.
	PNG []byte
	// Hash is the deduplication hash, computed over the decoded pixels so
	// the same picture in different encodings collapses to one row.
	Hash string
	// Sha is the content hash of the PNG payload, used as the blob key.
	Sha    string
	Width  int
	Height int
}

// Normalize decodes data in any registered format, scales it down when
// either side exceeds MaxDimension and re-encodes it as PNG.
func Normalize(data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := w, h
	if w > MaxDimension || h > MaxDimension {
		if w > h {
			tw = MaxDimension
			th = int(float64(MaxDimension) / float64(w) * float64(h))
		} else {
			tw = int(float64(MaxDimension) / float64(h) * float64(w))
			th = MaxDimension
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	if tw == w && th == h {
		draw.Copy(dst, image.Point{}, src, bounds, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}

	pixSum := sha256.Sum256(dst.Pix)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	pngSum := sha256.Sum256(buf.Bytes())

	return &Image{
		PNG:    buf.Bytes(),
		Hash:   hex.EncodeToString(pixSum[:]),
		Sha:    hex.EncodeToString(pngSum[:]),
		Width:  tw,
		Height: th,
	}, nil
}

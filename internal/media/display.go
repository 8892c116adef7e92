package media

import (
	"bytes"
	"fmt"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

const (
	// DisplayMaxEdge bounds the longest edge of a viewer rendition.
	DisplayMaxEdge = 2048
	// DisplayQuality is the JPEG quality of a viewer rendition.
	DisplayQuality = 85
)

// DisplayRendition scales an image to fit within maxEdge on its longest side
// and encodes it as JPEG for the full-screen viewer. Images already within
// bounds are re-encoded at their own size, never upscaled.
func DisplayRendition(data []byte, maxEdge, quality int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DisplayMaxEdge
	}
	if quality <= 0 || quality > 100 {
		quality = DisplayQuality
	}

	img, err := DecodeConstrained(data, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}

	w, h := fitWithin(img.Bounds().Dx(), img.Bounds().Dy(), maxEdge)
	if w != img.Bounds().Dx() || h != img.Bounds().Dy() {
		img = transform.Resize(img, w, h, transform.Lanczos)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(quality)(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales (w, h) so the longer edge is at most maxEdge.
func fitWithin(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, h*maxEdge/w)
	}
	return max(1, w*maxEdge/h), maxEdge
}

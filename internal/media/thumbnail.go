package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"photo-wallet/internal/logging"
	"photo-wallet/internal/metrics"
	"photo-wallet/internal/workers"
)

const (
	// ThumbnailSize is the edge length of the square preview in pixels.
	ThumbnailSize = 400
	// ThumbnailQuality is the JPEG quality of the preview.
	ThumbnailQuality = 85
)

var (
	// ErrDecodeFailed is returned when the source is not a decodable image.
	ErrDecodeFailed = errors.New("image decode failed")
	// ErrEncodeFailed is returned when the preview cannot be encoded.
	ErrEncodeFailed = errors.New("image encode failed")
)

// ThumbnailOptions configures a ThumbnailGenerator. Zero values select the
// defaults.
type ThumbnailOptions struct {
	Size    int
	Quality int
	// UseVips tries libvips first and falls back to the pure Go path.
	UseVips bool
	// Workers bounds GenerateAll concurrency (0 = CPU count, capped at 8).
	Workers int
}

// ThumbnailGenerator derives square JPEG previews from image bytes.
type ThumbnailGenerator struct {
	size    int
	quality int
	useVips bool
	workers int
}

// ThumbnailResult is the outcome for one file of a batch.
type ThumbnailResult struct {
	Data []byte
	Err  error
}

// NewThumbnailGenerator creates a generator with the given options.
func NewThumbnailGenerator(opts ThumbnailOptions) *ThumbnailGenerator {
	t := &ThumbnailGenerator{
		size:    opts.Size,
		quality: opts.Quality,
		useVips: opts.UseVips,
		workers: opts.Workers,
	}
	if t.size <= 0 {
		t.size = ThumbnailSize
	}
	if t.quality <= 0 || t.quality > 100 {
		t.quality = ThumbnailQuality
	}
	if t.workers <= 0 {
		t.workers = workers.ForCPU(8)
	}
	logging.Debug("ThumbnailGenerator: %dx%d q%d, vips=%v, workers=%d", t.size, t.size, t.quality, t.useVips, t.workers)
	return t
}

// Generate crops the centred square of the source, scales it to the preview
// size and encodes it as JPEG. The result is always exactly size×size.
func (t *ThumbnailGenerator) Generate(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.useVips && IsVipsAvailable() {
		start := time.Now()
		out, err := thumbnailWithVips(data, t.size, t.quality)
		if err == nil {
			recordGeneration("vips", start, nil)
			return out, nil
		}
		recordGeneration("vips", start, err)
		logging.Debug("vips thumbnail failed, falling back to imaging: %v", err)
	}

	start := time.Now()
	out, err := t.generateWithImaging(data)
	recordGeneration("imaging", start, err)
	return out, err
}

func (t *ThumbnailGenerator) generateWithImaging(data []byte) ([]byte, error) {
	img, err := DecodeConstrained(data, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}

	square := imaging.Crop(img, centerSquare(img.Bounds()))
	thumb := imaging.Resize(square, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(t.quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// GenerateAll derives previews for independent files concurrently. A failure
// on one file is reported in its result and never affects the others.
func (t *ThumbnailGenerator) GenerateAll(ctx context.Context, files [][]byte) []ThumbnailResult {
	results := make([]ThumbnailResult, len(files))

	sem := make(chan struct{}, t.workers)
	var wg sync.WaitGroup
	for i, data := range files {
		i, data := i, data
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}
			results[i].Data, results[i].Err = t.Generate(ctx, data)
		}()
	}
	wg.Wait()
	return results
}

func recordGeneration(backend string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(backend, status).Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"
)

func TestNewThumbnailGenerator(t *testing.T) {
	tests := []struct {
		name        string
		opts        ThumbnailOptions
		wantSize    int
		wantQuality int
	}{
		{"defaults", ThumbnailOptions{}, ThumbnailSize, ThumbnailQuality},
		{"custom", ThumbnailOptions{Size: 128, Quality: 70}, 128, 70},
		{"quality out of range", ThumbnailOptions{Quality: 150}, ThumbnailSize, ThumbnailQuality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewThumbnailGenerator(tt.opts)
			if gen.size != tt.wantSize {
				t.Errorf("size = %d, want %d", gen.size, tt.wantSize)
			}
			if gen.quality != tt.wantQuality {
				t.Errorf("quality = %d, want %d", gen.quality, tt.wantQuality)
			}
			if gen.workers < 1 {
				t.Errorf("workers = %d, want >= 1", gen.workers)
			}
		})
	}
}

func TestGenerateProducesFixedSquare(t *testing.T) {
	gen := NewThumbnailGenerator(ThumbnailOptions{})

	tests := []struct {
		name   string
		width  int
		height int
		format string
	}{
		{"landscape JPEG", 1200, 800, "jpeg"},
		{"portrait PNG", 300, 900, "png"},
		{"square JPEG", 640, 640, "jpeg"},
		{"smaller than preview", 120, 90, "png"},
		{"extreme panorama", 2000, 50, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := gen.Generate(context.Background(), encodeTestImage(t, tt.width, tt.height, tt.format))
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("thumbnail is not decodable: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("thumbnail format = %s, want jpeg", format)
			}
			if cfg.Width != ThumbnailSize || cfg.Height != ThumbnailSize {
				t.Errorf("thumbnail size = %dx%d, want %dx%d", cfg.Width, cfg.Height, ThumbnailSize, ThumbnailSize)
			}
		})
	}
}

func TestGenerateCropsCenter(t *testing.T) {
	// 900x300: blue side bands, red centred 300x300 square.
	src := image.NewRGBA(image.Rect(0, 0, 900, 300))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: color.RGBA{B: 255, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(src, image.Rect(300, 0, 600, 300), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)

	gen := NewThumbnailGenerator(ThumbnailOptions{})
	out, err := gen.Generate(context.Background(), encode(t, src, "png"))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	thumb, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}

	for _, p := range []image.Point{{10, 10}, {390, 10}, {200, 200}, {10, 390}, {390, 390}} {
		r, _, b, _ := thumb.At(p.X, p.Y).RGBA()
		if r>>8 < 200 || b>>8 > 60 {
			t.Errorf("pixel %v = r%d b%d, want red (side bands must be cropped)", p, r>>8, b>>8)
		}
	}
}

func TestGenerateDecodeFailed(t *testing.T) {
	gen := NewThumbnailGenerator(ThumbnailOptions{})

	_, err := gen.Generate(context.Background(), []byte("plain text, not an image"))
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Generate error = %v, want ErrDecodeFailed", err)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	gen := NewThumbnailGenerator(ThumbnailOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, encodeTestImage(t, 50, 50, "png"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate error = %v, want context.Canceled", err)
	}
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	gen := NewThumbnailGenerator(ThumbnailOptions{Workers: 2})

	files := [][]byte{
		encodeTestImage(t, 500, 300, "jpeg"),
		[]byte("broken"),
		encodeTestImage(t, 200, 600, "png"),
		nil,
	}

	results := gen.GenerateAll(context.Background(), files)
	if len(results) != len(files) {
		t.Fatalf("GenerateAll returned %d results, want %d", len(results), len(files))
	}

	for _, i := range []int{0, 2} {
		if results[i].Err != nil {
			t.Errorf("result %d error = %v, want success", i, results[i].Err)
		}
		if len(results[i].Data) == 0 {
			t.Errorf("result %d has no data", i)
		}
	}
	for _, i := range []int{1, 3} {
		if !errors.Is(results[i].Err, ErrDecodeFailed) {
			t.Errorf("result %d error = %v, want ErrDecodeFailed", i, results[i].Err)
		}
	}
}

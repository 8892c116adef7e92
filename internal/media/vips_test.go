package media

import (
	"bytes"
	"context"
	"image"
	"testing"

	"photo-wallet/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// NOTE: govips doesn't support stopping and restarting vips in the same process.
// Once vips.Shutdown() is called, vips.Startup() cannot be called again.
// Tests that need vips run first; the shutdown test runs last.

func TestVipsLogLevel(t *testing.T) {
	tests := []struct {
		level logging.LogLevel
		want  vips.LogLevel
	}{
		{logging.LevelDebug, vips.LogLevelInfo},
		{logging.LevelInfo, vips.LogLevelWarning},
		{logging.LevelWarn, vips.LogLevelError},
		{logging.LevelError, vips.LogLevelCritical},
	}
	for _, tt := range tests {
		if got := vipsLogLevel(tt.level); got != tt.want {
			t.Errorf("vipsLogLevel(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestInitVipsIdempotency(t *testing.T) {
	if err := InitVips(); err != nil {
		t.Skipf("libvips not available in test environment: %v", err)
	}
	if err := InitVips(); err != nil {
		t.Errorf("Second InitVips() call failed: %v", err)
	}
	if !IsVipsAvailable() {
		t.Error("After successful InitVips, IsVipsAvailable should return true")
	}
}

func TestThumbnailWithVipsIfAvailable(t *testing.T) {
	if !IsVipsAvailable() {
		if err := InitVips(); err != nil {
			t.Skip("libvips not available in test environment")
		}
	}

	out, err := thumbnailWithVips(encodeTestImage(t, 1200, 700, "jpeg"), ThumbnailSize, ThumbnailQuality)
	if err != nil {
		t.Fatalf("thumbnailWithVips failed: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("vips output not decodable: %v", err)
	}
	if cfg.Width != ThumbnailSize || cfg.Height != ThumbnailSize {
		t.Errorf("vips thumbnail = %dx%d, want %dx%d", cfg.Width, cfg.Height, ThumbnailSize, ThumbnailSize)
	}

	gen := NewThumbnailGenerator(ThumbnailOptions{UseVips: true})
	if _, err := gen.Generate(context.Background(), []byte("garbage")); err == nil {
		t.Error("Generate with vips should still fail for undecodable input")
	}
}

// Runs last: vips cannot be restarted after shutdown.
func TestShutdownVips(t *testing.T) {
	ShutdownVips()
	if IsVipsAvailable() {
		t.Error("IsVipsAvailable should be false after ShutdownVips")
	}
	// Idempotent
	ShutdownVips()
}

package mediatypes

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		max         int64
		wantErr     error
	}{
		{
			name:        "JPEG within limit",
			contentType: "image/jpeg",
			size:        1024,
			max:         2048,
		},
		{
			name:        "PNG at exact limit",
			contentType: "image/png",
			size:        2048,
			max:         2048,
		},
		{
			name:        "WebP with parameters",
			contentType: "image/webp; q=1",
			size:        10,
			max:         2048,
		},
		{
			name:        "image/jpg alias",
			contentType: "IMAGE/JPG",
			size:        10,
			max:         2048,
		},
		{
			name:        "GIF rejected",
			contentType: "image/gif",
			size:        10,
			max:         2048,
			wantErr:     ErrUnsupportedType,
		},
		{
			name:        "video rejected",
			contentType: "video/mp4",
			size:        10,
			max:         2048,
			wantErr:     ErrUnsupportedType,
		},
		{
			name:        "empty type rejected",
			contentType: "",
			size:        10,
			max:         2048,
			wantErr:     ErrUnsupportedType,
		},
		{
			name:        "one byte over limit",
			contentType: "image/jpeg",
			size:        2049,
			max:         2048,
			wantErr:     ErrTooLarge,
		},
		{
			name:        "default limit applies",
			contentType: "image/jpeg",
			size:        DefaultMaxFileSize + 1,
			max:         0,
			wantErr:     ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.contentType, tt.size, tt.max)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromExtension(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"jpg", "photo.jpg", JPEG},
		{"uppercase JPEG", "IMG_0001.JPEG", JPEG},
		{"png", "scan.png", PNG},
		{"webp", "card.webp", WebP},
		{"gif not accepted", "anim.gif", ""},
		{"no extension", "README", ""},
		{"nested path", "/inbox/2024/pass.PNG", PNG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromExtension(tt.file); got != tt.want {
				t.Errorf("FromExtension(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, JPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, PNG},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), WebP},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), OctetStream},
		{"text", []byte("hello world"), OctetStream},
		{"empty", nil, OctetStream},
		{"truncated jpeg", []byte{0xFF, 0xD8}, OctetStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xDB}

	tests := []struct {
		name     string
		declared string
		file     string
		data     []byte
		want     string
	}{
		{"sniffed wins over declared", "image/png", "a.png", jpeg, JPEG},
		{"declared used when unsniffable", "image/webp", "a.bin", []byte("xx"), WebP},
		{"extension as last resort", "application/octet-stream", "a.jpeg", []byte("xx"), JPEG},
		{"nothing known", "", "a.txt", []byte("xx"), OctetStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.declared, tt.file, tt.data); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAccepted(t *testing.T) {
	for _, ct := range Accepted {
		if !IsAccepted(ct) {
			t.Errorf("IsAccepted(%q) = false", ct)
		}
	}
	if IsAccepted("image/svg+xml") {
		t.Error("IsAccepted(image/svg+xml) = true")
	}
}

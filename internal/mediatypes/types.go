package mediatypes

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Accepted image MIME types.
const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	WebP = "image/webp"
)

// OctetStream is reported for content that is not a recognised image.
const OctetStream = "application/octet-stream"

// DefaultMaxFileSize is the per-file byte ceiling (10 MiB).
const DefaultMaxFileSize int64 = 10 << 20

var (
	// ErrUnsupportedType is returned for content outside the accepted set.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned for content above the size ceiling.
	ErrTooLarge = errors.New("file too large")
)

// Accepted lists the MIME types a photo may have.
var Accepted = []string{JPEG, PNG, WebP}

// extensions maps lowercase file extensions to accepted MIME types.
var extensions = map[string]string{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".jpe":  JPEG,
	".png":  PNG,
	".webp": WebP,
}

// IsAccepted reports whether contentType is in the accepted set. Parameters
// such as "; charset=" are ignored.
func IsAccepted(contentType string) bool {
	ct := Normalize(contentType)
	for _, a := range Accepted {
		if ct == a {
			return true
		}
	}
	return false
}

// Normalize lowercases a MIME type and strips parameters.
func Normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "image/jpg" || ct == "image/pjpeg" {
		return JPEG
	}
	return ct
}

// Validate checks a file against the input contract. maxSize <= 0 uses
// DefaultMaxFileSize.
func Validate(contentType string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if !IsAccepted(contentType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, maxSize)
	}
	return nil
}

// FromExtension maps a file name to an accepted MIME type. Returns "" when
// the extension is not an accepted image.
func FromExtension(name string) string {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Sniff detects the image type from leading magic bytes. Returns OctetStream
// when the content is not a recognised image.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return JPEG
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A:
		return PNG
	case len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50:
		return WebP
	case len(data) >= 4 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "image/gif"
	}
	return OctetStream
}

// Resolve picks the content type to store for an upload: the sniffed type
// when the bytes are a recognised image, otherwise the declared type, then
// the extension.
func Resolve(declared, name string, data []byte) string {
	if sniffed := Sniff(data); sniffed != OctetStream {
		return sniffed
	}
	if declared = Normalize(declared); declared != "" && declared != OctetStream {
		return declared
	}
	if ext := FromExtension(name); ext != "" {
		return ext
	}
	return OctetStream
}

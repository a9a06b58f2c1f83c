package vision

import (
	"context"
	"path/filepath"
	"strings"
)

// Scanner extracts a draft receipt from an image.
type Scanner interface {
	// Scan reads image and returns the decoded extraction.
	Scan(ctx context.Context, image []byte, contentType string) (*Extraction, error)
	// Close releases the client.
	Close() error
}

// ContentTypeFor guesses an image MIME type from a file name.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

package scan

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/nutriscan/internal/nutrition"
)

// ScanReport is the result of one successful scan
type ScanReport struct {
	ID           string              `json:"id"`
	Variant      nutrition.Variant   `json:"variant"`
	Sections     []nutrition.Section `json:"sections"`
	HasAllergens bool                `json:"has_allergens"`
	Image        ImageRef            `json:"image"`
	CapturedAt   time.Time           `json:"captured_at"`
}

// ImageRef references the original image a report was produced from
type ImageRef struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Analysis is a cached analysis document keyed by the image it describes
type Analysis struct {
	Key       string          `json:"key"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
}

// ContentTypeFor guesses a MIME type from a file name
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// extensionFor is the inverse of ContentTypeFor
func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	default:
		return ".bin"
	}
}

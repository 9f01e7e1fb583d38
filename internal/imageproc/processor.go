package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

var (
	// ErrUnsupportedType is returned for MIME types outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrFormatMismatch is returned when the bytes are not the declared format.
	ErrFormatMismatch = errors.New("image content does not match declared type")
	// ErrTooManyPixels is returned when the header declares more than MaxPixels.
	ErrTooManyPixels = errors.New("image dimensions too large")
)

// MaxPixels bounds width*height of an accepted upload. Decoding allocates
// about four bytes per pixel, so the header is checked before decoding.
const MaxPixels = 50_000_000

// allowedTypes maps each accepted MIME type to its sniffed format and the
// extension used for stored files.
var allowedTypes = map[string]struct {
	format string
	ext    string
}{
	"image/jpeg": {"jpeg", ".jpg"},
	"image/png":  {"png", ".png"},
	"image/webp": {"webp", ".webp"},
}

var extContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Allowed reports whether mimeType is one of the accepted upload types.
func Allowed(mimeType string) bool {
	_, ok := allowedTypes[normalizeMIME(mimeType)]
	return ok
}

// ExtensionFor returns the stored-file extension for an accepted MIME type.
// The original filename's extension is preferred when it agrees with the type.
func ExtensionFor(mimeType, originalName string) string {
	t, ok := allowedTypes[normalizeMIME(mimeType)]
	if !ok {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if extContentTypes[ext] == normalizeMIME(mimeType) {
		return ext
	}
	return t.ext
}

// ContentTypeForName infers a content type from a stored file's extension.
func ContentTypeForName(name string) string {
	if ct, ok := extContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DetectFormat inspects the raw bytes and returns the image format:
// "jpeg", "png", "gif", "webp", or "" if unknown.
func DetectFormat(data []byte) string {
	// JPEG: starts with FF D8 FF
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg"
	}
	// PNG: starts with 89 50 4E 47 0D 0A 1A 0A
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "png"
	}
	// GIF: starts with GIF87a or GIF89a
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' {
		return "gif"
	}
	// WebP: starts with RIFF....WEBP
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "webp"
	}
	return ""
}

// Inspect validates that data is an image of the declared MIME type and
// returns its displayed dimensions. EXIF orientation is applied, so a
// portrait photo stored sideways reports its upright width and height.
// Images whose header declares more than MaxPixels are rejected without
// being decoded.
func Inspect(data []byte, mimeType string) (width, height int, err error) {
	t, ok := allowedTypes[normalizeMIME(mimeType)]
	if !ok {
		return 0, 0, fmt.Errorf("%q: %w", mimeType, ErrUnsupportedType)
	}
	if got := DetectFormat(data); got != t.format {
		return 0, 0, fmt.Errorf("declared %s, sniffed %q: %w", mimeType, got, ErrFormatMismatch)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return 0, 0, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// normalizeMIME strips parameters and case from a Content-Type value.
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

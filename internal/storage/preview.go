package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"

	"github.com/disintegration/imaging"
)

const (
	MinThumbnailWidth = 16
	MaxThumbnailWidth = 2048
)

var (
	ErrInvalidWidth = fmt.Errorf("width must be between %d and %d", MinThumbnailWidth, MaxThumbnailWidth)
	// ErrUndecodableImage means the stored bytes passed sniffing but are not a valid image
	ErrUndecodableImage = errors.New("image cannot be decoded")
)

// Disposition returns the Content-Disposition header for serving a file of type ft
func Disposition(ft FileType, originalName string) string {
	kind := "attachment"
	if ft.Kind == KindImage || ft.Kind == KindPDF {
		kind = "inline"
	}
	if originalName == "" {
		return kind
	}
	if v := mime.FormatMediaType(kind, map[string]string{"filename": originalName}); v != "" {
		return v
	}
	return kind
}

// Thumbnail decodes an image and scales it to width, keeping the aspect ratio.
// Images already narrower than width are re-encoded unchanged.
func Thumbnail(r io.Reader, ft FileType, width int) ([]byte, error) {
	if !ft.Resizable() {
		return nil, ErrUnsupportedType
	}
	if width < MinThumbnailWidth || width > MaxThumbnailWidth {
		return nil, ErrInvalidWidth
	}

	format, err := imaging.FormatFromExtension(ft.Ext)
	if err != nil {
		return nil, fmt.Errorf("thumbnail format: %w", err)
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

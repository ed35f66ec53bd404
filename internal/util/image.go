package util

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-user-auth/pkg/apierror"
)

// maxImagePixels bounds decoded dimensions so a tiny file cannot claim a huge canvas.
const maxImagePixels = 40_000_000

type ImageInfo struct {
	MIMEType  string
	Extension string
	Width     int
	Height    int
}

var allowedImageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// DetectImage sniffs the file content and decodes the image header.
// It rejects anything that is not a decodable raster image.
func DetectImage(path string) (ImageInfo, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("detect file type: %w", err)
	}

	mimeType := baseMIME(detected.String())
	if !IsImageMIME(mimeType) {
		return ImageInfo{}, apierror.New("UNSUPPORTED_TYPE", "file is not an image", mimeType, http.StatusBadRequest)
	}

	file, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return ImageInfo{}, apierror.New("UNSUPPORTED_TYPE", "image could not be decoded", mimeType, http.StatusBadRequest)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxImagePixels {
		return ImageInfo{}, apierror.New("UNSUPPORTED_TYPE", "image dimensions are out of range",
			fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), http.StatusBadRequest)
	}

	return ImageInfo{
		MIMEType:  mimeType,
		Extension: detected.Extension(),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

func IsImageMIME(mimeType string) bool {
	_, ok := allowedImageMIMEs[baseMIME(mimeType)]
	return ok
}

func baseMIME(mimeType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

package util

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string, w int, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, "avatar.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestDetectImageAcceptsPNG(t *testing.T) {
	t.Parallel()

	path := writePNG(t, t.TempDir(), 4, 3)

	info, err := DetectImage(path)
	require.NoError(t, err)
	require.Equal(t, "image/png", info.MIMEType)
	require.Equal(t, ".png", info.Extension)
	require.Equal(t, 4, info.Width)
	require.Equal(t, 3, info.Height)
}

func TestDetectImageRejectsText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an image"), 0o600))

	_, err := DetectImage(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "UNSUPPORTED_TYPE")
}

func TestDetectImageRejectsTruncatedImage(t *testing.T) {
	t.Parallel()

	// A valid PNG signature followed by garbage sniffs as PNG but cannot be decoded.
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, append([]byte("\x89PNG\r\n\x1a\n"), []byte("garbage")...), 0o600))

	_, err := DetectImage(path)
	require.Error(t, err)
}

func TestDetectImageMissingFile(t *testing.T) {
	t.Parallel()

	_, err := DetectImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestIsImageMIME(t *testing.T) {
	t.Parallel()

	require.True(t, IsImageMIME("image/png"))
	require.True(t, IsImageMIME(" IMAGE/WEBP "))
	require.True(t, IsImageMIME("image/jpeg; charset=binary"))
	require.False(t, IsImageMIME("image/svg+xml"))
	require.False(t, IsImageMIME("application/pdf"))
	require.False(t, IsImageMIME(""))
}

// Package hasher computes the two content identities the ingest engine
// needs: a streaming SHA-256 of raw file bytes, and — best-effort, for
// decodable non-RAW images only — a SHA-256 of orientation-normalized,
// alpha-composited RGB pixel bytes.
package hasher

import (
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const bufSize = 1024 * 1024

// FileSHA256 streams the file through a 1 MiB buffer and returns the hex
// SHA-256 digest. I/O errors propagate to the caller.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ContentSHA256 decodes path, applies the given EXIF orientation, converts
// to RGB (compositing any alpha channel over opaque black), and hashes
// an ASCII "MODE|WxH" header followed by the raw RGB bytes. Decoder
// failures are not errors here — content dedup is best-effort, per
// spec.md §4.3 — callers should treat a returned ok=false as "skip content
// dedup for this file", not as a pipeline failure.
func ContentSHA256(path string, orientation int) (digest string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", false
	}

	if oriented, applied := applyOrientation(img, orientation); applied {
		img = oriented
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return "", false
	}

	rgb := make([]byte, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA() already returns alpha-premultiplied components, which
			// is exactly the composite over opaque black: no further
			// scaling by a is needed.
			rgb = append(rgb, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}

	h256 := sha256.New()
	fmt.Fprintf(h256, "RGB|%dx%d", w, h)
	h256.Write(rgb)
	return fmt.Sprintf("%x", h256.Sum(nil)), true
}

//go:build !cgo
// +build !cgo

package metadata

import (
	"errors"
	"image"
)

// RawDecoderImpl names the compiled-in RAW decode backend.
const RawDecoderImpl = "disabled (CGO required)"

// DecodeRaw stub for CGO-disabled builds. RAW width/height falls back to
// whatever exiftool reported; this path simply isn't available.
func DecodeRaw(path string) (image.Image, error) {
	return nil, errors.New("RAW decode requires a CGO build with LibRaw")
}

// IsRawSupported reports whether this build was linked against LibRaw.
func IsRawSupported() bool { return false }

// ExtractEmbeddedJPEG stub for CGO-disabled builds.
func ExtractEmbeddedJPEG(data []byte) (image.Image, error) {
	return nil, errors.New("embedded JPEG extraction requires a CGO build")
}

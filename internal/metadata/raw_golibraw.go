//go:build cgo && !use_seppedelanghe_libraw
// +build cgo,!use_seppedelanghe_libraw

package metadata

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	golibraw "github.com/inokone/golibraw"
)

// RawDecoderImpl names the compiled-in RAW decode backend, surfaced in
// startup logs so a support report shows which library produced a given
// width/height fallback.
const RawDecoderImpl = "inokone/golibraw"

// DecodeRaw decodes path far enough to recover pixel dimensions for the
// metadata fallback path (spec.md §4.3: RAW files are never content-hashed,
// so full-fidelity decode is unnecessary — only Width/Height matter here).
func DecodeRaw(path string) (image.Image, error) {
	img, err := golibraw.ImportRaw(path)
	if err != nil {
		return nil, fmt.Errorf("libraw decode %s: %w", path, err)
	}
	return img, nil
}

// IsRawSupported reports whether this build was linked against LibRaw.
func IsRawSupported() bool { return true }

// ExtractEmbeddedJPEG scans a RAW/DNG file's raw bytes for the largest
// embedded JPEG preview and decodes it. DNG containers are TIFF-based and
// commonly carry one or more preview JPEGs; width/height read off the
// largest preview is a reasonable stand-in when LibRaw itself fails.
func ExtractEmbeddedJPEG(data []byte) (image.Image, error) {
	var largest []byte

	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0xFF || data[i+1] != 0xD8 {
			continue
		}
		start := i
		for j := start + 2; j < len(data)-1; j++ {
			if data[j] == 0xFF && data[j+1] == 0xD9 {
				end := j + 2
				if end-start > len(largest) {
					if _, err := jpeg.DecodeConfig(bytes.NewReader(data[start:end])); err == nil {
						largest = data[start:end]
					}
				}
				i = end - 1
				break
			}
		}
	}

	if largest == nil {
		return nil, fmt.Errorf("no embedded JPEG preview found")
	}
	img, err := jpeg.Decode(bytes.NewReader(largest))
	if err != nil {
		return nil, fmt.Errorf("decode embedded JPEG preview: %w", err)
	}
	return img, nil
}

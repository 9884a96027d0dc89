//go:build cgo && use_seppedelanghe_libraw
// +build cgo,use_seppedelanghe_libraw

package metadata

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	golibraw "github.com/seppedelanghe/go-libraw"
)

// RawDecoderImpl names the compiled-in RAW decode backend.
const RawDecoderImpl = "seppedelanghe/go-libraw"

// DecodeRaw decodes path with a fast demosaic setting — width/height is all
// the metadata fallback path needs, so full AHD-quality reconstruction is
// wasted work here.
func DecodeRaw(path string) (image.Image, error) {
	processor := golibraw.NewProcessor(golibraw.ProcessorOptions{
		UserQual:    0, // linear interpolation: fastest, dimensions still exact
		OutputBps:   8,
		OutputColor: golibraw.SRGB,
		UseCameraWb: true,
	})

	img, _, err := processor.ProcessRaw(path)
	if err != nil {
		if data, readErr := os.ReadFile(path); readErr == nil {
			if fallback, fbErr := ExtractEmbeddedJPEG(data); fbErr == nil {
				return fallback, nil
			}
		}
		return nil, fmt.Errorf("libraw decode %s: %w", path, err)
	}
	return img, nil
}

// IsRawSupported reports whether this build was linked against LibRaw.
func IsRawSupported() bool { return true }

// ExtractEmbeddedJPEG scans a RAW/DNG file's raw bytes for the largest
// embedded JPEG preview and decodes it, used when ProcessRaw fails outright.
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

package metadata

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DecodeResult is what the fallback decoder can recover without exiftool.
// Tags is passed through to the Time Resolver like any other metadata
// source; it is never the sole source of a capture date because exiftool
// always runs first and short-circuits this path when it succeeds.
type DecodeResult struct {
	Format string
	Width  int
	Height int
	Tags   map[string]string
}

var rawExtensions = map[string]bool{
	".dng": true, ".cr2": true, ".cr3": true, ".nef": true,
	".arw": true, ".raf": true, ".rw2": true, ".orf": true, ".srw": true,
}

// DecoderProvider is the pure-Go fallback used for a file when exiftool
// returns no tags for it. Adapted from the teacher's
// internal/indexer/metadata.go ExtractMetadata, which mutated a
// PhotoMetadata in place; here it returns a DecodeResult instead.
type DecoderProvider struct{}

// Decode recovers format/width/height/orientation-bearing tags for path.
// RAW extensions route through the build-tag-gated DecodeRaw instead of the
// standard image package, since the stdlib registry has no RAW decoders.
func (DecoderProvider) Decode(path string) (DecodeResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if rawExtensions[ext] {
		return decodeRawDimensions(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return DecodeResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return DecodeResult{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	result := DecodeResult{Format: format, Width: cfg.Width, Height: cfg.Height}
	result.Tags = readExifTags(path)
	return result, nil
}

func decodeRawDimensions(path string) (DecodeResult, error) {
	img, err := DecodeRaw(path)
	if err != nil {
		return DecodeResult{}, err
	}
	bounds := img.Bounds()
	return DecodeResult{
		Format: "raw",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Tags:   readExifTags(path),
	}, nil
}

// readExifTags best-effort parses embedded EXIF via dsoprea/go-exif and
// flattens it into the same string-keyed shape exiftool would have
// produced, so the Time Resolver can treat either source identically.
// A parse failure here yields an empty map, never an error: this function
// is already the last-resort path.
func readExifTags(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return map[string]string{}
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return map[string]string{}
	}

	tags := map[string]string{}
	for _, entry := range entries {
		if entry.Value == nil {
			continue
		}
		switch entry.TagName {
		case "DateTimeOriginal", "DateTime", "DateTimeDigitized":
			if s, ok := entry.Value.(string); ok {
				tags[entry.TagName] = strings.Trim(s, "\x00 ")
			}
		case "Orientation":
			if v, ok := entry.Value.([]uint16); ok && len(v) > 0 {
				tags["Orientation"] = fmt.Sprintf("%d", v[0])
			}
		case "GPSLatitude":
			if c := gpsDecimal(entry.Value); c != 0 {
				tags["GPSLatitude"] = fmt.Sprintf("%f", c)
			}
		case "GPSLongitude":
			if c := gpsDecimal(entry.Value); c != 0 {
				tags["GPSLongitude"] = fmt.Sprintf("%f", c)
			}
		case "GPSLatitudeRef":
			if s, ok := entry.Value.(string); ok {
				tags["GPSLatitudeRef"] = s
			}
		case "GPSLongitudeRef":
			if s, ok := entry.Value.(string); ok {
				tags["GPSLongitudeRef"] = s
			}
		}
	}
	return tags
}

func gpsDecimal(v interface{}) float64 {
	rats, ok := v.([]exifcommon.Rational)
	if !ok || len(rats) < 3 {
		return 0
	}
	deg := float64(rats[0].Numerator) / float64(rats[0].Denominator)
	min := float64(rats[1].Numerator) / float64(rats[1].Denominator)
	sec := float64(rats[2].Numerator) / float64(rats[2].Denominator)
	return deg + min/60.0 + sec/3600.0
}

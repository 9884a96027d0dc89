package hasher

import "image"

// applyOrientation applies an EXIF orientation transform (1-8) to img so
// that visually-identical-but-differently-rotated images hash identically
// once passed through contentHash. Ported from the teacher's
// quality.ApplyOrientation (internal/quality/orientation.go in the source
// tree this module grew from) — same transform matrix, renamed to stay
// unexported since only contentHash calls it.
func applyOrientation(img image.Image, orientation int) (image.Image, bool) {
	if orientation < 2 || orientation > 8 {
		return img, false
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var result *image.NRGBA

	switch orientation {
	case 2:
		result = image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(width-1-x, y, img.At(x, y))
			}
		}
	case 3:
		result = image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(width-1-x, height-1-y, img.At(x, y))
			}
		}
	case 4:
		result = image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(x, height-1-y, img.At(x, y))
			}
		}
	case 5:
		result = image.NewNRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(y, width-1-x, img.At(x, y))
			}
		}
	case 6:
		result = image.NewNRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(height-1-y, x, img.At(x, y))
			}
		}
	case 7:
		result = image.NewNRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(height-1-y, width-1-x, img.At(x, y))
			}
		}
	case 8:
		result = image.NewNRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result.Set(y, x, img.At(x, y))
			}
		}
	default:
		return img, false
	}

	return result, true
}

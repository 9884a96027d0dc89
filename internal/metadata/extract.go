package metadata

// Extracted is the normalized metadata handed to the Time Resolver and the
// catalog writer: a flat tag map plus the width/height/orientation the
// pipeline needs directly.
type Extracted struct {
	Tags        map[string]string
	Width       int
	Height      int
	Orientation int
}

// Extractor runs the primary exiftool-backed Provider and, only when it
// yields nothing (tool missing, timeout, unsupported format), falls back to
// DecoderProvider. Per spec.md §4.4, the fallback's tags are merged in
// verbatim — exiftool running first and short-circuiting is what keeps it
// from ever being the sole source of a capture date, not any filtering here.
type Extractor struct {
	Primary  Provider
	Fallback DecoderProvider
}

// NewExtractor builds an Extractor around an ExiftoolProvider. Callers own
// the returned provider's lifecycle and must Close it when done.
func NewExtractor() (*Extractor, error) {
	p, err := NewExiftoolProvider()
	if err != nil {
		return nil, err
	}
	return &Extractor{Primary: p, Fallback: DecoderProvider{}}, nil
}

// Close releases the underlying exiftool process, if the primary provider
// holds one.
func (e *Extractor) Close() error {
	if closer, ok := e.Primary.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Extract reads path's metadata, preferring exiftool and falling back to
// the pure-Go decoder when exiftool produced nothing.
func (e *Extractor) Extract(path string) Extracted {
	tags, _ := e.Primary.Read(path)

	width, height, orientation := dims(tags)

	if len(tags) == 0 {
		if dr, err := e.Fallback.Decode(path); err == nil {
			tags = dr.Tags
			width, height = dr.Width, dr.Height
			orientation = 1
			if o, ok := tags["Orientation"]; ok {
				if v := parseOrientation(o); v > 0 {
					orientation = v
				}
			}
		}
	}

	return Extracted{Tags: tags, Width: width, Height: height, Orientation: orientation}
}

func dims(tags map[string]string) (width, height, orientation int) {
	orientation = 1
	if w, ok := tags["ImageWidth"]; ok {
		width = parseOrientation(w)
	}
	if h, ok := tags["ImageHeight"]; ok {
		height = parseOrientation(h)
	}
	if o, ok := tags["Orientation"]; ok {
		if v := parseOrientation(o); v > 0 {
			orientation = v
		}
	}
	return width, height, orientation
}

func parseOrientation(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

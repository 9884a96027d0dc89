// Package metadata extracts capture-time and image-property metadata for
// one file. The primary path shells out to exiftool; a pluggable pure-Go
// decoder fallback covers files for which exiftool returns no tags, but per
// spec.md §4.4 the fallback is never the sole source of a capture date.
package metadata

import (
	"fmt"
	"time"

	exiftool "github.com/barasher/go-exiftool"
)

// Provider reads a flat tag map for a single file.
type Provider interface {
	Read(path string) (map[string]string, error)
}

// excludedArgs bounds memory per spec.md §4.4: vendor maker notes,
// embedded previews/thumbnails, and color profiles are excluded at
// invocation rather than parsed and discarded.
var excludedArgs = []string{
	"-MakerNotes:all=",
	"-PreviewImage=",
	"-ThumbnailImage=",
	"-ICC_Profile:all=",
	"-api", "largefilesupport=1",
	"-fast2",
	"-j",
	"-n",
}

// ExiftoolProvider shells out to exiftool via github.com/barasher/go-exiftool,
// the same wrapper the retrieved photosort-style tooling in this corpus uses
// ahead of its own sort/move pipeline.
type ExiftoolProvider struct {
	et      *exiftool.Exiftool
	Timeout time.Duration
}

// NewExiftoolProvider starts one long-lived exiftool child process. Callers
// should Close it when the batch is done.
func NewExiftoolProvider() (*ExiftoolProvider, error) {
	et, err := exiftool.NewExiftool(exiftool.WithExtraInitArgs(excludedArgs))
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExiftoolProvider{et: et, Timeout: 20 * time.Second}, nil
}

// Close terminates the exiftool child process.
func (p *ExiftoolProvider) Close() error {
	return p.et.Close()
}

// Read returns a flat tag map for path. A timeout or nonzero exit (or any
// other exiftool error) is not propagated: it yields an empty map, per
// spec.md §4.4 and §7 ("Metadata tool timeout/error" -> proceed with empty
// metadata).
func (p *ExiftoolProvider) Read(path string) (map[string]string, error) {
	type result struct {
		fields map[string]string
	}
	done := make(chan result, 1)

	go func() {
		metas := p.et.ExtractMetadata(path)
		out := map[string]string{}
		if len(metas) > 0 && metas[0].Err == nil {
			for k, v := range metas[0].Fields {
				out[k] = fmt.Sprintf("%v", v)
			}
		}
		done <- result{fields: out}
	}()

	select {
	case r := <-done:
		return r.fields, nil
	case <-time.After(p.Timeout):
		return map[string]string{}, nil
	}
}

// Package classifier buckets each walked path into Junk, Unsupported, or
// Candidate before any hashing or metadata work happens.
package classifier

import (
	"path/filepath"
	"strings"
)

// Kind identifies which bucket a path falls into.
type Kind int

const (
	KindCandidate Kind = iota
	KindJunk
	KindUnsupported
)

// Result is the classifier's verdict for one path.
type Result struct {
	Kind Kind
	// Reason is set for KindJunk ("appledouble" | "system_file") and
	// KindUnsupported (the lowercased extension).
	Reason string
}

// Options configures junk detection; extension sets are supplied per call
// since the Classifier itself holds no state.
type Options struct {
	JunkNames   map[string]bool
	JunkPrefix  string
}

// DefaultJunkNames mirrors the original's JUNK_FILES
// (scripts/ingest_pass.py).
func DefaultJunkNames() map[string]bool {
	return map[string]bool{
		".DS_Store":   true,
		"Thumbs.db":   true,
		"desktop.ini": true,
	}
}

// Classify buckets path given the filename and the configured set of
// accepted extensions (config.Formats.AllSupported()).
func Classify(path string, opts Options, supportedExt map[string]bool) Result {
	name := filepath.Base(path)

	if opts.JunkPrefix == "" {
		opts.JunkPrefix = "._"
	}

	if opts.JunkNames[name] {
		return Result{Kind: KindJunk, Reason: "system_file"}
	}
	if strings.HasPrefix(name, opts.JunkPrefix) {
		return Result{Kind: KindJunk, Reason: "appledouble"}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !supportedExt[ext] {
		return Result{Kind: KindUnsupported, Reason: ext}
	}

	return Result{Kind: KindCandidate}
}

// Package walker recursively traverses a staging root and streams candidate
// file paths to the caller, pruning noise directories and tolerating
// per-entry I/O errors without aborting the scan.
package walker

import (
	"os"
	"path/filepath"
	"strings"
)

// Options configures one walk.
type Options struct {
	// IgnoreDirs is a set of directory basenames to prune entirely
	// (e.g. ".Spotlight-V100", ".fseventsd").
	IgnoreDirs map[string]bool
	// ResourceForkPrefix marks directories to prune by prefix (AppleDouble).
	ResourceForkPrefix string
	// Warn receives a message for every per-entry error the walk swallows.
	Warn func(path string, err error)
}

// DefaultIgnoreDirs mirrors the original's DIR_IGNORE set
// (scripts/ingest_pass.py).
func DefaultIgnoreDirs() map[string]bool {
	return map[string]bool{
		".Spotlight-V100": true,
		".fseventsd":      true,
		".Trashes":        true,
		".TemporaryItems": true,
	}
}

// Walk streams every ordinary file under root to yield, in filesystem-walk
// order. Symlinked directories are only followed if they resolve to a path
// still contained within root (spec.md §9 Open Question, resolved).
// Directory read errors are reported via opts.Warn and the subtree is
// skipped; the walk never aborts because of them.
func Walk(root string, opts Options, yield func(path string) error) error {
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		canonicalRoot = root
	}

	if opts.ResourceForkPrefix == "" {
		opts.ResourceForkPrefix = "._"
	}

	// visited holds the resolved targets of symlinked directories already
	// descended into, so a link back to an ancestor cannot loop forever.
	visited := map[string]bool{canonicalRoot: true}

	var walkDir func(dir string) error
	walkDir = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if opts.Warn != nil {
				opts.Warn(dir, err)
			}
			return nil
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)

			if entry.IsDir() {
				if opts.IgnoreDirs[name] || strings.HasPrefix(name, opts.ResourceForkPrefix) {
					continue
				}
				if !withinRoot(path, canonicalRoot) {
					continue
				}
				if err := walkDir(path); err != nil {
					return err
				}
				continue
			}

			if entry.Type()&os.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(path)
				if err != nil {
					if opts.Warn != nil {
						opts.Warn(path, err)
					}
					continue
				}
				if !withinRoot(resolved, canonicalRoot) {
					continue
				}
				if target, err := os.Stat(resolved); err == nil && target.IsDir() {
					if !visited[resolved] {
						visited[resolved] = true
						if err := walkDir(path); err != nil {
							return err
						}
					}
					continue
				}
			}

			info, err := entry.Info()
			if err != nil {
				if opts.Warn != nil {
					opts.Warn(path, err)
				}
				continue
			}
			if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
				continue
			}

			if err := yield(path); err != nil {
				return err
			}
		}
		return nil
	}

	return walkDir(root)
}

// withinRoot reports whether path, once resolved, is lexically contained
// within root. A symlink pointing outside root is rejected rather than
// followed, preventing exfiltration out of the staging tree.
func withinRoot(path, root string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

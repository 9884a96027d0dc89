// Package dedup decides, ahead of any placement, whether an incoming file
// is a duplicate of something already in the catalog and what should
// happen to it.
package dedup

import (
	"os"

	"github.com/adewale/pixarr/internal/config"
	"github.com/adewale/pixarr/pkg/models"
)

// Catalog is the read side the resolver needs. Implemented by
// internal/catalog; kept as a narrow interface here so dedup logic is
// testable without a database.
type Catalog interface {
	FindByFileHash(hashSHA256 string) (*models.MediaRecord, error)
	FindByContentHash(contentSHA256 string) (*models.MediaRecord, error)
}

// Reason names why a file was flagged a duplicate, stored verbatim in the
// quarantine sidecar / reason histogram.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonDuplicateInLibrary Reason = "duplicate_in_library"
	ReasonDuplicateInReview  Reason = "duplicate_in_review"
)

// Action is what the orchestrator should do about a resolved duplicate.
type Action string

const (
	ActionProceed    Action = "proceed"    // not a duplicate: continue to placement
	ActionIgnore     Action = "ignore"     // record a sighting only, touch last_verified_at
	ActionQuarantine Action = "quarantine" // move to Quarantine/duplicate
	ActionDelete     Action = "delete"     // unlink source; quarantine as move_failed on failure
)

// Basis names which hash matched: the incoming file's own bytes, or its
// decoded pixel content (a re-encode or metadata strip with a different
// file hash). Recorded verbatim in the quarantine sidecar's "extra" field,
// per spec.md §7's "Duplicate (content)" row.
type Basis string

const (
	BasisNone    Basis = ""
	BasisFile    Basis = "file"
	BasisContent Basis = "content"
)

// Decision is the resolver's verdict for one file.
type Decision struct {
	Reason Reason
	Action Action
	Basis  Basis
	DupeOf *models.MediaRecord
}

// Resolve runs the two catalog queries in order (file hash then, only if
// that misses and a content hash is available, pixel content) preferring a
// library-state match over a review-state match, and applies the
// on_review_dupe/quarantine_duplicates policy matrix from spec.md §4.6.
func Resolve(cat Catalog, fileHash string, contentHash *string, onReviewDupe config.OnReviewDupe, quarantineDuplicates bool) (Decision, error) {
	match, err := cat.FindByFileHash(fileHash)
	if err != nil {
		return Decision{}, err
	}
	basis := BasisFile

	if match == nil && contentHash != nil {
		match, err = cat.FindByContentHash(*contentHash)
		if err != nil {
			return Decision{}, err
		}
		basis = BasisContent
	}

	if match == nil {
		return Decision{Action: ActionProceed}, nil
	}

	if match.State == models.StateLibrary {
		if !quarantineDuplicates {
			return Decision{Reason: ReasonDuplicateInLibrary, Action: ActionIgnore, Basis: basis, DupeOf: match}, nil
		}
		return Decision{Reason: ReasonDuplicateInLibrary, Action: ActionQuarantine, Basis: basis, DupeOf: match}, nil
	}

	// Review-state file-hash match whose canonical copy no longer exists on
	// disk is re-placed rather than treated as a duplicate, per spec.md
	// §4.7's "review | file-hash dup, canon missing" row.
	if basis == BasisFile && match.State == models.StateReview && canonicalMissing(match) {
		return Decision{Action: ActionProceed}, nil
	}

	// Review-state match: policy-driven.
	switch onReviewDupe {
	case config.OnReviewDupeIgnore:
		return Decision{Reason: ReasonDuplicateInReview, Action: ActionIgnore, Basis: basis, DupeOf: match}, nil
	case config.OnReviewDupeDelete:
		return Decision{Reason: ReasonDuplicateInReview, Action: ActionDelete, Basis: basis, DupeOf: match}, nil
	default:
		return Decision{Reason: ReasonDuplicateInReview, Action: ActionQuarantine, Basis: basis, DupeOf: match}, nil
	}
}

// canonicalMissing reports whether match's canonical file is absent: either
// the catalog never recorded one, or the path it recorded no longer exists
// on disk (e.g. the prior placement's move was interrupted).
func canonicalMissing(match *models.MediaRecord) bool {
	if match.CanonicalPath == nil || *match.CanonicalPath == "" {
		return true
	}
	_, err := os.Stat(*match.CanonicalPath)
	return os.IsNotExist(err)
}

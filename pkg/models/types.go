// Package models defines the core data structures shared across the Pixarr
// ingest engine: the durable catalog rows (MediaRecord, Sighting,
// IngestBatch) and the small value types the pipeline stages pass between
// each other.
package models

import "time"

// State is the lifecycle state of a MediaRecord.
type State string

const (
	StateReview     State = "review"
	StateLibrary    State = "library"
	StateQuarantine State = "quarantine"
	StateDeleted    State = "deleted"
)

// MediaRecord is the one durable row per unique file hash (HashSHA256).
type MediaRecord struct {
	ID               string
	HashSHA256       string
	ContentSHA256    *string
	Ext              string
	Bytes            int64
	TakenAt          *time.Time
	TZOffset         *string
	GPSLat           *float64
	GPSLon           *float64
	State            State
	CanonicalPath    *string
	QuarantineReason *string
	AddedAt          time.Time
	UpdatedAt        time.Time
	LastVerifiedAt   *time.Time
	XMPWritten       bool
}

// Sighting is an append-only observation of a media file at a physical path.
type Sighting struct {
	ID         int64
	MediaID    string
	SourceRoot string
	FullPath   string
	Filename   string
	FolderHint *string
	SeenAt     time.Time
	IngestID   string
}

// IngestBatch brackets one scan of one staging root.
type IngestBatch struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Notes      *string
}

// ReasonHistogram counts quarantined files by reason within one source scan.
type ReasonHistogram map[string]int

// SourceStats accumulates per-source counters for one ingest batch.
type SourceStats struct {
	Scanned     int
	Moved       int
	Updated     int
	SkippedDupe int
	Quarantined int
	Reasons     ReasonHistogram
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewSourceStats returns a zeroed SourceStats with its histogram initialized.
func NewSourceStats() *SourceStats {
	return &SourceStats{Reasons: make(ReasonHistogram)}
}

// Duration returns how long the source scan ran.
func (s *SourceStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

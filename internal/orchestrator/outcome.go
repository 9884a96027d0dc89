package orchestrator

// Outcome is the closed sum type for what happened to one file, per
// spec.md §9's design note: the unexported outcome method keeps the set of
// variants to the four types below, replacing the original's
// exception-driven control flow
// (quarantine_file/maybe_quarantine calls scattered through
// ingest_one_source).
type Outcome interface {
	outcome()
}

// Placed means the file was newly accepted into Review (or, in dry-run,
// would have been).
type Placed struct {
	MediaID       string
	CanonicalPath string
}

// Updated means an existing media row was refreshed (new sighting, maybe a
// COALESCEd field) without a new placement.
type Updated struct {
	MediaID string
}

// SkippedDup means a duplicate was neither placed nor quarantined: it was
// left in place (on_review_dupe=ignore, or a library duplicate with the
// dupes quarantine toggle off) or unlinked (on_review_dupe=delete). A
// sighting was recorded either way.
type SkippedDup struct {
	MediaID string
}

// Quarantined means the file was routed to Quarantine/<Reason>/.
type Quarantined struct {
	Reason string
	Path   string // "" if the quarantine move itself failed
}

func (Placed) outcome()      {}
func (Updated) outcome()     {}
func (SkippedDup) outcome()  {}
func (Quarantined) outcome() {}

// Package orchestrator drives one staging root through
// Walker -> Classifier -> Hasher + Metadata Reader -> Time Resolver ->
// Dedup Resolver -> (Mover | Quarantiner) -> Catalog, accumulating
// per-source counters as it goes. Grounded on the original's
// ingest_one_source, generalized from inline exception-driven control flow
// into the explicit Outcome switch described in SPEC_FULL.md §7.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adewale/pixarr/internal/catalog"
	"github.com/adewale/pixarr/internal/classifier"
	"github.com/adewale/pixarr/internal/config"
	"github.com/adewale/pixarr/internal/dedup"
	"github.com/adewale/pixarr/internal/hasher"
	"github.com/adewale/pixarr/internal/metadata"
	"github.com/adewale/pixarr/internal/mover"
	"github.com/adewale/pixarr/internal/timeresolve"
	"github.com/adewale/pixarr/internal/walker"
	"github.com/adewale/pixarr/pkg/models"
)

// DefaultHeartbeatEvery is how many scanned files elapse between heartbeat
// log lines, overridable by the PIXARR_HEARTBEAT env var or the
// --heartbeat flag, per spec.md §4.9.
const DefaultHeartbeatEvery = 500

// Engine bundles every dependency ProcessSource needs. Catalog and Extractor
// are narrow interfaces so tests can supply fakes without a real database
// or exiftool child process.
type Engine struct {
	Config    *config.EngineConfig
	Catalog   CatalogOps
	Extractor Extractor
	Logger    *logrus.Logger
	DryRun    bool
	Heartbeat int
}

// CatalogOps is everything the orchestrator needs from the catalog.
type CatalogOps interface {
	dedup.Catalog
	UpsertMedia(rec *models.MediaRecord) (id string, state models.State, canonicalPath *string, err error)
	InsertSighting(s *models.Sighting) error
	TouchLastVerified(mediaID string, at time.Time) error
	Quarantine(mediaID, reason string, canonicalPath *string, at time.Time) error
	BeginIngest(source string, notes *string) (string, error)
	FinishIngest(ingestID string) error
}

var _ CatalogOps = (*catalog.DB)(nil)

// Extractor is the metadata-reading capability ProcessSource needs.
type Extractor interface {
	Extract(path string) metadata.Extracted
}

// NewEngine builds an Engine from its dependencies.
func NewEngine(cfg *config.EngineConfig, cat CatalogOps, extractor Extractor, logger *logrus.Logger, dryRun bool, heartbeat int) *Engine {
	return &Engine{Config: cfg, Catalog: cat, Extractor: extractor, Logger: logger, DryRun: dryRun, Heartbeat: heartbeat}
}

// ProcessSource runs a full ingest pass over one staging root, per
// spec.md §4.9: begin ingest, walk, process each file with a catch-all,
// heartbeat, finish ingest in a guaranteed-cleanup clause.
func (e *Engine) ProcessSource(sourceLabel, root string, note *string) (*models.SourceStats, error) {
	stats := models.NewSourceStats()
	stats.StartedAt = time.Now()

	ingestID, err := e.Catalog.BeginIngest(sourceLabel, note)
	if err != nil {
		return stats, fmt.Errorf("begin ingest for %s: %w", sourceLabel, err)
	}
	log := e.Logger.WithFields(logrus.Fields{"ingest_id": ingestID, "source": sourceLabel})
	log.Info("started ingest batch")

	defer func() {
		if err := e.Catalog.FinishIngest(ingestID); err != nil {
			log.WithError(err).Error("failed to finish ingest batch")
		}
		stats.FinishedAt = time.Now()
	}()

	heartbeatEvery := e.heartbeatEvery()

	walkErr := walker.Walk(root, walker.Options{
		IgnoreDirs:         walker.DefaultIgnoreDirs(),
		ResourceForkPrefix: "._",
		Warn: func(path string, err error) {
			log.WithField("path", path).WithError(err).Warn("directory unreadable, skipping subtree")
		},
	}, func(path string) error {
		stats.Scanned++
		if heartbeatEvery > 0 && stats.Scanned%heartbeatEvery == 0 {
			log.WithField("scanned", stats.Scanned).Info("heartbeat")
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("path", path).Errorf("unhandled panic processing file: %v", r)
				}
			}()
			outcome := e.processFile(log, ingestID, sourceLabel, root, path)
			recordOutcome(stats, outcome)
		}()
		return nil
	})
	if walkErr != nil {
		return stats, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	return stats, nil
}

func (e *Engine) heartbeatEvery() int {
	if e.Heartbeat > 0 {
		return e.Heartbeat
	}
	if v := os.Getenv("PIXARR_HEARTBEAT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultHeartbeatEvery
}

func recordOutcome(stats *models.SourceStats, o Outcome) {
	switch v := o.(type) {
	case Placed:
		stats.Moved++
	case Updated:
		stats.Updated++
	case SkippedDup:
		stats.SkippedDupe++
	case Quarantined:
		stats.Quarantined++
		stats.Reasons[v.Reason]++
	}
}

// fileToken gives each file a short stable identifier for log lines before
// its content hash is known: sha1 of the path, truncated to 8 hex chars,
// per spec.md §4.9.
func fileToken(path string) string {
	sum := sha1Hex(path)
	if len(sum) > 8 {
		sum = sum[:8]
	}
	return sum
}

func (e *Engine) processFile(log *logrus.Entry, ingestID, sourceLabel, root, path string) Outcome {
	token := fileToken(path)
	flog := log.WithField("file", token)

	result := classifier.Classify(path, classifier.Options{JunkNames: classifier.DefaultJunkNames()}, e.Config.Formats.AllSupported())
	switch result.Kind {
	case classifier.KindJunk:
		return e.rejectPreHash(flog, ingestID, path, "junk", e.Config.Quarantine.Junk)
	case classifier.KindUnsupported:
		return e.rejectPreHash(flog, ingestID, path, "unsupported_ext", e.Config.Quarantine.UnsupportedExt)
	}

	info, err := os.Stat(path)
	if err != nil {
		flog.WithError(err).Warn("stat error")
		return e.rejectPreHash(flog, ingestID, path, "stat_error", e.Config.Quarantine.StatError)
	}
	if info.Size() == 0 {
		return e.rejectPreHash(flog, ingestID, path, "zero_bytes", e.Config.Quarantine.ZeroBytes)
	}

	fileHash, err := hasher.FileSHA256(path)
	if err != nil {
		flog.WithError(err).Warn("stat error hashing file")
		return e.rejectPreHash(flog, ingestID, path, "stat_error", e.Config.Quarantine.StatError)
	}

	extracted := e.Extractor.Extract(path)

	// Pixel content is hashed only for non-RAW image extensions.
	hashPixels := false
	for _, imgExt := range e.Config.Formats.Images {
		if imgExt == fileExt(path) {
			hashPixels = true
		}
	}
	for _, rawExt := range e.Config.Formats.RAW {
		if rawExt == fileExt(path) {
			hashPixels = false
		}
	}
	var contentHash *string
	if hashPixels {
		if digest, ok := hasher.ContentSHA256(path, extracted.Orientation); ok {
			contentHash = &digest
		}
	}

	dateKeys := e.Config.DateKeys
	if e.Config.Ingest.AllowFileDates {
		dateKeys = append(append([]string{}, dateKeys...), e.Config.FileDateKeys...)
	}
	takenAt, hasDate := timeresolve.Resolve(path, extracted.Tags, dateKeys, e.Config.Ingest.AllowFilenameDates)

	decision, err := dedup.Resolve(e.Catalog, fileHash, contentHash, e.Config.Ingest.OnReviewDupe, e.Config.Quarantine.Dupes)
	if err != nil {
		flog.WithError(err).Error("dedup lookup failed")
		return e.rejectPreHash(flog, ingestID, path, "stat_error", e.Config.Quarantine.StatError)
	}
	if decision.Action != dedup.ActionProceed {
		return e.handleDuplicate(flog, ingestID, sourceLabel, root, path, decision)
	}

	if !hasDate {
		return e.rejectMissingDate(flog, ingestID, sourceLabel, root, path, fileHash, contentHash, info.Size())
	}

	ext := strings.ToLower(filepath.Ext(path))
	rec := &models.MediaRecord{
		HashSHA256:    fileHash,
		ContentSHA256: contentHash,
		Ext:           ext,
		Bytes:         info.Size(),
		TakenAt:       &takenAt,
		State:         models.StateReview,
	}
	mediaID, state, _, err := e.Catalog.UpsertMedia(rec)
	if err != nil {
		flog.WithError(err).Error("catalog upsert failed")
		return e.rejectPreHash(flog, ingestID, path, "stat_error", e.Config.Quarantine.StatError)
	}

	// dedup.Resolve only ever sees {library, review} rows (spec.md §4.6), so
	// a row already at quarantine or deleted never surfaces as a duplicate
	// decision above. UpsertMedia's CASE correctly keeps such a row's state
	// exactly as it was; honor that here and never place the file, per
	// spec.md §4.7's "quarantine | same hash observed | stays quarantine"
	// and "deleted | any observation | stays deleted" rows.
	if state != models.StateReview {
		flog.WithField("state", state).Info("existing record already resolved, recording sighting only")
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
		return Updated{MediaID: mediaID}
	}

	canonicalName := mover.CanonicalName(&takenAt, fileHash, ext)
	destDir := e.Config.Paths.ReviewDir
	dest := mover.PlanNonClobber(destDir, canonicalName)

	if e.DryRun {
		flog.WithField("dest", dest).Info("[DRY] place")
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
		return Placed{MediaID: mediaID, CanonicalPath: dest}
	}

	if err := mover.Move(path, dest); err != nil {
		flog.WithError(err).Error("move failed, quarantining")
		return e.quarantineMoveFailed(flog, ingestID, mediaID, path)
	}

	relPath := dest
	if _, _, _, err := e.Catalog.UpsertMedia(&models.MediaRecord{
		HashSHA256: fileHash, ContentSHA256: contentHash, Ext: ext, Bytes: info.Size(),
		TakenAt: &takenAt, State: models.StateReview, CanonicalPath: &relPath,
	}); err != nil {
		flog.WithError(err).Error("failed to record canonical_path")
	}

	e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
	flog.WithField("dest", dest).Info("placed")
	return Placed{MediaID: mediaID, CanonicalPath: dest}
}

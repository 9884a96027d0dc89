package orchestrator

import (
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adewale/pixarr/internal/config"
	"github.com/adewale/pixarr/internal/hasher"
	"github.com/adewale/pixarr/internal/metadata"
	"github.com/adewale/pixarr/internal/mover"
	"github.com/adewale/pixarr/pkg/models"
)

// fakeCatalog is an in-memory stand-in for internal/catalog.DB, keyed by
// hash_sha256 like the real one's unique constraint.
type fakeCatalog struct {
	byHash    map[string]*models.MediaRecord
	sightings []*models.Sighting
	ingests   []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{byHash: map[string]*models.MediaRecord{}}
}

// dedupVisible mirrors internal/catalog's findOne, which only ever
// considers state IN ('library', 'review') (spec.md §4.6): a row already at
// quarantine or deleted must never surface as a dedup match.
func dedupVisible(rec *models.MediaRecord) bool {
	return rec.State == models.StateLibrary || rec.State == models.StateReview
}

func (f *fakeCatalog) FindByFileHash(hash string) (*models.MediaRecord, error) {
	if rec, ok := f.byHash[hash]; ok && dedupVisible(rec) {
		return rec, nil
	}
	return nil, nil
}

func (f *fakeCatalog) FindByContentHash(hash string) (*models.MediaRecord, error) {
	for _, rec := range f.byHash {
		if rec.ContentSHA256 != nil && *rec.ContentSHA256 == hash && dedupVisible(rec) {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) UpsertMedia(rec *models.MediaRecord) (string, models.State, *string, error) {
	existing, ok := f.byHash[rec.HashSHA256]
	if !ok {
		if rec.ID == "" {
			rec.ID = "media-" + rec.HashSHA256
		}
		now := time.Now().UTC()
		rec.AddedAt, rec.UpdatedAt = now, now
		f.byHash[rec.HashSHA256] = rec
		return rec.ID, rec.State, rec.CanonicalPath, nil
	}

	if rec.TakenAt != nil && existing.TakenAt == nil {
		existing.TakenAt = rec.TakenAt
	}
	if rec.ContentSHA256 != nil && existing.ContentSHA256 == nil {
		existing.ContentSHA256 = rec.ContentSHA256
	}
	if rec.CanonicalPath != nil {
		existing.CanonicalPath = rec.CanonicalPath
	}
	switch existing.State {
	case models.StateLibrary, models.StateQuarantine, models.StateDeleted:
		// preserved
	default:
		existing.State = rec.State
	}
	existing.UpdatedAt = time.Now().UTC()
	return existing.ID, existing.State, existing.CanonicalPath, nil
}

func (f *fakeCatalog) InsertSighting(s *models.Sighting) error {
	f.sightings = append(f.sightings, s)
	return nil
}

func (f *fakeCatalog) TouchLastVerified(mediaID string, at time.Time) error {
	if rec, ok := byID(f, mediaID); ok {
		rec.LastVerifiedAt = &at
	}
	return nil
}

func (f *fakeCatalog) Quarantine(mediaID, reason string, canonicalPath *string, at time.Time) error {
	if rec, ok := byID(f, mediaID); ok {
		rec.State = models.StateQuarantine
		rec.QuarantineReason = &reason
		if canonicalPath != nil {
			rec.CanonicalPath = canonicalPath
		}
	}
	return nil
}

func byID(f *fakeCatalog, id string) (*models.MediaRecord, bool) {
	for _, rec := range f.byHash {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

func (f *fakeCatalog) BeginIngest(source string, notes *string) (string, error) {
	id := "ingest-" + source
	f.ingests = append(f.ingests, id)
	return id, nil
}

func (f *fakeCatalog) FinishIngest(ingestID string) error { return nil }

type fakeExtractor struct {
	tags map[string]string
}

func (f fakeExtractor) Extract(path string) metadata.Extracted {
	return metadata.Extracted{Tags: f.tags, Orientation: 1}
}

func testConfig(dataDir string) *config.EngineConfig {
	return &config.EngineConfig{
		Paths: config.Paths{
			DataDir:       dataDir,
			ReviewDir:     filepath.Join(dataDir, "media", "Review"),
			QuarantineDir: filepath.Join(dataDir, "media", "Quarantine"),
		},
		Formats: config.Formats{Images: []string{".jpg"}},
		Ingest:  config.Ingest{OnReviewDupe: config.OnReviewDupeQuarantine},
		Quarantine: config.QuarantineToggles{
			Junk: true, UnsupportedExt: true, ZeroBytes: true, StatError: true,
			MoveFailed: true, Dupes: true, MissingDatetime: true,
		},
		DateKeys:     []string{"DateTimeOriginal"},
		FileDateKeys: []string{},
	}
}

func newTestEngine(t *testing.T, cat *fakeCatalog, extractor fakeExtractor, cfg *config.EngineConfig) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	return NewEngine(cfg, cat, extractor, logger, false, 500)
}

var canonicalNamePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_[0-9a-f]{8}(?:_\d+)?\.[a-z0-9]+$`)

func TestProcessSourceHappyPath(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(stagingRoot, "IMG_001.jpg"), []byte("fake jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	extractor := fakeExtractor{tags: map[string]string{"DateTimeOriginal": "2024:07:08 08:00:38"}}
	e := newTestEngine(t, cat, extractor, testConfig(dataDir))

	stats, err := e.ProcessSource("pc", stagingRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Moved != 1 {
		t.Fatalf("got Moved=%d, want 1", stats.Moved)
	}
	if len(cat.byHash) != 1 {
		t.Fatalf("got %d media rows, want 1", len(cat.byHash))
	}
	for _, rec := range cat.byHash {
		if rec.State != models.StateReview {
			t.Errorf("got state %s, want review", rec.State)
		}
		if rec.CanonicalPath == nil || !canonicalNamePattern.MatchString(filepath.Base(*rec.CanonicalPath)) {
			t.Errorf("canonical path %v does not match the required pattern", rec.CanonicalPath)
		}
		if !strings.HasPrefix(*rec.CanonicalPath, filepath.Join(dataDir, "media", "Review")) {
			t.Errorf("expected canonical path under Review, got %s", *rec.CanonicalPath)
		}
	}
	if len(cat.sightings) != 1 {
		t.Errorf("got %d sightings, want 1", len(cat.sightings))
	}
}

func TestProcessSourceMissingDateQuarantines(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(stagingRoot, "nodat.jpg"), []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	extractor := fakeExtractor{tags: map[string]string{}}
	e := newTestEngine(t, cat, extractor, testConfig(dataDir))

	stats, err := e.ProcessSource("pc", stagingRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Quarantined != 1 || stats.Reasons["missing_datetime"] != 1 {
		t.Fatalf("got %+v, want 1 quarantined/missing_datetime", stats)
	}
	for _, rec := range cat.byHash {
		if rec.State != models.StateQuarantine {
			t.Errorf("got state %s, want quarantine", rec.State)
		}
		if rec.QuarantineReason == nil || *rec.QuarantineReason != "missing_datetime" {
			t.Errorf("got reason %v, want missing_datetime", rec.QuarantineReason)
		}
	}
}

func TestProcessSourceJunkIsSkippedBeforeHashing(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(stagingRoot, ".DS_Store"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	e := newTestEngine(t, cat, fakeExtractor{}, testConfig(dataDir))

	stats, err := e.ProcessSource("pc", stagingRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Quarantined != 1 || stats.Reasons["junk"] != 1 {
		t.Fatalf("got %+v, want 1 quarantined/junk", stats)
	}
	if len(cat.byHash) != 0 {
		t.Errorf("junk files should never reach the catalog, got %d rows", len(cat.byHash))
	}
}

func writeSolidJPEG(t *testing.T, path string, quality int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 64, B: 32, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
}

// TestProcessSourceContentDuplicateRecordsContentBasis drives a re-encoded
// copy (different file bytes/hash, identical decoded pixels) through the
// pipeline and checks the quarantine sidecar records basis=content, not
// basis=file, per spec.md §7's "Duplicate (content)" row.
func TestProcessSourceContentDuplicateRecordsContentBasis(t *testing.T) {
	dataDir := t.TempDir()
	cfg := testConfig(dataDir)
	cat := newFakeCatalog()
	extractor := fakeExtractor{tags: map[string]string{"DateTimeOriginal": "2024:07:08 08:00:38"}}
	e := newTestEngine(t, cat, extractor, cfg)

	firstRoot := t.TempDir()
	writeSolidJPEG(t, filepath.Join(firstRoot, "a.jpg"), 95)
	if _, err := e.ProcessSource("pc", firstRoot, nil); err != nil {
		t.Fatal(err)
	}
	if len(cat.byHash) != 1 {
		t.Fatalf("got %d rows after first ingest, want 1", len(cat.byHash))
	}

	secondRoot := t.TempDir()
	writeSolidJPEG(t, filepath.Join(secondRoot, "b.jpg"), 80)
	if _, err := e.ProcessSource("pc", secondRoot, nil); err != nil {
		t.Fatal(err)
	}

	if len(cat.byHash) != 1 {
		t.Fatalf("got %d rows after second ingest, want still 1 (content duplicate quarantines, doesn't insert)", len(cat.byHash))
	}

	quarantineDir := filepath.Join(cfg.Paths.QuarantineDir, "duplicate")
	entries, err := os.ReadDir(quarantineDir)
	if err != nil {
		t.Fatal(err)
	}
	var sidecarPath string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".quarantine.json") {
			sidecarPath = filepath.Join(quarantineDir, entry.Name())
		}
	}
	if sidecarPath == "" {
		t.Fatal("expected a quarantine sidecar for the content duplicate")
	}
	raw, err := os.ReadFile(sidecarPath)
	if err != nil {
		t.Fatal(err)
	}
	var sidecar mover.Sidecar
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sidecar.Extra, "basis=content ") {
		t.Errorf("got extra %q, want it to start with \"basis=content \"", sidecar.Extra)
	}
}

// TestProcessSourceReviewDuplicateWithMissingCanonicalIsRePlaced covers
// spec.md §4.7's "review | file-hash dup, canon missing" row: a prior
// placement whose canonical file is gone (interrupted move, manual
// deletion) must be re-placed rather than quarantined as a duplicate.
func TestProcessSourceReviewDuplicateWithMissingCanonicalIsRePlaced(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot := t.TempDir()
	path := filepath.Join(stagingRoot, "IMG_001.jpg")
	if err := os.WriteFile(path, []byte("fake jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	fileHash, err := hasher.FileSHA256(path)
	if err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	missingPath := filepath.Join(dataDir, "media", "Review", "2020-01-01_00-00-00_deadbeef.jpg")
	cat.byHash[fileHash] = &models.MediaRecord{
		ID:            "media-" + fileHash,
		HashSHA256:    fileHash,
		State:         models.StateReview,
		CanonicalPath: &missingPath, // never actually written to disk
	}

	extractor := fakeExtractor{tags: map[string]string{"DateTimeOriginal": "2024:07:08 08:00:38"}}
	e := newTestEngine(t, cat, extractor, testConfig(dataDir))

	stats, err := e.ProcessSource("pc", stagingRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Moved != 1 {
		t.Fatalf("got Moved=%d, want 1 (re-placed, not quarantined)", stats.Moved)
	}
	if stats.Quarantined != 0 {
		t.Errorf("got Quarantined=%d, want 0", stats.Quarantined)
	}
	rec := cat.byHash[fileHash]
	if rec.State != models.StateReview {
		t.Errorf("got state %s, want review", rec.State)
	}
	if rec.CanonicalPath == nil || *rec.CanonicalPath == missingPath {
		t.Errorf("expected canonical_path to be refreshed to a real placement, got %v", rec.CanonicalPath)
	}
}

// TestProcessSourceQuarantinedHashIsNeverRePlaced covers spec.md §4.7's
// "quarantine | same hash observed | stays quarantine" row: dedup.Resolve
// never sees a quarantine-state row (its catalog queries only match
// library/review), so this must be enforced after UpsertMedia instead.
func TestProcessSourceQuarantinedHashIsNeverRePlaced(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot := t.TempDir()
	path := filepath.Join(stagingRoot, "IMG_001.jpg")
	if err := os.WriteFile(path, []byte("fake jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	fileHash, err := hasher.FileSHA256(path)
	if err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	reason := "move_failed"
	cat.byHash[fileHash] = &models.MediaRecord{
		ID:               "media-" + fileHash,
		HashSHA256:       fileHash,
		State:            models.StateQuarantine,
		QuarantineReason: &reason,
	}

	extractor := fakeExtractor{tags: map[string]string{"DateTimeOriginal": "2024:07:08 08:00:38"}}
	e := newTestEngine(t, cat, extractor, testConfig(dataDir))

	stats, err := e.ProcessSource("pc", stagingRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Moved != 0 {
		t.Errorf("got Moved=%d, want 0 (must not re-place an already-quarantined hash)", stats.Moved)
	}
	if stats.Updated != 1 {
		t.Errorf("got Updated=%d, want 1", stats.Updated)
	}
	rec := cat.byHash[fileHash]
	if rec.State != models.StateQuarantine {
		t.Errorf("got state %s, want quarantine to be preserved", rec.State)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected source file to remain untouched at %s: %v", path, err)
	}
	reviewDir := filepath.Join(dataDir, "media", "Review")
	if entries, _ := os.ReadDir(reviewDir); len(entries) != 0 {
		t.Errorf("expected nothing placed into Review, found %d entries", len(entries))
	}
}

func TestProcessSourceRerunProducesNoNewMediaRows(t *testing.T) {
	dataDir := t.TempDir()
	stagingRoot1 := t.TempDir()
	path := filepath.Join(stagingRoot1, "IMG_001.jpg")
	if err := os.WriteFile(path, []byte("fake jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat := newFakeCatalog()
	extractor := fakeExtractor{tags: map[string]string{"DateTimeOriginal": "2024:07:08 08:00:38"}}
	cfg := testConfig(dataDir)
	e := newTestEngine(t, cat, extractor, cfg)

	if _, err := e.ProcessSource("pc", stagingRoot1, nil); err != nil {
		t.Fatal(err)
	}
	if len(cat.byHash) != 1 {
		t.Fatalf("got %d rows after first run, want 1", len(cat.byHash))
	}

	// Second run: identical bytes presented again under a new staging root.
	stagingRoot2 := t.TempDir()
	if err := os.WriteFile(filepath.Join(stagingRoot2, "IMG_001.jpg"), []byte("fake jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err := e.ProcessSource("pc", stagingRoot2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.byHash) != 1 {
		t.Errorf("got %d rows after second run, want still 1 (no new MediaRecord)", len(cat.byHash))
	}
	if stats.Quarantined != 1 || stats.Reasons["duplicate_in_review"] != 1 {
		t.Errorf("got %+v, want duplicate_in_review quarantine", stats)
	}
	if len(cat.sightings) != 2 {
		t.Errorf("got %d sightings, want 2 (one per run)", len(cat.sightings))
	}
}

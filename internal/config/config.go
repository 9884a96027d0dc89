// Package config loads the Pixarr ingest engine's static configuration
// document and resolves it into an immutable EngineConfig passed down to
// every other component at startup. Nothing in this package is mutated
// after Load returns.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OnReviewDupe is the policy for a duplicate found already sitting in Review.
type OnReviewDupe string

const (
	OnReviewDupeIgnore     OnReviewDupe = "ignore"
	OnReviewDupeQuarantine OnReviewDupe = "quarantine"
	OnReviewDupeDelete     OnReviewDupe = "delete"
)

// QuarantineToggles gates whether each rejection reason actually quarantines
// the file, or leaves it untouched with a WARNING log line instead.
type QuarantineToggles struct {
	Junk            bool `yaml:"junk"`
	UnsupportedExt  bool `yaml:"unsupported_ext"`
	ZeroBytes       bool `yaml:"zero_bytes"`
	StatError       bool `yaml:"stat_error"`
	MoveFailed      bool `yaml:"move_failed"`
	Dupes           bool `yaml:"dupes"`
	MissingDatetime bool `yaml:"missing_datetime"`
}

// Paths resolves every directory the engine reads from or writes under.
type Paths struct {
	DataDir       string
	ReviewDir     string
	StagingDir    string
	ThumbDir      string
	DBPath        string
	QuarantineDir string
}

// Formats is the three-way extension split: images, RAW, videos.
type Formats struct {
	Images []string
	RAW    []string
	Videos []string
}

// Ingest holds the dry-run and duplicate/date policy knobs.
type Ingest struct {
	DryRunDefault      bool
	AllowFileDates     bool
	AllowFilenameDates bool
	OnReviewDupe       OnReviewDupe
}

// EngineConfig is the fully-resolved, immutable configuration for one run.
type EngineConfig struct {
	Paths        Paths
	StagingRoots map[string]string // name -> path under StagingDir, or the configured absolute path
	Formats      Formats
	Ingest       Ingest
	Quarantine   QuarantineToggles

	// DateKeys is the ordered list of metadata tag names the Time Resolver
	// scans, before any allow_file_dates tail is appended.
	DateKeys []string
	// FileDateKeys is appended to DateKeys when Ingest.AllowFileDates is set.
	FileDateKeys []string
}

// rawDocument mirrors the YAML document shape 1:1; see SPEC_FULL.md §6.
type rawDocument struct {
	Paths struct {
		DataDir      string `yaml:"data_dir"`
		ReviewSubdir string `yaml:"review_subdir"`
		StagingSubdir string `yaml:"staging_subdir"`
		ThumbSubdir  string `yaml:"thumb_subdir"`
		DBPath       string `yaml:"db_path"`
		DBSubdir     string `yaml:"db_subdir"`
		DBFile       string `yaml:"db_file"`
	} `yaml:"paths"`
	Staging struct {
		Roots map[string]string `yaml:"roots"`
	} `yaml:"staging"`
	Formats struct {
		Images []string `yaml:"images"`
		RAW    []string `yaml:"raw"`
		Videos []string `yaml:"videos"`
	} `yaml:"formats"`
	Ingest struct {
		DryRunDefault      *bool  `yaml:"dry_run_default"`
		AllowFileDates     bool   `yaml:"allow_file_dates"`
		AllowFilenameDates bool   `yaml:"allow_filename_dates"`
		OnReviewDupe       string `yaml:"on_review_dupe"`
	} `yaml:"ingest"`
	Quarantine struct {
		Junk            *bool `yaml:"junk"`
		UnsupportedExt  *bool `yaml:"unsupported_ext"`
		ZeroBytes       *bool `yaml:"zero_bytes"`
		StatError       *bool `yaml:"stat_error"`
		MoveFailed      *bool `yaml:"move_failed"`
		Dupes           *bool `yaml:"dupes"`
		MissingDatetime *bool `yaml:"missing_datetime"`
	} `yaml:"quarantine"`
}

func defaultFormats() Formats {
	return Formats{
		Images: []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".gif", ".webp", ".heic", ".heif", ".avif"},
		RAW:    []string{".dng", ".cr2", ".cr3", ".nef", ".arw", ".raf", ".rw2", ".orf", ".srw"},
		Videos: []string{".mp4", ".mov", ".m4v", ".avi", ".webm", ".mkv"},
	}
}

func defaultStagingRoots() map[string]string {
	return map[string]string{
		"pc":     "pc",
		"icloud": "icloud",
		"sdcard": "sdcard",
		"other":  "other",
	}
}

// defaultDateKeys is the ordered date-tag scan list from spec.md §4.5.
func defaultDateKeys() []string {
	return []string{
		"DateTimeOriginal",
		"CreateDate",
		"MediaCreateDate",
		"TrackCreateDate",
		"QuickTime:CreateDate",
		"QuickTime:CreationDate",
	}
}

func defaultFileDateKeys() []string {
	return []string{"ModifyDate", "FileModifyDate"}
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

// Load reads the YAML document at path. A missing or unparsable file is not
// fatal: per spec.md §7, config-parse errors fall back to all-defaults and
// the caller is expected to log a WARNING (Load returns the parse error
// alongside the default config so the caller can decide how to surface it).
func Load(path string) (*EngineConfig, error) {
	doc := rawDocument{}
	var parseErr error

	data, err := os.ReadFile(path)
	if err != nil {
		parseErr = err
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		parseErr = err
		doc = rawDocument{}
	}

	cfg := resolve(&doc)
	return cfg, parseErr
}

func resolve(doc *rawDocument) *EngineConfig {
	dataDir := doc.Paths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	dataDir = filepath.Clean(dataDir)

	reviewSub := orDefault(doc.Paths.ReviewSubdir, "media/Review")
	stagingSub := orDefault(doc.Paths.StagingSubdir, "media/Staging")
	thumbSub := orDefault(doc.Paths.ThumbSubdir, "thumb-cache")

	var dbPath string
	if doc.Paths.DBPath != "" {
		if filepath.IsAbs(doc.Paths.DBPath) {
			dbPath = doc.Paths.DBPath
		} else {
			dbPath = filepath.Join(dataDir, doc.Paths.DBPath)
		}
	} else {
		dbSub := orDefault(doc.Paths.DBSubdir, "db")
		dbFile := orDefault(doc.Paths.DBFile, "app.sqlite3")
		dbPath = filepath.Join(dataDir, dbSub, dbFile)
	}

	stagingDir := filepath.Join(dataDir, stagingSub)

	roots := defaultStagingRoots()
	for name, sub := range doc.Staging.Roots {
		roots[name] = sub
	}
	resolvedRoots := make(map[string]string, len(roots))
	for name, sub := range roots {
		if filepath.IsAbs(sub) {
			resolvedRoots[name] = sub
		} else {
			resolvedRoots[name] = filepath.Join(stagingDir, sub)
		}
	}

	formats := defaultFormats()
	if len(doc.Formats.Images) > 0 {
		formats.Images = normalizeExts(doc.Formats.Images)
	}
	if len(doc.Formats.RAW) > 0 {
		formats.RAW = normalizeExts(doc.Formats.RAW)
	}
	if len(doc.Formats.Videos) > 0 {
		formats.Videos = normalizeExts(doc.Formats.Videos)
	}

	onDupe := OnReviewDupe(doc.Ingest.OnReviewDupe)
	switch onDupe {
	case OnReviewDupeIgnore, OnReviewDupeQuarantine, OnReviewDupeDelete:
	default:
		onDupe = OnReviewDupeQuarantine
	}

	return &EngineConfig{
		Paths: Paths{
			DataDir:       dataDir,
			ReviewDir:     filepath.Join(dataDir, reviewSub),
			StagingDir:    stagingDir,
			ThumbDir:      filepath.Join(dataDir, thumbSub),
			DBPath:        dbPath,
			QuarantineDir: filepath.Join(dataDir, "media", "Quarantine"),
		},
		StagingRoots: resolvedRoots,
		Formats:      formats,
		Ingest: Ingest{
			DryRunDefault:      boolOr(doc.Ingest.DryRunDefault, true),
			AllowFileDates:     doc.Ingest.AllowFileDates,
			AllowFilenameDates: doc.Ingest.AllowFilenameDates,
			OnReviewDupe:       onDupe,
		},
		Quarantine: QuarantineToggles{
			Junk:            boolOr(doc.Quarantine.Junk, true),
			UnsupportedExt:  boolOr(doc.Quarantine.UnsupportedExt, true),
			ZeroBytes:       boolOr(doc.Quarantine.ZeroBytes, true),
			StatError:       boolOr(doc.Quarantine.StatError, true),
			MoveFailed:      boolOr(doc.Quarantine.MoveFailed, true),
			Dupes:           boolOr(doc.Quarantine.Dupes, true),
			MissingDatetime: boolOr(doc.Quarantine.MissingDatetime, true),
		},
		DateKeys:     defaultDateKeys(),
		FileDateKeys: defaultFileDateKeys(),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// normalizeExts lowercases and ensures a leading dot on each extension,
// mirroring the original's _norm_ext_list (app/core/config.py).
func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool)
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// ImageOrRawExtensions returns the union of image and RAW extensions. This
// preserves the original's "legacy stats rule" (app/core/config.py: RAW
// extensions count as both 'raw' and 'images') for the out-of-scope
// browsing/stats consumer; the ingest engine itself never calls this.
func (f Formats) ImageOrRawExtensions() map[string]bool {
	out := make(map[string]bool, len(f.Images)+len(f.RAW))
	for _, e := range f.Images {
		out[e] = true
	}
	for _, e := range f.RAW {
		out[e] = true
	}
	return out
}

// AllSupported returns the union of images, RAW, and videos — the set the
// Classifier treats as a Candidate rather than Unsupported.
func (f Formats) AllSupported() map[string]bool {
	out := f.ImageOrRawExtensions()
	for _, e := range f.Videos {
		out[e] = true
	}
	return out
}

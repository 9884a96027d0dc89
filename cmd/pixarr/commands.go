package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adewale/pixarr/internal/catalog"
	"github.com/adewale/pixarr/internal/config"
	"github.com/adewale/pixarr/internal/ingestlog"
	"github.com/adewale/pixarr/internal/metadata"
	"github.com/adewale/pixarr/internal/orchestrator"
)

type ingestFlags struct {
	configPath         string
	write              bool
	dataDir            string
	logsDir            string
	logLevel           string
	verbose            bool
	quiet              bool
	jsonLogs           bool
	heartbeat          int
	note               string
	onReviewDupe       string
	allowFileDates     bool
	allowFilenameDates bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "pixarr",
		Short:   "Pixarr media ingest engine",
		Version: version,
	}
	root.AddCommand(newIngestCommand())
	return root
}

func newIngestCommand() *cobra.Command {
	f := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest [sources...]",
		Short: "Walk staging roots and place accepted media into Review",
		Long: "Ingest scans one or more staging roots (bare labels like \"pc\", " +
			"labeled paths, subpaths under staging, or absolute paths) and runs " +
			"each candidate file through classification, hashing, metadata " +
			"extraction, deduplication, and placement. With no sources given, " +
			"every configured staging root is scanned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "pixarr.yaml", "configuration document path")
	flags.BoolVar(&f.write, "write", false, "perform moves/copies (default is dry-run)")
	flags.StringVar(&f.dataDir, "data-dir", "", "override paths.data_dir")
	flags.StringVar(&f.logsDir, "logs-dir", "", "directory to write a log file into, in addition to stderr")
	flags.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "shorthand for --log-level debug")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "shorthand for --log-level warn")
	flags.BoolVar(&f.jsonLogs, "json-logs", false, "emit logs as JSON lines instead of text")
	flags.IntVar(&f.heartbeat, "heartbeat", 0, "scanned-file interval between heartbeat log lines (default 500)")
	flags.StringVarP(&f.note, "note", "n", "", "optional note to attach to this ingest batch")
	flags.StringVar(&f.onReviewDupe, "on-review-dupe", "", "override ingest.on_review_dupe: ignore, quarantine, delete")
	flags.BoolVar(&f.allowFileDates, "allow-file-dates", false, "append file-modify tags to the date-key list")
	flags.BoolVar(&f.allowFilenameDates, "allow-filename-dates", false, "enable the filename-pattern date fallback")

	return cmd
}

func runIngest(f *ingestFlags, sourceArgs []string) error {
	cfg, cfgErr := config.Load(f.configPath)

	if f.dataDir != "" {
		cfg.Paths.DataDir = filepath.Clean(f.dataDir)
	}
	if f.onReviewDupe != "" {
		cfg.Ingest.OnReviewDupe = config.OnReviewDupe(f.onReviewDupe)
	}
	if f.allowFileDates {
		cfg.Ingest.AllowFileDates = true
	}
	if f.allowFilenameDates {
		cfg.Ingest.AllowFilenameDates = true
	}
	dryRun := cfg.Ingest.DryRunDefault
	if f.write {
		dryRun = false
	}

	logger, err := ingestlog.New(resolveLevel(f), f.jsonLogs, f.logsDir)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	if cfgErr != nil {
		logger.WithError(cfgErr).Warn("config parse error, falling back to defaults")
	}

	if err := ensureDirs(cfg); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}

	extractor, err := metadata.NewExtractor()
	if err != nil {
		return fmt.Errorf("metadata tool unavailable: %w", err)
	}
	defer extractor.Close()

	db, err := catalog.Open(cfg.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer db.Close()

	engine := orchestrator.NewEngine(cfg, db, extractor, logger, dryRun, f.heartbeat)

	sources, err := resolveSources(cfg, sourceArgs)
	if err != nil {
		return err
	}

	var note *string
	if f.note != "" {
		note = &f.note
	}

	for _, src := range sources {
		stats, err := engine.ProcessSource(src.label, src.path, note)
		if err != nil {
			logger.WithError(err).WithField("source", src.label).Error("source ingest failed")
			continue
		}
		logger.WithFields(logrus.Fields{
			"source":       src.label,
			"scanned":      stats.Scanned,
			"moved":        stats.Moved,
			"updated":      stats.Updated,
			"skipped_dupe": stats.SkippedDupe,
			"quarantined":  stats.Quarantined,
			"duration":     stats.Duration().Round(1e6).String(),
		}).Info("source ingest complete")
	}

	return nil
}

func resolveLevel(f *ingestFlags) logrus.Level {
	switch {
	case f.verbose:
		return logrus.DebugLevel
	case f.quiet:
		return logrus.WarnLevel
	}
	if lvl, err := logrus.ParseLevel(f.logLevel); err == nil {
		return lvl
	}
	return logrus.InfoLevel
}

func ensureDirs(cfg *config.EngineConfig) error {
	for _, dir := range []string{cfg.Paths.ReviewDir, cfg.Paths.QuarantineDir, filepath.Dir(cfg.Paths.DBPath)} {
		if err := mkdirAll(dir); err != nil {
			return err
		}
	}
	return nil
}

type namedSource struct {
	label string
	path  string
}

// resolveSources maps the CLI's bare positional arguments onto staging
// roots, per spec.md §6: a label ("pc") matches a configured staging root
// by name; anything else is treated as a path (subpath under staging, or
// absolute) to scan directly. An empty list means every configured root.
func resolveSources(cfg *config.EngineConfig, args []string) ([]namedSource, error) {
	if len(args) == 0 {
		out := make([]namedSource, 0, len(cfg.StagingRoots))
		for label, path := range cfg.StagingRoots {
			out = append(out, namedSource{label: label, path: path})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no staging roots configured")
		}
		return out, nil
	}

	out := make([]namedSource, 0, len(args))
	for _, arg := range args {
		if path, ok := cfg.StagingRoots[arg]; ok {
			out = append(out, namedSource{label: arg, path: path})
			continue
		}
		label := arg
		path := arg
		if filepath.IsAbs(arg) {
			label = filepath.Base(strings.TrimSuffix(arg, string(filepath.Separator)))
		} else {
			path = filepath.Join(cfg.Paths.StagingDir, arg)
		}
		out = append(out, namedSource{label: label, path: path})
	}
	return out, nil
}

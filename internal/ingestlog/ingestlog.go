// Package ingestlog builds the structured logger the ingest engine uses
// for every log record. Grounded on the teacher's quality.Logger (an
// always-on-or-off NDJSON file writer) for the shape of a small toggleable
// logger, built on logrus for the mechanism since spec.md §6 needs leveled
// verbosity and a JSON/text format switch the teacher's bespoke logger
// never had to support.
package ingestlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger at the given level. When logsDir is non-empty,
// output is written to both stderr and a timestamped file under logsDir
// (logs/pixarr-YYYYMMDD_HHMMSS.log per spec.md §6); otherwise stderr only.
func New(level logrus.Level, jsonOutput bool, logsDir string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(level)

	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if logsDir == "" {
		logger.SetOutput(os.Stderr)
		return logger, nil
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir %s: %w", logsDir, err)
	}
	name := fmt.Sprintf("pixarr-%s.log", time.Now().UTC().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))

	return logger, nil
}

// BatchFields returns the logrus.Fields every record in one source's
// ingest batch should carry, per spec.md §4.9.
func BatchFields(ingestID, source string) logrus.Fields {
	return logrus.Fields{"ingest_id": ingestID, "source": source}
}

package orchestrator

import (
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adewale/pixarr/internal/dedup"
	"github.com/adewale/pixarr/pkg/models"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}

func (e *Engine) addSighting(flog *logrus.Entry, mediaID, sourceLabel, root, path, ingestID string) {
	s := &models.Sighting{
		MediaID:    mediaID,
		SourceRoot: root,
		FullPath:   path,
		Filename:   filenameOf(path),
		SeenAt:     time.Now().UTC(),
		IngestID:   ingestID,
	}
	if err := e.Catalog.InsertSighting(s); err != nil {
		flog.WithError(err).Error("failed to record sighting")
	}
}

// rejectPreHash handles a file rejected before a content hash (and
// therefore before a media row) exists: junk, unsupported extension, a
// stat error, or a zero-byte file. There is no catalog row to update in
// these cases, only the file move (if the toggle is enabled) and a log
// line (if it is not).
func (e *Engine) rejectPreHash(flog *logrus.Entry, ingestID, path, reason string, enabled bool) Outcome {
	if !enabled {
		flog.WithField("reason", reason).Warn("rejected, quarantine disabled for this reason")
		return nil
	}
	if e.DryRun {
		flog.WithField("reason", reason).Info("[DRY] quarantine")
		return Quarantined{Reason: reason}
	}
	dest, err := quarantineFile(e, path, reason, ingestID, "")
	if err != nil {
		flog.WithError(err).Error("quarantine failed")
		return Quarantined{Reason: reason}
	}
	return Quarantined{Reason: reason, Path: dest}
}

// rejectMissingDate handles the "candidate lacks date" branch of the state
// machine in spec.md §4.7: a media row is created in state=quarantine with
// quarantine_reason=missing_datetime (regardless of whether the toggle lets
// the file itself move), since the row must exist for re-run idempotence.
func (e *Engine) rejectMissingDate(flog *logrus.Entry, ingestID, sourceLabel, root, path, fileHash string, contentHash *string, size int64) Outcome {
	ext := fileExt(path)
	rec := &models.MediaRecord{
		HashSHA256: fileHash, ContentSHA256: contentHash, Ext: ext, Bytes: size,
		State: models.StateQuarantine,
	}
	mediaID, _, _, err := e.Catalog.UpsertMedia(rec)
	if err != nil {
		flog.WithError(err).Error("catalog upsert failed for missing-date rejection")
	} else {
		reason := "missing_datetime"
		if err := e.Catalog.Quarantine(mediaID, reason, nil, time.Now().UTC()); err != nil {
			flog.WithError(err).Error("failed to mark media row quarantined")
		}
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
	}

	if !e.Config.Quarantine.MissingDatetime {
		flog.Warn("missing capture date, quarantine disabled for this reason")
		return Quarantined{Reason: "missing_datetime"}
	}
	if e.DryRun {
		flog.Info("[DRY] quarantine missing_datetime")
		return Quarantined{Reason: "missing_datetime"}
	}
	dest, err := quarantineFile(e, path, "missing_datetime", ingestID, "")
	if err != nil {
		flog.WithError(err).Error("quarantine failed")
		return Quarantined{Reason: "missing_datetime"}
	}
	if mediaID != "" {
		if err := e.Catalog.Quarantine(mediaID, "missing_datetime", &dest, time.Now().UTC()); err != nil {
			flog.WithError(err).Error("failed to record canonical_path for quarantined file")
		}
	}
	return Quarantined{Reason: "missing_datetime", Path: dest}
}

// handleDuplicate dispatches on a dedup.Decision's Action, per the policy
// matrix in spec.md §4.6.
func (e *Engine) handleDuplicate(flog *logrus.Entry, ingestID, sourceLabel, root, path string, decision dedup.Decision) Outcome {
	mediaID := ""
	if decision.DupeOf != nil {
		mediaID = decision.DupeOf.ID
	}
	basis := decision.Basis
	if basis == "" {
		basis = dedup.BasisFile
	}
	extra := fmt.Sprintf("basis=%s dupe_of=%s", basis, mediaID)

	switch decision.Action {
	case dedup.ActionIgnore:
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
		if err := e.Catalog.TouchLastVerified(mediaID, time.Now().UTC()); err != nil {
			flog.WithError(err).Error("failed to touch last_verified_at")
		}
		return SkippedDup{MediaID: mediaID}

	case dedup.ActionDelete:
		if e.DryRun {
			flog.WithField("reason", decision.Reason).Info("[DRY] delete duplicate")
			return Quarantined{Reason: string(decision.Reason)}
		}
		if err := deleteFile(path); err != nil {
			flog.WithError(err).Error("delete failed, quarantining as move_failed")
			return e.quarantineMoveFailed(flog, ingestID, "", path)
		}
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
		return SkippedDup{MediaID: mediaID}

	default: // ActionQuarantine
		e.addSighting(flog, mediaID, sourceLabel, root, path, ingestID)
		if e.DryRun {
			flog.WithField("reason", decision.Reason).Info("[DRY] quarantine duplicate")
			return Quarantined{Reason: string(decision.Reason)}
		}
		dest, err := quarantineFile(e, path, string(decision.Reason), ingestID, extra)
		if err != nil {
			flog.WithError(err).Error("quarantine failed")
			return Quarantined{Reason: string(decision.Reason)}
		}
		return Quarantined{Reason: string(decision.Reason), Path: dest}
	}
}

func (e *Engine) quarantineMoveFailed(flog *logrus.Entry, ingestID, mediaID, path string) Outcome {
	dest, err := quarantineFile(e, path, "move_failed", ingestID, "")
	if err != nil {
		flog.WithError(err).Error("move_failed quarantine itself failed")
		return Quarantined{Reason: "move_failed"}
	}
	if mediaID != "" {
		if err := e.Catalog.Quarantine(mediaID, "move_failed", &dest, time.Now().UTC()); err != nil {
			flog.WithError(err).Error("failed to mark media row move_failed")
		}
	}
	return Quarantined{Reason: "move_failed", Path: dest}
}

// Package catalog is the single source of truth for what the ingest
// engine has already placed or rejected. State mutations go through
// UpsertMedia, InsertSighting and Begin/FinishIngest, per spec.md §4.7,
// plus Quarantine and TouchLastVerified for rows that already exist; each
// is a single statement or a single transaction.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/adewale/pixarr/pkg/models"
)

// DB wraps the SQLite connection, same embedding style as the teacher's
// database.DB.
type DB struct {
	*sql.DB
}

// Open creates (or attaches to) the catalog at path, applies the PRAGMA set
// spec.md §4.7 and the original's ensure_db require, and runs the schema
// and additive-column migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{sqlDB}
	for _, c := range additiveColumns {
		if err := db.ensureColumn(c.table, c.column, c.definition); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("ensure column %s.%s: %w", c.table, c.column, err)
		}
	}

	return db, nil
}

// ensureColumn adds column to table if PRAGMA table_info doesn't already
// list it. Ported from the original's ensure_column; safe to call every
// startup since it's a no-op once the column exists.
func (db *DB) ensureColumn(table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// MediaID returns the deterministic UUIDv5 the original computed as
// uuid.uuid5(uuid.NAMESPACE_DNS, hash_hex).
func MediaID(hashSHA256 string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(hashSHA256)).String()
}

// UpsertMedia inserts a new media row keyed by HashSHA256, or — if one
// already exists — updates it with COALESCE semantics for taken_at,
// gps_lat, gps_lon, content_sha256, and canonical_path, preserving state
// once it has reached library/quarantine/deleted. Single statement, per
// spec.md §9's design note: mattn/go-sqlite3 supports ON CONFLICT, so the
// original's insert-then-catch-IntegrityError-then-update dance collapses
// into one round trip.
func (db *DB) UpsertMedia(rec *models.MediaRecord) (id string, state models.State, canonicalPath *string, err error) {
	tx, err := db.Begin()
	if err != nil {
		return "", "", nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = MediaID(rec.HashSHA256)
	}

	_, err = tx.Exec(`
		INSERT INTO media (
			id, hash_sha256, content_sha256, ext, bytes, taken_at, tz_offset,
			gps_lat, gps_lon, state, canonical_path, added_at, updated_at, xmp_written
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash_sha256) DO UPDATE SET
			taken_at       = COALESCE(media.taken_at, excluded.taken_at),
			gps_lat        = COALESCE(media.gps_lat, excluded.gps_lat),
			gps_lon        = COALESCE(media.gps_lon, excluded.gps_lon),
			content_sha256 = COALESCE(media.content_sha256, excluded.content_sha256),
			canonical_path = COALESCE(excluded.canonical_path, media.canonical_path),
			state = CASE
				WHEN media.state IN ('library', 'quarantine', 'deleted') THEN media.state
				ELSE excluded.state
			END,
			updated_at = excluded.updated_at
	`,
		rec.ID, rec.HashSHA256, nullString(rec.ContentSHA256), rec.Ext, rec.Bytes,
		nullTime(rec.TakenAt), nullString(rec.TZOffset),
		nullFloat(rec.GPSLat), nullFloat(rec.GPSLon),
		string(rec.State), nullString(rec.CanonicalPath),
		now, now, rec.XMPWritten,
	)
	if err != nil {
		return "", "", nil, fmt.Errorf("upsert media: %w", err)
	}

	row := tx.QueryRow("SELECT id, state, canonical_path FROM media WHERE hash_sha256 = ?", rec.HashSHA256)
	var gotID, gotState string
	var gotPath sql.NullString
	if err := row.Scan(&gotID, &gotState, &gotPath); err != nil {
		return "", "", nil, fmt.Errorf("read upserted media: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", nil, fmt.Errorf("commit upsert: %w", err)
	}

	var pathPtr *string
	if gotPath.Valid {
		pathPtr = &gotPath.String
	}
	return gotID, models.State(gotState), pathPtr, nil
}

// FindByFileHash finds the media record matching hashSHA256 among states
// {library, review}, preferring library.
func (db *DB) FindByFileHash(hashSHA256 string) (*models.MediaRecord, error) {
	return db.findOne("hash_sha256", hashSHA256)
}

// FindByContentHash finds the media record matching contentSHA256 among
// states {library, review}, preferring library.
func (db *DB) FindByContentHash(contentSHA256 string) (*models.MediaRecord, error) {
	return db.findOne("content_sha256", contentSHA256)
}

func (db *DB) findOne(column, value string) (*models.MediaRecord, error) {
	row := db.QueryRow(fmt.Sprintf(`
		SELECT id, hash_sha256, content_sha256, ext, bytes, taken_at, tz_offset,
		       gps_lat, gps_lon, state, canonical_path, quarantine_reason,
		       added_at, updated_at, last_verified_at, xmp_written
		FROM media
		WHERE %s = ? AND state IN ('library', 'review')
		ORDER BY CASE state WHEN 'library' THEN 0 ELSE 1 END
		LIMIT 1
	`, column), value)

	rec, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanMedia(row *sql.Row) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	var contentHash, tzOffset, canonicalPath, quarantineReason sql.NullString
	var takenAt, lastVerified sql.NullTime
	var state string
	var xmpWritten int

	err := row.Scan(
		&rec.ID, &rec.HashSHA256, &contentHash, &rec.Ext, &rec.Bytes, &takenAt, &tzOffset,
		&nullableFloat{&rec.GPSLat}, &nullableFloat{&rec.GPSLon}, &state, &canonicalPath, &quarantineReason,
		&rec.AddedAt, &rec.UpdatedAt, &lastVerified, &xmpWritten,
	)
	if err != nil {
		return nil, err
	}

	rec.State = models.State(state)
	rec.XMPWritten = xmpWritten != 0
	if contentHash.Valid {
		rec.ContentSHA256 = &contentHash.String
	}
	if tzOffset.Valid {
		rec.TZOffset = &tzOffset.String
	}
	if canonicalPath.Valid {
		rec.CanonicalPath = &canonicalPath.String
	}
	if quarantineReason.Valid {
		rec.QuarantineReason = &quarantineReason.String
	}
	if takenAt.Valid {
		rec.TakenAt = &takenAt.Time
	}
	if lastVerified.Valid {
		rec.LastVerifiedAt = &lastVerified.Time
	}
	return &rec, nil
}

// InsertSighting records that mediaID was seen at fullPath during ingestID.
func (db *DB) InsertSighting(s *models.Sighting) error {
	_, err := db.Exec(`
		INSERT INTO sightings (media_id, source_root, full_path, filename, folder_hint, seen_at, ingest_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.MediaID, s.SourceRoot, s.FullPath, s.Filename, nullString(s.FolderHint), s.SeenAt, s.IngestID)
	return err
}

// TouchLastVerified updates last_verified_at for a media row already
// known to be a duplicate, without disturbing its state.
func (db *DB) TouchLastVerified(mediaID string, at time.Time) error {
	_, err := db.Exec("UPDATE media SET last_verified_at = ?, updated_at = ? WHERE id = ?", at, at, mediaID)
	return err
}

// Quarantine marks a media row quarantined with reason, matching the
// original's "quarantine always wins" state transition.
func (db *DB) Quarantine(mediaID, reason string, canonicalPath *string, at time.Time) error {
	_, err := db.Exec(
		"UPDATE media SET state = 'quarantine', quarantine_reason = ?, canonical_path = COALESCE(?, canonical_path), updated_at = ? WHERE id = ?",
		reason, nullString(canonicalPath), at, mediaID,
	)
	return err
}

// BeginIngest records the start of a batch and returns its UUIDv4 ID.
func (db *DB) BeginIngest(source string, notes *string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO ingests (id, source, started_at, notes) VALUES (?, ?, ?, ?)",
		id, source, time.Now().UTC(), nullString(notes),
	)
	return id, err
}

// FinishIngest stamps finished_at for a completed batch.
func (db *DB) FinishIngest(ingestID string) error {
	_, err := db.Exec("UPDATE ingests SET finished_at = ? WHERE id = ?", time.Now().UTC(), ingestID)
	return err
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// nullableFloat scans a nullable REAL column into a *float64 field.
type nullableFloat struct {
	dest **float64
}

func (n *nullableFloat) Scan(src interface{}) error {
	if src == nil {
		*n.dest = nil
		return nil
	}
	switch v := src.(type) {
	case float64:
		f := v
		*n.dest = &f
	case int64:
		f := float64(v)
		*n.dest = &f
	default:
		return fmt.Errorf("unsupported type for nullableFloat: %T", src)
	}
	return nil
}

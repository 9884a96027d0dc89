package catalog

// Schema replaces the teacher's photo-library tables (photos, thumbnails,
// photo_colors, burst_groups, tags, collections, facet_metadata) with the
// three tables spec.md §4.7 needs: media, sightings, ingests.
const schema = `
CREATE TABLE IF NOT EXISTS media (
    id TEXT PRIMARY KEY,
    hash_sha256 TEXT UNIQUE NOT NULL,
    content_sha256 TEXT,
    ext TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    taken_at DATETIME,
    tz_offset TEXT,
    gps_lat REAL,
    gps_lon REAL,
    state TEXT NOT NULL DEFAULT 'review',
    canonical_path TEXT,
    quarantine_reason TEXT,
    added_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    last_verified_at DATETIME,
    xmp_written INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_media_content_sha256 ON media(content_sha256);
CREATE INDEX IF NOT EXISTS idx_media_state ON media(state);

CREATE TABLE IF NOT EXISTS sightings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    media_id TEXT NOT NULL REFERENCES media(id),
    source_root TEXT NOT NULL,
    full_path TEXT NOT NULL,
    filename TEXT NOT NULL,
    folder_hint TEXT,
    seen_at DATETIME NOT NULL,
    ingest_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sightings_media_id ON sightings(media_id);

CREATE TABLE IF NOT EXISTS ingests (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    notes TEXT
);
`

// additiveColumns mirrors the original's ensure_column calls: columns that
// may be missing from a catalog created by an older schema version. Safe to
// run every startup.
var additiveColumns = []struct {
	table, column, definition string
}{
	{"sightings", "folder_hint", "TEXT"},
	{"sightings", "ingest_id", "TEXT"},
	{"media", "quarantine_reason", "TEXT"},
	{"media", "content_sha256", "TEXT"},
	{"media", "tz_offset", "TEXT"},
	{"media", "xmp_written", "INTEGER NOT NULL DEFAULT 0"},
}

// Package timeresolve determines a capture time for one file: first from
// the configured EXIF/QuickTime date-key tags, then, if enabled, from a
// recognized filename pattern.
package timeresolve

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultDateKeys is the order the Metadata Reader's tag map is scanned in.
// Grounded on the original's extract_taken_at, which scanned only the first
// four; the distilled spec adds the QuickTime pair.
func DefaultDateKeys() []string {
	return []string{
		"DateTimeOriginal", "CreateDate", "MediaCreateDate",
		"TrackCreateDate", "QuickTime:CreateDate", "QuickTime:CreationDate",
	}
}

// FileDateKeys is appended to the date-key tail when allow_file_dates is
// enabled. These are filesystem/container dates, not camera-origin dates.
func FileDateKeys() []string {
	return []string{"ModifyDate", "FileModifyDate"}
}

var sentinelPrefixes = []string{"0000:00:00", "0001:01:01", "1970:01:01"}

// filenamePatterns is tried in order, first match wins, per spec.md §8.
var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`PHOTO-(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})`),
	regexp.MustCompile(`IMG_(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`),
	regexp.MustCompile(`Screenshot_(\d{4})(\d{2})(\d{2})-(\d{2})(\d{2})(\d{2})`),
	regexp.MustCompile(`(?:^|[^0-9])(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})(?:[^0-9]|$)`),
}

// Resolve scans tags in dateKeys order, falling back to the filename
// pattern set when allowFilenameDates is true and no tag produced a usable
// value. It returns ok=false when nothing resolved.
func Resolve(path string, tags map[string]string, dateKeys []string, allowFilenameDates bool) (time.Time, bool) {
	for _, key := range dateKeys {
		raw, present := tags[key]
		if !present {
			continue
		}
		if t, ok := ParseCaptureDate(raw); ok {
			return t, true
		}
	}

	if allowFilenameDates {
		if t, ok := fromFilename(filepath.Base(path)); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseCaptureDate accepts "YYYY:MM:DD[ T]HH:MM:SS[.fraction][Z|±HH:MM]" or
// a standard ISO-8601 string, rejects known sentinel values, and normalizes
// "+HHMM"-style offsets to "+HH:MM" before parsing.
func ParseCaptureDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(strings.Trim(raw, "\x00"))
	if s == "" {
		return time.Time{}, false
	}
	for _, prefix := range sentinelPrefixes {
		if strings.HasPrefix(s, prefix) {
			return time.Time{}, false
		}
	}

	s = normalizeOffset(s)
	// EXIF's "YYYY:MM:DD" date component must become "YYYY-MM-DD" for
	// time.Parse's RFC3339-family layouts; the separator between date and
	// time (space or 'T') is preserved.
	if len(s) >= 10 && s[4] == ':' && s[7] == ':' {
		s = s[0:4] + "-" + s[5:7] + "-" + s[8:]
	}
	s = strings.Replace(s, " ", "T", 1)

	layouts := []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeOffset turns a trailing "+HHMM"/"-HHMM" offset into "+HH:MM" so
// the RFC3339 layouts above can parse it.
func normalizeOffset(s string) string {
	if len(s) < 5 {
		return s
	}
	tail := s[len(s)-5:]
	sign := tail[0]
	if sign != '+' && sign != '-' {
		return s
	}
	digits := tail[1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[:len(s)-5] + string(sign) + digits[0:2] + ":" + digits[2:4]
}

func fromFilename(name string) (time.Time, bool) {
	for _, pat := range filenamePatterns {
		m := pat.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		layout := "2006-01-02T15:04:05"
		candidate := m[1] + "-" + m[2] + "-" + m[3] + "T" + m[4] + ":" + m[5] + ":" + m[6]
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

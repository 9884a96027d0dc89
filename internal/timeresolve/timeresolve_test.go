package timeresolve

import (
	"testing"
	"time"
)

func TestParseCaptureDateExifFormat(t *testing.T) {
	got, ok := ParseCaptureDate("2024:07:08 08:00:38")
	if !ok {
		t.Fatal("expected a parse")
	}
	want := time.Date(2024, 7, 8, 8, 0, 38, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseCaptureDateISO8601(t *testing.T) {
	got, ok := ParseCaptureDate("2024-07-08T08:00:38Z")
	if !ok {
		t.Fatal("expected a parse")
	}
	if got.Year() != 2024 || got.Month() != 7 || got.Day() != 8 {
		t.Errorf("got %v", got)
	}
}

func TestParseCaptureDateNormalizesOffset(t *testing.T) {
	got, ok := ParseCaptureDate("2024:07:08 08:00:38+0200")
	if !ok {
		t.Fatal("expected a parse")
	}
	_, offset := got.Zone()
	if offset != 2*3600 {
		t.Errorf("got offset %d, want 7200", offset)
	}
}

func TestParseCaptureDateRejectsSentinels(t *testing.T) {
	for _, bad := range []string{"0000:00:00 00:00:00", "0001:01:01 00:00:00", "1970:01:01 00:00:00"} {
		if _, ok := ParseCaptureDate(bad); ok {
			t.Errorf("expected sentinel %q to be rejected", bad)
		}
	}
}

func TestParseCaptureDateRejectsEmpty(t *testing.T) {
	if _, ok := ParseCaptureDate(""); ok {
		t.Error("expected empty string to be rejected")
	}
}

func TestResolvePrefersDateTimeOriginal(t *testing.T) {
	tags := map[string]string{
		"CreateDate":       "2024:01:01 00:00:00",
		"DateTimeOriginal": "2024:07:08 08:00:38",
	}
	got, ok := Resolve("IMG_0001.jpg", tags, DefaultDateKeys(), false)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if got.Month() != 7 || got.Day() != 8 {
		t.Errorf("expected DateTimeOriginal to win, got %v", got)
	}
}

func TestResolveFallsThroughToNextKeyOnSentinel(t *testing.T) {
	tags := map[string]string{
		"DateTimeOriginal": "0000:00:00 00:00:00",
		"CreateDate":       "2024:07:08 08:00:38",
	}
	got, ok := Resolve("IMG_0001.jpg", tags, DefaultDateKeys(), false)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if got.Month() != 7 {
		t.Errorf("expected fallthrough to CreateDate, got %v", got)
	}
}

func TestResolveFilenameFallback(t *testing.T) {
	_, ok := Resolve("IMG_20240708_080038.jpg", map[string]string{}, DefaultDateKeys(), false)
	if ok {
		t.Fatal("expected no resolution when allow_filename_dates is disabled")
	}

	got, ok := Resolve("IMG_20240708_080038.jpg", map[string]string{}, DefaultDateKeys(), true)
	if !ok {
		t.Fatal("expected filename fallback to resolve")
	}
	want := time.Date(2024, 7, 8, 8, 0, 38, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveNoMatchReturnsFalse(t *testing.T) {
	_, ok := Resolve("random.jpg", map[string]string{}, DefaultDateKeys(), true)
	if ok {
		t.Error("expected no resolution for an unrecognized filename")
	}
}

package logsel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

func writeLogs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func fixedClock(date string) func() time.Time {
	return func() time.Time {
		d, _ := time.Parse(DateLayout, date)
		return d.Add(15 * time.Hour)
	}
}

func TestRead_ExactContent(t *testing.T) {
	dir := t.TempDir()
	body := "line one\n\tline two with <html> & stuff\n\x00binary tail"
	writeLogs(t, dir, map[string]string{
		"app-2024-03-20.log": body,
		"app-2024-03-21.log": "other day",
	})

	rec, err := New(dir).Read("2024-03-20")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(rec.Content, []byte(body)) {
		t.Errorf("content mismatch: %q", rec.Content)
	}
	if rec.Name != "app-2024-03-20.log" {
		t.Errorf("Name = %s", rec.Name)
	}
	if rec.Date != "2024-03-20" {
		t.Errorf("Date = %s", rec.Date)
	}
	if rec.Matches != 1 {
		t.Errorf("Matches = %d", rec.Matches)
	}
}

func TestRead_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-03-21.log":    "x",
		"app-2024-03-20.log.gz": "compressed",
		"app-2024-03-20.txt":    "wrong suffix",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested-2024-03-20.log"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir).Read("2024-03-20")
	if !nberrors.Is(err, nberrors.ErrLogNotFound) {
		t.Fatalf("expected LOG_NOT_FOUND, got %v", err)
	}
}

func TestRead_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent")).Read("2024-03-20")
	if !nberrors.Is(err, nberrors.ErrLogNotFound) {
		t.Fatalf("expected LOG_NOT_FOUND, got %v", err)
	}
}

func TestRead_NotRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeLogs(t, sub, map[string]string{"app-2024-03-20.log": "deep"})

	_, err := New(dir).Read("2024-03-20")
	if !nberrors.Is(err, nberrors.ErrLogNotFound) {
		t.Fatalf("subdirectories must not be searched, got %v", err)
	}
}

func TestRead_FirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"zeta-2024-03-20.log":  "zeta",
		"alpha-2024-03-20.log": "alpha",
		"mid-2024-03-20.log":   "mid",
	})

	rec, err := New(dir).Read("2024-03-20")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rec.Name != "alpha-2024-03-20.log" {
		t.Errorf("expected lexically first file, got %s", rec.Name)
	}
	if rec.Matches != 3 {
		t.Errorf("Matches = %d, want 3", rec.Matches)
	}
}

func TestRead_DefaultsToToday(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"backup-2026-10-17.log": "today",
		"backup-2026-10-16.log": "yesterday",
	})

	s := &Selector{Dir: dir, Now: fixedClock("2026-10-17")}
	rec, err := s.Read("")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rec.Date != "2026-10-17" || string(rec.Content) != "today" {
		t.Errorf("got %s %q", rec.Date, rec.Content)
	}
}

func TestRead_ResolvesDateOnce(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"backup-2026-10-17.log": "today",
		"backup-2026-10-18.log": "tomorrow",
	})

	day := time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC)
	calls := 0
	s := &Selector{Dir: dir, Now: func() time.Time {
		calls++
		return day.AddDate(0, 0, calls-1)
	}}

	rec, err := s.Read("")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("clock read %d times, want 1", calls)
	}
	if rec.Date != "2026-10-17" || rec.Name != "backup-2026-10-17.log" {
		t.Errorf("record date %s does not match file %s", rec.Date, rec.Name)
	}
}

func TestEffectiveDate(t *testing.T) {
	s := &Selector{Now: fixedClock("2025-01-02")}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"empty uses clock", "", "2025-01-02", false},
		{"whitespace uses clock", "  ", "2025-01-02", false},
		{"explicit", "2024-03-20", "2024-03-20", false},
		{"wrong layout", "20-03-2024", "", true},
		{"impossible date", "2024-02-30", "", true},
		{"garbage", "yesterday", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.EffectiveDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !nberrors.Is(err, nberrors.ErrValidation) {
					t.Errorf("expected VALIDATION error, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEffectiveDate_WallClock(t *testing.T) {
	before := time.Now().Format(DateLayout)
	got, err := New(t.TempDir()).EffectiveDate("")
	after := time.Now().Format(DateLayout)
	if err != nil {
		t.Fatal(err)
	}
	if got != before && got != after {
		t.Errorf("EffectiveDate = %s, want %s", got, before)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"app-2024-03-20.log", true},
		{"2024-03-20.log", true},
		{"2024-03-20-nightly.log", true},
		{"app-2024-03-20.log.1", false},
		{"app-2024-03-21.log", false},
		{"app.log", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.name, "2024-03-20"); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

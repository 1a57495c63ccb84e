package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hevc-shrink/internal/history"
)

// =============================================================================
// Helpers
// =============================================================================

type fakeJournal struct {
	entries []history.Entry
	totals  history.Totals
	err     error
	limit   int
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeJournal) Totals(_ context.Context) (history.Totals, error) {
	return f.totals, f.err
}

func sampleEntries() []history.Entry {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []history.Entry{
		{
			Path: "/v/movie.avi", Status: history.StatusConverted,
			InputSize: 5 << 30, OutputSize: 2 << 30, FinalPath: "/v/movie.mp4", RecordedAt: at,
		},
		{
			Path: "/v/clip.mp4", Status: history.StatusFailed, Reason: history.ReasonNoImprovement,
			InputSize: 5 << 30, RecordedAt: at.Add(-time.Hour),
		},
	}
}

// =============================================================================
// Command parsing
// =============================================================================

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"recent", "recent"},
		{"stats-now_1", "stats-now_1"},
		{"rm -rf /", "rm_-rf__"},
		{"a\nb", "a_b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"default", nil, defaultRecent, false},
		{"explicit", []string{"5"}, 5, false},
		{"capped", []string{"999999"}, maxRecent, false},
		{"zero", []string{"0"}, 0, true},
		{"negative", []string{"-3"}, 0, true},
		{"not a number", []string{"ten"}, 0, true},
		{"too many", []string{"1", "2"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLimit(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, want := range []string{"recent", "stats", "HISTORY_DB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

// =============================================================================
// Output
// =============================================================================

func TestShowRecent_Human(t *testing.T) {
	j := &fakeJournal{entries: sampleEntries()}
	var buf bytes.Buffer
	if !showRecent(context.Background(), j, &buf, 10, true) {
		t.Fatal("showRecent() = false")
	}
	out := buf.String()
	for _, want := range []string{"STATUS", "converted", "-> /v/movie.mp4", "no_improvement", "3G", "/v/clip.mp4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if j.limit != 10 {
		t.Errorf("limit = %d, want 10", j.limit)
	}
}

func TestShowRecent_Plain(t *testing.T) {
	j := &fakeJournal{entries: sampleEntries()}
	var buf bytes.Buffer
	if !showRecent(context.Background(), j, &buf, 1, false) {
		t.Fatal("showRecent() = false")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 6 {
		t.Fatalf("got %d fields, want 6: %q", len(fields), lines[0])
	}
	if fields[0] != "2026-03-01T12:00:00Z" || fields[1] != "converted" || fields[5] != "/v/movie.avi" {
		t.Errorf("unexpected fields %q", fields)
	}
}

func TestShowRecent_Empty(t *testing.T) {
	var buf bytes.Buffer
	if !showRecent(context.Background(), &fakeJournal{}, &buf, 5, true) {
		t.Fatal("showRecent() = false")
	}
	if !strings.Contains(buf.String(), "No conversions") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	showRecent(context.Background(), &fakeJournal{}, &buf, 5, false)
	if buf.Len() != 0 {
		t.Errorf("plain output should be empty, got %q", buf.String())
	}
}

func TestShowRecent_Error(t *testing.T) {
	var buf bytes.Buffer
	if showRecent(context.Background(), &fakeJournal{err: errors.New("locked")}, &buf, 5, true) {
		t.Error("showRecent() = true on error")
	}
}

func TestShowStats(t *testing.T) {
	j := &fakeJournal{totals: history.Totals{
		ByStatus:   map[string]int{history.StatusConverted: 3, history.StatusSkipped: 7},
		InputBytes: 12 << 30,
		BytesSaved: 5 << 30,
	}}
	var buf bytes.Buffer
	if !showStats(context.Background(), j, &buf) {
		t.Fatal("showStats() = false")
	}
	out := buf.String()
	for _, want := range []string{"Entries:     10", "converted:", "skipped:", "12G", "5G"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "converted") > strings.Index(out, "skipped") {
		t.Error("statuses should be sorted")
	}
}

func TestShowStats_Error(t *testing.T) {
	var buf bytes.Buffer
	if showStats(context.Background(), &fakeJournal{err: errors.New("gone")}, &buf) {
		t.Error("showStats() = true on error")
	}
}

func TestShowRecent_RealDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	for _, e := range sampleEntries() {
		if err := db.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	var buf bytes.Buffer
	if !showRecent(ctx, db, &buf, 5, false) {
		t.Fatal("showRecent() = false")
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("got %d rows, want 2", n)
	}
}

func TestHumanBytes(t *testing.T) {
	if got := humanBytes(0); got != "0B" {
		t.Errorf("humanBytes(0) = %q", got)
	}
	if got := humanBytes(-5); got != "0B" {
		t.Errorf("humanBytes(-5) = %q", got)
	}
	if got := humanBytes(1 << 30); got != "1G" {
		t.Errorf("humanBytes(1G) = %q", got)
	}
}

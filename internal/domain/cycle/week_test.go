package cycle

import (
	"testing"
	"time"
)

func TestWeekNumber(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"mid year", time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC), 42},
		{"first monday 2026", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 2},
		{"jan 1 2021 belongs to 2020-W53", time.Date(2021, 1, 1, 9, 0, 0, 0, time.UTC), 53},
		{"dec 29 2025 belongs to 2026-W01", time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekNumber(tt.at); got != tt.want {
				t.Errorf("WeekNumber(%s) = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}

func TestWeekIDDisambiguatesYears(t *testing.T) {
	a := WeekID(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	b := WeekID(time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC))
	if a != b || a != 202053 {
		t.Fatalf("expected both dates in 202053, got %d and %d", a, b)
	}

	next := WeekID(time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC))
	if next != 202101 {
		t.Fatalf("expected 202101, got %d", next)
	}
}

func TestWeekNumberIsPure(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 59, 59, 0, time.FixedZone("CET", 3600))
	if WeekNumber(at) != WeekNumber(at) || WeekID(at) != WeekID(at) {
		t.Fatal("same timestamp must yield same week")
	}
	// 2026-03-01 23:59 CET is 22:59 UTC on Sunday, still ISO week 9.
	if got := WeekNumber(at); got != 9 {
		t.Fatalf("expected week 9, got %d", got)
	}
}

func TestWeekStart(t *testing.T) {
	got := WeekStart(time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC))
	want := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("WeekStart = %s, want %s", got, want)
	}

	sunday := WeekStart(time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC))
	if !sunday.Equal(want) {
		t.Fatalf("WeekStart(sunday) = %s, want %s", sunday, want)
	}
}

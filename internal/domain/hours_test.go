package domain

import (
	"testing"
	"time"
)

func TestWeeklyHoursWindowFor(t *testing.T) {
	hours, err := NewWeeklyHours([]OpeningHours{
		{Weekday: 1, OpenMinute: 9 * 60, CloseMinute: 17*60 + 30},
		{Weekday: 7, Closed: true},
	}, DefaultOpenHour*time.Hour, DefaultCloseHour*time.Hour)
	if err != nil {
		t.Fatalf("NewWeeklyHours error: %v", err)
	}

	monday := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	w, ok := hours.WindowFor(monday, time.UTC)
	if !ok {
		t.Fatalf("monday should be open")
	}
	if got, want := w.Start, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("start = %v, want %v", got, want)
	}
	if got, want := w.End, time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("end = %v, want %v", got, want)
	}

	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	if _, ok := hours.WindowFor(sunday, time.UTC); ok {
		t.Fatalf("sunday should be closed")
	}

	tuesday := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	w, ok = hours.WindowFor(tuesday, time.UTC)
	if !ok {
		t.Fatalf("tuesday should fall back to defaults")
	}
	if w.Start.Hour() != DefaultOpenHour || w.End.Hour() != DefaultCloseHour {
		t.Fatalf("window = %v..%v, want default hours", w.Start, w.End)
	}
}

func TestWeeklyHoursWindowForUsesBusinessLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	// 02:00 UTC on Tuesday is still Monday evening in New York.
	instant := time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC)
	w, ok := DefaultWeeklyHours().WindowFor(instant, loc)
	if !ok {
		t.Fatalf("expected open day")
	}
	if w.Start.Day() != 2 || w.Start.Location() != loc {
		t.Fatalf("window start = %v, want March 2 in %s", w.Start, loc)
	}
}

func TestNewWeeklyHoursValidation(t *testing.T) {
	tests := []struct {
		name string
		rows []OpeningHours
	}{
		{name: "weekday zero", rows: []OpeningHours{{Weekday: 0, OpenMinute: 0, CloseMinute: 60}}},
		{name: "weekday eight", rows: []OpeningHours{{Weekday: 8, OpenMinute: 0, CloseMinute: 60}}},
		{name: "close before open", rows: []OpeningHours{{Weekday: 2, OpenMinute: 600, CloseMinute: 540}}},
		{name: "past midnight", rows: []OpeningHours{{Weekday: 2, OpenMinute: 600, CloseMinute: 24*60 + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWeeklyHours(tt.rows, 8*time.Hour, 20*time.Hour); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestISOWeekday(t *testing.T) {
	if got := ISOWeekday(time.Sunday); got != 7 {
		t.Fatalf("ISOWeekday(Sunday) = %d, want 7", got)
	}
	if got := ISOWeekday(time.Monday); got != 1 {
		t.Fatalf("ISOWeekday(Monday) = %d, want 1", got)
	}
}

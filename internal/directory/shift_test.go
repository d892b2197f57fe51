package directory

import (
	"testing"
	"time"
)

func TestShift_TodayStart(t *testing.T) {
	s := Shift{StartTime: "09:15:00"}
	ref := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)

	start, err := s.TodayStart(ref, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 5, 9, 15, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("TodayStart = %v, want %v", start, want)
	}
}

func TestShift_TodayStart_InvalidFormat(t *testing.T) {
	s := Shift{StartTime: "not-a-time"}
	if _, err := s.TodayStart(time.Now(), time.UTC); err == nil {
		t.Error("expected error for malformed start_time, got nil")
	}
}

func TestShift_TodayStart_UsesCompanyTimezone(t *testing.T) {
	s := Shift{StartTime: "09:00:00"}
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2026-03-05 01:00 UTC is still 2026-03-04 22:00 in America/Sao_Paulo
	// (UTC-3): TodayStart must bucket by the company's calendar day, not
	// the instant's UTC calendar day.
	ref := time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)

	start, err := s.TodayStart(ref, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 4, 9, 0, 0, 0, loc)
	if !start.Equal(want) {
		t.Errorf("TodayStart = %v, want %v", start, want)
	}
}

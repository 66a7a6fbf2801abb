package domain

import (
	"testing"
	"time"
)

func TestWeekRangeIsMondayAligned(t *testing.T) {
	// Sunday 8 March 2026.
	sunday := time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC)

	start, end := WeekRange(sunday, time.UTC)

	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2028, 2, 17, 0, 0, 0, 0, time.UTC), time.UTC)
	if days := int(end.Sub(start).Hours() / 24); days != 29 {
		t.Errorf("February 2028 has %d days, want 29", days)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tod.On(time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), time.UTC)
	if want := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("On() = %v, want %v", got, want)
	}
	if _, err := ParseTimeOfDay("7.30am"); err == nil {
		t.Errorf("expected error for malformed time")
	}
}

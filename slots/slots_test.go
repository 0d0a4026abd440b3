package slots

import (
	"testing"
	"time"
)

func TestFloor(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "mid-slot rounds down",
			input:    time.Date(2025, 3, 10, 12, 7, 33, 0, time.UTC),
			expected: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "exact boundary unchanged",
			input:    time.Date(2025, 3, 10, 12, 45, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 10, 12, 45, 0, 0, time.UTC),
		},
		{
			name:     "one nanosecond before boundary",
			input:    time.Date(2025, 3, 10, 12, 45, 0, 0, time.UTC).Add(-time.Nanosecond),
			expected: time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			name:     "non-utc input normalized",
			input:    time.Date(2025, 3, 10, 13, 7, 0, 0, time.FixedZone("CET", 3600)),
			expected: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Floor(tt.input); !got.Equal(tt.expected) {
				t.Errorf("Floor(%v) expected %v, got %v", tt.input, tt.expected, got)
			}
		})
	}
}

func TestNextPrev(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 7, 0, 0, time.UTC)
	if got := Next(at); !got.Equal(time.Date(2025, 3, 10, 12, 15, 0, 0, time.UTC)) {
		t.Errorf("Next expected 12:15, got %v", got)
	}
	if got := Prev(at); !got.Equal(time.Date(2025, 3, 10, 11, 45, 0, 0, time.UTC)) {
		t.Errorf("Prev expected 11:45, got %v", got)
	}
}

func TestIsAligned(t *testing.T) {
	if !IsAligned(time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)) {
		t.Error("12:30 should be aligned")
	}
	if IsAligned(time.Date(2025, 3, 10, 12, 30, 1, 0, time.UTC)) {
		t.Error("12:30:01 should not be aligned")
	}
}

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"today", "week", "month", "year"} {
		if _, err := ParsePeriod(valid); err != nil {
			t.Errorf("ParsePeriod(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod should reject unknown period")
	}
}

func TestPeriodBounds(t *testing.T) {
	// Wednesday 2025-06-18, UTC location (the default).
	now := time.Date(2025, 6, 18, 14, 37, 0, 0, time.UTC)

	tests := []struct {
		period Period
		start  time.Time
		end    time.Time
	}{
		{
			period: PeriodToday,
			start:  time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			period: PeriodWeek,
			start:  time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), // Monday
			end:    time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			period: PeriodMonth,
			start:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			period: PeriodYear,
			start:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := PeriodBounds(tt.period, now)
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("PeriodBounds(%s) expected [%v, %v), got [%v, %v)",
					tt.period, tt.start, tt.end, start, end)
			}
		})
	}
}

func TestPeriodBoundsWeekOnSunday(t *testing.T) {
	// Sunday still belongs to the week that started the previous Monday.
	now := time.Date(2025, 6, 22, 10, 0, 0, 0, time.UTC)
	start, end := PeriodBounds(PeriodWeek, now)
	if !start.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week start expected Monday 2025-06-16, got %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week end expected Monday 2025-06-23, got %v", end)
	}
}

func TestInPeriodHalfOpen(t *testing.T) {
	now := time.Date(2025, 6, 18, 14, 0, 0, 0, time.UTC)
	midnight := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	nextMidnight := midnight.AddDate(0, 0, 1)

	if !InPeriod(midnight, PeriodToday, now) {
		t.Error("slot starting at midnight belongs to the new day")
	}
	if InPeriod(nextMidnight, PeriodToday, now) {
		t.Error("slot starting at next midnight is excluded")
	}
	if InPeriod(midnight.Add(-time.Nanosecond), PeriodToday, now) {
		t.Error("instant before midnight is excluded")
	}
}

func TestPeriodBoundsLocalTimezone(t *testing.T) {
	if err := SetLocalTimezone("Europe/Zurich"); err != nil {
		t.Fatalf("SetLocalTimezone failed: %v", err)
	}
	defer func() {
		if err := SetLocalTimezone("UTC"); err != nil {
			t.Fatalf("restoring timezone failed: %v", err)
		}
	}()

	// 2025-06-18 00:30 CEST is 2025-06-17 22:30 UTC, still "yesterday" in UTC
	// but today locally.
	now := time.Date(2025, 6, 17, 22, 30, 0, 0, time.UTC)
	start, _ := PeriodBounds(PeriodToday, now)

	// Local midnight June 18 CEST equals 22:00 UTC June 17.
	expected := time.Date(2025, 6, 17, 22, 0, 0, 0, time.UTC)
	if !start.Equal(expected) {
		t.Errorf("local-midnight start expected %v, got %v", expected, start)
	}
}

func TestSetLocalTimezoneInvalid(t *testing.T) {
	if err := SetLocalTimezone("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

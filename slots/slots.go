package slots

import (
	"fmt"
	"time"
)

// Width is the fixed accounting window. All slot starts are aligned to this
// grid in UTC.
const Width = 15 * time.Minute

var localLocation *time.Location = time.UTC

// SetLocalTimezone sets the civil-time location used for period boundaries
// (today, week, month, year). Default: UTC.
func SetLocalTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	localLocation = loc
	return nil
}

func LocalLocation() *time.Location {
	return localLocation
}

// Floor aligns t down to the 15-minute UTC grid.
func Floor(t time.Time) time.Time {
	return t.UTC().Truncate(Width)
}

func Next(t time.Time) time.Time {
	return Floor(t).Add(Width)
}

func Prev(t time.Time) time.Time {
	return Floor(t).Add(-Width)
}

// IsAligned reports whether t sits exactly on the slot grid.
func IsAligned(t time.Time) bool {
	return t.UTC().Equal(Floor(t))
}

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(str string) (Period, error) {
	switch Period(str) {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(str), nil
	default:
		return "", fmt.Errorf("unknown period %q", str)
	}
}

// PeriodBounds returns the half-open [start, end) instant range for the civil
// period containing now. Boundaries are computed in the local location and
// returned as instants, so comparisons against UTC slot starts stay exact.
func PeriodBounds(period Period, now time.Time) (time.Time, time.Time) {
	local := now.In(localLocation)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, localLocation)

	switch period {
	case PeriodWeek:
		// ISO week: Monday is day one.
		offset := (int(midnight.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, localLocation)
		return start, start.AddDate(0, 1, 0)
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, localLocation)
		return start, start.AddDate(1, 0, 0)
	default:
		return midnight, midnight.AddDate(0, 0, 1)
	}
}

// InPeriod reports whether the instant t falls within the civil period
// containing now.
func InPeriod(t time.Time, period Period, now time.Time) bool {
	start, end := PeriodBounds(period, now)
	return !t.Before(start) && t.Before(end)
}

func FormatLocal(t time.Time) string {
	return t.In(localLocation).Format("2006-01-02 15:04:05")
}

package activity

import (
	"strconv"
	"strings"
	"time"
)

// FixedOffset is the constant UTC offset (KST) that defines a civil day.
// It is not a tz database zone.
const FixedOffset = 9 * time.Hour

// Day is the length of one civil day under a fixed offset.
const Day = 24 * time.Hour

// Supported range for the year parameter.
const (
	MinYear = 2000
	MaxYear = 2100
)

const dayKeyLayout = "2006-01-02"

// civil shifts t so that its UTC components read as the civil clock.
func civil(t time.Time) time.Time {
	return t.UTC().Add(FixedOffset)
}

// DayKey formats the civil date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return civil(t).Format(dayKeyLayout)
}

// CivilYear returns the calendar year of t in the fixed offset.
func CivilYear(t time.Time) int {
	return civil(t).Year()
}

// CivilDate returns the calendar date of t in the fixed offset.
func CivilDate(t time.Time) (int, time.Month, int) {
	return civil(t).Date()
}

// Weekday returns the civil day of week of t, Sunday being 0.
func Weekday(t time.Time) time.Weekday {
	return civil(t).Weekday()
}

// StartOfYear returns the instant of Jan 1 00:00 of year in the fixed offset.
func StartOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-FixedOffset)
}

// YearBounds returns the half-open instant range [start, end) covering year.
func YearBounds(year int) (time.Time, time.Time) {
	return StartOfYear(year), StartOfYear(year + 1)
}

// DaysIn returns 366 for leap years and 365 otherwise.
func DaysIn(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

// CurrentYear is the civil year at now.
func CurrentYear(now time.Time) int {
	return CivilYear(now)
}

// ParseYear normalises a year query parameter. Only the leading optionally
// signed digit run is read, so "2024abc" and "2024.5" both mean 2024. Input
// without leading digits yields the current civil year; parsed values are
// clamped to [MinYear, MaxYear].
func ParseYear(raw string, now time.Time) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '+' || raw[end] == '-') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return CurrentYear(now)
	}
	parsed, err := strconv.Atoi(raw[:end])
	if err != nil {
		// Out of int range; the sign decides which bound applies.
		if raw[0] == '-' {
			return MinYear
		}
		return MaxYear
	}
	return ClampYear(parsed)
}

// ClampYear bounds year to [MinYear, MaxYear].
func ClampYear(year int) int {
	if year < MinYear {
		return MinYear
	}
	if year > MaxYear {
		return MaxYear
	}
	return year
}

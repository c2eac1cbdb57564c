package query

import (
	"fmt"
	"time"
)

// ResolvePreset resolves a named date-range preset to a concrete DateRange
// using now as "today", per spec §4.4: "Predefined ranges ... resolve to
// concrete [from, to] at query time using the local wall clock." An
// unrecognized preset name is a user error, surfaced to the caller rather
// than silently ignored.
func ResolvePreset(preset string, now time.Time) (DateRange, error) {
	now = now.Local()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfToday := today.Add(24*time.Hour - time.Nanosecond)

	switch preset {
	case "today":
		return DateRange{From: today, To: endOfToday}, nil
	case "yesterday":
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y, To: y.Add(24*time.Hour - time.Nanosecond)}, nil
	case "last_7_days":
		return DateRange{From: today.AddDate(0, 0, -6), To: endOfToday}, nil
	case "last_30_days":
		return DateRange{From: today.AddDate(0, 0, -29), To: endOfToday}, nil
	case "last_90_days":
		return DateRange{From: today.AddDate(0, 0, -89), To: endOfToday}, nil
	case "this_month":
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return DateRange{From: from, To: endOfToday}, nil
	case "last_month":
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		from := firstOfThisMonth.AddDate(0, -1, 0)
		to := firstOfThisMonth.Add(-time.Nanosecond)
		return DateRange{From: from, To: to}, nil
	case "this_year":
		from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return DateRange{From: from, To: endOfToday}, nil
	case "last_year":
		from := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		to := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
		return DateRange{From: from, To: to}, nil
	default:
		return DateRange{}, fmt.Errorf("query: unknown date range preset %q", preset)
	}
}

// SundayAlignedWeekStart returns local midnight of the Sunday beginning the
// week containing t, computed with zone-aware Date/AddDate arithmetic
// rather than raw duration subtraction so it stays correct across DST
// transitions. internal/aggregate computes its weekly_trend window the same
// way with its own unexported copy, per SPEC_FULL's Open Question
// resolution #1.
func SundayAlignedWeekStart(t time.Time) time.Time {
	t = t.Local()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

package aggregate

import (
	"sort"
	"time"
)

// Streak describes a run of consecutive local-dates with activity.
type Streak struct {
	Current       int    `json:"current"`
	Longest       int    `json:"longest"`
	LongestPeriod Period `json:"longest_period"`
}

// Period is an inclusive [Start, End] local-date range.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Temporal is the output of Aggregate for the temporal dimension
// (spec §4.5.1).
type Temporal struct {
	HourlyActivity  [24]int    `json:"hourly_activity"`
	DailyActivity   [7]int     `json:"daily_activity"` // index 0 = Sunday
	DayHourMatrix   [7][24]int `json:"day_hour_matrix"`
	WeeklyTrend     [12]int    `json:"weekly_trend"`
	MonthlyTrend    [12]int    `json:"monthly_trend"`
	Streaks         Streak     `json:"streaks"`
	BusiestHour     *int       `json:"busiest_hour"`
	BusiestDay      *int       `json:"busiest_day"`
	TotalActiveDays int        `json:"totalActiveDays"`
}

// Aggregate computes hourly/daily/weekly/monthly activity, the streak
// record, and the busiest-hour/day argmax over every timestamped message in
// conversations, scoped by scope. "now" anchors the weekly/monthly trend
// windows and the current-streak check; pass time.Now() in production and
// a fixed instant in tests for determinism.
func Aggregate(conversations []ConversationMessages, scope Scope, now time.Time) Temporal {
	var t Temporal
	activeDates := make(map[string]time.Time)

	for _, cm := range conversations {
		for _, m := range filterMessages(cm.Messages, scope) {
			if !m.HasTimestamp() {
				continue
			}
			ts := m.Timestamp.Local()
			t.HourlyActivity[ts.Hour()]++
			t.DailyActivity[int(ts.Weekday())]++
			t.DayHourMatrix[int(ts.Weekday())][ts.Hour()]++

			day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
			activeDates[day.Format("2006-01-02")] = day

			if week := sundayAlignedWeekStart(ts); !week.After(now) {
				if idx := bucketIndex(week, sundayAlignedWeekStart(now), 7*24*time.Hour, 12); idx >= 0 {
					t.WeeklyTrend[idx]++
				}
			}
			if monthIdx := monthBucketIndex(ts, now, 12); monthIdx >= 0 {
				t.MonthlyTrend[monthIdx]++
			}
		}
	}

	t.Streaks = computeStreaks(activeDates, now)
	t.BusiestHour = argmax(t.HourlyActivity[:])
	t.BusiestDay = argmax(t.DailyActivity[:])
	t.TotalActiveDays = len(activeDates)

	return t
}

// sundayAlignedWeekStart returns local midnight of the Sunday beginning the
// week containing t, using zone-aware Date/AddDate arithmetic (never raw
// duration subtraction) so a week boundary crossing a DST transition still
// lands on local Sunday 00:00 — SPEC_FULL's Open Question resolution #1.
func sundayAlignedWeekStart(t time.Time) time.Time {
	t = t.Local()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// bucketIndex maps week into a 0..n-1 index counting back from the week
// containing "now" (bucket n-1 is the current week, bucket 0 is n-1 weeks
// ago). Returns -1 if week falls outside the window.
func bucketIndex(week, currentWeek time.Time, _ time.Duration, n int) int {
	weeksAgo := 0
	cursor := currentWeek
	for cursor.After(week) {
		cursor = cursor.AddDate(0, 0, -7)
		weeksAgo++
	}
	if !cursor.Equal(week) {
		return -1
	}
	idx := n - 1 - weeksAgo
	if idx < 0 || idx >= n {
		return -1
	}
	return idx
}

func monthBucketIndex(ts, now time.Time, n int) int {
	ts, now = ts.Local(), now.Local()
	monthsAgo := (now.Year()-ts.Year())*12 + int(now.Month()) - int(ts.Month())
	idx := n - 1 - monthsAgo
	if idx < 0 || idx >= n {
		return -1
	}
	return idx
}

// computeStreaks finds the current and longest runs of consecutive active
// local-dates. current is 0 unless the most recent active date is today or
// yesterday, per spec §4.5.1.
func computeStreaks(activeDates map[string]time.Time, now time.Time) Streak {
	if len(activeDates) == 0 {
		return Streak{}
	}

	dates := make([]time.Time, 0, len(activeDates))
	for _, d := range activeDates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var longest, run int
	var longestStart, longestEnd, runStart time.Time
	for i, d := range dates {
		if i == 0 || !d.Equal(dates[i-1].AddDate(0, 0, 1)) {
			run = 1
			runStart = d
		} else {
			run++
		}
		if run > longest {
			longest = run
			longestStart = runStart
			longestEnd = d
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	last := dates[len(dates)-1]

	current := 0
	if last.Equal(today) || last.Equal(yesterday) {
		current = 1
		for i := len(dates) - 2; i >= 0; i-- {
			if dates[i].Equal(dates[i+1].AddDate(0, 0, -1)) {
				current++
			} else {
				break
			}
		}
	}

	return Streak{
		Current:       current,
		Longest:       longest,
		LongestPeriod: Period{Start: longestStart, End: longestEnd},
	}
}

// argmax returns a pointer to the index of the largest value in xs, or nil
// if every value is zero (spec §4.5.1: "return null if all zero").
func argmax(xs []int) *int {
	best := -1
	bestVal := 0
	for i, v := range xs {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	idx := best
	return &idx
}

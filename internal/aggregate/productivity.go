package aggregate

import (
	"time"
)

// deepWorkThreshold and quickQuestionCeiling bound the two session-length
// buckets spec §4.5.4 calls out by name.
const (
	deepWorkThreshold    = 30 * time.Minute
	quickQuestionCeiling = 5 * time.Minute
)

// Productivity is the output of AggregateProductivity (spec §4.5.4).
type Productivity struct {
	ConversationsPerWeek float64 `json:"conversations_per_week"`
	MessagesPerDay       float64 `json:"messages_per_day"`
	ToolsPerConversation float64 `json:"tools_per_conversation"`
	DeepWorkSessions     int     `json:"deep_work_sessions"`
	QuickQuestions       int     `json:"quick_questions"`
	WeekendActivity      float64 `json:"weekend_activity"` // fraction of timestamped messages falling on Sat/Sun
}

// AggregateProductivity derives pacing metrics from conversation duration and
// message/tool counts. scope restricts which messages count toward the
// per-conversation figures, and a conversation's session length is the span
// between its first and last in-scope timestamped messages; conversation
// membership itself is not scoped — the per-conversation averages divide
// by every conversation passed in.
func AggregateProductivity(conversations []ConversationMessages, scope Scope, now time.Time) Productivity {
	var p Productivity
	if len(conversations) == 0 {
		return p
	}

	var totalMessages, totalTools int
	var earliestWeek, latestWeek time.Time
	activeDays := make(map[string]time.Time)
	var weekendMessageCount, totalTimestampedCount int

	for _, cm := range conversations {
		msgs := filterMessages(cm.Messages, scope)
		if len(msgs) == 0 {
			continue
		}
		totalMessages += len(msgs)

		tools := cm.ToolNames
		if !scope.From.IsZero() || !scope.To.IsZero() {
			tools = toolsInScope(cm, scope)
		}
		totalTools += len(tools)

		var first, last time.Time
		for _, m := range msgs {
			if !m.HasTimestamp() {
				continue
			}
			ts := m.Timestamp.Local()
			if first.IsZero() || ts.Before(first) {
				first = ts
			}
			if last.IsZero() || ts.After(last) {
				last = ts
			}
			day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
			key := day.Format("2006-01-02")
			if _, ok := activeDays[key]; !ok {
				activeDays[key] = day
			}

			totalTimestampedCount++
			if wd := ts.Weekday(); wd == time.Sunday || wd == time.Saturday {
				weekendMessageCount++
			}

			week := sundayAlignedWeekStart(ts)
			if earliestWeek.IsZero() || week.Before(earliestWeek) {
				earliestWeek = week
			}
			if latestWeek.IsZero() || week.After(latestWeek) {
				latestWeek = week
			}
		}

		if !first.IsZero() && !last.IsZero() {
			dur := last.Sub(first)
			switch {
			case dur >= deepWorkThreshold:
				p.DeepWorkSessions++
			case dur > 0 && dur <= quickQuestionCeiling:
				p.QuickQuestions++
			}
		}
	}

	if totalTimestampedCount > 0 {
		p.WeekendActivity = float64(weekendMessageCount) / float64(totalTimestampedCount)
	}

	weeks := 1
	if !earliestWeek.IsZero() && !latestWeek.IsZero() {
		diff := 0
		cursor := earliestWeek
		for cursor.Before(latestWeek) {
			cursor = cursor.AddDate(0, 0, 7)
			diff++
		}
		weeks = diff + 1
	}
	p.ConversationsPerWeek = float64(len(conversations)) / float64(weeks)

	days := len(activeDays)
	if days == 0 {
		days = 1
	}
	p.MessagesPerDay = float64(totalMessages) / float64(days)

	if len(conversations) > 0 {
		p.ToolsPerConversation = float64(totalTools) / float64(len(conversations))
	}

	return p
}

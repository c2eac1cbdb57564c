// Package aggregate computes the analytics described in spec §4.5: pure
// functions over an already-parsed stream of model.Message (optionally
// scoped to a date range) that fold into temporal, tool-use, content,
// productivity, user-action, and comparative summaries. Each aggregator is
// independent, and the CLI runs each one behind its own panic recovery: a
// section whose aggregator panics is left at its zero value in the
// Analytics Cache snapshot (it is not marked null), and the other sections
// still complete.
package aggregate

import (
	"time"

	"github.com/siftdev/sift/internal/model"
)

// ConversationMessages pairs a Conversation with its parsed messages and
// tool invocations — the unit every aggregator below folds over.
type ConversationMessages struct {
	Conversation model.Conversation
	Messages     []model.Message
	ToolNames    []string // ordered tool_use names across the conversation
}

// Scope optionally restricts aggregation to a date range and is shared
// across every aggregator so a single "scope" concept governs all of them,
// per spec §4.5 ("each aggregator ... re-runnable with an optional
// date-range scope").
type Scope struct {
	From time.Time
	To   time.Time
}

// includes reports whether t falls inside the scope; a zero-value Scope
// includes everything.
func (s Scope) includes(t time.Time) bool {
	if !s.From.IsZero() && t.Before(s.From) {
		return false
	}
	if !s.To.IsZero() && t.After(s.To) {
		return false
	}
	return true
}

// filterMessages returns the subset of cm.Messages with a timestamp inside
// scope. Messages without a timestamp pass through unfiltered — temporal
// aggregators skip them anyway, but tool/content/action aggregators still
// want to count them when no date filter was asked for.
func filterMessages(messages []model.Message, scope Scope) []model.Message {
	if scope.From.IsZero() && scope.To.IsZero() {
		return messages
	}
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.HasTimestamp() && !scope.includes(m.Timestamp) {
			continue
		}
		out = append(out, m)
	}
	return out
}

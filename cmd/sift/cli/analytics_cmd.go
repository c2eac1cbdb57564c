package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siftdev/sift/internal/aggregate"
	"github.com/siftdev/sift/internal/analyticscache"
	"github.com/siftdev/sift/internal/engine"
	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/query"
)

// resolvePresetScope resolves a CLI date-range preset into an
// aggregate.Scope, reusing query.ResolvePreset's preset table so "analytics
// --date" and "search --date" understand exactly the same names.
func resolvePresetScope(preset string) (aggregate.Scope, error) {
	r, err := query.ResolvePreset(preset, time.Now())
	if err != nil {
		return aggregate.Scope{}, err
	}
	return aggregate.Scope{From: r.From, To: r.To}, nil
}

func newAnalyticsCmd() *cobra.Command {
	var (
		presetFilter string
		jsonOutput   bool
		rebuild      bool
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print the analytics snapshot",
		Long: `Compute (or reuse the cached) analytics snapshot: temporal activity,
tool usage, content stats, productivity, user actions, and
week-over-week/month-over-month comparisons.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runAnalytics(cmd, presetFilter, jsonOutput, rebuild)
		},
	}

	cmd.Flags().StringVar(&presetFilter, "date", "", "Restrict aggregation to a date-range preset")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Force a full aggregator rebuild, ignoring the cache")
	return cmd
}

func runAnalytics(cmd *cobra.Command, presetFilter string, jsonOutput, forceRebuild bool) error {
	e, err := openEngine()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	defer e.Close()

	if _, err := e.Ingest(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	snap, err := e.LoadAnalyticsCache()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	current := e.Fingerprints()
	if forceRebuild || presetFilter != "" || analyticscache.NeedsFullRebuild(snap, current) {
		scope := aggregate.Scope{}
		if presetFilter != "" {
			r, err := resolvePresetScope(presetFilter)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}
			scope = r
		}
		snap = buildSnapshot(e, scope)
		snap.Fingerprints = current
		if presetFilter == "" {
			if err := e.SaveAnalyticsCache(snap); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}
		}
	}

	if jsonOutput {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal analytics snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printAnalyticsText(cmd, snap)
	return nil
}

// buildSnapshot runs every aggregator over e's conversation set. A panic
// inside one aggregator must not prevent the rest from completing (spec
// §4.5/§7): each call is wrapped so its section degrades to a zero value
// rather than aborting the whole snapshot.
func buildSnapshot(e *engine.Engine, scope aggregate.Scope) analyticscache.Snapshot {
	snap := analyticscache.Snapshot{Version: 1}
	now := time.Now()

	cms := make([]aggregate.ConversationMessages, 0, len(e.Conversations))
	var totalMessages int
	var first, last time.Time
	for id, conv := range e.Conversations {
		messages := e.Messages[id]
		cms = append(cms, aggregate.ConversationMessages{
			Conversation: conv,
			Messages:     messages,
			ToolNames:    toolNamesOf(messages),
		})
		totalMessages += len(messages)
		if !conv.FirstTimestamp.IsZero() && (first.IsZero() || conv.FirstTimestamp.Before(first)) {
			first = conv.FirstTimestamp
		}
		if conv.LastTimestamp.After(last) {
			last = conv.LastTimestamp
		}
	}

	snap.Overview = analyticscache.Overview{
		TotalConversations: len(cms),
		TotalMessages:      totalMessages,
		FirstConversation:  first,
		LastConversation:   last,
	}
	if len(cms) > 0 {
		var totalDuration int64
		for _, cm := range cms {
			totalDuration += cm.Conversation.DurationMillis
		}
		snap.ConversationStats = analyticscache.ConversationStats{
			AvgMessagesPerConversation: float64(totalMessages) / float64(len(cms)),
			AvgDurationMillis:          float64(totalDuration) / float64(len(cms)),
		}
	}

	withRecover(func() { snap.TimePatterns = aggregate.Aggregate(cms, scope, now) })
	withRecover(func() { snap.ToolUsage = aggregate.AggregateTools(cms, scope) })
	withRecover(func() { snap.ContentAnalysis = aggregate.AggregateContent(cms, scope) })
	withRecover(func() { snap.ProductivityMetrics = aggregate.AggregateProductivity(cms, scope, now) })
	withRecover(func() { snap.UserActions = aggregate.AggregateActions(cms, scope) })
	withRecover(func() { snap.Comparative = aggregate.AggregateComparative(snap.TimePatterns) })

	return snap
}

// withRecover runs fn, discarding a panic so one failing aggregator leaves
// the others' already-assigned sections intact.
func withRecover(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func toolNamesOf(messages []model.Message) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.ToolUses()...)
	}
	return out
}

func printAnalyticsText(cmd *cobra.Command, snap analyticscache.Snapshot) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "conversations: %d, messages: %d\n", snap.Overview.TotalConversations, snap.Overview.TotalMessages)
	fmt.Fprintf(w, "busiest hour: %v, busiest day: %v\n", snap.TimePatterns.BusiestHour, snap.TimePatterns.BusiestDay)
	fmt.Fprintf(w, "current streak: %d, longest streak: %d\n", snap.TimePatterns.Streaks.Current, snap.TimePatterns.Streaks.Longest)
	fmt.Fprintf(w, "tool invocations: %d\n", snap.ToolUsage.Total)
	fmt.Fprintf(w, "code blocks: %d, code/text ratio: %.2f\n", snap.ContentAnalysis.TotalCodeBlocks, snap.ContentAnalysis.CodeToTextRatio)
	fmt.Fprintf(w, "week over week: %+d (%s)\n", snap.Comparative.WeekOverWeek.Change, snap.Comparative.WeekOverWeek.Trend)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/siftdev/sift/internal/query"
)

// searchTimeout bounds the preview-rendering phase of a CLI search so a
// corpus with a very large hit set always returns within a predictable
// wall-clock budget, per spec §5's deadline requirement.
const searchTimeout = 5 * time.Second

type hitOutput struct {
	ConversationID     string  `json:"conversation_id"`
	Project            string  `json:"project"`
	Path               string  `json:"path"`
	ModTime            string  `json:"mtime"`
	SizeBytes          int64   `json:"size_bytes"`
	Matches            int     `json:"matches"`
	Relevance          float64 `json:"relevance"`
	Preview            string  `json:"preview"`
	HighlightedPreview string  `json:"highlighted_preview"`
}

type searchOutput struct {
	Total      int         `json:"total"`
	Hits       []hitOutput `json:"hits"`
	TookMillis int64       `json:"took_ms"`
	TimedOut   bool        `json:"timed_out"`
}

func runSearch(cmd *cobra.Command, q, repoFilter, presetFilter string, limit int, jsonOutput bool) error {
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

	filters := query.Filters{}
	if repoFilter != "" {
		filters.Repos = strings.Split(repoFilter, ",")
	}
	if presetFilter != "" {
		r, err := query.ResolvePreset(presetFilter, time.Now())
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return NewSilentError(err)
		}
		filters.DateRange = &query.DateRange{From: r.From, To: r.To}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	res, err := e.Query().Search(ctx, q, filters, limit)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	if jsonOutput {
		return printSearchJSON(cmd, res)
	}
	printSearchText(cmd, res)
	return nil
}

func printSearchJSON(cmd *cobra.Command, res query.Result) error {
	out := searchOutput{Total: res.Total, TookMillis: res.TookMillis, TimedOut: res.TimedOut}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, hitOutput{
			ConversationID:     h.ConversationID,
			Project:            h.Project,
			Path:               h.Path,
			ModTime:            h.ModTime.Format(time.RFC3339),
			SizeBytes:          h.SizeBytes,
			Matches:            h.Matches,
			Relevance:          h.Relevance,
			Preview:            h.Preview,
			HighlightedPreview: h.HighlightedPreview,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal search output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printSearchText(cmd *cobra.Command, res query.Result) {
	w := cmd.OutOrStdout()
	if res.Total == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	fmt.Fprintf(w, "%d matches (%dms)%s\n", res.Total, res.TookMillis, timedOutSuffix(res.TimedOut))
	for _, h := range res.Hits {
		fmt.Fprintf(w, "\n%s  [%s]  relevance=%.2f  matches=%d\n", h.ConversationID, h.Project, h.Relevance, h.Matches)
		fmt.Fprintln(w, h.HighlightedPreview)
	}
}

func timedOutSuffix(timedOut bool) string {
	if timedOut {
		return " (partial: deadline exceeded)"
	}
	return ""
}

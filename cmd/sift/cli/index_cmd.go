package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the index from the corpus",
		Long: `Scan the corpus root, parse any new or changed transcripts, and commit
the resulting postings to the on-disk Index Store.

The index is local-only. Rebuild it after a large batch of new
conversations, or whenever 'sift' reports index corruption.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runIndex(cmd)
		},
	}
}

func runIndex(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	e, err := openEngine()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	defer e.Close()

	result, err := e.Ingest(cmd.Context())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	fmt.Fprintf(w, "indexed: %d added, %d changed, %d removed (%d conversations total)\n",
		result.Added, result.Changed, result.Removed, e.Index.DocCount())
	fmt.Fprintf(w, "generation: %s\n", e.Index.GenerationID())
	return nil
}

// Package cli implements sift's non-interactive command surface: a search
// query as positional arguments plus repo/date filters on the root
// command, and index/analytics/show/query subcommands (spec §6).
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siftdev/sift/internal/engine"
)

const gettingStarted = `

Getting Started:
  sift "query"        Search conversation transcripts by keyword
  sift index          Rebuild the index from the corpus
  sift analytics       Print the analytics snapshot
  sift show <id>       Drill into one conversation
`

// NewRootCmd returns the root command for the sift CLI.
func NewRootCmd() *cobra.Command {
	var (
		repoFilter   string
		presetFilter string
		limitFlag    int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:           "sift [query]",
		Short:         "sift — search and analyze your AI conversation history",
		Long:          "sift searches and analyzes local AI-conversation transcripts." + gettingStarted,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			query := strings.Join(args, " ")
			return runSearch(cmd, query, repoFilter, presetFilter, limitFlag, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&repoFilter, "repo", "", "Filter by project name(s), comma-separated")
	cmd.Flags().StringVar(&presetFilter, "date", "", "Filter by date-range preset (today, last_7_days, ...)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Max results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.SetVersionTemplate("sift {{.Version}}\n")
	cmd.Version = Version

	coreGroup := &cobra.Group{ID: "core", Title: "Core Commands:"}
	cmd.AddGroup(coreGroup)

	indexCmd := newIndexCmd()
	indexCmd.GroupID = "core"
	analyticsCmd := newAnalyticsCmd()
	analyticsCmd.GroupID = "core"
	showCmd := newShowCmd()
	showCmd.GroupID = "core"
	queryCmd := newQueryCmd()
	queryCmd.GroupID = "core"
	versionCmd := newVersionCmd()
	versionCmd.GroupID = "core"

	cmd.AddCommand(indexCmd, analyticsCmd, showCmd, queryCmd, versionCmd)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sift", Version)
			return nil
		},
	}
}

// openEngine resolves the state directory and corpus root and opens the
// Engine, the one place every subcommand acquires its shared handles.
func openEngine() (*engine.Engine, error) {
	stateDir, err := StateDir()
	if err != nil {
		return nil, err
	}
	corpusRoot, err := EnsureCorpusRoot()
	if err != nil {
		return nil, err
	}
	return engine.Open(stateDir, corpusRoot)
}

// Run executes the root command and exits with the appropriate code.
func Run() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !IsSilentError(err) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		}
		os.Exit(1)
	}
}

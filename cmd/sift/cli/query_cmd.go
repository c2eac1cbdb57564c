package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newQueryCmd exposes read-only SQL against the conversation catalog
// database (SPEC_FULL §5 "raw analytics drill query"), grounded in the
// teacher's runQuery: only SELECT statements are allowed, and only the
// catalog DB is reachable — never the Index Store, which isn't SQL-backed.
func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query against the conversation catalog",
		Long: `Run a SELECT statement against the conversation catalog database
(the table behind 'sift index' and 'sift show'). Only SELECT is permitted;
the Index Store itself is not SQL-backed and is never reachable here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runQuery(cmd, args[0])
		},
	}
	return cmd
}

func runQuery(cmd *cobra.Command, query string) error {
	normalized := strings.TrimSpace(strings.ToUpper(query))
	if !strings.HasPrefix(normalized, "SELECT") {
		err := fmt.Errorf("only SELECT statements are allowed")
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	e, err := openEngine()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	defer e.Close()

	rows, err := e.Store.DB().Query(query)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	out := cmd.OutOrStdout()
	first := true

	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if !first {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, string(data))
		first = false
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if !first {
		fmt.Fprintln(out)
	}
	return nil
}

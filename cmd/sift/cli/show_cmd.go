package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/parser"
)

func newShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Drill into one conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runShow(cmd, args[0], jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type showOutput struct {
	ConversationID string         `json:"conversation_id"`
	Project        string         `json:"project"`
	Path           string         `json:"path"`
	MessageCount   int            `json:"message_count"`
	Messages       []messageOutput `json:"messages"`
}

type messageOutput struct {
	Index     int    `json:"index"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

func runShow(cmd *cobra.Command, conversationID string, jsonOutput bool) error {
	e, err := openEngine()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	defer e.Close()

	conv, found, err := e.Store.Get(conversationID)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}
	if !found {
		err := fmt.Errorf("conversation not found: %s", conversationID)
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	res, err := parser.ParseFile(conv.SourcePath)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewSilentError(err)
	}

	if jsonOutput {
		return printShowJSON(cmd, conv.ID, conv.Project, conv.SourcePath, res.Messages)
	}
	printShowText(cmd, conv.ID, conv.Project, res.Messages)
	return nil
}

func printShowJSON(cmd *cobra.Command, id, project, path string, messages []model.Message) error {
	out := showOutput{
		ConversationID: id,
		Project:        project,
		Path:           path,
		MessageCount:   len(messages),
	}
	for i, m := range messages {
		mo := messageOutput{Index: i, Role: string(m.Role), Text: m.PlainText()}
		if m.HasTimestamp() {
			mo.Timestamp = m.Timestamp.Format("2006-01-02T15:04:05Z07:00")
		}
		out.Messages = append(out.Messages, mo)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal show output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printShowText(cmd *cobra.Command, id, project string, messages []model.Message) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s [%s] — %d messages\n\n", id, project, len(messages))
	for i, m := range messages {
		fmt.Fprintf(w, "[%d] %s: %s\n", i, m.Role, m.PlainText())
	}
}

// Package parser reads a single transcript file and yields a canonical
// sequence of model.Message records. It tolerates the several record shapes
// real transcript sources produce and never aborts a file over one bad line.
package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/siftdev/sift/internal/model"
)

// Result is the output of ParseFile: the canonical messages plus the
// ordered sequence of tool names invoked across the file, and a count of
// lines skipped for being malformed.
type Result struct {
	Messages        []model.Message
	ToolInvocations []string
	SkippedLines    int
}

// rawLine is the top-level shape of a JSONL record.
type rawLine struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`

	// Flat tool_use variant: {"type":"tool_use","name":...,"input":...}
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// rawMessage is the message field within a JSONL line.
type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// contentBlock represents one block in a message's content array, covering
// both assistant tool_use blocks and user tool_result blocks.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	ToolUseID string          `json:"tool_use_id"`
	Input     json.RawMessage `json:"input"`
	Content   json.RawMessage `json:"content"`
}

// toolInput holds the common fields of a tool_use input payload.
type toolInput struct {
	FilePath string `json:"file_path"`
	Path     string `json:"path"`
	Command  string `json:"command"`
	Content  string `json:"content"`
}

// ParseFile reads path and returns its canonical messages. Unreadable files
// produce an empty result and a non-nil error the caller should log as a
// warning rather than abort on; malformed individual lines are counted in
// Result.SkippedLines and otherwise ignored.
func ParseFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read transcript %s: %w", path, err)
	}
	if looksLikeMarkdown(path, data) {
		return parseMarkdown(data), nil
	}
	return parseJSONL(data), nil
}

// ParseReader is the lazy-streaming counterpart of ParseFile: it emits each
// Message via yield as soon as it is complete, bounding memory to one
// message at a time. yield returning false stops iteration early.
func ParseReader(r io.Reader, yield func(model.Message) bool) (toolInvocations []string, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	pendingPlanReads := make(map[string]bool)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			skipped++
			continue
		}

		ts := parseTimestamp(raw.Timestamp)

		switch raw.Type {
		case "user":
			msgs := parseUserTurn(raw.Message, ts, pendingPlanReads)
			for _, m := range msgs {
				if !yield(m) {
					return toolInvocations, skipped, scanner.Err()
				}
			}
		case "assistant":
			msgs, tools, planReadIDs := parseAssistantMessage(raw.Message, ts)
			toolInvocations = append(toolInvocations, tools...)
			for _, m := range msgs {
				if !yield(m) {
					return toolInvocations, skipped, scanner.Err()
				}
			}
			for _, id := range planReadIDs {
				pendingPlanReads[id] = true
			}
		case "tool_use":
			// Flat synthetic-assistant-message variant.
			m, tool := parseFlatToolUse(raw, ts)
			toolInvocations = append(toolInvocations, tool)
			if !yield(m) {
				return toolInvocations, skipped, scanner.Err()
			}
		default:
			// file-history-snapshot, summary, and unrecognized record types
			// carry no message content; skip without counting as malformed.
		}
	}

	return toolInvocations, skipped, scanner.Err()
}

func parseJSONL(data []byte) Result {
	var res Result
	toolInvocations, skipped, _ := ParseReader(bytes.NewReader(data), func(m model.Message) bool {
		res.Messages = append(res.Messages, m)
		return true
	})
	res.ToolInvocations = toolInvocations
	res.SkippedLines = skipped
	return res
}

func parseFlatToolUse(raw rawLine, ts time.Time) (model.Message, string) {
	block := model.ContentBlock{
		Kind:          model.BlockToolUse,
		ToolName:      raw.Name,
		ToolInputJSON: string(raw.Input),
	}
	return model.Message{
		Role:      model.RoleAssistant,
		Timestamp: ts,
		Content:   []model.ContentBlock{block},
	}, raw.Name
}

// parseUserTurn extracts text content from a user message, plus any plan
// file bodies whose Read tool call was flagged by a prior assistant turn.
func parseUserTurn(msgRaw json.RawMessage, ts time.Time, pendingPlanReads map[string]bool) []model.Message {
	if len(msgRaw) == 0 {
		return nil
	}
	var msg rawMessage
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		return nil
	}
	if msg.Role != "" && msg.Role != "user" {
		return nil
	}

	var messages []model.Message

	if len(pendingPlanReads) > 0 {
		if planText := extractPlanToolResults(msg.Content, pendingPlanReads); planText != "" {
			messages = append(messages, model.Message{
				Role:      model.RoleAssistant,
				Timestamp: ts,
				Content:   textToBlocks(planText),
			})
		}
	}

	text := extractTextContent(msg.Content)
	if text != "" {
		messages = append(messages, model.Message{
			Role:      model.RoleUser,
			Timestamp: ts,
			Content:   textToBlocks(text),
		})
	}

	return messages
}

// parseAssistantMessage extracts text and tool-use blocks from an assistant
// message, folding them into one Message per source record (teacher keeps
// them as separate Turns; sift keeps source order within a single Message's
// block list instead, matching model.Message's block-ordering invariant).
func parseAssistantMessage(msgRaw json.RawMessage, ts time.Time) (messages []model.Message, tools []string, planReadIDs []string) {
	if len(msgRaw) == 0 {
		return nil, nil, nil
	}
	var msg rawMessage
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		return nil, nil, nil
	}
	if msg.Role != "" && msg.Role != "assistant" {
		return nil, nil, nil
	}

	// Content may be a plain string.
	var textContent string
	if err := json.Unmarshal(msg.Content, &textContent); err == nil {
		if textContent != "" {
			messages = append(messages, model.Message{
				Role:      model.RoleAssistant,
				Timestamp: ts,
				Content:   textToBlocks(textContent),
			})
		}
		return messages, nil, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return nil, nil, nil
	}

	var out []model.ContentBlock
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				out = append(out, textToBlocks(b.Text)...)
			}
		case "tool_use":
			out = append(out, model.ContentBlock{
				Kind:          model.BlockToolUse,
				ToolName:      b.Name,
				ToolInputJSON: string(b.Input),
			})
			tools = append(tools, b.Name)
			if planText := extractPlanContent(b); planText != "" {
				out = append(out, textToBlocks(planText)...)
			}
			if id := extractPlanReadID(b); id != "" {
				planReadIDs = append(planReadIDs, id)
			}
		case "tool_result":
			if text := extractToolResultText(b.Content); text != "" {
				out = append(out, model.ContentBlock{Kind: model.BlockToolResult, ToolOutput: text})
			}
			// "thinking" and anything else is discarded.
		}
	}

	if len(out) > 0 {
		messages = append(messages, model.Message{Role: model.RoleAssistant, Timestamp: ts, Content: out})
	}
	return messages, tools, planReadIDs
}

// extractTextContent pulls Text-block content from a content field that may
// be a plain string or an array of typed blocks.
func extractTextContent(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func extractToolResultText(content json.RawMessage) string {
	return extractTextContent(content)
}

// extractPlanContent surfaces Write/Edit tool input targeting a plans
// directory so the plan text is searchable instead of being discarded with
// the rest of a tool_use's structured input.
func extractPlanContent(b contentBlock) string {
	if b.Name != "Write" && b.Name != "Edit" {
		return ""
	}
	if len(b.Input) == 0 {
		return ""
	}
	var inp toolInput
	if err := json.Unmarshal(b.Input, &inp); err != nil {
		return ""
	}
	path := inp.FilePath
	if path == "" {
		path = inp.Path
	}
	if !strings.Contains(path, "/plans/") {
		return ""
	}
	return inp.Content
}

// extractPlanReadID returns the tool_use ID of a Read call targeting a
// plans-directory file, so a later tool_result in a user message can be
// matched back to it and surfaced as searchable content.
func extractPlanReadID(b contentBlock) string {
	if b.Name != "Read" || len(b.Input) == 0 || b.ID == "" {
		return ""
	}
	var inp toolInput
	if err := json.Unmarshal(b.Input, &inp); err != nil {
		return ""
	}
	path := inp.FilePath
	if path == "" {
		path = inp.Path
	}
	if !strings.Contains(path, "/plans/") {
		return ""
	}
	return b.ID
}

func extractPlanToolResults(content json.RawMessage, pending map[string]bool) string {
	if len(content) == 0 {
		return ""
	}
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type != "tool_result" || !pending[b.ToolUseID] {
			continue
		}
		if text := extractToolResultText(b.Content); text != "" {
			parts = append(parts, text)
		}
		delete(pending, b.ToolUseID)
	}
	return strings.Join(parts, "\n")
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

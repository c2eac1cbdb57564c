package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/siftdev/sift/internal/model"
)

// markdownHeading matches export formats that carry no JSONL framing at
// all — a conversation rendered as a sequence of "## User" / "## Assistant"
// headings.
var markdownHeading = regexp.MustCompile(`(?m)^#{1,3}\s*(User|Assistant|Human|System)\s*:?\s*$`)

// looksLikeMarkdown decides whether a file should go through the heading
// fallback parser instead of the JSONL parser: a .md/.markdown/.txt
// extension, or non-empty content whose first non-blank byte is neither
// '{' nor '['.
func looksLikeMarkdown(path string, data []byte) bool {
	if strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".markdown") || strings.HasSuffix(path, ".txt") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] != '{' && trimmed[0] != '['
}

// parseMarkdown splits a heading-delimited transcript export into messages,
// alternating role by heading text. Content between headings is treated as
// plain text and run through the same code-block/marker extraction as the
// JSONL path so behavior matches regardless of source format.
func parseMarkdown(data []byte) Result {
	var res Result

	locs := markdownHeading.FindAllSubmatchIndex(data, -1)
	if len(locs) == 0 {
		// No headings found: treat the whole file as one user message.
		text := string(bytes.TrimSpace(data))
		if text == "" {
			return res
		}
		res.Messages = append(res.Messages, model.Message{
			Role:    model.RoleUser,
			Content: textToBlocks(text),
		})
		return res
	}

	for i, loc := range locs {
		roleWord := string(data[loc[2]:loc[3]])
		bodyStart := loc[1]
		bodyEnd := len(data)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(string(data[bodyStart:bodyEnd]))
		if body == "" {
			continue
		}

		role := model.RoleUser
		switch strings.ToLower(roleWord) {
		case "assistant":
			role = model.RoleAssistant
		case "system":
			role = model.RoleSystem
		}

		blocks := textToBlocks(body)
		res.Messages = append(res.Messages, model.Message{Role: role, Content: blocks})
	}

	return res
}


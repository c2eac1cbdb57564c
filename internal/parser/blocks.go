package parser

import (
	"regexp"
	"strings"

	"github.com/siftdev/sift/internal/model"
)

// ansiEscape matches terminal escape sequences so transcripts that capture
// raw terminal output don't pollute the index with control codes.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*[a-zA-Z]")

// fencedCodeBlock matches a ``` fenced block, capturing the optional
// language tag and the body.
var fencedCodeBlock = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// commandMarker matches Claude Code's own <command-name>/NAME</command-name>
// tag, used to surface slash-command invocations as structured markers.
var commandMarker = regexp.MustCompile(`<command-name>(/[^<]+)</command-name>`)

// hookPathMarker matches a bracketed hook script path, e.g.
// "[~/.claude/hooks/format-on-save.sh]".
var hookPathMarker = regexp.MustCompile(`\[([^\]]*\.claude/hooks/[^\]]+\.sh)\]`)

// hookPhaseMarker matches a "PreToolUse:Bash" / "PostToolUse:Write" style
// phase marker.
var hookPhaseMarker = regexp.MustCompile(`\b(Pre|Post)ToolUse:([A-Za-z_]+)\b`)

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiEscape.ReplaceAllString(s, "")
}

// textToBlocks splits raw text from a Text content block into a residual
// BlockText block plus any embedded BlockCodeBlock/BlockCommandMarker/
// BlockHookMarker blocks it finds, preserving source order. ANSI escape
// sequences are stripped before any pattern is matched.
func textToBlocks(raw string) []model.ContentBlock {
	text := stripANSI(raw)
	if text == "" {
		return nil
	}

	var blocks []model.ContentBlock
	rest := text

	for {
		loc := fencedCodeBlock.FindStringSubmatchIndex(rest)
		if loc == nil {
			blocks = append(blocks, markerBlocks(rest)...)
			break
		}
		before := rest[:loc[0]]
		blocks = append(blocks, markerBlocks(before)...)

		lang := rest[loc[2]:loc[3]]
		body := rest[loc[4]:loc[5]]
		blocks = append(blocks, model.ContentBlock{
			Kind:     model.BlockCodeBlock,
			Language: lang,
			Body:     body,
		})

		rest = rest[loc[1]:]
	}

	return blocks
}

// markerBlocks extracts command-name and hook markers out of a plain-text
// span, leaving the remainder as a single BlockText block.
func markerBlocks(span string) []model.ContentBlock {
	if strings.TrimSpace(span) == "" {
		return nil
	}

	type match struct {
		start, end int
		block      model.ContentBlock
	}
	var matches []match

	for _, loc := range commandMarker.FindAllStringSubmatchIndex(span, -1) {
		matches = append(matches, match{loc[0], loc[1], model.ContentBlock{
			Kind:        model.BlockCommandMarker,
			CommandName: span[loc[2]:loc[3]],
		}})
	}
	pathLocs := hookPathMarker.FindAllStringSubmatchIndex(span, -1)
	pathUsed := make([]bool, len(pathLocs))

	// A (Pre|Post)ToolUse:<tool> marker immediately preceding a hook-path
	// marker describes that same hook invocation; fold the phase into the
	// path marker's block rather than emitting a second, separate hook
	// named after the tool.
	for _, ploc := range hookPhaseMarker.FindAllStringSubmatchIndex(span, -1) {
		phase := span[ploc[2]:ploc[3]]
		attached := false
		for i, hloc := range pathLocs {
			if pathUsed[i] || hloc[0] < ploc[1] {
				continue
			}
			if strings.TrimSpace(span[ploc[1]:hloc[0]]) != "" {
				continue
			}
			matches = append(matches, match{ploc[0], hloc[1], model.ContentBlock{
				Kind:      model.BlockHookMarker,
				HookPhase: phase,
				HookName:  hookScriptName(span[hloc[2]:hloc[3]]),
			}})
			pathUsed[i] = true
			attached = true
			break
		}
		if !attached {
			matches = append(matches, match{ploc[0], ploc[1], model.ContentBlock{
				Kind:      model.BlockHookMarker,
				HookPhase: phase,
				HookName:  span[ploc[4]:ploc[5]],
			}})
		}
	}
	for i, hloc := range pathLocs {
		if pathUsed[i] {
			continue
		}
		matches = append(matches, match{hloc[0], hloc[1], model.ContentBlock{
			Kind:     model.BlockHookMarker,
			HookName: hookScriptName(span[hloc[2]:hloc[3]]),
		}})
	}

	if len(matches) == 0 {
		return []model.ContentBlock{{Kind: model.BlockText, Text: span}}
	}

	// Sort matches by start offset so the residual text interleaves with
	// markers in source order.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	var out []model.ContentBlock
	pos := 0
	for _, m := range matches {
		if m.start < pos {
			continue // overlapping match, keep the first
		}
		if lead := strings.TrimSpace(span[pos:m.start]); lead != "" {
			out = append(out, model.ContentBlock{Kind: model.BlockText, Text: span[pos:m.start]})
		}
		out = append(out, m.block)
		pos = m.end
	}
	if tail := strings.TrimSpace(span[pos:]); tail != "" {
		out = append(out, model.ContentBlock{Kind: model.BlockText, Text: span[pos:]})
	}
	return out
}

func hookScriptName(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ".sh")
}

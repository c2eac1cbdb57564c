package model

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// BlockKind discriminates the ContentBlock tagged union.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockToolUse
	BlockToolResult
	BlockCodeBlock
	BlockCommandMarker
	BlockHookMarker
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockToolUse:
		return "tool_use"
	case BlockToolResult:
		return "tool_result"
	case BlockCodeBlock:
		return "code_block"
	case BlockCommandMarker:
		return "command_marker"
	case BlockHookMarker:
		return "hook_marker"
	default:
		return "unknown"
	}
}

// ContentBlock is one element of a Message's normalized content, preserving
// source order. Only the fields relevant to Kind are populated.
type ContentBlock struct {
	Kind BlockKind

	// BlockText / residual text left over from a Text block once embedded
	// code blocks and markers have been lifted out of it.
	Text string

	// BlockToolUse
	ToolName      string
	ToolInputJSON string

	// BlockToolResult
	ToolOutput string

	// BlockCodeBlock
	Language string
	Body     string

	// BlockCommandMarker
	CommandName string // includes leading "/"

	// BlockHookMarker
	HookName  string
	HookPhase string // "Pre", "Post", or "" if unknown
}

// Message is one turn in a Conversation, normalized from whatever shape the
// source transcript used.
type Message struct {
	Role      Role
	Timestamp time.Time
	Content   []ContentBlock
}

// HasTimestamp reports whether Timestamp was recovered from the source.
func (m Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// ToolUses returns the names of every ToolUse block in the message, in
// order.
func (m Message) ToolUses() []string {
	var names []string
	for _, b := range m.Content {
		if b.Kind == BlockToolUse {
			names = append(names, b.ToolName)
		}
	}
	return names
}

// PlainText concatenates every Text block's residual text, in order,
// separated by newlines.
func (m Message) PlainText() string {
	var out string
	first := true
	for _, b := range m.Content {
		if b.Kind != BlockText || b.Text == "" {
			continue
		}
		if !first {
			out += "\n"
		}
		out += b.Text
		first = false
	}
	return out
}

package aggregate

import (
	"sort"

	"github.com/siftdev/sift/internal/model"
)

// builtinCommands are excluded from slash-command analytics — they're
// CLI-provided and reflect tool usage, not the user's own workflow
// vocabulary (SPEC_FULL §6).
var builtinCommands = map[string]bool{
	"/model":       true,
	"/clear":       true,
	"/help":        true,
	"/compact":     true,
	"/exit":        true,
	"/quit":        true,
	"/login":       true,
	"/logout":      true,
	"/bug":         true,
	"/cost":        true,
	"/doctor":      true,
	"/init":        true,
	"/memory":      true,
	"/permissions": true,
	"/resume":      true,
	"/status":      true,
}

// NamedCount is a name/count pair used for the top-N lists below.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Actions is the output of AggregateActions (spec §4.5.5).
type Actions struct {
	SlashCommands struct {
		Total       int            `json:"total"`
		ByCommand   map[string]int `json:"by_command"`
		TopCommands []NamedCount   `json:"top_commands"` // top 10
	} `json:"slashCommands"`
	Hooks struct {
		Total    int            `json:"total"`
		ByHook   map[string]int `json:"by_hook"`
		TopHooks []NamedCount   `json:"top_hooks"` // top 10
	} `json:"hooks"`
}

// AggregateActions counts user-invoked slash commands (excluding builtins)
// and fired hooks across conversations.
func AggregateActions(conversations []ConversationMessages, scope Scope) Actions {
	var a Actions
	a.SlashCommands.ByCommand = make(map[string]int)
	a.Hooks.ByHook = make(map[string]int)

	for _, cm := range conversations {
		for _, m := range filterMessages(cm.Messages, scope) {
			for _, b := range m.Content {
				switch b.Kind {
				case model.BlockCommandMarker:
					if builtinCommands[b.CommandName] {
						continue
					}
					a.SlashCommands.Total++
					a.SlashCommands.ByCommand[b.CommandName]++
				case model.BlockHookMarker:
					a.Hooks.Total++
					a.Hooks.ByHook[b.HookName]++
				}
			}
		}
	}

	a.SlashCommands.TopCommands = topN(a.SlashCommands.ByCommand, 10)
	a.Hooks.TopHooks = topN(a.Hooks.ByHook, 10)

	return a
}

// topN renders a name->count map as a count-descending, name-ascending-tie
// sorted slice truncated to n entries.
func topN(counts map[string]int, n int) []NamedCount {
	out := make([]NamedCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NamedCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

package aggregate

import "sort"

// Combination is an unordered pair count, rendered as "A+B" sorted
// alphabetically so {Edit,Read} and {Read,Edit} collapse to one key.
type Combination struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// Sequence is an ordered triple of consecutive tool names with its count.
type Sequence struct {
	Tools [3]string `json:"tools"`
	Count int        `json:"count"`
}

// ToolUsage is the output of AggregateTools (spec §4.5.2).
type ToolUsage struct {
	Total        int                       `json:"total"`
	ByTool       map[string]int            `json:"by_tool"`
	ByProject    map[string]map[string]int `json:"by_project"`
	Combinations []Combination             `json:"combinations"`  // top 10, ranked by count
	TopSequences []Sequence                `json:"top_sequences"` // top 5, ranked by count
}

const comboSeparator = "+"

// AggregateTools folds tool_use occurrences across conversations into
// per-tool and per-project counts, the top-10 unordered consecutive tool
// pairs, and the top-5 ordered consecutive tool triples.
func AggregateTools(conversations []ConversationMessages, scope Scope) ToolUsage {
	usage := ToolUsage{
		ByTool:    make(map[string]int),
		ByProject: make(map[string]map[string]int),
	}

	pairCounts := make(map[string]int)
	tripleCounts := make(map[[3]string]int)

	for _, cm := range conversations {
		tools := cm.ToolNames
		if !scope.From.IsZero() || !scope.To.IsZero() {
			tools = toolsInScope(cm, scope)
		}

		for _, name := range tools {
			usage.Total++
			usage.ByTool[name]++
			if usage.ByProject[cm.Conversation.Project] == nil {
				usage.ByProject[cm.Conversation.Project] = make(map[string]int)
			}
			usage.ByProject[cm.Conversation.Project][name]++
		}

		for i := 0; i+1 < len(tools); i++ {
			pairCounts[pairKey(tools[i], tools[i+1])]++
		}
		for i := 0; i+2 < len(tools); i++ {
			tripleCounts[[3]string{tools[i], tools[i+1], tools[i+2]}]++
		}
	}

	for pair, count := range pairCounts {
		usage.Combinations = append(usage.Combinations, Combination{Pair: pair, Count: count})
	}
	sort.Slice(usage.Combinations, func(i, j int) bool {
		if usage.Combinations[i].Count != usage.Combinations[j].Count {
			return usage.Combinations[i].Count > usage.Combinations[j].Count
		}
		return usage.Combinations[i].Pair < usage.Combinations[j].Pair
	})
	if len(usage.Combinations) > 10 {
		usage.Combinations = usage.Combinations[:10]
	}

	for triple, count := range tripleCounts {
		usage.TopSequences = append(usage.TopSequences, Sequence{Tools: triple, Count: count})
	}
	sort.Slice(usage.TopSequences, func(i, j int) bool {
		if usage.TopSequences[i].Count != usage.TopSequences[j].Count {
			return usage.TopSequences[i].Count > usage.TopSequences[j].Count
		}
		return usage.TopSequences[i].Tools[0] < usage.TopSequences[j].Tools[0]
	})
	if len(usage.TopSequences) > 5 {
		usage.TopSequences = usage.TopSequences[:5]
	}

	return usage
}

// pairKey renders an unordered tool pair as a deterministic "A+B" string
// with the lexicographically smaller name first.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + comboSeparator + b
}

// toolsInScope re-derives a scoped tool-invocation sequence by walking
// cm.Messages directly, since cm.ToolNames (collected once at parse time)
// carries no per-invocation timestamp to filter by.
func toolsInScope(cm ConversationMessages, scope Scope) []string {
	var out []string
	for _, m := range filterMessages(cm.Messages, scope) {
		out = append(out, m.ToolUses()...)
	}
	return out
}

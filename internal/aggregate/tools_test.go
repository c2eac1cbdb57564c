package aggregate

import (
	"testing"

	"github.com/siftdev/sift/internal/model"
)

func TestAggregateTools_CountsAndCombinations(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1", Project: "projX"},
		ToolNames:    []string{"Read", "Edit", "Read", "Edit", "Bash"},
	}

	usage := AggregateTools([]ConversationMessages{conv}, Scope{})

	if usage.Total != 5 {
		t.Errorf("expected total 5, got %d", usage.Total)
	}
	if usage.ByTool["Read"] != 2 || usage.ByTool["Edit"] != 2 || usage.ByTool["Bash"] != 1 {
		t.Errorf("unexpected ByTool counts: %+v", usage.ByTool)
	}
	if usage.ByProject["projX"]["Read"] != 2 {
		t.Errorf("unexpected ByProject counts: %+v", usage.ByProject)
	}

	foundPair := false
	for _, c := range usage.Combinations {
		if c.Pair == "Edit+Read" && c.Count == 3 {
			foundPair = true
		}
	}
	if !foundPair {
		t.Errorf("expected Edit+Read pair with count 3, got %+v", usage.Combinations)
	}
}

func TestPairKey_AlphabeticallySorted(t *testing.T) {
	t.Parallel()
	if got := pairKey("Write", "Bash"); got != "Bash+Write" {
		t.Errorf("expected Bash+Write, got %q", got)
	}
	if got := pairKey("Bash", "Write"); got != "Bash+Write" {
		t.Errorf("expected Bash+Write, got %q", got)
	}
}

func TestAggregateTools_Sequences(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		ToolNames:    []string{"Read", "Edit", "Bash", "Read", "Edit", "Bash"},
	}
	usage := AggregateTools([]ConversationMessages{conv}, Scope{})
	if len(usage.TopSequences) == 0 {
		t.Fatal("expected at least one sequence")
	}
	top := usage.TopSequences[0]
	if top.Count != 2 {
		t.Errorf("expected top sequence count 2, got %d", top.Count)
	}
}

func TestAggregateTools_EmptyInput(t *testing.T) {
	t.Parallel()
	usage := AggregateTools(nil, Scope{})
	if usage.Total != 0 || len(usage.Combinations) != 0 || len(usage.TopSequences) != 0 {
		t.Errorf("expected zero-value usage for empty input, got %+v", usage)
	}
}

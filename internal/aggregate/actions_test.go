package aggregate

import (
	"testing"

	"github.com/siftdev/sift/internal/model"
)

func TestAggregateActions_ExcludesBuiltins(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{
				{Kind: model.BlockCommandMarker, CommandName: "/clear"},
				{Kind: model.BlockCommandMarker, CommandName: "/my-custom-cmd"},
				{Kind: model.BlockCommandMarker, CommandName: "/my-custom-cmd"},
			}},
		},
	}

	actions := AggregateActions([]ConversationMessages{conv}, Scope{})
	if actions.SlashCommands.Total != 2 {
		t.Errorf("expected builtin /clear excluded, total=2, got %d", actions.SlashCommands.Total)
	}
	if actions.SlashCommands.ByCommand["/clear"] != 0 {
		t.Errorf("expected /clear excluded entirely, got %d", actions.SlashCommands.ByCommand["/clear"])
	}
	if actions.SlashCommands.ByCommand["/my-custom-cmd"] != 2 {
		t.Errorf("expected /my-custom-cmd=2, got %d", actions.SlashCommands.ByCommand["/my-custom-cmd"])
	}
}

func TestAggregateActions_Hooks(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: []model.ContentBlock{
				{Kind: model.BlockHookMarker, HookName: "PreToolUse", HookPhase: "Pre"},
				{Kind: model.BlockHookMarker, HookName: "PreToolUse", HookPhase: "Pre"},
				{Kind: model.BlockHookMarker, HookName: "PostToolUse", HookPhase: "Post"},
			}},
		},
	}
	actions := AggregateActions([]ConversationMessages{conv}, Scope{})
	if actions.Hooks.Total != 3 {
		t.Errorf("expected 3 hooks, got %d", actions.Hooks.Total)
	}
	if actions.Hooks.ByHook["PreToolUse"] != 2 {
		t.Errorf("expected PreToolUse=2, got %d", actions.Hooks.ByHook["PreToolUse"])
	}
	if len(actions.Hooks.TopHooks) == 0 || actions.Hooks.TopHooks[0].Name != "PreToolUse" {
		t.Errorf("expected PreToolUse to top the hook list, got %+v", actions.Hooks.TopHooks)
	}
}

func TestAggregateActions_EmptyInput(t *testing.T) {
	t.Parallel()
	actions := AggregateActions(nil, Scope{})
	if actions.SlashCommands.Total != 0 || actions.Hooks.Total != 0 {
		t.Errorf("expected zero-value actions, got %+v", actions)
	}
}

func TestTopN_TieBrokenAlphabetically(t *testing.T) {
	t.Parallel()
	counts := map[string]int{"zeta": 3, "alpha": 3, "beta": 1}
	top := topN(counts, 10)
	if top[0].Name != "alpha" || top[1].Name != "zeta" {
		t.Errorf("expected alpha before zeta on tie, got %+v", top)
	}
}

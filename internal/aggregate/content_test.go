package aggregate

import (
	"testing"

	"github.com/siftdev/sift/internal/model"
)

func TestAggregateContent_CodeBlocksAndLanguages(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{
				Role: model.RoleAssistant,
				Content: []model.ContentBlock{
					{Kind: model.BlockCodeBlock, Language: "go", Body: "func main() {}"},
					{Kind: model.BlockCodeBlock, Language: "Go", Body: "package main"},
					{Kind: model.BlockCodeBlock, Body: "no lang"},
				},
			},
		},
	}

	content := AggregateContent([]ConversationMessages{conv}, Scope{})
	if content.TotalCodeBlocks != 3 {
		t.Errorf("expected 3 code blocks, got %d", content.TotalCodeBlocks)
	}
	if content.Languages["go"] != 2 {
		t.Errorf("expected 2 go blocks (case-folded), got %d", content.Languages["go"])
	}
	if content.Languages["unknown"] != 1 {
		t.Errorf("expected 1 unknown-language block, got %d", content.Languages["unknown"])
	}
}

func TestAggregateContent_Frameworks(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{
				Role: model.RoleUser,
				Content: []model.ContentBlock{
					{Kind: model.BlockText, Text: "set up a React app and run it with Docker"},
				},
			},
		},
	}
	content := AggregateContent([]ConversationMessages{conv}, Scope{})
	if content.Frameworks["react"] != 1 {
		t.Errorf("expected react=1, got %+v", content.Frameworks)
	}
	if content.Frameworks["docker"] != 1 {
		t.Errorf("expected docker=1, got %+v", content.Frameworks)
	}
}

func TestAggregateContent_AvgMessageLength(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Kind: model.BlockText, Text: "abcd"}}},
			{Role: model.RoleUser, Content: []model.ContentBlock{{Kind: model.BlockText, Text: "abcdefgh"}}},
			{Role: model.RoleAssistant, Content: []model.ContentBlock{{Kind: model.BlockText, Text: "ab"}}},
		},
	}
	content := AggregateContent([]ConversationMessages{conv}, Scope{})
	if content.AvgMessageLen.User != 6 {
		t.Errorf("expected avg user length 6, got %v", content.AvgMessageLen.User)
	}
	if content.AvgMessageLen.Assistant != 2 {
		t.Errorf("expected avg assistant length 2, got %v", content.AvgMessageLen.Assistant)
	}
}

func TestAggregateContent_MostEditedFiles(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{Role: model.RoleAssistant, Content: []model.ContentBlock{
				{Kind: model.BlockText, Text: "edited internal/foo.go and internal/foo.go again"},
			}},
			{Role: model.RoleAssistant, Content: []model.ContentBlock{
				{Kind: model.BlockText, Text: "also touched internal/foo.go and cmd/bar.go"},
			}},
		},
	}
	content := AggregateContent([]ConversationMessages{conv}, Scope{})
	if len(content.MostEditedFiles) == 0 {
		t.Fatal("expected at least one edited file")
	}
	if content.MostEditedFiles[0].Path != "internal/foo.go" || content.MostEditedFiles[0].Count != 2 {
		t.Errorf("expected internal/foo.go with count 2 at top, got %+v", content.MostEditedFiles[0])
	}
}

func TestAggregateContent_EmptyInput(t *testing.T) {
	t.Parallel()
	content := AggregateContent(nil, Scope{})
	if content.TotalCodeBlocks != 0 || content.CodeToTextRatio != 0 {
		t.Errorf("expected zero-value content, got %+v", content)
	}
}

package query

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siftdev/sift/internal/catalog"
	"github.com/siftdev/sift/internal/index"
	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/parser"
)

func writeTranscript(t *testing.T, dir, project, name, content string) model.Conversation {
	t.Helper()
	projDir := filepath.Join(dir, project)
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(projDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	conv := model.Conversation{
		ID:         model.ConversationID(path),
		SourcePath: path,
		Project:    project,
		ModTime:    time.Now(),
	}
	conv, _, err := catalog.Hydrate(conv)
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func buildEngine(t *testing.T, convs []model.Conversation) *Engine {
	t.Helper()
	ix := index.New()
	byID := make(map[string]model.Conversation, len(convs))
	for _, c := range convs {
		res, err := parser.ParseFile(c.SourcePath)
		if err != nil {
			t.Fatal(err)
		}
		ix.Add(c, res.Messages)
		byID[c.ID] = c
	}
	return New(ix, nil, byID)
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()
	e := New(index.New(), nil, nil)
	res, err := e.Search(context.Background(), "", Filters{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 0 || res.Total != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearch_MatchesAndHighlight(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	line := `{"type":"user","timestamp":"2025-09-29T10:00:00Z","message":{"role":"user","content":"How do I use typescript?"}}` + "\n"
	conv := writeTranscript(t, dir, "projectX", "conv1.jsonl", line)

	e := buildEngine(t, []model.Conversation{conv})
	res, err := e.Search(context.Background(), "typescript", Filters{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(res.Hits))
	}
	hit := res.Hits[0]
	if hit.Matches < 1 {
		t.Errorf("expected at least 1 match, got %d", hit.Matches)
	}
	if !strings.Contains(hit.HighlightedPreview, "[HIGHLIGHT]") {
		t.Errorf("expected highlighted preview, got %q", hit.HighlightedPreview)
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(hit.HighlightedPreview, "[HIGHLIGHT]", ""), "[/HIGHLIGHT]", "")
	if !strings.Contains(line, cleaned) && cleaned != "" {
		// preview words must all appear in the source text
		for _, w := range strings.Fields(cleaned) {
			if !strings.Contains(line, w) {
				t.Errorf("preview word %q not found in source", w)
			}
		}
	}
}

func TestSearch_RepoFilter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	line := `{"type":"user","timestamp":"2025-09-29T10:00:00Z","message":{"role":"user","content":"shared topic keyword"}}` + "\n"
	convX := writeTranscript(t, dir, "projectX", "a.jsonl", line)
	convY := writeTranscript(t, dir, "projectY", "b.jsonl", line)

	e := buildEngine(t, []model.Conversation{convX, convY})
	res, err := e.Search(context.Background(), "keyword", Filters{Repos: []string{"projectX"}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range res.Hits {
		if h.Project != "projectX" {
			t.Errorf("hit from project %q leaked past filter", h.Project)
		}
	}
}

func TestResolvePreset_Today(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)
	r, err := ResolvePreset("today", now)
	if err != nil {
		t.Fatal(err)
	}
	if r.From.Day() != 31 || r.To.Day() != 31 {
		t.Errorf("expected today's range to stay within day 31, got %v..%v", r.From, r.To)
	}
}

func TestResolvePreset_Unknown(t *testing.T) {
	t.Parallel()
	if _, err := ResolvePreset("sometime-never", time.Now()); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestDateRange_FromAfterTo_IsEmpty(t *testing.T) {
	t.Parallel()
	r := DateRange{From: time.Now(), To: time.Now().Add(-time.Hour)}
	if r.passes(time.Now()) {
		t.Error("expected from>to range to reject everything")
	}
}

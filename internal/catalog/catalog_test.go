package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/siftdev/sift/internal/model"
)

func TestDefaultCorpusRoot_EnvOverride(t *testing.T) {
	t.Setenv("SIFT_CORPUS_ROOT", "/tmp/custom-root")
	got, err := DefaultCorpusRoot()
	if err != nil {
		t.Fatalf("DefaultCorpusRoot: %v", err)
	}
	if got != "/tmp/custom-root" {
		t.Errorf("got %q, want /tmp/custom-root", got)
	}
}

func TestDefaultCorpusRoot_Default(t *testing.T) {
	t.Setenv("SIFT_CORPUS_ROOT", "")
	got, err := DefaultCorpusRoot()
	if err != nil {
		t.Fatalf("DefaultCorpusRoot: %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != ".claude" || filepath.Base(got) != "projects" {
		t.Errorf("got %q, want .../.claude/projects", got)
	}
}

func TestScan_NonexistentRoot(t *testing.T) {
	t.Parallel()
	got, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty scan, got %v", got)
	}
}

func TestScan_FindsTranscripts(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	projectDir := filepath.Join(root, "-Users-frank-repo")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	jsonlPath := filepath.Join(projectDir, "session1.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(`{"type":"user"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "notes.ignored"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Scan = %+v, want 1 conversation", got)
	}
	if got[0].Project != "-Users-frank-repo" {
		t.Errorf("Project = %q", got[0].Project)
	}
	if got[0].SourcePath != jsonlPath {
		t.Errorf("SourcePath = %q, want %q", got[0].SourcePath, jsonlPath)
	}
}

func TestHydrate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "session.jsonl")
	content := `{"uuid":"a1","timestamp":"2026-01-01T10:00:00Z","type":"user","message":{"role":"user","content":"hello"}}
{"uuid":"a2","timestamp":"2026-01-01T10:05:00Z","type":"assistant","message":{"role":"assistant","content":"hi there"}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := model.Conversation{ID: "c1", SourcePath: path}
	hydrated, messages, err := Hydrate(conv)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if hydrated.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", hydrated.MessageCount)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if hydrated.ContentFingerprint == "" {
		t.Error("expected non-empty ContentFingerprint")
	}
	wantFirst := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if !hydrated.FirstTimestamp.Equal(wantFirst) {
		t.Errorf("FirstTimestamp = %v, want %v", hydrated.FirstTimestamp, wantFirst)
	}
	if hydrated.DurationMillis != 5*60*1000 {
		t.Errorf("DurationMillis = %d, want %d", hydrated.DurationMillis, 5*60*1000)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	previous := []model.Conversation{
		{ID: "c1", SourcePath: "/p/a.jsonl", SizeBytes: 100, ModTime: t0},
		{ID: "c2", SourcePath: "/p/b.jsonl", SizeBytes: 200, ModTime: t0},
	}
	current := []model.Conversation{
		{ID: "c1", SourcePath: "/p/a.jsonl", SizeBytes: 100, ModTime: t0},    // unchanged
		{ID: "c2", SourcePath: "/p/b.jsonl", SizeBytes: 250, ModTime: t1},    // changed
		{ID: "c3", SourcePath: "/p/c.jsonl", SizeBytes: 50, ModTime: t0},     // added
	}

	d := Diff(previous, current)
	if len(d.Added) != 1 || d.Added[0].SourcePath != "/p/c.jsonl" {
		t.Errorf("Added = %+v", d.Added)
	}
	if len(d.Changed) != 1 || d.Changed[0].SourcePath != "/p/b.jsonl" {
		t.Errorf("Changed = %+v", d.Changed)
	}
	if len(d.Removed) != 0 {
		t.Errorf("Removed = %+v, want none", d.Removed)
	}

	d2 := Diff(current, previous)
	if len(d2.Removed) != 1 || d2.Removed[0].SourcePath != "/p/c.jsonl" {
		t.Errorf("Removed = %+v", d2.Removed)
	}
}

func TestDelta_IsEmpty(t *testing.T) {
	t.Parallel()
	var d Delta
	if !d.IsEmpty() {
		t.Error("zero-value Delta should be empty")
	}
	d.Added = append(d.Added, model.Conversation{})
	if d.IsEmpty() {
		t.Error("Delta with an Added entry should not be empty")
	}
}

// Package catalog discovers transcript files under a corpus root and
// builds the Conversation records the rest of the system indexes and
// aggregates over.
package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/parser"
)

// corpusRootEnvVar overrides the default corpus root, mirroring how the
// teacher's session finder resolves a per-repo directory under
// ~/.claude/projects/.
const corpusRootEnvVar = "SIFT_CORPUS_ROOT"

// transcriptExtensions are the file suffixes Scan treats as transcripts.
var transcriptExtensions = []string{".jsonl", ".md", ".markdown", ".txt"}

// DefaultCorpusRoot returns SIFT_CORPUS_ROOT if set, else
// $HOME/.claude/projects — the directory Claude Code itself writes
// per-project transcript subdirectories under.
func DefaultCorpusRoot() (string, error) {
	if v := os.Getenv(corpusRootEnvVar); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// Scan walks root one level deep: each immediate subdirectory is treated as
// a project (named after Claude Code's own sanitized-path directory
// convention), and every transcript file within it becomes one
// Conversation. A root that doesn't exist yet returns an empty slice, not
// an error — a fresh machine with no history is a valid starting state.
func Scan(root string) ([]model.Conversation, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.Conversation
	for _, projectDir := range entries {
		if !projectDir.IsDir() {
			continue
		}
		project := projectDir.Name()
		projectPath := filepath.Join(root, project)

		files, err := os.ReadDir(projectPath)
		if err != nil {
			continue // unreadable project directory, skip rather than abort the scan
		}
		for _, f := range files {
			if f.IsDir() || !isTranscript(f.Name()) {
				continue
			}
			fullPath := filepath.Join(projectPath, f.Name())
			info, err := f.Info()
			if err != nil {
				continue
			}
			out = append(out, model.Conversation{
				ID:         model.ConversationID(fullPath),
				SourcePath: fullPath,
				Project:    project,
				SizeBytes:  info.Size(),
				ModTime:    info.ModTime(),
			})
		}
	}
	return out, nil
}

func isTranscript(name string) bool {
	for _, ext := range transcriptExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Hydrate parses conv's transcript file and fills in the fields Scan
// can't derive from filesystem metadata alone: message count, the first
// and last message timestamps, duration, and the content fingerprint used
// to detect changes independent of mtime.
func Hydrate(conv model.Conversation) (model.Conversation, []model.Message, error) {
	res, err := parser.ParseFile(conv.SourcePath)
	if err != nil {
		return conv, nil, err
	}

	conv.MessageCount = len(res.Messages)
	conv.ContentFingerprint = model.FingerprintContent(res.Messages)

	for _, m := range res.Messages {
		if !m.HasTimestamp() {
			continue
		}
		if conv.FirstTimestamp.IsZero() || m.Timestamp.Before(conv.FirstTimestamp) {
			conv.FirstTimestamp = m.Timestamp
		}
		if m.Timestamp.After(conv.LastTimestamp) {
			conv.LastTimestamp = m.Timestamp
		}
	}
	if !conv.FirstTimestamp.IsZero() && !conv.LastTimestamp.IsZero() {
		conv.DurationMillis = conv.LastTimestamp.Sub(conv.FirstTimestamp).Milliseconds()
	}

	return conv, res.Messages, nil
}

// Package model defines the canonical shapes shared across the indexer,
// parser, and aggregators: conversations, messages, content blocks, and
// index postings.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is one transcript file under the corpus root.
// The Catalog owns these records; Index Store and Analytics Cache hold
// derived state keyed by ID and ContentFingerprint.
type Conversation struct {
	ID                 string
	SourcePath         string
	Project            string
	SizeBytes          int64
	ModTime            time.Time
	FirstTimestamp     time.Time
	LastTimestamp      time.Time
	MessageCount       int
	DurationMillis     int64
	ContentFingerprint string
}

// FingerprintContent returns a stable hash over concatenated message
// contents, used to detect changes independently of filesystem metadata.
func FingerprintContent(messages []Message) string {
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		for _, b := range m.Content {
			h.Write([]byte(b.Kind.String()))
			h.Write([]byte(b.Text))
			h.Write([]byte(b.ToolName))
			h.Write([]byte(b.ToolInputJSON))
			h.Write([]byte(b.ToolOutput))
			h.Write([]byte(b.Language))
			h.Write([]byte(b.Body))
			h.Write([]byte(b.CommandName))
			h.Write([]byte(b.HookName))
			h.Write([]byte(b.HookPhase))
			h.Write([]byte{0})
		}
		h.Write([]byte{0xFF})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ConversationID derives a stable identifier for a transcript path: if the
// filename stem is itself a UUID (Claude Code's own convention for session
// files), that UUID is used verbatim so the conversation id matches what
// produced it; otherwise a hash of the absolute path stands in (spec §3:
// "derived as a hash of the absolute path or extracted from the filename
// where the source provides a UUID").
func ConversationID(absPath string) string {
	stem := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	if id, err := uuid.Parse(stem); err == nil {
		return id.String()
	}
	h := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(h[:16])
}

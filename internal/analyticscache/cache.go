// Package analyticscache persists aggregator output as a versioned JSON
// snapshot on disk, atomically replaced so readers never observe a
// half-written file (spec §4.6, §6).
package analyticscache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/siftdev/sift/internal/aggregate"
)

// schemaVersion is bumped whenever the Snapshot shape changes incompatibly;
// a stale on-disk version forces a full rebuild (spec §4.6).
const schemaVersion = 1

// staleFingerprintFraction is the configurable threshold spec §4.6
// describes: once more than this fraction of conversations have a
// fingerprint mismatch against the cache, a full rebuild runs instead of a
// delta merge.
const staleFingerprintFraction = 0.25

// Snapshot is the on-disk shape, carrying the top-level keys spec §6
// requires (version, lastUpdated, overview, conversationStats,
// timePatterns, toolUsage, contentAnalysis, productivityMetrics,
// userActions, comparative) plus the fingerprints ledger that
// NeedsFullRebuild compares against.
type Snapshot struct {
	Version      int               `json:"version"`
	LastUpdated  time.Time         `json:"lastUpdated"`
	Fingerprints map[string]string `json:"fingerprints"`

	Overview            Overview               `json:"overview"`
	ConversationStats   ConversationStats      `json:"conversationStats"`
	TimePatterns        aggregate.Temporal     `json:"timePatterns"`
	ToolUsage           aggregate.ToolUsage    `json:"toolUsage"`
	ContentAnalysis     aggregate.Content      `json:"contentAnalysis"`
	ProductivityMetrics aggregate.Productivity `json:"productivityMetrics"`
	UserActions         aggregate.Actions      `json:"userActions"`
	Comparative         aggregate.Comparative  `json:"comparative"`
}

// Overview is a small top-of-dashboard summary, not itself an aggregator —
// derived directly from the conversation set.
type Overview struct {
	TotalConversations int       `json:"totalConversations"`
	TotalMessages      int       `json:"totalMessages"`
	FirstConversation  time.Time `json:"firstConversation"`
	LastConversation   time.Time `json:"lastConversation"`
}

// ConversationStats summarizes per-conversation size distribution.
type ConversationStats struct {
	AvgMessagesPerConversation float64 `json:"avgMessagesPerConversation"`
	AvgDurationMillis          float64 `json:"avgDurationMillis"`
}

// empty returns a Snapshot with every map field initialized and version set
// to schemaVersion, per spec §6's "empty defaults defined".
func empty() Snapshot {
	return Snapshot{
		Version:      schemaVersion,
		Fingerprints: make(map[string]string),
		ToolUsage: aggregate.ToolUsage{
			ByTool:    make(map[string]int),
			ByProject: make(map[string]map[string]int),
		},
		ContentAnalysis: aggregate.Content{
			Languages:  make(map[string]int),
			Frameworks: make(map[string]int),
		},
	}
}

// Load reads the snapshot at path. A missing file returns an empty snapshot
// with no error, matching the "empty defaults" requirement.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return empty(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading analytics cache: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parsing analytics cache: %w", err)
	}
	if snap.Fingerprints == nil {
		snap.Fingerprints = make(map[string]string)
	}
	return snap, nil
}

// Save writes snap to path atomically: marshal, write to a temp file in the
// same directory, then rename over the destination.
func Save(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analytics cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".analytics_cache_tmp_")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// NeedsFullRebuild reports whether snap is stale enough to warrant
// recomputing every aggregator from scratch rather than merging a delta,
// per spec §4.6: a version change, or a fingerprint mismatch affecting more
// than staleFingerprintFraction of the known conversations.
func NeedsFullRebuild(snap Snapshot, current map[string]string) bool {
	if snap.Version != schemaVersion {
		return true
	}
	if len(snap.Fingerprints) == 0 {
		return len(current) > 0
	}

	mismatches := 0
	for id, fp := range current {
		if snap.Fingerprints[id] != fp {
			mismatches++
		}
	}
	for id := range snap.Fingerprints {
		if _, ok := current[id]; !ok {
			mismatches++
		}
	}

	total := len(current)
	if total == 0 {
		return false
	}
	return float64(mismatches)/float64(total) > staleFingerprintFraction
}

package analyticscache

import (
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile_ReturnsEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	snap, err := Load(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Version != schemaVersion {
		t.Errorf("expected empty snapshot to carry schemaVersion, got %d", snap.Version)
	}
	if snap.Fingerprints == nil {
		t.Error("expected empty snapshot to have an initialized fingerprint map")
	}
}

func TestSave_Load_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")

	snap := empty()
	snap.Overview.TotalConversations = 7
	snap.Fingerprints["conv1"] = "fp1"

	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Overview.TotalConversations != 7 {
		t.Errorf("expected TotalConversations=7, got %d", got.Overview.TotalConversations)
	}
	if got.Fingerprints["conv1"] != "fp1" {
		t.Errorf("expected fingerprint fp1, got %q", got.Fingerprints["conv1"])
	}
}

func TestSave_NoPartialFileOnDiskBeforeRename(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.json")

	if err := Save(path, empty()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected saved file to be loadable, got %v", err)
	}
}

func TestNeedsFullRebuild_VersionMismatch(t *testing.T) {
	t.Parallel()
	snap := empty()
	snap.Version = schemaVersion - 1
	if !NeedsFullRebuild(snap, map[string]string{"a": "1"}) {
		t.Error("expected version mismatch to force rebuild")
	}
}

func TestNeedsFullRebuild_WithinThreshold(t *testing.T) {
	t.Parallel()
	snap := empty()
	snap.Fingerprints = map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}
	current := map[string]string{"a": "1", "b": "2", "c": "3", "d": "DIFFERENT"}
	if NeedsFullRebuild(snap, current) {
		t.Error("expected 1/4 mismatch to stay under the rebuild threshold")
	}
}

func TestNeedsFullRebuild_ExceedsThreshold(t *testing.T) {
	t.Parallel()
	snap := empty()
	snap.Fingerprints = map[string]string{"a": "1", "b": "2"}
	current := map[string]string{"a": "DIFFERENT", "b": "DIFFERENT"}
	if !NeedsFullRebuild(snap, current) {
		t.Error("expected full mismatch to force rebuild")
	}
}

func TestNeedsFullRebuild_EmptyBoth(t *testing.T) {
	t.Parallel()
	if NeedsFullRebuild(empty(), nil) {
		t.Error("expected empty cache vs empty corpus to not need rebuild")
	}
}

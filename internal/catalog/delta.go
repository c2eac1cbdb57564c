package catalog

import "github.com/siftdev/sift/internal/model"

// Delta is the result of comparing a freshly scanned file listing against
// the previously cataloged one: which conversations are new, which changed
// (by size or mtime, a cheap signal checked before the more expensive
// content fingerprint comparison), and which disappeared from disk.
type Delta struct {
	Added   []model.Conversation
	Changed []model.Conversation
	Removed []model.Conversation
}

// IsEmpty reports whether applying this delta would be a no-op.
func (d Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Diff compares a previous catalog snapshot against a fresh Scan result.
// Conversations are matched by SourcePath, since ID is derived from it
// deterministically; a file whose size or mtime hasn't changed is assumed
// unchanged without re-parsing it.
func Diff(previous, current []model.Conversation) Delta {
	prevByPath := make(map[string]model.Conversation, len(previous))
	for _, c := range previous {
		prevByPath[c.SourcePath] = c
	}
	currByPath := make(map[string]model.Conversation, len(current))
	for _, c := range current {
		currByPath[c.SourcePath] = c
	}

	var d Delta
	for path, curr := range currByPath {
		prev, ok := prevByPath[path]
		if !ok {
			d.Added = append(d.Added, curr)
			continue
		}
		if prev.SizeBytes != curr.SizeBytes || !prev.ModTime.Equal(curr.ModTime) {
			d.Changed = append(d.Changed, curr)
		}
	}
	for path, prev := range prevByPath {
		if _, ok := currByPath[path]; !ok {
			d.Removed = append(d.Removed, prev)
		}
	}
	return d
}

package index

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/siftdev/sift/internal/codec"
	"github.com/siftdev/sift/internal/model"
)

// generationEntropy backs the monotonic ULID source Save uses to mint a
// fresh GenerationID per snapshot; monotonic so two Save calls within the
// same millisecond still sort in write order.
var generationEntropy = ulid.Monotonic(rand.Reader, 0)

// Save serializes the index to path using internal/codec's framed format.
// The write is not atomic at this layer — callers that need crash safety
// across a rebuild should write to a temp path and rename, the same
// pattern internal/analyticscache uses for its own snapshot file.
func (ix *Index) Save(path string) error {
	data, genID, err := ix.encode()
	if err != nil {
		return fmt.Errorf("index: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("index: write %s: %w", path, err)
	}
	ix.mu.Lock()
	ix.generationID = genID.String()
	ix.mu.Unlock()
	return nil
}

// GenerationID returns the ULID minted by the most recent successful Save,
// or the empty string if the index has never been persisted.
func (ix *Index) GenerationID() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generationID
}

func (ix *Index) encode() ([]byte, ulid.ULID, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	termRef := make(map[string]uint64)
	terms := make([]string, 0, len(ix.postings))
	for term := range ix.postings {
		termRef[term] = uint64(len(terms))
		terms = append(terms, term)
	}

	convRef := make(map[string]uint64)
	convs := make([]string, 0, len(ix.docs))
	for id := range ix.docs {
		convRef[id] = uint64(len(convs))
		convs = append(convs, id)
	}

	var records []codec.PostingRecord
	for term, byDoc := range ix.postings {
		for convID, postingsForDoc := range byDoc {
			for _, p := range postingsForDoc {
				positions := make([]uint64, len(p.Positions))
				for i, pos := range p.Positions {
					positions[i] = uint64(pos)
				}
				records = append(records, codec.PostingRecord{
					TermRef:         termRef[term],
					ConversationRef: convRef[convID],
					Field:           byte(p.Field),
					Positions:       positions,
				})
			}
		}
	}

	now := time.Now()
	genID := ulid.MustNew(ulid.Timestamp(now), generationEntropy)

	f := &codec.File{
		Terms:         &codec.DictFrame{Namespace: codec.NSTerms, Entries: terms},
		Conversations: &codec.DictFrame{Namespace: codec.NSConversations, Entries: convs},
		Postings:      &codec.PostingsFrame{Records: records},
		Meta: &codec.MetaFrame{
			FormatVersion:     1,
			ConversationCount: uint32(len(convs)),
			TermCount:         uint32(len(terms)),
			PostingCount:      uint32(len(records)),
			BuiltAtUnix:       uint32(now.Unix()),
			GenerationID:      genID,
		},
	}
	data, err := codec.WriteFile(f)
	return data, genID, err
}

// Load reads an index previously written by Save. A corrupt or truncated
// file (bad magic, version mismatch, checksum failure) is returned as an
// error; the caller's recovery path is to discard it and rebuild from the
// catalog rather than attempt partial repair.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}
	f, err := codec.ReadFile(data)
	if err != nil {
		return nil, fmt.Errorf("index: decode %s: %w", path, err)
	}
	return fromFile(f)
}

func fromFile(f *codec.File) (*Index, error) {
	ix := New()

	if int(f.Meta.TermCount) != len(f.Terms.Entries) {
		return nil, fmt.Errorf("index: meta term_count %d disagrees with dictionary size %d", f.Meta.TermCount, len(f.Terms.Entries))
	}
	if int(f.Meta.ConversationCount) != len(f.Conversations.Entries) {
		return nil, fmt.Errorf("index: meta conversation_count %d disagrees with dictionary size %d", f.Meta.ConversationCount, len(f.Conversations.Entries))
	}

	for _, id := range f.Conversations.Entries {
		ix.docs[id] = &docStats{fieldLength: make(map[model.Field]int), conversationID: id}
	}

	for _, rec := range f.Postings.Records {
		if int(rec.TermRef) >= len(f.Terms.Entries) {
			return nil, fmt.Errorf("index: posting references out-of-range term %d", rec.TermRef)
		}
		if int(rec.ConversationRef) >= len(f.Conversations.Entries) {
			return nil, fmt.Errorf("index: posting references out-of-range conversation %d", rec.ConversationRef)
		}
		term := f.Terms.Entries[rec.TermRef]
		convID := f.Conversations.Entries[rec.ConversationRef]
		field := model.Field(rec.Field)

		positions := make([]int, len(rec.Positions))
		for i, p := range rec.Positions {
			positions[i] = int(p)
		}

		if ix.postings[term] == nil {
			ix.postings[term] = make(map[string][]model.Posting)
		}
		ix.postings[term][convID] = append(ix.postings[term][convID], model.Posting{
			Term:           term,
			ConversationID: convID,
			Field:          field,
			Positions:      positions,
		})
		ix.vocabulary[term] = struct{}{}

		stats := ix.docs[convID]
		if stats != nil {
			stats.fieldLength[field] += len(positions)
		}
	}

	for term, byDoc := range ix.postings {
		ix.docFreq[term] = len(byDoc)
	}

	var genID ulid.ULID = f.Meta.GenerationID
	ix.generationID = genID.String()

	return ix, nil
}

// SetLastTimestamp restores the recency tie-break metadata that the codec
// format doesn't carry per-posting; callers reload timestamps from the
// catalog after Load since the Index Store format only needs to recover
// scoring, not calendar metadata.
func (ix *Index) SetLastTimestamp(conversationID string, ts time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if stats, ok := ix.docs[conversationID]; ok {
		stats.lastTimestamp = ts
	}
}

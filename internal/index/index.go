package index

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/siftdev/sift/internal/model"
)

// docStats tracks the per-conversation, per-field token counts needed for
// length normalization and recency tie-breaking.
type docStats struct {
	fieldLength    map[model.Field]int
	lastTimestamp  time.Time
	conversationID string
}

// Index is an in-memory inverted index over conversation content, project
// name, and filename. It is safe for concurrent readers; writers
// (Add/Remove) take an exclusive lock.
type Index struct {
	mu sync.RWMutex

	// postings[term][conversationID] holds one Posting per (term,
	// conversation, field) triple actually present; most terms appear in
	// only one field of a given conversation.
	postings map[string]map[string][]model.Posting

	// docFreq[term] is the number of distinct conversations containing
	// term at least once, used for the IDF factor.
	docFreq map[string]int

	docs map[string]*docStats

	vocabulary map[string]struct{}

	// generationID is the ULID of the most recent Save (or the Load this
	// Index was recovered from); empty until the index is persisted once.
	generationID string
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		postings:   make(map[string]map[string][]model.Posting),
		docFreq:    make(map[string]int),
		docs:       make(map[string]*docStats),
		vocabulary: make(map[string]struct{}),
	}
}

// Add tokenizes messages and inserts postings for conv. If conv.ID is
// already present, the caller must Remove it first — Add does not
// overwrite in place, to keep docFreq bookkeeping simple and correct.
func (ix *Index) Add(conv model.Conversation, messages []model.Message) {
	fields := map[model.Field][]string{
		model.FieldContent:  nil,
		model.FieldProject:  Tokenize(conv.Project),
		model.FieldFilename: Tokenize(conv.SourcePath),
	}
	for _, m := range messages {
		fields[model.FieldContent] = append(fields[model.FieldContent], Tokenize(messageText(m))...)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	stats := &docStats{fieldLength: make(map[model.Field]int), lastTimestamp: conv.LastTimestamp, conversationID: conv.ID}
	seenTerm := make(map[string]bool)

	for field, tokens := range fields {
		stats.fieldLength[field] = len(tokens)
		positions := make(map[string][]int)
		for pos, term := range tokens {
			positions[term] = append(positions[term], pos)
			ix.vocabulary[term] = struct{}{}
		}
		for term, pos := range positions {
			if ix.postings[term] == nil {
				ix.postings[term] = make(map[string][]model.Posting)
			}
			ix.postings[term][conv.ID] = append(ix.postings[term][conv.ID], model.Posting{
				Term:           term,
				ConversationID: conv.ID,
				Field:          field,
				Positions:      pos,
			})
			if !seenTerm[term] {
				ix.docFreq[term]++
				seenTerm[term] = true
			}
		}
	}

	ix.docs[conv.ID] = stats
}

// Remove deletes every posting belonging to conversationID and decrements
// the affected document frequencies.
func (ix *Index) Remove(conversationID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(conversationID)
}

func (ix *Index) removeLocked(conversationID string) {
	if _, ok := ix.docs[conversationID]; !ok {
		return
	}
	for term, byDoc := range ix.postings {
		if _, ok := byDoc[conversationID]; !ok {
			continue
		}
		delete(byDoc, conversationID)
		ix.docFreq[term]--
		if ix.docFreq[term] <= 0 {
			delete(ix.postings, term)
			delete(ix.docFreq, term)
			delete(ix.vocabulary, term)
		}
	}
	delete(ix.docs, conversationID)
}

// Replace removes any existing entry for conv.ID and re-adds it, the
// standard update path for a conversation whose content fingerprint
// changed.
func (ix *Index) Replace(conv model.Conversation, messages []model.Message) {
	ix.mu.Lock()
	ix.removeLocked(conv.ID)
	ix.mu.Unlock()
	ix.Add(conv, messages)
}

// DocCount returns the number of conversations currently indexed.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Vocabulary returns every distinct term in the index, used by fuzzy and
// prefix expansion to find candidate terms near a query token.
func (ix *Index) Vocabulary() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.vocabulary))
	for t := range ix.vocabulary {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// fieldWeight biases scoring toward matches in conversation content over
// incidental matches against a project or file name.
var fieldWeight = map[model.Field]float64{
	model.FieldContent:  1.0,
	model.FieldProject:  0.4,
	model.FieldFilename: 0.4,
}

// ScoredConversation is one ranked result of a term lookup.
type ScoredConversation struct {
	ConversationID string
	Score          float64
	MatchedTerms   map[string][]model.Posting
}

// Lookup scores every conversation containing at least one of terms using
// TF-IDF with field weighting and document-length normalization, breaking
// ties by recency (more recent LastTimestamp ranks higher). terms is
// assumed already expanded (fuzzy/prefix variants folded in by the caller)
// — Lookup itself does exact term matching only.
func (ix *Index) Lookup(terms []string) []ScoredConversation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	totalDocs := len(ix.docs)
	if totalDocs == 0 {
		return nil
	}

	scores := make(map[string]float64)
	matched := make(map[string]map[string][]model.Posting)

	for _, term := range dedupe(terms) {
		byDoc, ok := ix.postings[term]
		if !ok {
			continue
		}
		df := ix.docFreq[term]
		idf := math.Log(1 + float64(totalDocs)/float64(df))

		for convID, postingsForDoc := range byDoc {
			stats := ix.docs[convID]
			if stats == nil {
				continue
			}
			var tf float64
			for _, p := range postingsForDoc {
				w := fieldWeight[p.Field]
				length := stats.fieldLength[p.Field]
				norm := 1.0
				if length > 0 {
					norm = 1.0 / math.Sqrt(float64(length))
				}
				tf += w * float64(len(p.Positions)) * norm
			}
			scores[convID] += tf * idf

			if matched[convID] == nil {
				matched[convID] = make(map[string][]model.Posting)
			}
			matched[convID][term] = append(matched[convID][term], postingsForDoc...)
		}
	}

	out := make([]ScoredConversation, 0, len(scores))
	for convID, score := range scores {
		out = append(out, ScoredConversation{ConversationID: convID, Score: score, MatchedTerms: matched[convID]})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ti, tj := ix.docs[out[i].ConversationID], ix.docs[out[j].ConversationID]
		if ti == nil || tj == nil {
			return out[i].ConversationID < out[j].ConversationID
		}
		return ti.lastTimestamp.After(tj.lastTimestamp)
	})

	return out
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func messageText(m model.Message) string {
	var out string
	for _, b := range m.Content {
		switch b.Kind {
		case model.BlockText:
			out += b.Text + "\n"
		case model.BlockCodeBlock:
			out += b.Body + "\n"
		case model.BlockToolResult:
			out += b.ToolOutput + "\n"
		case model.BlockCommandMarker:
			out += b.CommandName + "\n"
		}
	}
	return out
}

// ErrEmptyIndex is returned by operations that require at least one
// indexed conversation.
var ErrEmptyIndex = fmt.Errorf("index: no conversations indexed")

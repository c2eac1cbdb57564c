// Package query implements the Query Engine: it tokenizes a user's search
// string, looks up postings in the Index Store with fuzzy/prefix
// expansion, applies repo and date-range filters, and computes a
// preview-with-highlights for the top hits by re-reading their source
// transcripts. Aggregate scoring comes from internal/index; query is
// responsible for filtering, previewing, and the optional LSA blend.
package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/siftdev/sift/internal/index"
	"github.com/siftdev/sift/internal/lsa"
	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/parser"
)

// previewWindow is the approximate number of tokens surrounding the
// earliest match that a preview carries, per spec §4.4.
const previewWindow = 30

// Hybrid blend weights for the optional LSA secondary signal, mirroring the
// teacher's fixed defaultBM25Weight/defaultLSAWeight split in recall.go.
// The blend only ever nudges ties among already-matched conversations — it
// never overrides the TF-IDF ranking spec.md's Query Engine requires.
const (
	lexicalWeight  = 0.7
	semanticWeight = 0.3
)

// Filters scope a search to a subset of the corpus.
type Filters struct {
	// Repos, if non-empty, restricts hits to these project names. An empty
	// slice means "no repo filter" — spec §4.4: "a hit passes if its
	// project is in the set (non-empty set required to filter)".
	Repos []string

	// DateRange, if non-nil, restricts hits to conversations whose mtime
	// (or LastTimestamp when available) falls within [From, To] inclusive.
	DateRange *DateRange
}

// DateRange is a concrete, resolved [From, To] window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// passes reports whether t falls within the range, inclusive. A range
// where From is after To always yields an empty result set, per spec §8's
// boundary behavior ("date range where from > to is defined as empty
// result, not error").
func (r DateRange) passes(t time.Time) bool {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Hit is one ranked search result.
type Hit struct {
	ConversationID     string
	Project            string
	Path               string
	ModTime            time.Time
	SizeBytes          int64
	Matches            int
	Relevance          float64
	Preview            string
	HighlightedPreview string
}

// Result is the full response to a Search call.
type Result struct {
	Total     int
	Hits      []Hit
	TookMillis int64
	TimedOut  bool
}

// Engine answers searches against a committed Index snapshot, an optional
// LSA model for semantic re-ranking, and the Catalog's conversation
// records (needed for filtering and for locating the source file to
// render a preview from).
type Engine struct {
	Index         *index.Index
	LSA           *lsa.Model
	Conversations map[string]model.Conversation
}

// New returns a query Engine over the given index and catalog snapshot.
// lsaModel may be nil — hybrid re-ranking is then simply disabled.
func New(ix *index.Index, lsaModel *lsa.Model, conversations map[string]model.Conversation) *Engine {
	return &Engine{Index: ix, LSA: lsaModel, Conversations: conversations}
}

// Search runs the query pipeline described in spec §4.4. An empty query
// returns an empty result, not an error. ctx's deadline, if any, bounds the
// (potentially file-reading) preview phase; exceeding it yields whatever
// hits were already rendered plus TimedOut=true, never an error.
func (e *Engine) Search(ctx context.Context, q string, filters Filters, limit int) (Result, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 20
	}

	tokens := index.Tokenize(q)
	if len(tokens) == 0 {
		return Result{}, nil
	}

	terms := expandTerms(tokens, e.Index.Vocabulary())
	scored := e.Index.Lookup(terms)

	var semantic map[string]float64
	if e.LSA != nil {
		qvec := e.LSA.Embed(q)
		vectors := e.LSA.Vectors()
		semantic = make(map[string]float64, len(vectors))
		for id, vec := range vectors {
			if sim := lsa.CosineSimilarity(qvec, vec); sim > 0 {
				semantic[id] = sim
			}
		}
	}

	filtered := make([]index.ScoredConversation, 0, len(scored))
	for _, sc := range scored {
		conv, ok := e.Conversations[sc.ConversationID]
		if !ok {
			continue
		}
		if !passesFilters(conv, filters) {
			continue
		}
		filtered = append(filtered, sc)
	}

	blended := blendScores(filtered, semantic)

	sort.Slice(blended, func(i, j int) bool {
		if blended[i].score != blended[j].score {
			return blended[i].score > blended[j].score
		}
		ci, cj := e.Conversations[blended[i].id], e.Conversations[blended[j].id]
		return recencyOf(ci).After(recencyOf(cj))
	})

	total := len(blended)
	if len(blended) > limit {
		blended = blended[:limit]
	}

	maxScore := 0.0
	for _, b := range blended {
		if b.score > maxScore {
			maxScore = b.score
		}
	}

	result := Result{Total: total}
	for _, b := range blended {
		if err := ctx.Err(); err != nil {
			result.TimedOut = true
			break
		}
		conv := e.Conversations[b.id]
		relevance := 0.0
		if maxScore > 0 {
			relevance = b.score / maxScore
		}
		matches, preview, highlighted := renderPreview(conv.SourcePath, tokens)
		result.Hits = append(result.Hits, Hit{
			ConversationID:     conv.ID,
			Project:            conv.Project,
			Path:               conv.SourcePath,
			ModTime:            conv.ModTime,
			SizeBytes:          conv.SizeBytes,
			Matches:            matches,
			Relevance:          relevance,
			Preview:            preview,
			HighlightedPreview: highlighted,
		})
	}

	result.TookMillis = time.Since(start).Milliseconds()
	return result, nil
}

func recencyOf(c model.Conversation) time.Time {
	if !c.LastTimestamp.IsZero() {
		return c.LastTimestamp
	}
	return c.ModTime
}

func passesFilters(conv model.Conversation, filters Filters) bool {
	if len(filters.Repos) > 0 {
		found := false
		for _, r := range filters.Repos {
			if r == conv.Project {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filters.DateRange != nil {
		if !filters.DateRange.passes(recencyOf(conv)) {
			return false
		}
	}
	return true
}

// expandTerms applies last-token prefix expansion and length>=4 fuzzy
// expansion to a tokenized query, per spec §4.3/§4.4.
func expandTerms(tokens []string, vocabulary []string) []string {
	var out []string
	for i, t := range tokens {
		if i == len(tokens)-1 {
			out = append(out, index.ExpandPrefix(t, vocabulary)...)
		} else {
			out = append(out, t)
		}
		out = append(out, index.ExpandFuzzy(t, vocabulary)...)
	}
	return out
}

type scoredBlend struct {
	id    string
	score float64
}

// blendScores folds the optional LSA cosine-similarity signal into the
// lexical TF-IDF score with fixed weights, mirroring the teacher's
// hybridSearch normalization: both signals are normalized to [0,1] against
// their own max before blending so neither dominates by raw scale.
func blendScores(lexical []index.ScoredConversation, semantic map[string]float64) []scoredBlend {
	maxLexical := 0.0
	for _, sc := range lexical {
		if sc.Score > maxLexical {
			maxLexical = sc.Score
		}
	}
	maxSemantic := 0.0
	for _, s := range semantic {
		if s > maxSemantic {
			maxSemantic = s
		}
	}

	out := make([]scoredBlend, 0, len(lexical))
	seen := make(map[string]bool, len(lexical))
	for _, sc := range lexical {
		lexNorm := 0.0
		if maxLexical > 0 {
			lexNorm = sc.Score / maxLexical
		}
		semNorm := 0.0
		if maxSemantic > 0 {
			semNorm = semantic[sc.ConversationID] / maxSemantic
		}
		score := lexNorm
		if maxSemantic > 0 {
			score = lexicalWeight*lexNorm + semanticWeight*semNorm
		}
		out = append(out, scoredBlend{id: sc.ConversationID, score: score})
		seen[sc.ConversationID] = true
	}
	return out
}

// renderPreview re-parses path and builds the match count, plain preview,
// and sentinel-highlighted preview described in spec §4.4. A file that can
// no longer be read (removed since indexing) yields a zero-value, empty
// preview rather than an error — search results degrade gracefully.
func renderPreview(path string, tokens []string) (matches int, preview, highlighted string) {
	res, err := parser.ParseFile(path)
	if err != nil {
		return 0, "", ""
	}

	var allWords []string
	var lineStarts []int // word index at which each message's text begins
	for _, m := range res.Messages {
		text := messageSearchText(m)
		if text == "" {
			continue
		}
		lineStarts = append(lineStarts, len(allWords))
		lower := strings.ToLower(text)
		for _, tok := range tokens {
			if strings.Contains(lower, strings.ToLower(tok)) {
				matches++
				break
			}
		}
		allWords = append(allWords, strings.Fields(text)...)
	}

	if len(allWords) == 0 {
		return matches, "", ""
	}

	matchPos := -1
	for i, w := range allWords {
		lw := strings.ToLower(strings.Trim(w, ".,!?;:()[]{}\"'"))
		for _, tok := range tokens {
			if lw == strings.ToLower(tok) {
				matchPos = i
				break
			}
		}
		if matchPos >= 0 {
			break
		}
	}
	if matchPos < 0 {
		matchPos = 0
	}

	start := matchPos - previewWindow/2
	if start < 0 {
		start = 0
	}
	end := start + previewWindow
	if end > len(allWords) {
		end = len(allWords)
		start = end - previewWindow
		if start < 0 {
			start = 0
		}
	}

	window := allWords[start:end]
	preview = strings.Join(window, " ")
	highlighted = highlightTokens(preview, tokens)
	return matches, preview, highlighted
}

// highlightTokens wraps every case-insensitive occurrence of any token in
// text with the [HIGHLIGHT]/[/HIGHLIGHT] sentinel markers specified in
// spec §6.
func highlightTokens(text string, tokens []string) string {
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.Trim(w, ".,!?;:()[]{}\"'")
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, tok := range tokens {
			if lower == strings.ToLower(tok) {
				words[i] = strings.Replace(w, trimmed, "[HIGHLIGHT]"+trimmed+"[/HIGHLIGHT]", 1)
				break
			}
		}
	}
	return strings.Join(words, " ")
}

// messageSearchText concatenates the searchable text of a message the same
// way internal/index's tokenizer input is built, so previews reflect what
// was actually indexed.
func messageSearchText(m model.Message) string {
	var b strings.Builder
	for _, blk := range m.Content {
		switch blk.Kind {
		case model.BlockText:
			b.WriteString(blk.Text)
			b.WriteString(" ")
		case model.BlockCodeBlock:
			b.WriteString(blk.Body)
			b.WriteString(" ")
		case model.BlockToolResult:
			b.WriteString(blk.ToolOutput)
			b.WriteString(" ")
		case model.BlockCommandMarker:
			b.WriteString(blk.CommandName)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

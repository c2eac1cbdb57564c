// Package engine wires the Catalog, Index Store, and Analytics Cache into a
// single owned value, replacing the per-command open/close wiring the CLI
// would otherwise repeat (spec §9 design note).
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/siftdev/sift/internal/analyticscache"
	"github.com/siftdev/sift/internal/catalog"
	"github.com/siftdev/sift/internal/index"
	"github.com/siftdev/sift/internal/lsa"
	"github.com/siftdev/sift/internal/model"
	"github.com/siftdev/sift/internal/query"
	"github.com/siftdev/sift/internal/store"
)

const (
	indexFileName = "index.sift"
	cacheFileName = "analytics.json"
)

// Engine owns every piece of on-disk state: the conversation catalog (via
// Store), the in-memory Index Store persisted to indexFileName, and the
// Analytics Cache snapshot. Its methods are the only place ingestion and
// query wiring happens; cmd/sift/cli calls through it rather than opening
// its own handles per command.
type Engine struct {
	StateDir   string
	CorpusRoot string

	Store *store.Store
	Index *index.Index
	LSA   *lsa.Model

	Conversations map[string]model.Conversation
	Messages      map[string][]model.Message
}

// Open opens the catalog database under stateDir and loads the index file
// if one exists, creating an empty index otherwise. corpusRoot is the
// transcript root Ingest scans.
func Open(stateDir, corpusRoot string) (*Engine, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create state dir: %w", err)
	}

	st, err := store.Open(stateDir)
	if err != nil {
		return nil, fmt.Errorf("engine: open store: %w", err)
	}

	ix, err := index.Load(filepath.Join(stateDir, indexFileName))
	if err != nil {
		ix = index.New() // missing or corrupt index: rebuild is the recovery path, not partial repair
	}

	e := &Engine{
		StateDir:      stateDir,
		CorpusRoot:    corpusRoot,
		Store:         st,
		Index:         ix,
		Conversations: make(map[string]model.Conversation),
		Messages:      make(map[string][]model.Message),
	}

	rows, err := st.All()
	if err != nil {
		return nil, fmt.Errorf("engine: load catalog: %w", err)
	}
	for _, c := range rows {
		e.Conversations[c.ID] = c
		e.Index.SetLastTimestamp(c.ID, c.LastTimestamp)
	}

	return e, nil
}

// Close releases the underlying catalog database handle.
func (e *Engine) Close() error {
	return e.Store.Close()
}

// IndexPath returns the on-disk path of the Index Store file.
func (e *Engine) IndexPath() string {
	return filepath.Join(e.StateDir, indexFileName)
}

// CachePath returns the on-disk path of the Analytics Cache snapshot.
func (e *Engine) CachePath() string {
	return filepath.Join(e.StateDir, cacheFileName)
}

// workerCount sizes the ingestion pool to the number of available cores, per
// spec §5 ("bounded worker pool sized to the number of cores").
func workerCount() int64 {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return int64(n)
}

// IngestResult summarizes one Ingest call.
type IngestResult struct {
	Added, Changed, Removed int
}

// Ingest scans the corpus root, diffs it against the catalog, and applies
// the delta: parsing new/changed files on a bounded worker pool, then
// committing each conversation's index update under the write lock with the
// remove-then-insert protocol spec §5 requires. Suspension points are at
// every transcript parse and every per-conversation commit, so ctx
// cancellation lands between conversations, never mid-conversation.
func (e *Engine) Ingest(ctx context.Context) (IngestResult, error) {
	var result IngestResult

	current, err := catalog.Scan(e.CorpusRoot)
	if err != nil {
		return result, fmt.Errorf("engine: scan corpus: %w", err)
	}

	previous := make([]model.Conversation, 0, len(e.Conversations))
	for _, c := range e.Conversations {
		previous = append(previous, c)
	}
	delta := catalog.Diff(previous, current)
	if delta.IsEmpty() {
		return result, nil
	}

	type hydrated struct {
		conv     model.Conversation
		messages []model.Message
	}

	toHydrate := append(append([]model.Conversation{}, delta.Added...), delta.Changed...)
	hydratedResults := make([]hydrated, len(toHydrate))

	sem := semaphore.NewWeighted(workerCount())
	g, gctx := errgroup.WithContext(ctx)

	for i, conv := range toHydrate {
		i, conv := i, conv
		if err := sem.Acquire(gctx, 1); err != nil {
			break // context cancelled: stop launching new work, let in-flight finish
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return nil // cooperative cancellation between conversations
			}
			c, messages, err := catalog.Hydrate(conv)
			if err != nil {
				return fmt.Errorf("hydrate %s: %w", conv.SourcePath, err)
			}
			hydratedResults[i] = hydrated{conv: c, messages: messages}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("engine: ingest: %w", err)
	}

	for _, h := range hydratedResults {
		if h.conv.ID == "" {
			continue // cancelled before this slot was filled
		}
		if _, exists := e.Conversations[h.conv.ID]; exists {
			e.Index.Replace(h.conv, h.messages)
			result.Changed++
		} else {
			e.Index.Add(h.conv, h.messages)
			result.Added++
		}
		if err := e.Store.Upsert(h.conv); err != nil {
			return result, fmt.Errorf("engine: persist %s: %w", h.conv.ID, err)
		}
		e.Conversations[h.conv.ID] = h.conv
		e.Messages[h.conv.ID] = h.messages

		if err := ctx.Err(); err != nil {
			return result, nil // cancelled between conversations: index stays consistent
		}
	}

	for _, conv := range delta.Removed {
		e.Index.Remove(conv.ID)
		if err := e.Store.Remove(conv.ID); err != nil {
			return result, fmt.Errorf("engine: remove %s: %w", conv.ID, err)
		}
		delete(e.Conversations, conv.ID)
		delete(e.Messages, conv.ID)
		result.Removed++
	}

	if err := e.Index.Save(e.IndexPath()); err != nil {
		return result, fmt.Errorf("engine: save index: %w", err)
	}

	e.rebuildLSA()

	return result, nil
}

// rebuildLSA rebuilds the optional semantic ranking model from the current
// in-memory conversation set. Silent on failure — LSA is a secondary signal
// per SPEC_FULL §5, never required for search to function.
func (e *Engine) rebuildLSA() {
	if len(e.Conversations) < lsa.MinConversations {
		e.LSA = nil
		return
	}
	docs := make(map[string]lsa.Document, len(e.Messages))
	for id, messages := range e.Messages {
		docs[id] = conversationDocument(messages)
	}
	model, err := lsa.Build(docs, lsa.DefaultDimension)
	if err != nil {
		e.LSA = nil
		return
	}
	e.LSA = model
}

// conversationDocument folds a conversation's messages into the role- and
// block-segmented shape lsa.Build weights: user prose, assistant prose, and
// code block bodies kept apart rather than merged into one string.
func conversationDocument(messages []model.Message) lsa.Document {
	var doc lsa.Document
	for _, m := range messages {
		var prose string
		for _, b := range m.Content {
			switch b.Kind {
			case model.BlockText:
				prose += b.Text + "\n"
			case model.BlockCodeBlock:
				doc.CodeText += b.Body + "\n"
			}
		}
		switch m.Role {
		case model.RoleAssistant:
			doc.AssistantText += prose
		default:
			doc.UserText += prose
		}
	}
	return doc
}

// Query returns a query.Engine bound to the current index, LSA model, and
// conversation set — a fresh, lightweight wrapper per call, not a cached
// value, since Conversations/Index can change between ingests.
func (e *Engine) Query() *query.Engine {
	return query.New(e.Index, e.LSA, e.Conversations)
}

// LoadAnalyticsCache reads the on-disk snapshot, returning an empty one if
// none exists yet.
func (e *Engine) LoadAnalyticsCache() (analyticscache.Snapshot, error) {
	return analyticscache.Load(e.CachePath())
}

// SaveAnalyticsCache atomically writes snap to disk.
func (e *Engine) SaveAnalyticsCache(snap analyticscache.Snapshot) error {
	snap.LastUpdated = time.Now()
	return analyticscache.Save(e.CachePath(), snap)
}

// Fingerprints returns the current conversation_id -> content_fingerprint
// map, used to decide whether the Analytics Cache needs a full rebuild.
func (e *Engine) Fingerprints() map[string]string {
	out := make(map[string]string, len(e.Conversations))
	for id, c := range e.Conversations {
		out[id] = c.ContentFingerprint
	}
	return out
}

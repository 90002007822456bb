// Package reader implements the Reader: the loaded corpus plus its
// lazily-constructed indexes, and the public search/retrieve/prompt
// contract every query-side consumer goes through.
package reader

import (
	"sort"

	"github.com/screenager/versum/internal/artifact"
	"github.com/screenager/versum/internal/corpus"
	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/lexicon"
	"github.com/screenager/versum/internal/prompt"
	"github.com/screenager/versum/internal/query"
	"github.com/screenager/versum/internal/rank/hybrid"
	"github.com/screenager/versum/internal/rank/tfidf"
	"github.com/screenager/versum/internal/retrieve"
	"github.com/screenager/versum/internal/semantic"
	"github.com/screenager/versum/internal/tokenize"
)

// Reader owns one loaded corpus and the indexes built over it.
type Reader struct {
	manifest    corpus.Manifest
	nodeMap     *corpus.NodeMap
	buildReport *corpus.BuildReport

	spansByID    map[string]corpus.Span
	orderedSpans []corpus.Span
	orderToID    []string
	sectionIndex map[string]corpus.Section

	sink diag.Sink

	lexIndex *lexicon.Index
	tfidf    *tfidf.Ranker

	warnedMissingEmbedding map[string]struct{}
}

// New builds a Reader from an already-loaded artifact set. sink may be
// nil to discard diagnostics.
func New(loaded *artifact.Loaded, sink diag.Sink) *Reader {
	r := &Reader{
		manifest:               loaded.Manifest,
		nodeMap:                loaded.NodeMap,
		buildReport:            loaded.BuildReport,
		sink:                   sink,
		warnedMissingEmbedding: make(map[string]struct{}),
	}

	r.orderedSpans = make([]corpus.Span, len(loaded.Spans))
	copy(r.orderedSpans, loaded.Spans)
	sort.Slice(r.orderedSpans, func(i, j int) bool { return r.orderedSpans[i].Order < r.orderedSpans[j].Order })

	r.spansByID = make(map[string]corpus.Span, len(r.orderedSpans))
	r.orderToID = make([]string, len(r.orderedSpans))
	for i, sp := range r.orderedSpans {
		r.spansByID[sp.ID] = sp
		r.orderToID[i] = sp.ID
	}

	if r.nodeMap != nil {
		r.sectionIndex = r.nodeMap.Sections
	}

	return r
}

// Open loads the artifact directory and constructs a Reader in one step.
func Open(directory string, sink diag.Sink) (*Reader, error) {
	loaded, err := artifact.Load(directory)
	if err != nil {
		return nil, err
	}
	return New(loaded, sink), nil
}

// GetManifest returns the corpus manifest.
func (r *Reader) GetManifest() corpus.Manifest { return r.manifest }

// GetSpan returns the span with the given id, if any.
func (r *Reader) GetSpan(id string) (corpus.Span, bool) {
	sp, ok := r.spansByID[id]
	return sp, ok
}

// GetByOrder returns the span at the given 0-based order, if in range.
func (r *Reader) GetByOrder(order int) (corpus.Span, bool) {
	if order < 0 || order >= len(r.orderedSpans) {
		return corpus.Span{}, false
	}
	return r.orderedSpans[order], true
}

// GetSpanCount returns N, the total span count.
func (r *Reader) GetSpanCount() int { return len(r.orderedSpans) }

// Neighbors returns span ids for orders in [o-before, o+after] clipped
// to [0, N-1], ascending, including id itself. An unknown id yields an
// empty sequence.
func (r *Reader) Neighbors(id string, before, after int) []string {
	sp, ok := r.spansByID[id]
	if !ok {
		return nil
	}
	start := sp.Order - before
	if start < 0 {
		start = 0
	}
	end := sp.Order + after
	if end > len(r.orderedSpans)-1 {
		end = len(r.orderedSpans) - 1
	}
	out := make([]string, 0, end-start+1)
	for o := start; o <= end; o++ {
		out = append(out, r.orderToID[o])
	}
	return out
}

// ListSections returns sorted section ids, empty when there is no node
// map.
func (r *Reader) ListSections() []string {
	if r.nodeMap == nil {
		return nil
	}
	ids := make([]string, 0, len(r.sectionIndex))
	for id := range r.sectionIndex {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetSection returns a section by id, if present.
func (r *Reader) GetSection(sectionID string) (corpus.Section, bool) {
	if r.nodeMap == nil {
		return corpus.Section{}, false
	}
	sec, ok := r.sectionIndex[sectionID]
	return sec, ok
}

// GetNodeMap returns the loaded node map, or nil when absent.
func (r *Reader) GetNodeMap() *corpus.NodeMap { return r.nodeMap }

// GetBuildReport returns the loaded build report, or nil when absent.
func (r *Reader) GetBuildReport() *corpus.BuildReport { return r.buildReport }

// ensureLexicon lazily builds the inverted index.
func (r *Reader) ensureLexicon() *lexicon.Index {
	if r.lexIndex == nil {
		r.lexIndex = lexicon.Build(r.orderedSpans)
	}
	return r.lexIndex
}

// ensureTFIDF lazily builds the TF-IDF ranker over the lexical index.
func (r *Reader) ensureTFIDF() *tfidf.Ranker {
	r.ensureLexicon()
	if r.tfidf == nil {
		r.tfidf = tfidf.New(r.lexIndex)
	}
	return r.tfidf
}

// EnableTfCache force-builds the lexical index and TF-IDF ranker, then
// turns on the bounded TF cache at the given capacity. Calling it again
// is a no-op with respect to existing cache contents.
func (r *Reader) EnableTfCache(size int) {
	if size <= 0 {
		size = tfidf.DefaultCacheSize
	}
	r.ensureTFIDF().EnableCache(size)
}

// LexiconBuilt reports whether the inverted index has been constructed
// yet. It stays false until the first Search, Retrieve or EnableTfCache
// call.
func (r *Reader) LexiconBuilt() bool { return r.lexIndex != nil }

// TfCacheStats reports whether the TF-IDF ranker's bounded cache is
// enabled and, if so, its capacity and current entry count. All three
// are zero/false when the ranker hasn't been built or caching was
// never turned on.
func (r *Reader) TfCacheStats() (enabled bool, capacity, length int) {
	if r.tfidf == nil {
		return false, 0, 0
	}
	capacity, length = r.tfidf.CacheStats()
	return r.tfidf.CacheEnabled(), capacity, length
}

func (r *Reader) lookupText(spanID string) (string, bool) {
	sp, ok := r.spansByID[spanID]
	if !ok {
		return "", false
	}
	return sp.Text, true
}

func (r *Reader) lookupEmbedding(spanID string) ([]float64, bool) {
	sp, ok := r.spansByID[spanID]
	if !ok || !sp.HasEmbedding() {
		return nil, false
	}
	return sp.Embedding, true
}

// dedupingSink wraps r.sink so a MissingEmbedding diagnostic fires at
// most once per span for this Reader's lifetime, as diag.MissingEmbedding
// documents. Other diagnostic kinds pass through unfiltered.
func (r *Reader) dedupingSink() diag.Sink {
	return func(d diag.Diagnostic) {
		if d.Kind == diag.MissingEmbedding {
			if _, seen := r.warnedMissingEmbedding[d.SpanID]; seen {
				return
			}
			r.warnedMissingEmbedding[d.SpanID] = struct{}{}
		}
		diag.Emit(r.sink, d)
	}
}

// Search runs the full search contract: lexical lookup (with optional
// fuzzy expansion), optional ranking, sort, and truncation.
func (r *Reader) Search(q string, opts query.SearchOptions) ([]query.SearchResult, error) {
	idx := r.ensureLexicon()

	limitForSearch := -1
	if opts.Rank == query.RankNone && opts.Limit != nil {
		limitForSearch = *opts.Limit
	}

	hits := idx.SearchWithHits(q, limitForSearch, opts.Fuzzy)

	var err error
	switch opts.Rank {
	case query.RankTFIDF:
		hits = r.ensureTFIDF().RankWithHits(hits, tokenize.Tokenize(q), 0, r.lookupText)
	case query.RankHybrid:
		hOpts := hybrid.DefaultOptions()
		if opts.Hybrid != nil {
			hOpts = *opts.Hybrid
		}
		qEmbed := semantic.EmbedText(q)
		hits, err = hybrid.Rank(hits, tokenize.Tokenize(q), qEmbed, hOpts, r.ensureTFIDF(), r.lookupText, r.lookupEmbedding, r.dedupingSink())
		if err != nil {
			return nil, err
		}
	}

	ranked := opts.Rank != query.RankNone
	if ranked {
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].Score != hits[j].Score {
				return hits[i].Score > hits[j].Score
			}
			return hits[i].Order < hits[j].Order
		})
	} else {
		lexicon.SortByOrder(hits)
	}

	if opts.Limit != nil && *opts.Limit < len(hits) {
		hits = hits[:*opts.Limit]
	}

	results := make([]query.SearchResult, len(hits))
	for i, h := range hits {
		sp := r.spansByID[h.SpanID]
		results[i] = query.SearchResult{
			SpanID:      h.SpanID,
			Order:       h.Order,
			Score:       h.Score,
			HeadingPath: sp.HeadingPath,
			Hits:        h.Hits,
		}
	}
	return results, nil
}

// retrieveAdapter exposes the subset of Reader the retrieve package
// needs, satisfying retrieve.Searcher and retrieve.Resolver
// structurally.
type retrieveAdapter struct{ r *Reader }

func (a retrieveAdapter) Search(q string, opts query.SearchOptions) ([]query.SearchResult, error) {
	return a.r.Search(q, opts)
}
func (a retrieveAdapter) GetSpan(id string) (corpus.Span, bool)       { return a.r.GetSpan(id) }
func (a retrieveAdapter) GetByOrder(order int) (corpus.Span, bool)    { return a.r.GetByOrder(order) }
func (a retrieveAdapter) GetSection(id string) (corpus.Section, bool) { return a.r.GetSection(id) }
func (a retrieveAdapter) GetNodeMap() *corpus.NodeMap                 { return a.r.GetNodeMap() }
func (a retrieveAdapter) GetSpanCount() int                           { return a.r.GetSpanCount() }

// Retrieve builds the retrieval packs for a query.
func (r *Reader) Retrieve(q string, opts query.RetrieveOptions) ([]query.RetrievalPack, error) {
	return retrieve.Build(retrieveAdapter{r}, q, opts, r.dedupingSink())
}

// AssemblePrompt builds a prompt from retrieval packs, injecting
// this Reader's manifest id as DocID.
func (r *Reader) AssemblePrompt(req query.PromptRequest) query.AssembledPrompt {
	req.DocID = r.manifest.ID
	return prompt.Assemble(req)
}

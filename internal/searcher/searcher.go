package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/storage"
	"github.com/palaios/grammata/internal/textnorm"
	"github.com/palaios/grammata/pkg/types"
)

const (
	defaultLimit    = 10
	maxLimit        = 100
	defaultMinSim   = 0.05
	defaultCacheTTL = 1 * time.Hour
	cacheSize       = 1000

	// Each channel over-fetches so fusion has enough candidates to
	// rerank before truncation
	overFetchFactor = 2
)

// Weights controls how the two retrieval channels are blended
type Weights struct {
	Lexical  float64
	Semantic float64
}

// DefaultWeights favor the lexical channel. Diacritic-folded trigram
// matching is the more reliable signal for historical-language queries.
var DefaultWeights = Weights{Lexical: 0.6, Semantic: 0.4}

// Request contains parameters for one hybrid search
type Request struct {
	Query    string
	Language string // Optional filter, e.g. "grc"
	K        int    // Maximum hits to return
	Weights  Weights

	MinSimilarity float64 // Lexical floor; hits below are dropped
	UseCache      bool
	CacheTTL      time.Duration
}

// Response contains ranked hits and channel metadata
type Response struct {
	Hits []types.HybridHit

	LexicalCount  int  // Candidates the lexical channel surfaced
	SemanticCount int  // Candidates the semantic channel surfaced
	Degraded      bool // True when the semantic channel failed
	CacheHit      bool
	Duration      time.Duration
}

type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Engine coordinates hybrid retrieval across the lexical and semantic
// channels
type Engine struct {
	storage  storage.Storage
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// New creates a search engine. The embedder may be nil, which disables
// the semantic channel entirely.
func New(store storage.Storage, emb embedder.Embedder) *Engine {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Engine{
		storage:  store,
		embedder: emb,
		cache:    cache,
	}
}

// Search runs one hybrid query. An empty or whitespace-only query is
// rejected before any storage or embedding call.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", types.ErrInvalidInput)
	}
	applyDefaults(&req)

	if req.UseCache {
		if cached := e.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	lexRes, semRes, degraded, err := e.runChannels(ctx, req)
	if err != nil {
		return nil, err
	}

	hits := fuse(lexRes, semRes, req.Weights)
	if len(hits) > req.K {
		hits = hits[:req.K]
	}

	response := &Response{
		Hits:          hits,
		LexicalCount:  len(lexRes),
		SemanticCount: len(semRes),
		Degraded:      degraded,
		Duration:      time.Since(start),
	}

	if req.UseCache && len(hits) > 0 {
		e.storeInCache(req, response)
	}

	return response, nil
}

func applyDefaults(req *Request) {
	if req.K <= 0 {
		req.K = defaultLimit
	}
	if req.K > maxLimit {
		req.K = maxLimit
	}
	if req.Weights.Lexical == 0 && req.Weights.Semantic == 0 {
		req.Weights = DefaultWeights
	}
	if req.MinSimilarity <= 0 {
		req.MinSimilarity = defaultMinSim
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = defaultCacheTTL
	}
}

// channelResult carries one retrieval channel's outcome
type channelResult struct {
	lexical  []storage.LexicalResult
	semantic []storage.VectorResult
	err      error
}

// runChannels executes both retrieval channels concurrently. The lexical
// channel failing fails the query; the semantic channel failing only
// degrades it.
func (e *Engine) runChannels(ctx context.Context, req Request) ([]storage.LexicalResult, []storage.VectorResult, bool, error) {
	lexChan := make(chan channelResult, 1)
	semChan := make(chan channelResult, 1)

	go e.runLexical(ctx, req, lexChan)
	go e.runSemantic(ctx, req, semChan)

	var lexRes, semRes channelResult
	var lexDone, semDone bool
	for !lexDone || !semDone {
		select {
		case lexRes = <-lexChan:
			lexDone = true
		case semRes = <-semChan:
			semDone = true
		case <-ctx.Done():
			return nil, nil, false, ctx.Err()
		}
	}

	if lexRes.err != nil {
		return nil, nil, false, fmt.Errorf("%w: lexical search: %v", types.ErrDependency, lexRes.err)
	}

	degraded := false
	if semRes.err != nil {
		log.Printf("searcher: semantic channel degraded: %v", semRes.err)
		degraded = true
		semRes.semantic = nil
	}

	return lexRes.lexical, semRes.semantic, degraded, nil
}

func (e *Engine) runLexical(ctx context.Context, req Request, out chan<- channelResult) {
	var res channelResult
	folded := textnorm.Fold(req.Query)
	res.lexical, res.err = e.storage.SearchLexical(ctx, folded, req.Language, req.K*overFetchFactor, req.MinSimilarity)
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

func (e *Engine) runSemantic(ctx context.Context, req Request, out chan<- channelResult) {
	var res channelResult
	if e.embedder == nil {
		res.err = embedder.ErrNoProviderEnabled
	} else {
		composed := textnorm.NFC(req.Query)
		vec, err := e.embedder.Embed(ctx, composed)
		if err != nil {
			res.err = fmt.Errorf("failed to embed query: %w", err)
		} else {
			res.semantic, res.err = e.storage.SearchVector(ctx, vec, req.Language, req.K*overFetchFactor)
		}
	}
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// accumulator gathers per-segment evidence during fusion
type accumulator struct {
	segment  *storage.Segment
	score    float64
	lexical  bool
	semantic bool
}

// fuse merges the two channels by accumulating weighted scores keyed by
// content address. Weights are normalized so fused scores stay in [0, 1]
// regardless of the caller's scale.
func fuse(lexical []storage.LexicalResult, semantic []storage.VectorResult, w Weights) []types.HybridHit {
	total := w.Lexical + w.Semantic
	if total <= 0 {
		w = DefaultWeights
		total = w.Lexical + w.Semantic
	}
	wLex := w.Lexical / total
	wSem := w.Semantic / total

	acc := make(map[string]*accumulator)
	ordered := make([]*accumulator, 0, len(lexical)+len(semantic))

	for _, lr := range lexical {
		a := acc[lr.Segment.ChunkID]
		if a == nil {
			a = &accumulator{segment: lr.Segment}
			acc[lr.Segment.ChunkID] = a
			ordered = append(ordered, a)
		}
		a.score += wLex * lr.Similarity
		a.lexical = true
	}
	for _, vr := range semantic {
		a := acc[vr.Segment.ChunkID]
		if a == nil {
			a = &accumulator{segment: vr.Segment}
			acc[vr.Segment.ChunkID] = a
			ordered = append(ordered, a)
		}
		a.score += wSem * vr.Similarity
		a.semantic = true
	}

	hits := make([]types.HybridHit, 0, len(ordered))
	for _, a := range ordered {
		score := a.score
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}

		reasons := make([]types.Reason, 0, 2)
		if a.lexical {
			reasons = append(reasons, types.ReasonLexical)
		}
		if a.semantic {
			reasons = append(reasons, types.ReasonSemantic)
		}

		hits = append(hits, types.HybridHit{
			SegmentID: a.segment.ChunkID,
			WorkRef:   a.segment.WorkRef,
			TextNFC:   a.segment.TextNFC,
			Score:     score,
			Reasons:   reasons,
		})
	}

	// Descending by score; the stable sort keeps ties in first-seen
	// input order
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	return hits
}

// Invalidate drops all cached responses. Called after ingestion changes
// the corpus.
func (e *Engine) Invalidate() {
	e.cacheMu.Lock()
	e.cache.Purge()
	e.cacheMu.Unlock()
}

func (e *Engine) checkCache(req Request) *Response {
	hash := queryHash(req)
	now := time.Now()

	e.cacheMu.RLock()
	entry, found := e.cache.Get(hash)
	if !found {
		e.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		e.cacheMu.RUnlock()
		e.cacheMu.Lock()
		e.cache.Remove(hash)
		e.cacheMu.Unlock()
		return nil
	}
	response := copyResponse(entry.response)
	e.cacheMu.RUnlock()
	return response
}

func (e *Engine) storeInCache(req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}
	e.cacheMu.Lock()
	e.cache.Add(queryHash(req), entry)
	e.cacheMu.Unlock()
}

// copyResponse deep-copies a response so cached values cannot be mutated
// by callers
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := &Response{
		Hits:          make([]types.HybridHit, len(src.Hits)),
		LexicalCount:  src.LexicalCount,
		SemanticCount: src.SemanticCount,
		Degraded:      src.Degraded,
		CacheHit:      src.CacheHit,
		Duration:      src.Duration,
	}
	for i, hit := range src.Hits {
		reasons := make([]types.Reason, len(hit.Reasons))
		copy(reasons, hit.Reasons)
		hit.Reasons = reasons
		dst.Hits[i] = hit
	}
	return dst
}

// queryHash builds the cache key from everything that affects ranking
func queryHash(req Request) [32]byte {
	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteString("|")
	b.WriteString(req.Language)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d|%.4f|%.4f|%.4f", req.K, req.Weights.Lexical, req.Weights.Semantic, req.MinSimilarity)
	return sha256.Sum256([]byte(b.String()))
}

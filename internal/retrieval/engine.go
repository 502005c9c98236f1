// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval surfaces the regulatory passages most relevant to a
// query. A search merges dense (embedding) and sparse (Jaccard) results
// across every knowledge-base partition, drops duplicate ids and re-ranks
// the survivors with a pairwise relevance model.
//
// Collaborator failures never abort a search: a failed partition is
// skipped, a failed embedding leaves only sparse results, and a failed
// re-rank keeps the merged order. Degraded results are never cached.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pdiddy/compliance-review/internal/observability"
	"github.com/pdiddy/compliance-review/pkg/types"
)

// DefaultTopK is used when Search is called with k <= 0.
const DefaultTopK = 10

// ErrNoPartitions is returned when the store reports no partitions to search.
var ErrNoPartitions = errors.New("no knowledge-base partitions")

// Embedder maps text into the vector space shared by stored passages and
// queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds passages in named partitions.
type VectorStore interface {
	Partitions(ctx context.Context) ([]string, error)
	Add(ctx context.Context, partition string, p types.StoredPassage, embedding []float32) error
	Query(ctx context.Context, partition string, embedding []float32, k int) ([]types.Match, error)
	All(ctx context.Context, partition string) ([]types.StoredPassage, error)
}

// Pair is one (query, passage) input to a relevance model.
type Pair struct {
	Query   string
	Passage string
}

// Reranker scores pairs. The result has one score per pair, in pair order.
type Reranker interface {
	ScorePairs(ctx context.Context, pairs []Pair) ([]float64, error)
}

// Cache stores finished search results.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.RetrievedPassage, bool, error)
	Set(ctx context.Context, key string, passages []types.RetrievedPassage) error
}

// Engine runs hybrid searches. It holds no per-search state and is safe for
// concurrent use.
type Engine struct {
	store      VectorStore
	embedder   Embedder
	reranker   Reranker
	cache      Cache
	partitions []string
	defaultK   int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithReranker enables the re-ranking stage.
func WithReranker(r Reranker) Option { return func(e *Engine) { e.reranker = r } }

// WithCache enables result caching.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithPartitions fixes the partitions searched instead of asking the store.
func WithPartitions(p []string) Option {
	return func(e *Engine) { e.partitions = append([]string(nil), p...) }
}

// WithDefaultK overrides DefaultTopK.
func WithDefaultK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.defaultK = k
		}
	}
}

// WithLogger sets the logger used to report degraded stages.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics records search latency and degradations.
func WithMetrics(m *observability.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// New creates an Engine over store. embedder may be nil, in which case only
// sparse retrieval runs.
func New(store VectorStore, embedder Embedder, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		defaultK: DefaultTopK,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns at most k passages for query, best first. k <= 0 uses the
// engine default. An empty query returns no passages. An error is returned
// only when the partitions cannot be determined or ctx is done.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]types.RetrievedPassage, error) {
	if k <= 0 {
		k = e.defaultK
	}
	if query == "" {
		return []types.RetrievedPassage{}, nil
	}

	ctx, span := observability.Tracer().Start(ctx, "retrieval.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query), attribute.Int("k", k))

	start := time.Now()
	key := cacheKey(query, k)
	if cached, ok := e.cacheGet(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	partitions, err := e.listPartitions(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	dense, denseOK := e.dense(ctx, query, partitions, k)
	sparse, sparseOK := e.sparse(ctx, query, partitions, k)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := dedupe(append(dense, sparse...))
	candidates, rerankOK := e.rerank(ctx, query, candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	span.SetAttributes(
		attribute.Int("dense", len(dense)),
		attribute.Int("sparse", len(sparse)),
		attribute.Int("results", len(candidates)),
	)
	e.metrics.ObserveSearch(time.Since(start), len(candidates))
	if denseOK && sparseOK && rerankOK {
		e.cacheSet(ctx, key, candidates)
	} else {
		span.SetAttributes(attribute.Bool("degraded", true))
	}
	return candidates, nil
}

func (e *Engine) listPartitions(ctx context.Context) ([]string, error) {
	if len(e.partitions) > 0 {
		return e.partitions, nil
	}
	partitions, err := e.store.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}
	if len(partitions) == 0 {
		return nil, ErrNoPartitions
	}
	return partitions, nil
}

// dense embeds query once and queries each partition concurrently. Results
// are merged in partition order regardless of completion order. ok is false
// when the embedding or any partition query failed.
func (e *Engine) dense(ctx context.Context, query string, partitions []string, k int) (pool []types.RetrievedPassage, ok bool) {
	if e.embedder == nil {
		return nil, true
	}
	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.degraded(observability.ComponentEmbedder, "dense", err)
		return nil, false
	}

	perPartition := make([][]types.RetrievedPassage, len(partitions))
	var failed atomic.Bool
	var wg sync.WaitGroup
	for i, p := range partitions {
		wg.Add(1)
		go func(i int, partition string) {
			defer wg.Done()
			matches, err := e.store.Query(ctx, partition, embedding, k)
			if err != nil {
				e.degraded(observability.ComponentStore, "dense", err, "partition", partition)
				failed.Store(true)
				return
			}
			out := make([]types.RetrievedPassage, len(matches))
			for j, m := range matches {
				out[j] = types.RetrievedPassage{
					ID:        m.ID,
					Partition: partition,
					Content:   m.Content,
					Metadata:  m.Metadata,
					Score:     1 - m.Distance,
				}
			}
			perPartition[i] = out
		}(i, p)
	}
	wg.Wait()

	for _, r := range perPartition {
		pool = append(pool, r...)
	}
	return pool, !failed.Load()
}

// sparse scores every stored passage by Jaccard overlap with query and keeps
// the top k with a positive score. Ties keep insertion order. ok is false
// when any partition could not be read.
func (e *Engine) sparse(ctx context.Context, query string, partitions []string, k int) (pool []types.RetrievedPassage, ok bool) {
	queryTerms := termSet(query)

	ok = true
	for _, partition := range partitions {
		passages, err := e.store.All(ctx, partition)
		if err != nil {
			e.degraded(observability.ComponentStore, "sparse", err, "partition", partition)
			ok = false
			continue
		}
		for _, p := range passages {
			score := jaccard(queryTerms, termSet(p.Content))
			if score <= 0 {
				continue
			}
			pool = append(pool, types.RetrievedPassage{
				ID:        p.ID,
				Partition: partition,
				Content:   p.Content,
				Metadata:  p.Metadata,
				Score:     score,
			})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	if len(pool) > k {
		pool = pool[:k]
	}
	return pool, ok
}

// dedupe keeps the first occurrence of each id.
func dedupe(in []types.RetrievedPassage) []types.RetrievedPassage {
	seen := make(map[string]bool, len(in))
	out := make([]types.RetrievedPassage, 0, len(in))
	for _, p := range in {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// rerank overwrites scores with the relevance model's output and sorts by
// it. Any failure returns candidates unchanged with ok false.
func (e *Engine) rerank(ctx context.Context, query string, candidates []types.RetrievedPassage) (out []types.RetrievedPassage, ok bool) {
	if e.reranker == nil || len(candidates) == 0 {
		return candidates, true
	}

	pairs := make([]Pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = Pair{Query: query, Passage: c.Content}
	}

	scores, err := e.reranker.ScorePairs(ctx, pairs)
	if err == nil && len(scores) != len(candidates) {
		err = fmt.Errorf("reranker returned %d scores for %d pairs", len(scores), len(candidates))
	}
	if err != nil {
		e.degraded(observability.ComponentReranker, "rerank", err)
		return candidates, false
	}

	out = make([]types.RetrievedPassage, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score = scores[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, true
}

func (e *Engine) cacheGet(ctx context.Context, key string) ([]types.RetrievedPassage, bool) {
	if e.cache == nil {
		return nil, false
	}
	passages, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.degraded(observability.ComponentCache, "get", err)
		return nil, false
	}
	e.metrics.CacheLookup(ok)
	return passages, ok
}

func (e *Engine) cacheSet(ctx context.Context, key string, passages []types.RetrievedPassage) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, passages); err != nil {
		e.degraded(observability.ComponentCache, "set", err)
	}
}

func (e *Engine) degraded(component observability.Component, stage string, err error, attrs ...any) {
	e.metrics.Degraded(component, stage)
	args := append([]any{"component", component, "stage", stage, "err", err}, attrs...)
	e.logger.Warn("retrieval stage degraded", args...)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/compliance-review/internal/knowledge"
	"github.com/pdiddy/compliance-review/internal/observability"
	"github.com/pdiddy/compliance-review/internal/reason"
	"github.com/pdiddy/compliance-review/internal/retrieval"
	"github.com/pdiddy/compliance-review/internal/secrets"
	"github.com/pdiddy/compliance-review/pkg/types"
)

// knowledgeStore is what every vector-store backend provides.
type knowledgeStore interface {
	retrieval.VectorStore
	knowledge.SeedStore
	knowledge.ExportSource
	Close() error
}

// backends holds the remote collaborators built from configuration.
// close releases them in reverse order of creation.
type backends struct {
	store    knowledgeStore
	embedder retrieval.Embedder
	engine   *retrieval.Engine
	reasoner *reason.Reasoner
	closers  []func() error
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Warn("closing backend", "error", err)
		}
	}
}

// openKnowledge opens the store and embedder only, as seeding and export
// need no retrieval engine.
func openKnowledge(ctx context.Context, cfg types.Config) (*backends, error) {
	b := &backends{}
	store, err := openStore(ctx, cfg.Knowledge)
	if err != nil {
		return nil, err
	}
	b.store = store
	b.closers = append(b.closers, store.Close)

	embedder, closeEmbedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		b.close()
		return nil, err
	}
	b.embedder = embedder
	if closeEmbedder != nil {
		b.closers = append(b.closers, closeEmbedder)
	}
	return b, nil
}

// openBackends builds the retrieval engine and, when withReasoner is set
// and an LLM provider is configured, the compliance reasoner.
func openBackends(ctx context.Context, cfg types.Config, metrics *observability.Metrics, withReasoner bool) (*backends, error) {
	b, err := openKnowledge(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []retrieval.Option{
		retrieval.WithPartitions(cfg.Knowledge.Partitions),
		retrieval.WithDefaultK(cfg.Retrieval.TopK),
		retrieval.WithLogger(slog.Default()),
		retrieval.WithMetrics(metrics),
	}
	if rr := newReranker(cfg.Reranker); rr != nil {
		opts = append(opts, retrieval.WithReranker(rr))
	}
	cache, closeCache, err := newCache(ctx, cfg.Retrieval.Cache)
	if err != nil {
		b.close()
		return nil, err
	}
	if closeCache != nil {
		b.closers = append(b.closers, closeCache)
	}
	opts = append(opts, retrieval.WithCache(cache))
	b.engine = retrieval.New(b.store, b.embedder, opts...)

	if !withReasoner {
		return b, nil
	}
	gen, closeGen, err := newGenerator(ctx, cfg.LLM)
	if err != nil {
		b.close()
		return nil, err
	}
	if closeGen != nil {
		b.closers = append(b.closers, closeGen)
	}
	if gen == nil {
		slog.Warn("AI validation requested but llm.provider is none; running rule-based review only")
		return b, nil
	}
	b.reasoner = reason.New(gen, b.engine,
		reason.WithMaxRetries(cfg.LLM.MaxRetries),
		reason.WithContextPassages(cfg.Retrieval.ContextPassages),
		reason.WithLogger(slog.Default()),
		reason.WithMetrics(metrics),
	)
	return b, nil
}

func openStore(ctx context.Context, cfg types.KnowledgeConfig) (knowledgeStore, error) {
	switch cfg.Backend {
	case types.KnowledgeSQLite, "":
		store, err := knowledge.NewSQLiteStore(cfg.KnowledgeDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case types.KnowledgePGVector:
		url := secretDefault(secrets.DatabaseURL, cfg.DatabaseURL)
		if url == "" {
			return nil, errors.New("knowledge.backend is pgvector but no database URL is configured")
		}
		store, err := knowledge.NewPGVectorStore(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q: use sqlite or pgvector", cfg.Backend)
	}
}

// newEmbedder returns a nil Embedder for provider none, which limits
// retrieval to sparse matching.
func newEmbedder(ctx context.Context, cfg types.AIConfig) (retrieval.Embedder, func() error, error) {
	switch cfg.Provider {
	case types.ProviderNone, "":
		return nil, nil, nil
	case types.ProviderOpenAI:
		return retrieval.NewOpenAIEmbedder(secretDefault(secrets.OpenAIKey, cfg.APIKey), cfg.BaseURL, cfg.Model), nil, nil
	case types.ProviderGemini:
		key := secretDefault(secrets.GeminiKey, cfg.APIKey)
		if key == "" {
			return nil, nil, errors.New("gemini embedding requires an API key")
		}
		e, err := retrieval.NewGeminiEmbedder(ctx, key, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	case types.ProviderClaude:
		return nil, nil, errors.New("claude has no embedding API: use openai or gemini for embedding.provider")
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// newGenerator returns a nil Generator for provider none.
func newGenerator(ctx context.Context, cfg types.AIConfig) (reason.Generator, func() error, error) {
	switch cfg.Provider {
	case types.ProviderNone, "":
		return nil, nil, nil
	case types.ProviderOpenAI:
		return reason.NewOpenAIGenerator(secretDefault(secrets.OpenAIKey, cfg.APIKey), cfg.BaseURL, cfg.Model), nil, nil
	case types.ProviderClaude:
		key := secretDefault(secrets.AnthropicKey, cfg.APIKey)
		if key == "" {
			return nil, nil, errors.New("claude requires an API key in .secrets/anthropic-api-key or ANTHROPIC_API_KEY")
		}
		return &reason.ClaudeGenerator{APIKey: key, Model: cfg.Model, MaxRetries: cfg.MaxRetries}, nil, nil
	case types.ProviderGemini:
		key := secretDefault(secrets.GeminiKey, cfg.APIKey)
		if key == "" {
			return nil, nil, errors.New("gemini requires an API key")
		}
		g, err := reason.NewGeminiGenerator(ctx, key, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newReranker(cfg types.RerankerConfig) retrieval.Reranker {
	if cfg.URL == "" {
		return nil
	}
	return &retrieval.HTTPReranker{
		URL:        cfg.URL,
		APIKey:     secretDefault(secrets.RerankerKey, ""),
		MaxRetries: cfg.MaxRetries,
		Client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// newCache uses Redis when an address is configured and an in-process
// cache otherwise.
func newCache(ctx context.Context, cfg types.CacheConfig) (retrieval.Cache, func() error, error) {
	if cfg.RedisAddr == "" {
		return retrieval.NewMemoryCache(cfg.TTL), nil, nil
	}
	c, err := retrieval.NewRedisCache(ctx, cfg.RedisAddr, secretDefault(secrets.RedisPass, ""), cfg.TTL)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

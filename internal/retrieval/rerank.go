// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/compliance-review/internal/httputil"
)

// HTTPReranker scores pairs with a cross-encoder served behind a
// text-embeddings-inference style /rerank endpoint.
type HTTPReranker struct {
	URL        string
	APIKey     string
	MaxRetries int
	Client     *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// ScorePairs sends one request per distinct query and returns the scores in
// pair order.
func (r *HTTPReranker) ScorePairs(ctx context.Context, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	if len(pairs) == 0 {
		return scores, nil
	}

	// Group pair positions by query, keeping first-seen query order.
	var queries []string
	positions := make(map[string][]int)
	for i, p := range pairs {
		if _, ok := positions[p.Query]; !ok {
			queries = append(queries, p.Query)
		}
		positions[p.Query] = append(positions[p.Query], i)
	}

	for _, q := range queries {
		idx := positions[q]
		texts := make([]string, len(idx))
		for j, i := range idx {
			texts[j] = pairs[i].Passage
		}
		results, err := r.call(ctx, q, texts)
		if err != nil {
			return nil, err
		}
		if len(results) != len(texts) {
			return nil, fmt.Errorf("reranker returned %d results for %d texts", len(results), len(texts))
		}
		seen := make([]bool, len(idx))
		for _, res := range results {
			if res.Index < 0 || res.Index >= len(idx) {
				return nil, fmt.Errorf("reranker returned out-of-range index %d", res.Index)
			}
			if seen[res.Index] {
				return nil, fmt.Errorf("reranker returned duplicate index %d", res.Index)
			}
			seen[res.Index] = true
			scores[idx[res.Index]] = res.Score
		}
	}
	return scores, nil
}

func (r *HTTPReranker) call(ctx context.Context, query string, texts []string) ([]rerankResult, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	endpoint := strings.TrimSuffix(r.URL, "/")
	if !strings.HasSuffix(endpoint, "/rerank") {
		endpoint += "/rerank"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, r.Client, req, r.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling reranker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reranker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}
	return results, nil
}

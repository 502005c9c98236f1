// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason turns retrieved regulation passages and a question into a
// structured compliance judgement by prompting a language model.
//
// Every operation degrades instead of failing: an unreachable model or a
// malformed answer yields a fixed review-required judgement, an unchanged
// query, or unchanged text.
package reason

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/compliance-review/internal/observability"
	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	defaultMaxRetries      = 3
	defaultSearchK         = 10
	defaultContextPassages = 5
	sourceCount            = 3
	excerptRunes           = 1000
)

// Searcher finds passages relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]types.RetrievedPassage, error)
}

// Reasoner prompts a Generator with retrieved context. It is safe for
// concurrent use when its Generator and Searcher are.
type Reasoner struct {
	gen             Generator
	search          Searcher
	maxRetries      int
	contextPassages int
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithMaxRetries sets how many times a failed model call is retried.
func WithMaxRetries(n int) Option {
	return func(r *Reasoner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithContextPassages sets how many top passages are given to the model.
func WithContextPassages(n int) Option {
	return func(r *Reasoner) {
		if n > 0 {
			r.contextPassages = n
		}
	}
}

// WithLogger sets the logger used to report degraded calls.
func WithLogger(l *slog.Logger) Option { return func(r *Reasoner) { r.logger = l } }

// WithMetrics counts degraded calls.
func WithMetrics(m *observability.Metrics) Option { return func(r *Reasoner) { r.metrics = m } }

// New creates a Reasoner. search may be nil, in which case Validate reasons
// without retrieved context.
func New(gen Generator, search Searcher, opts ...Option) *Reasoner {
	r := &Reasoner{
		gen:             gen,
		search:          search,
		maxRetries:      defaultMaxRetries,
		contextPassages: defaultContextPassages,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fallback is the judgement returned whenever the model cannot produce one.
func Fallback() types.Judgement {
	return types.Judgement{
		ReasoningSteps:  []string{"Error in analysis"},
		Status:          types.StatusReviewRequired,
		Issues:          []string{"Manual review needed"},
		Recommendations: []string{"Consult legal expert"},
		Confidence:      0.0,
	}
}

// ExpandQuery appends 3-5 related search terms to query. On failure the
// query is returned unchanged.
func (r *Reasoner) ExpandQuery(ctx context.Context, query string) string {
	prompt, err := render(expandPromptTmpl, struct{ Query string }{query})
	if err != nil {
		r.degraded("expand", err)
		return query
	}
	out, err := callWithRetry(ctx, r.gen, prompt, FormatText, r.maxRetries)
	if err != nil {
		r.degraded("expand", err)
		return query
	}
	terms := strings.Join(strings.Fields(out), " ")
	return query + " " + terms
}

// Reason asks the model for a judgement on query given the regulation text
// in background. Any failure returns Fallback.
func (r *Reasoner) Reason(ctx context.Context, query, background string) types.Judgement {
	ctx, span := observability.Tracer().Start(ctx, "reason.Reason")
	defer span.End()

	prompt, err := render(reasonPromptTmpl, struct{ Query, Context string }{query, background})
	if err != nil {
		r.degraded("reason", err)
		return Fallback()
	}
	out, err := callWithRetry(ctx, r.gen, prompt, FormatJSON, r.maxRetries)
	if err != nil {
		r.degraded("reason", err)
		return Fallback()
	}
	j, err := parseJudgement(out)
	if err != nil {
		r.degraded("reason", err)
		return Fallback()
	}
	return j
}

// Validate retrieves the requirements for docType and judges text against
// them. Only the first 1000 characters of text are sent.
func (r *Reasoner) Validate(ctx context.Context, text string, docType types.DocType) types.Validation {
	ctx, span := observability.Tracer().Start(ctx, "reason.Validate")
	defer span.End()

	query := r.ExpandQuery(ctx, fmt.Sprintf("ADGM requirements for %s", docType))

	var passages []types.RetrievedPassage
	if r.search != nil {
		var err error
		passages, err = r.search.Search(ctx, query, defaultSearchK)
		if err != nil {
			r.degraded("search", err)
		}
	}

	top := passages
	if len(top) > r.contextPassages {
		top = top[:r.contextPassages]
	}
	contents := make([]string, len(top))
	var urls []string
	for i, p := range top {
		contents[i] = p.Content
		if u, ok := p.MetadataString("source_url"); ok && len(urls) < sourceCount {
			urls = append(urls, u)
		}
	}

	sources := []string{}
	for i := 0; i < len(passages) && i < sourceCount; i++ {
		s, ok := passages[i].MetadataString("source")
		if !ok {
			s = "Unknown"
		}
		sources = append(sources, s)
	}
	if urls == nil {
		urls = []string{}
	}

	question := fmt.Sprintf("Validate this %s: %s", docType, firstRunes(text, excerptRunes))
	return types.Validation{
		DocumentType: docType,
		Judgement:    r.Reason(ctx, question, strings.Join(contents, "\n\n")),
		Sources:      sources,
		SourceURLs:   urls,
	}
}

// SuggestCorrections asks the model to rewrite text so the listed issues
// are resolved. On failure text is returned unchanged.
func (r *Reasoner) SuggestCorrections(ctx context.Context, text string, issues []string) string {
	prompt, err := render(correctPromptTmpl, struct {
		Text   string
		Issues []string
	}{text, issues})
	if err != nil {
		r.degraded("correct", err)
		return text
	}
	out, err := callWithRetry(ctx, r.gen, prompt, FormatText, r.maxRetries)
	if err != nil {
		r.degraded("correct", err)
		return text
	}
	return strings.TrimSpace(out)
}

func (r *Reasoner) degraded(stage string, err error) {
	r.metrics.Degraded(observability.ComponentReasoner, stage)
	r.logger.Warn("reasoner degraded", "stage", stage, "err", err)
}

// parseJudgement decodes a model answer. Unknown statuses become
// review_required and confidence is clamped to [0, 1].
func parseJudgement(out string) (types.Judgement, error) {
	raw, ok := extractJSON(out)
	if !ok {
		return types.Judgement{}, fmt.Errorf("no JSON object in response")
	}
	var j types.Judgement
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return types.Judgement{}, fmt.Errorf("parsing judgement JSON: %w", err)
	}

	switch j.Status {
	case types.StatusCompliant, types.StatusNonCompliant, types.StatusReviewRequired:
	default:
		j.Status = types.StatusReviewRequired
	}
	j.Confidence = min(max(j.Confidence, 0), 1)
	return j, nil
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

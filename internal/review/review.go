// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review runs a batch of documents through conversion,
// classification, rule analysis and optional AI validation, then checks
// the batch against its regulatory process and scores it.
//
// Documents are reviewed concurrently and independently. A document that
// cannot be read contributes a single critical issue and never prevents
// the rest of the batch from being scored.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/compliance-review/internal/annotate"
	"github.com/pdiddy/compliance-review/internal/classify"
	"github.com/pdiddy/compliance-review/internal/docset"
	"github.com/pdiddy/compliance-review/internal/observability"
	"github.com/pdiddy/compliance-review/internal/rules"
	"github.com/pdiddy/compliance-review/internal/score"
	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	// DefaultWorkers is the number of documents reviewed concurrently.
	DefaultWorkers = 4

	// MethodHybrid and MethodRuleBased label the report's review method.
	MethodHybrid    = "Hybrid (Rule-based + Advanced RAG with Inline Comments)"
	MethodRuleBased = "Rule-based with Inline Comments"

	lowConfidence     = 0.7
	correctionMinText = 100
	correctionSample  = 500
	correctionPreview = 300
	correctionIssues  = 3
)

// ErrNoDocuments is returned by Run for an empty batch.
var ErrNoDocuments = errors.New("no documents to review")

// Converter extracts text and paragraphs from a file.
type Converter interface {
	Convert(ctx context.Context, path string) (types.Document, error)
}

// Validator is the AI reasoning stage. Implementations degrade to a
// fallback judgement instead of failing.
type Validator interface {
	Validate(ctx context.Context, text string, docType types.DocType) types.Validation
	SuggestCorrections(ctx context.Context, text string, issues []string) string
}

// Input is one document of a batch. When Document is nil the file at Path
// is converted; otherwise Document is reviewed as given.
type Input struct {
	Name     string
	Path     string
	Document *types.Document
}

// Pipeline reviews batches. It is safe for concurrent use once built.
type Pipeline struct {
	converter  Converter
	classifier *classify.Classifier
	analyzer   *rules.Analyzer
	validator  Validator
	checker    *docset.Checker
	scorer     *score.Scorer
	outputDir  string
	workers    int
	logger     *slog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConverter sets the converter used for path inputs.
func WithConverter(c Converter) Option { return func(p *Pipeline) { p.converter = c } }

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) Option { return func(p *Pipeline) { p.classifier = c } }

// WithAnalyzer replaces the default rule analyzer.
func WithAnalyzer(a *rules.Analyzer) Option { return func(p *Pipeline) { p.analyzer = a } }

// WithValidator enables AI validation.
func WithValidator(v Validator) Option { return func(p *Pipeline) { p.validator = v } }

// WithChecker replaces the default document-set checker.
func WithChecker(c *docset.Checker) Option { return func(p *Pipeline) { p.checker = c } }

// WithScorer replaces the default scorer.
func WithScorer(s *score.Scorer) Option { return func(p *Pipeline) { p.scorer = s } }

// WithOutputDir writes an annotated review of each document into dir.
func WithOutputDir(dir string) Option { return func(p *Pipeline) { p.outputDir = dir } }

// WithWorkers bounds concurrent document reviews. n <= 0 keeps the default.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithMetrics records batch outcomes.
func WithMetrics(m *observability.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// New builds a Pipeline with the built-in rule tables.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classify.Default(),
		analyzer:   rules.Default(),
		checker:    docset.Default(),
		scorer:     score.Default(),
		workers:    DefaultWorkers,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reviews every input and assembles the batch report. Per-document
// failures are recorded in the report; an error is returned only for an
// empty batch or when ctx is done.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*types.ComplianceReport, error) {
	if len(inputs) == 0 {
		return nil, ErrNoDocuments
	}
	start := time.Now()

	ctx, span := observability.Tracer().Start(ctx, "review.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("documents", len(inputs)))

	results := make([]types.DocumentResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = p.reviewDocument(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reviewing documents: %w", err)
	}

	report := p.assemble(results)
	span.SetAttributes(
		attribute.String("process", string(report.ProcessType)),
		attribute.Int("score", report.Score),
		attribute.Int("issues", report.TotalIssues),
	)
	p.metrics.ObserveReview(report, time.Since(start))
	p.logger.Info("review complete",
		"id", report.ID,
		"documents", len(inputs),
		"issues", report.TotalIssues,
		"score", report.Score,
		"status", report.Status,
	)
	return report, nil
}

// reviewDocument runs the per-document stages. It never fails: conversion
// errors become a critical system issue.
func (p *Pipeline) reviewDocument(ctx context.Context, in Input) types.DocumentResult {
	doc, err := p.load(ctx, in)
	if err != nil {
		p.logger.Error("document unreadable", "document", in.Name, "error", err)
		p.metrics.Degraded(observability.ComponentConverter, "convert")
		return types.DocumentResult{
			Name:  in.Name,
			Error: err.Error(),
			Issues: []types.Issue{{
				Paragraph:   types.DocumentLevel,
				Description: "Error processing file: " + err.Error(),
				Severity:    types.SeverityCritical,
				Source:      types.SourceSystem,
			}},
		}
	}

	docType := p.classifier.ClassifyDocument(doc)
	analysis := p.analyzer.Analyze(doc, docType)
	p.logger.Debug("document analyzed", "document", in.Name, "type", docType, "issues", len(analysis.Issues))

	result := types.DocumentResult{
		Name:         in.Name,
		DocumentType: docType,
		Issues:       append([]types.Issue{}, analysis.Issues...),
		Annotations:  analysis.Annotations,
	}

	if p.validator != nil {
		v := p.validator.Validate(ctx, doc.Text, docType)
		result.Validation = &v
		result.Issues = append(result.Issues, aiIssues(v)...)
		if s, ok := p.suggestion(ctx, doc.Text, result.Issues); ok {
			result.Issues = append(result.Issues, s)
		}
	}

	if p.outputDir != "" {
		path, err := annotate.WriteFile(p.outputDir, annotate.Review{
			Document:    doc,
			Type:        docType,
			Issues:      result.Issues,
			Annotations: result.Annotations,
			ReviewedAt:  p.now(),
		})
		if err != nil {
			p.logger.Warn("writing reviewed document", "document", in.Name, "error", err)
			p.metrics.Degraded(observability.ComponentAnnotator, "write")
		} else {
			result.ReviewedFile = path
		}
	}
	return result
}

func (p *Pipeline) load(ctx context.Context, in Input) (types.Document, error) {
	if in.Document != nil {
		doc := *in.Document
		if doc.Name == "" {
			doc.Name = in.Name
		}
		return doc, nil
	}
	if p.converter == nil {
		return types.Document{}, fmt.Errorf("no converter configured for %s", in.Path)
	}
	return p.converter.Convert(ctx, in.Path)
}

// aiIssues converts the reasoner's findings into issues. The i-th finding
// takes the i-th recommendation as its suggestion.
func aiIssues(v types.Validation) []types.Issue {
	severity := types.SeverityHigh
	if v.Confidence < lowConfidence {
		severity = types.SeverityMedium
	}
	regulation := "ADGM Compliance"
	if len(v.ApplicableRegulations) > 0 {
		regulation = strings.Join(v.ApplicableRegulations, ", ")
	}

	out := make([]types.Issue, 0, len(v.Issues))
	for i, desc := range v.Issues {
		suggestion := "Review with legal counsel"
		if i < len(v.Recommendations) {
			suggestion = v.Recommendations[i]
		}
		out = append(out, types.Issue{
			Paragraph:   types.DocumentLevel,
			Description: desc,
			Severity:    severity,
			Suggestion:  suggestion,
			Regulation:  regulation,
			Source:      types.SourceAIAnalysis,
		})
	}
	return out
}

// suggestion asks for a corrected opening of the document when it has
// high-severity issues. It reports false when the text is too short or the
// correction is identical to the original.
func (p *Pipeline) suggestion(ctx context.Context, text string, issues []types.Issue) (types.Issue, bool) {
	var high []string
	for _, is := range issues {
		if is.Severity == types.SeverityHigh {
			high = append(high, is.Description)
		}
	}
	if len(high) == 0 || utf8.RuneCountInString(text) <= correctionMinText {
		return types.Issue{}, false
	}

	sample := firstRunes(text, correctionSample)
	corrected := p.validator.SuggestCorrections(ctx, sample, high[:min(len(high), correctionIssues)])
	if corrected == sample {
		return types.Issue{}, false
	}
	return types.Issue{
		Paragraph:   types.DocumentLevel,
		Description: "AI-generated corrections available",
		Severity:    types.SeverityInfo,
		Suggestion:  "Review suggested corrections below",
		Source:      types.SourceAISuggestion,
		Context:     firstRunes(corrected, correctionPreview) + "...",
	}, true
}

// assemble merges per-document results into the batch report.
func (p *Pipeline) assemble(results []types.DocumentResult) *types.ComplianceReport {
	names := make([]string, len(results))
	docTypes := []types.DocType{}
	issues := []types.Issue{}
	validations := []types.ValidationSummary{}
	annotations := 0
	for i, r := range results {
		names[i] = r.Name
		if !r.Failed() {
			docTypes = append(docTypes, r.DocumentType)
		}
		for _, is := range r.Issues {
			issues = append(issues, is.InDocument(r.Name, r.DocumentType))
		}
		annotations += len(r.Annotations)
		if r.Validation != nil {
			validations = append(validations, types.ValidationSummary{
				Document:     r.Name,
				DocumentType: r.DocumentType,
				Status:       r.Validation.Status,
				Confidence:   r.Validation.Confidence,
				Sources:      r.Validation.Sources,
			})
		}
	}

	process := p.checker.IdentifyProcess(docTypes)
	check := p.checker.CheckMissing(names, process, docTypes)
	scoreValue, status := p.scorer.Score(issues, check)
	severities, sources := score.Summarize(issues)

	method := MethodRuleBased
	if p.validator != nil {
		method = MethodHybrid
	}

	return &types.ComplianceReport{
		ID:                uuid.NewString(),
		GeneratedAt:       p.now().UTC(),
		ProcessType:       check.Process,
		DocumentsUploaded: check.UploadedCount,
		DocumentsPresent:  check.Present,
		RequiredDocuments: check.RequiredCount,
		MissingDocuments:  check.Missing,
		TotalIssues:       len(issues),
		TotalAnnotations:  annotations,
		SeverityBreakdown: severities,
		SourceBreakdown:   sources,
		Issues:            issues,
		Score:             scoreValue,
		Status:            status,
		Recommendations:   score.Recommend(issues, check),
		AIValidations:     validations,
		DocumentTypes:     docTypes,
		Documents:         results,
		ReviewMethod:      method,
	}
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

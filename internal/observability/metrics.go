// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability defines the Prometheus metrics and tracer used by
// the review pipeline and retrieval engine.
//
// Metrics are registered on a caller-supplied registry so tests and
// multiple engines in one process never collide. A nil *Metrics is valid
// and records nothing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const metricsNamespace = "compliance_review"

// TracerName is the instrumentation scope used for spans.
const TracerName = "github.com/pdiddy/compliance-review"

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Component labels a degradation.
type Component string

const (
	ComponentEmbedder  Component = "embedder"
	ComponentStore     Component = "vector_store"
	ComponentReranker  Component = "reranker"
	ComponentCache     Component = "cache"
	ComponentReasoner  Component = "reasoner"
	ComponentConverter Component = "converter"
	ComponentAnnotator Component = "annotator"
)

// Metrics holds every collector the tool exports.
type Metrics struct {
	// ReviewsTotal counts completed review batches by process type.
	ReviewsTotal *prometheus.CounterVec

	// DocumentsTotal counts reviewed documents by classified type.
	DocumentsTotal *prometheus.CounterVec

	// IssuesTotal counts issues by severity and source.
	IssuesTotal *prometheus.CounterVec

	ComplianceScore prometheus.Histogram
	ReviewDuration  prometheus.Histogram

	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram

	// DegradationsTotal counts collaborator failures that were absorbed.
	// Labels: component, stage
	DegradationsTotal *prometheus.CounterVec

	// CacheLookupsTotal counts retrieval cache lookups by result (hit, miss).
	CacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
// It panics if reg already holds collectors with the same names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReviewsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "review",
			Name:      "batches_total",
			Help:      "Completed review batches by process type",
		}, []string{"process"}),
		DocumentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "review",
			Name:      "documents_total",
			Help:      "Reviewed documents by classified type",
		}, []string{"document_type"}),
		IssuesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "review",
			Name:      "issues_total",
			Help:      "Compliance issues by severity and source",
		}, []string{"severity", "source"}),
		ComplianceScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "review",
			Name:      "score",
			Help:      "Compliance score per batch",
			Buckets:   []float64{35, 55, 70, 85, 100},
		}),
		ReviewDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "review",
			Name:      "duration_seconds",
			Help:      "Wall time of a review batch in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Hybrid search latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "retrieval",
			Name:      "search_results",
			Help:      "Passages returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 20},
		}),
		DegradationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "degradations_total",
			Help:      "Collaborator failures absorbed by falling back",
		}, []string{"component", "stage"}),
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "retrieval",
			Name:      "cache_lookups_total",
			Help:      "Retrieval cache lookups by result",
		}, []string{"result"}),
	}
}

// Degraded records an absorbed failure of component during stage.
func (m *Metrics) Degraded(component Component, stage string) {
	if m == nil {
		return
	}
	m.DegradationsTotal.WithLabelValues(string(component), stage).Inc()
}

// ObserveSearch records one hybrid search.
func (m *Metrics) ObserveSearch(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResults.Observe(float64(results))
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveReview records a finished batch.
func (m *Metrics) ObserveReview(report *types.ComplianceReport, d time.Duration) {
	if m == nil || report == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(string(report.ProcessType)).Inc()
	m.ReviewDuration.Observe(d.Seconds())
	m.ComplianceScore.Observe(float64(report.Score))
	for _, t := range report.DocumentTypes {
		m.DocumentsTotal.WithLabelValues(string(t)).Inc()
	}
	for _, issue := range report.Issues {
		m.IssuesTotal.WithLabelValues(string(issue.Severity), string(issue.Source)).Inc()
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes review and knowledge-base search over HTTP.
// Documents are posted as JSON paragraphs; there is no file upload.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/compliance-review/internal/convert"
	"github.com/pdiddy/compliance-review/internal/review"
	"github.com/pdiddy/compliance-review/pkg/types"
)

// maxSearchK bounds the k a client may request.
const maxSearchK = 50

// Reviewer runs a review batch.
type Reviewer interface {
	Run(ctx context.Context, inputs []review.Input) (*types.ComplianceReport, error)
}

// Searcher runs a knowledge-base search.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]types.RetrievedPassage, error)
}

// DocumentRequest is one document of a review request.
type DocumentRequest struct {
	Name       string   `json:"name" binding:"required"`
	Paragraphs []string `json:"paragraphs"`
}

// ReviewRequest is the body of POST /v1/review.
type ReviewRequest struct {
	Documents []DocumentRequest `json:"documents" binding:"required,dive"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// SearchResponse is the body returned by POST /v1/search.
type SearchResponse struct {
	Query    string                   `json:"query"`
	Passages []types.RetrievedPassage `json:"passages"`
}

type handler struct {
	reviewer Reviewer
	searcher Searcher
}

// New builds the router. searcher may be nil, in which case /v1/search
// answers 503. gatherer backs /metrics when non-nil.
func New(reviewer Reviewer, searcher Searcher, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &handler{reviewer: reviewer, searcher: searcher}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/review", h.review)
		v1.POST("/search", h.search)
	}
	return r
}

func (h *handler) review(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Documents) == 0 {
		abort(c, http.StatusBadRequest, "NO_DOCUMENTS", "at least one document is required")
		return
	}

	inputs := make([]review.Input, len(req.Documents))
	for i, d := range req.Documents {
		doc := convert.NewDocument(d.Name, d.Paragraphs)
		inputs[i] = review.Input{Name: d.Name, Document: &doc}
	}

	report, err := h.reviewer.Run(c.Request.Context(), inputs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		abort(c, status, "REVIEW_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) search(c *gin.Context) {
	if h.searcher == nil {
		abort(c, http.StatusServiceUnavailable, "SEARCH_DISABLED", "knowledge base is not configured")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", "query must not be blank")
		return
	}
	k := min(req.K, maxSearchK)

	passages, err := h.searcher.Search(c.Request.Context(), query, k)
	if err != nil {
		abort(c, http.StatusBadGateway, "SEARCH_FAILED", err.Error())
		return
	}
	if passages == nil {
		passages = []types.RetrievedPassage{}
	}
	c.JSON(http.StatusOK, SearchResponse{Query: query, Passages: passages})
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

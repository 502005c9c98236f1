// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score turns a batch's merged issue list and document-set check into
// a 0-100 compliance score, a status label and an ordered list of
// recommendations.
package score

import (
	"maps"
	"math"
	"slices"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// Threshold assigns Status to scores at or above Min.
type Threshold struct {
	Min    int    `json:"min" yaml:"min"`
	Status string `json:"status" yaml:"status"`
}

// Policy holds the scoring constants.
type Policy struct {
	Weights map[types.Severity]float64 `json:"weights" yaml:"weights"`

	// MissingPenalty is the deduction when every required document is missing.
	MissingPenalty float64 `json:"missing_penalty" yaml:"missing_penalty"`

	// CompletionBonus is the bonus when every required document is present.
	CompletionBonus float64 `json:"completion_bonus" yaml:"completion_bonus"`

	// LowIssueBonus is added when at most LowIssueLimit penalized issues
	// remain and at least one required document is present.
	LowIssueBonus float64 `json:"low_issue_bonus" yaml:"low_issue_bonus"`
	LowIssueLimit int     `json:"low_issue_limit" yaml:"low_issue_limit"`

	// Thresholds are checked in descending Min order; Floor applies below all.
	Thresholds []Threshold `json:"thresholds" yaml:"thresholds"`
	Floor      string      `json:"floor" yaml:"floor"`
}

// DefaultPolicy returns the ADGM scoring constants.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[types.Severity]float64{
			types.SeverityCritical: -15,
			types.SeverityHigh:     -5,
			types.SeverityMedium:   -2,
			types.SeverityLow:      -1,
			types.SeverityInfo:     0,
		},
		MissingPenalty:  25,
		CompletionBonus: 15,
		LowIssueBonus:   5,
		LowIssueLimit:   2,
		Thresholds: []Threshold{
			{Min: 85, Status: "PASS – excellent"},
			{Min: 70, Status: "PASS – good, minor review"},
			{Min: 55, Status: "REVIEW REQUIRED"},
			{Min: 35, Status: "FAIL – significant corrections"},
		},
		Floor: "CRITICAL – major non-compliance",
	}
}

// Scorer applies a Policy. It is immutable and safe for concurrent use.
type Scorer struct {
	policy Policy
}

// New builds a Scorer from a private copy of p with thresholds sorted
// highest first.
func New(p Policy) *Scorer {
	cp := p
	cp.Weights = maps.Clone(p.Weights)
	cp.Thresholds = slices.Clone(p.Thresholds)
	slices.SortStableFunc(cp.Thresholds, func(a, b Threshold) int { return b.Min - a.Min })
	return &Scorer{policy: cp}
}

// Default returns a Scorer over DefaultPolicy.
func Default() *Scorer {
	return New(DefaultPolicy())
}

// Score computes the compliance score and status. AI suggestions are never
// penalized. The running total is clamped to [0, 100] and truncated.
func (s *Scorer) Score(issues []types.Issue, check types.DocumentSetCheck) (int, string) {
	p := s.policy
	total := 100.0

	penalized := 0
	for _, issue := range issues {
		if !issue.Penalized() {
			continue
		}
		penalized++
		total += p.Weights[issue.Severity]
	}

	present := len(check.Present)
	if required := check.RequiredCount; required > 0 {
		missing := len(check.Missing)
		total -= math.Floor(float64(missing) / float64(required) * p.MissingPenalty)
		if present > 0 {
			total += float64(present) / float64(required) * p.CompletionBonus
		}
	}

	if penalized <= p.LowIssueLimit && present > 0 {
		total += p.LowIssueBonus
	}

	score := int(math.Max(0, math.Min(100, total)))
	return score, s.Status(score)
}

// Status returns the label for a clamped score.
func (s *Scorer) Status(score int) string {
	for _, t := range s.policy.Thresholds {
		if score >= t.Min {
			return t.Status
		}
	}
	return s.policy.Floor
}

// Summarize counts issues by severity and by source. Every severity and
// source is present in the maps, zero when unused.
func Summarize(issues []types.Issue) (map[types.Severity]int, map[types.IssueSource]int) {
	bySeverity := make(map[types.Severity]int, len(types.Severities))
	for _, sev := range types.Severities {
		bySeverity[sev] = 0
	}
	bySource := make(map[types.IssueSource]int, len(types.IssueSources))
	for _, src := range types.IssueSources {
		bySource[src] = 0
	}
	for _, issue := range issues {
		bySeverity[issue.Severity]++
		bySource[issue.Source]++
	}
	return bySeverity, bySource
}

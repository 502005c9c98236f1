// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rules runs the rule-based compliance checks over a classified
// document: jurisdiction references, weak legal language, mandatory
// sections and signature blocks. Findings are returned as issues plus
// annotation requests; the document text is never modified.
package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const excerptLen = 50

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Result is the output of one analysis.
type Result struct {
	Issues      []types.Issue      `json:"issues" yaml:"issues"`
	Annotations []types.Annotation `json:"annotations" yaml:"annotations"`
}

func (r *Result) add(issue types.Issue) {
	issue.Source = types.SourceRuleBased
	r.Issues = append(r.Issues, issue)
}

func (r *Result) annotate(doc *document, paragraph int, comment string) {
	if paragraph < 0 || paragraph >= len(doc.paragraphs) {
		return
	}
	r.Annotations = append(r.Annotations, types.Annotation{
		Paragraph: paragraph,
		Excerpt:   truncate(doc.paragraphs[paragraph], excerptLen) + "...",
		Comment:   comment,
	})
}

func (r *Result) merge(other Result) {
	r.Issues = append(r.Issues, other.Issues...)
	r.Annotations = append(r.Annotations, other.Annotations...)
}

// Analyzer applies a RuleSet. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	rules    RuleSet
	weakTerm []*regexp.Regexp
}

// New validates rs and builds an Analyzer from a private copy of it.
func New(rs RuleSet) (*Analyzer, error) {
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	a := &Analyzer{rules: rs.clone()}
	for _, w := range a.rules.WeakLanguage.Terms {
		a.weakTerm = append(a.weakTerm, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w.Term)+`\b`))
	}
	return a, nil
}

// Default returns an Analyzer over DefaultRuleSet.
func Default() *Analyzer {
	a, err := New(DefaultRuleSet())
	if err != nil {
		panic(fmt.Sprintf("rules: default rule set invalid: %v", err))
	}
	return a
}

// Analyze runs the jurisdiction, weak-language, required-section and
// signature checks in that order. A document with no non-empty paragraphs
// yields an empty Result.
func (a *Analyzer) Analyze(doc types.Document, docType types.DocType) Result {
	d := newDocument(doc)
	if d.empty() {
		return Result{}
	}

	var res Result
	res.merge(checkJurisdiction(a.rules.Jurisdiction, d, docType))
	res.merge(checkWeakLanguage(a.rules.WeakLanguage, a.weakTerm, d))
	res.merge(checkSections(a.rules.Sections[docType], d))
	res.merge(checkSignatures(a.rules.Signatures, d, docType))
	return res
}

// document is the read-only view shared by the checkers.
type document struct {
	paragraphs []string
	lower      []string
	text       string
}

func newDocument(doc types.Document) *document {
	d := &document{paragraphs: doc.Paragraphs}
	d.lower = make([]string, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		d.lower[i] = strings.ToLower(p)
	}
	text := doc.Text
	if text == "" {
		text = strings.Join(doc.Paragraphs, "\n")
	}
	d.text = strings.ToLower(text)
	return d
}

func (d *document) empty() bool {
	return !slices.ContainsFunc(d.paragraphs, func(p string) bool {
		return strings.TrimSpace(p) != ""
	})
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

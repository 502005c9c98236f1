// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a legal-document type to extracted text using an
// ordered table of phrase rules. The first rule whose predicate holds wins;
// documents that match nothing are general_document.
package classify

import (
	"fmt"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// DefaultLeadingParagraphs is how many non-empty paragraphs form the
// document heading used by title-scoped terms.
const DefaultLeadingParagraphs = 15

// Scope selects which text a Term is tested against.
type Scope string

const (
	ScopeText    Scope = "text"
	ScopeLeading Scope = "leading"
)

// Term holds when any of its phrases is contained in the scoped text.
type Term struct {
	Scope Scope    `json:"scope,omitempty" yaml:"scope,omitempty"`
	AnyOf []string `json:"any_of" yaml:"any_of"`
}

// Clause holds when every one of its terms holds.
type Clause []Term

// Rule assigns Type when any of its clauses holds.
type Rule struct {
	Type    types.DocType `json:"type" yaml:"type"`
	Clauses []Clause      `json:"clauses" yaml:"clauses"`
}

// Classifier evaluates rules top to bottom. It is immutable after New and
// safe for concurrent use.
type Classifier struct {
	rules   []Rule
	leading int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLeadingParagraphs overrides DefaultLeadingParagraphs.
func WithLeadingParagraphs(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.leading = n
		}
	}
}

// New builds a Classifier from an ordered rule table. The table is copied
// and lower-cased so callers cannot mutate it afterwards.
func New(rules []Rule, opts ...Option) (*Classifier, error) {
	c := &Classifier{leading: DefaultLeadingParagraphs}
	for _, opt := range opts {
		opt(c)
	}

	for i, r := range rules {
		if !r.Type.Valid() || r.Type == types.DocGeneral {
			return nil, fmt.Errorf("rule %d: invalid document type %q", i, r.Type)
		}
		if len(r.Clauses) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no clauses", i, r.Type)
		}
		cp := Rule{Type: r.Type}
		for j, cl := range r.Clauses {
			if len(cl) == 0 {
				return nil, fmt.Errorf("rule %d (%s): clause %d is empty", i, r.Type, j)
			}
			var clause Clause
			for _, term := range cl {
				if len(term.AnyOf) == 0 {
					return nil, fmt.Errorf("rule %d (%s): clause %d has a term with no phrases", i, r.Type, j)
				}
				scope := term.Scope
				switch scope {
				case "":
					scope = ScopeText
				case ScopeText, ScopeLeading:
				default:
					return nil, fmt.Errorf("rule %d (%s): unknown scope %q", i, r.Type, scope)
				}
				phrases := make([]string, len(term.AnyOf))
				for k, p := range term.AnyOf {
					phrases[k] = strings.ToLower(p)
				}
				clause = append(clause, Term{Scope: scope, AnyOf: phrases})
			}
			cp.Clauses = append(cp.Clauses, clause)
		}
		c.rules = append(c.rules, cp)
	}
	return c, nil
}

// Default returns a Classifier over DefaultRules.
func Default(opts ...Option) *Classifier {
	c, err := New(DefaultRules(), opts...)
	if err != nil {
		panic(fmt.Sprintf("classify: default rules invalid: %v", err))
	}
	return c
}

// Classify returns the type of the first rule matching text and leading.
// Both are lower-cased before matching.
func (c *Classifier) Classify(text, leading string) types.DocType {
	scoped := map[Scope]string{
		ScopeText:    strings.ToLower(text),
		ScopeLeading: strings.ToLower(leading),
	}
	for _, r := range c.rules {
		if r.matches(scoped) {
			return r.Type
		}
	}
	return types.DocGeneral
}

// ClassifyDocument classifies doc using its full text and heading paragraphs.
func (c *Classifier) ClassifyDocument(doc types.Document) types.DocType {
	return c.Classify(doc.Text, Leading(doc.Paragraphs, c.leading))
}

func (r Rule) matches(scoped map[Scope]string) bool {
	for _, cl := range r.Clauses {
		if cl.holds(scoped) {
			return true
		}
	}
	return false
}

func (cl Clause) holds(scoped map[Scope]string) bool {
	for _, term := range cl {
		if !containsAny(scoped[term.Scope], term.AnyOf) {
			return false
		}
	}
	return true
}

// Leading returns the first n non-empty paragraphs, trimmed, lower-cased and
// joined by newlines.
func Leading(paragraphs []string, n int) string {
	var out []string
	for _, p := range paragraphs {
		if len(out) >= n {
			break
		}
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToLower(p))
	}
	return strings.Join(out, "\n")
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

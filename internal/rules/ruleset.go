// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// RuleSet holds every phrase table the analyzer consults. It is plain data:
// DefaultRuleSet returns the ADGM tables and LoadRuleSet reads a YAML
// replacement. An Analyzer copies the RuleSet it is built from.
type RuleSet struct {
	Jurisdiction JurisdictionRules           `json:"jurisdiction" yaml:"jurisdiction"`
	WeakLanguage WeakLanguageRules           `json:"weak_language" yaml:"weak_language"`
	Sections     map[types.DocType][]Section `json:"sections" yaml:"sections"`
	Signatures   SignatureRules              `json:"signatures" yaml:"signatures"`
}

// Correction maps a disallowed jurisdiction phrase to the comment placed on
// the offending paragraph. When ExemptWithMarker is set, a paragraph that
// also carries a valid paragraph marker is not flagged (a full ADGM address
// legitimately names the country).
type Correction struct {
	Phrase           string `json:"phrase" yaml:"phrase"`
	Comment          string `json:"comment" yaml:"comment"`
	ExemptWithMarker bool   `json:"exempt_with_marker,omitempty" yaml:"exempt_with_marker,omitempty"`
}

// JurisdictionRules configures the jurisdiction checker.
type JurisdictionRules struct {
	Disallowed []Correction `json:"disallowed" yaml:"disallowed"`

	// ParagraphMarkers exempt a paragraph from ExemptWithMarker corrections.
	ParagraphMarkers []string `json:"paragraph_markers" yaml:"paragraph_markers"`

	// DocumentMarkers must appear somewhere in documents of RequiredTypes.
	DocumentMarkers []string        `json:"document_markers" yaml:"document_markers"`
	RequiredTypes   []types.DocType `json:"required_types" yaml:"required_types"`

	Regulation        string `json:"regulation" yaml:"regulation"`
	MissingComment    string `json:"missing_comment" yaml:"missing_comment"`
	MissingSuggestion string `json:"missing_suggestion" yaml:"missing_suggestion"`
}

// WeakTerm is a modal verb that weakens an obligation.
type WeakTerm struct {
	Term        string `json:"term" yaml:"term"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Comment     string `json:"comment" yaml:"comment"`
}

// WeakLanguageRules configures the weak-language checker.
type WeakLanguageRules struct {
	Terms []WeakTerm `json:"terms" yaml:"terms"`

	// AcceptableContexts are idioms where a weak term is conventional. A
	// paragraph containing any of them is skipped entirely.
	AcceptableContexts []string `json:"acceptable_contexts" yaml:"acceptable_contexts"`

	Regulation string `json:"regulation" yaml:"regulation"`
}

// Section is one mandatory section of a document type. It is present when
// Name (or Name without spaces) appears in the text, or when any fallback
// heuristic holds. The fallbacks are approximations carried over from
// reviewer practice, not authoritative tests.
type Section struct {
	Name      string `json:"name" yaml:"name"`
	Reference string `json:"reference" yaml:"reference"`

	// Fallback phrases searched in the full text.
	Fallback []string `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	// LeadingFallback phrases searched in the first LeadingParagraphs
	// paragraphs only.
	LeadingFallback   []string `json:"leading_fallback,omitempty" yaml:"leading_fallback,omitempty"`
	LeadingParagraphs int      `json:"leading_paragraphs,omitempty" yaml:"leading_paragraphs,omitempty"`

	// Year accepts any four-digit year from 1900 to 2099.
	Year bool `json:"year,omitempty" yaml:"year,omitempty"`
}

// SignatureRules configures the signature checker.
type SignatureRules struct {
	SkipTypes  []types.DocType `json:"skip_types" yaml:"skip_types"`
	Indicators []string        `json:"indicators" yaml:"indicators"`

	// BlankMarkers identify an empty signature line.
	BlankMarkers []string `json:"blank_markers" yaml:"blank_markers"`
	NameLabels   []string `json:"name_labels" yaml:"name_labels"`
	DateLabels   []string `json:"date_labels" yaml:"date_labels"`

	// Window is how many paragraphs either side of a blank line are searched
	// for labels.
	Window int `json:"window" yaml:"window"`
}

// LoadRuleSet reads a YAML rule set from path and validates it.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("reading rule set %s: %w", path, err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parsing rule set %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("rule set %s: %w", path, err)
	}
	return rs, nil
}

// Validate checks that every document type is known and that no entry is
// blank. It returns all problems joined.
func (rs RuleSet) Validate() error {
	var errs []error

	checkTypes := func(field string, ts []types.DocType) {
		for _, t := range ts {
			if !t.Valid() {
				errs = append(errs, fmt.Errorf("%s: unknown document type %q", field, t))
			}
		}
	}

	for i, c := range rs.Jurisdiction.Disallowed {
		if strings.TrimSpace(c.Phrase) == "" {
			errs = append(errs, fmt.Errorf("jurisdiction.disallowed[%d]: empty phrase", i))
		}
	}
	checkTypes("jurisdiction.required_types", rs.Jurisdiction.RequiredTypes)

	for i, w := range rs.WeakLanguage.Terms {
		if strings.TrimSpace(w.Term) == "" {
			errs = append(errs, fmt.Errorf("weak_language.terms[%d]: empty term", i))
		}
		if strings.TrimSpace(w.Replacement) == "" {
			errs = append(errs, fmt.Errorf("weak_language.terms[%d]: empty replacement", i))
		}
	}

	for t, sections := range rs.Sections {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("sections: unknown document type %q", t))
		}
		for i, s := range sections {
			if strings.TrimSpace(s.Name) == "" {
				errs = append(errs, fmt.Errorf("sections.%s[%d]: empty name", t, i))
			}
			if len(s.LeadingFallback) > 0 && s.LeadingParagraphs <= 0 {
				errs = append(errs, fmt.Errorf("sections.%s[%d]: leading_fallback needs leading_paragraphs", t, i))
			}
		}
	}

	checkTypes("signatures.skip_types", rs.Signatures.SkipTypes)
	if rs.Signatures.Window < 0 {
		errs = append(errs, errors.New("signatures.window: must not be negative"))
	}

	return errors.Join(errs...)
}

// clone returns a deep copy so an Analyzer never shares slices with its caller.
func (rs RuleSet) clone() RuleSet {
	out := RuleSet{
		Jurisdiction: rs.Jurisdiction,
		WeakLanguage: rs.WeakLanguage,
		Signatures:   rs.Signatures,
	}
	out.Jurisdiction.Disallowed = append([]Correction(nil), rs.Jurisdiction.Disallowed...)
	out.Jurisdiction.ParagraphMarkers = lowerAll(rs.Jurisdiction.ParagraphMarkers)
	out.Jurisdiction.DocumentMarkers = lowerAll(rs.Jurisdiction.DocumentMarkers)
	out.Jurisdiction.RequiredTypes = append([]types.DocType(nil), rs.Jurisdiction.RequiredTypes...)

	out.WeakLanguage.Terms = append([]WeakTerm(nil), rs.WeakLanguage.Terms...)
	out.WeakLanguage.AcceptableContexts = lowerAll(rs.WeakLanguage.AcceptableContexts)

	out.Sections = make(map[types.DocType][]Section, len(rs.Sections))
	for t, sections := range rs.Sections {
		cp := make([]Section, len(sections))
		for i, s := range sections {
			s.Name = strings.ToLower(s.Name)
			s.Fallback = lowerAll(s.Fallback)
			s.LeadingFallback = lowerAll(s.LeadingFallback)
			cp[i] = s
		}
		out.Sections[t] = cp
	}

	out.Signatures.SkipTypes = append([]types.DocType(nil), rs.Signatures.SkipTypes...)
	out.Signatures.Indicators = lowerAll(rs.Signatures.Indicators)
	out.Signatures.BlankMarkers = append([]string(nil), rs.Signatures.BlankMarkers...)
	out.Signatures.NameLabels = lowerAll(rs.Signatures.NameLabels)
	out.Signatures.DateLabels = lowerAll(rs.Signatures.DateLabels)
	return out
}

func lowerAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

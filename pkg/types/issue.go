// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Severity ranks how serious a compliance finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least serious.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Valid reports whether s is one of the five defined levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// IssueSource records which stage produced an Issue.
type IssueSource string

const (
	SourceRuleBased    IssueSource = "rule-based"
	SourceAIAnalysis   IssueSource = "ai-analysis"
	SourceAISuggestion IssueSource = "ai-suggestion"
	SourceSystem       IssueSource = "system"
)

// IssueSources lists every source in report order.
var IssueSources = []IssueSource{SourceRuleBased, SourceAIAnalysis, SourceAISuggestion, SourceSystem}

// DocumentLevel is the paragraph index of an issue that has no specific location.
const DocumentLevel = -1

// Issue is a single compliance finding. Issues are values: they are created
// once and appended to lists, never modified.
type Issue struct {
	// Document is the file name the issue belongs to. Empty until the issue
	// is merged into a batch.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// DocumentType is the classified type of Document.
	DocumentType DocType `json:"document_type,omitempty" yaml:"document_type,omitempty"`

	// Paragraph is the zero-based paragraph index, or DocumentLevel.
	Paragraph int `json:"paragraph" yaml:"paragraph"`

	Description string      `json:"description" yaml:"description"`
	Severity    Severity    `json:"severity" yaml:"severity"`
	Suggestion  string      `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Regulation  string      `json:"regulation,omitempty" yaml:"regulation,omitempty"`
	Source      IssueSource `json:"source" yaml:"source"`

	// Context is a short excerpt of the offending paragraph, when useful.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// InDocument returns a copy of the issue tagged with the document it came from.
func (i Issue) InDocument(name string, docType DocType) Issue {
	i.Document = name
	i.DocumentType = docType
	return i
}

// Penalized reports whether the issue counts against the compliance score.
// AI suggestions are informational only.
func (i Issue) Penalized() bool {
	return i.Source != SourceAISuggestion
}

// Annotation is a request to place a visible comment on a paragraph of the
// reviewed document.
type Annotation struct {
	// Paragraph is the zero-based index of the annotated paragraph.
	Paragraph int `json:"paragraph" yaml:"paragraph"`

	// Excerpt is a truncated snippet identifying the annotated text.
	Excerpt string `json:"excerpt" yaml:"excerpt"`

	// Comment is the text of the inline note.
	Comment string `json:"comment" yaml:"comment"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StoredPassage is a knowledge-base record as held by a vector store.
type StoredPassage struct {
	ID       string         `json:"id" yaml:"id"`
	Content  string         `json:"content" yaml:"content"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Match is a dense-retrieval hit returned by a vector store query.
type Match struct {
	StoredPassage
	// Distance is the cosine distance between the query and the passage.
	Distance float64 `json:"distance" yaml:"distance"`
}

// RetrievedPassage is a passage surfaced for a query. Score depends on the
// retrieval stage until re-ranking overwrites it.
type RetrievedPassage struct {
	ID        string         `json:"id" yaml:"id"`
	Partition string         `json:"partition,omitempty" yaml:"partition,omitempty"`
	Content   string         `json:"content" yaml:"content"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Score     float64        `json:"score" yaml:"score"`
}

// MetadataString returns metadata[key] when it is a non-empty string.
func (p RetrievedPassage) MetadataString(key string) (string, bool) {
	v, ok := p.Metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// JudgementStatus is the overall verdict of the compliance reasoner.
type JudgementStatus string

const (
	StatusCompliant      JudgementStatus = "compliant"
	StatusNonCompliant   JudgementStatus = "non-compliant"
	StatusReviewRequired JudgementStatus = "review_required"
)

// Judgement is the structured response of the compliance reasoner.
type Judgement struct {
	ReasoningSteps        []string        `json:"reasoning_steps" yaml:"reasoning_steps"`
	ApplicableRegulations []string        `json:"applicable_regulations" yaml:"applicable_regulations"`
	Status                JudgementStatus `json:"compliance_status" yaml:"compliance_status"`
	Issues                []string        `json:"issues" yaml:"issues"`
	Recommendations       []string        `json:"recommendations" yaml:"recommendations"`
	Confidence            float64         `json:"confidence" yaml:"confidence"`
}

// Validation is a Judgement about one document plus the passages it was
// grounded on.
type Validation struct {
	DocumentType DocType `json:"document_type" yaml:"document_type"`
	Judgement    `yaml:",inline"`
	Sources      []string `json:"sources" yaml:"sources"`
	SourceURLs   []string `json:"source_urls" yaml:"source_urls"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DocumentResult is the review outcome of a single file in a batch.
type DocumentResult struct {
	Name         string       `json:"file_name" yaml:"file_name"`
	DocumentType DocType      `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Issues       []Issue      `json:"issues" yaml:"issues"`
	Annotations  []Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Validation   *Validation  `json:"ai_validation,omitempty" yaml:"ai_validation,omitempty"`
	ReviewedFile string       `json:"reviewed_file,omitempty" yaml:"reviewed_file,omitempty"`

	// Error is set when the file could not be read. DocumentType is then empty.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the document could not be reviewed.
func (r DocumentResult) Failed() bool {
	return r.Error != ""
}

// ValidationSummary is the per-document reasoner outcome kept in the report.
type ValidationSummary struct {
	Document     string          `json:"document" yaml:"document"`
	DocumentType DocType         `json:"document_type" yaml:"document_type"`
	Status       JudgementStatus `json:"compliance_status" yaml:"compliance_status"`
	Confidence   float64         `json:"confidence" yaml:"confidence"`
	Sources      []string        `json:"sources" yaml:"sources"`
}

// ComplianceReport is the aggregated result of one review batch.
type ComplianceReport struct {
	ID          string      `json:"id" yaml:"id"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	ProcessType ProcessType `json:"process_type" yaml:"process_type"`

	DocumentsUploaded int      `json:"documents_uploaded" yaml:"documents_uploaded"`
	DocumentsPresent  []string `json:"documents_present" yaml:"documents_present"`
	RequiredDocuments int      `json:"required_documents" yaml:"required_documents"`
	MissingDocuments  []string `json:"missing_documents" yaml:"missing_documents"`

	TotalIssues       int                 `json:"total_issues" yaml:"total_issues"`
	TotalAnnotations  int                 `json:"total_annotations" yaml:"total_annotations"`
	SeverityBreakdown map[Severity]int    `json:"severity_breakdown" yaml:"severity_breakdown"`
	SourceBreakdown   map[IssueSource]int `json:"source_breakdown" yaml:"source_breakdown"`
	Issues            []Issue             `json:"issues" yaml:"issues"`

	Score           int      `json:"compliance_score" yaml:"compliance_score"`
	Status          string   `json:"compliance_status" yaml:"compliance_status"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`

	AIValidations []ValidationSummary `json:"ai_validations,omitempty" yaml:"ai_validations,omitempty"`
	DocumentTypes []DocType           `json:"document_types_identified" yaml:"document_types_identified"`
	Documents     []DocumentResult    `json:"documents" yaml:"documents"`
	ReviewMethod  string              `json:"review_method" yaml:"review_method"`
}

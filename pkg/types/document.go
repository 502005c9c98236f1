// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DocType is the classified legal-document type. Every document gets
// exactly one tag from the closed set below.
type DocType string

const (
	DocArticlesOfAssociation    DocType = "articles_of_association"
	DocBoardResolution          DocType = "board_resolution"
	DocShareholderResolution    DocType = "shareholder_resolution"
	DocIncorporationApplication DocType = "incorporation_application"
	DocEmploymentContract       DocType = "employment_contract"
	DocRegister                 DocType = "register"
	DocUBODeclaration           DocType = "ubo_declaration"
	DocMemorandum               DocType = "memorandum"
	DocCommercialAgreement      DocType = "commercial_agreement"
	DocGeneral                  DocType = "general_document"
)

// AllDocTypes returns the closed set of document types in classification
// priority order, ending with the general fallback.
func AllDocTypes() []DocType {
	return []DocType{
		DocArticlesOfAssociation,
		DocBoardResolution,
		DocShareholderResolution,
		DocIncorporationApplication,
		DocEmploymentContract,
		DocRegister,
		DocUBODeclaration,
		DocMemorandum,
		DocCommercialAgreement,
		DocGeneral,
	}
}

// Valid reports whether t belongs to the closed set.
func (t DocType) Valid() bool {
	for _, known := range AllDocTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Document is the extracted text of one uploaded file.
type Document struct {
	// Name is the original file name.
	Name string `json:"name" yaml:"name"`

	// Text holds every non-empty paragraph and table cell joined by newlines,
	// in document order.
	Text string `json:"text" yaml:"text"`

	// Paragraphs are the body paragraphs in order. Empty paragraphs are kept
	// so that indices match the source document.
	Paragraphs []string `json:"paragraphs" yaml:"paragraphs"`
}

// ProcessType is the regulatory process a batch of documents is attempting.
type ProcessType string

const (
	ProcessIncorporation ProcessType = "company_incorporation"
	ProcessLicensing     ProcessType = "licensing"
	ProcessEmployment    ProcessType = "employment"
	ProcessUnknown       ProcessType = "unknown"
)

// DocumentSetCheck records which mandatory documents of a process are
// present in a batch. Present and Missing are disjoint and together equal
// the process's required list; both keep the required list's order.
type DocumentSetCheck struct {
	Process       ProcessType `json:"process" yaml:"process"`
	RequiredCount int         `json:"required_count" yaml:"required_count"`
	Present       []string    `json:"present_documents" yaml:"present_documents"`
	Missing       []string    `json:"missing_documents" yaml:"missing_documents"`
	UploadedCount int         `json:"uploaded_count" yaml:"uploaded_count"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import "github.com/pdiddy/compliance-review/pkg/types"

const companiesRegArt6 = "ADGM Companies Regulations 2020, Art. 6"

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// DefaultRuleSet returns the ADGM rule tables.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Jurisdiction: JurisdictionRules{
			Disallowed: []Correction{
				{Phrase: "UAE Federal Courts", Comment: "Per ADGM Companies Regulations 2020, Art. 6: Replace with 'ADGM Courts'"},
				{Phrase: "Dubai Courts", Comment: "Per ADGM Companies Regulations 2020, Art. 6: Use 'ADGM Courts' instead"},
				{Phrase: "Abu Dhabi Courts", Comment: "Per ADGM Companies Regulations 2020, Art. 6: Should be 'ADGM Courts'"},
				{Phrase: "DIFC", Comment: "Incorrect jurisdiction - must specify 'Abu Dhabi Global Market (ADGM)'"},
				{Phrase: "Dubai International Financial Centre", Comment: "Wrong jurisdiction - use 'Abu Dhabi Global Market'"},
				{Phrase: "mainland UAE", Comment: "Specify 'Abu Dhabi Global Market' for ADGM entities"},
				{Phrase: "onshore UAE", Comment: "ADGM entities must reference 'Abu Dhabi Global Market'"},
				{
					Phrase:           "United Arab Emirates",
					Comment:          "Specify 'Abu Dhabi Global Market' in addresses of ADGM entities",
					ExemptWithMarker: true,
				},
			},
			ParagraphMarkers: []string{"abu dhabi global market", "adgm", "al maryah island"},
			DocumentMarkers:  []string{"abu dhabi global market", "adgm"},
			RequiredTypes: []types.DocType{
				types.DocArticlesOfAssociation,
				types.DocBoardResolution,
				types.DocShareholderResolution,
				types.DocMemorandum,
				types.DocIncorporationApplication,
				types.DocEmploymentContract,
			},
			Regulation:        companiesRegArt6,
			MissingComment:    "Missing ADGM jurisdiction - Per ADGM Companies Regulations 2020, Art. 6: Must specify 'Abu Dhabi Global Market'",
			MissingSuggestion: "Add explicit reference to 'Abu Dhabi Global Market (ADGM)' jurisdiction",
		},
		WeakLanguage: WeakLanguageRules{
			Terms: []WeakTerm{
				{Term: "may", Replacement: "shall", Comment: "Per ADGM legal drafting standards: Use 'shall' for mandatory obligations"},
				{Term: "might", Replacement: "shall", Comment: "Per ADGM legal drafting standards: Replace with 'shall' for binding effect"},
				{Term: "could", Replacement: "shall", Comment: "Per ADGM legal drafting standards: Use 'shall' for mandatory provisions"},
				{Term: "possibly", Replacement: "shall", Comment: "Ambiguous language - use 'shall' for clarity"},
				{Term: "perhaps", Replacement: "shall", Comment: "Uncertain language - replace with 'shall'"},
				{Term: "should", Replacement: "shall", Comment: "Weak obligation - use 'shall' for binding requirements"},
			},
			AcceptableContexts: []string{
				"may be called",
				"as may be",
				"may from time to time",
				"shall have the power",
				"may terminate",
				"may be amended",
			},
			Regulation: "ADGM legal drafting standards",
		},
		Sections: map[types.DocType][]Section{
			types.DocArticlesOfAssociation: {
				{
					Name:              "company name",
					Reference:         "Per ADGM Companies Regulations 2020, Art. 30: Company name required",
					Fallback:          []string{"company name", "company:", "entity name", `"company" means`},
					LeadingFallback:   []string{"limited", "ltd", "llc", "inc", "corporation", "corp", "company"},
					LeadingParagraphs: 5,
				},
				{Name: "registered office", Reference: "Per ADGM Companies Regulations 2020, Art. 25: Registered office must be specified"},
				{Name: "share capital", Reference: "Per ADGM Companies Regulations 2020, Art. 12: Share capital details required"},
				{Name: "directors", Reference: "Per ADGM Companies Regulations 2020, Art. 15: Director provisions required"},
				{Name: "governing law", Reference: "Per ADGM Companies Regulations 2020, Art. 6: Governing law clause required"},
				{Name: "interpretation", Reference: "Definitions section required for clarity"},
			},
			types.DocBoardResolution: {
				{
					Name:      "date",
					Reference: "Date of resolution required",
					Fallback:  append([]string{"dated", "date:", "on this day"}, months...),
					Year:      true,
				},
				{Name: "present", Reference: "Attendance record required", Fallback: []string{"present:", "attendance", "directors present", "in attendance"}},
				{Name: "resolved", Reference: "Resolution language required", Fallback: resolvedFallback()},
				{Name: "signature", Reference: "Director signatures required", Fallback: signatureFallback()},
			},
			types.DocShareholderResolution: {
				{Name: "shareholder", Reference: "Shareholder details required", Fallback: []string{"shareholder", "member", "shares", "shareholding"}},
				{Name: "resolved", Reference: "Resolution language required", Fallback: resolvedFallback()},
				{Name: "signature", Reference: "Shareholder signatures required", Fallback: signatureFallback()},
			},
			types.DocMemorandum: {
				{Name: "name", Reference: "Company name required"},
				{Name: "registered office", Reference: "Registered office required"},
				{Name: "objects", Reference: "Objects of the company required"},
				{Name: "liability", Reference: "Liability of members required"},
				{Name: "share capital", Reference: "Share capital required"},
				{Name: "subscriber", Reference: "Subscriber details required"},
			},
			types.DocIncorporationApplication: {
				{Name: "company details", Reference: "Company information section required"},
				{Name: "registered office", Reference: "ADGM registered office address required"},
				{Name: "share capital", Reference: "Share capital structure required"},
				{Name: "directors", Reference: "Director information required"},
				{Name: "shareholders", Reference: "Shareholder details required"},
			},
			types.DocEmploymentContract: {
				{Name: "employee", Reference: "Employee details required", Fallback: []string{"employee", "employment", "employer"}},
				{Name: "position", Reference: "Job position/title required"},
				{Name: "salary", Reference: "Compensation details required", Fallback: []string{"salary", "compensation", "remuneration", "aed", "usd"}},
				{Name: "working hours", Reference: "Working hours specification required"},
				{Name: "termination", Reference: "Termination provisions required"},
			},
		},
		Signatures: SignatureRules{
			SkipTypes:    []types.DocType{types.DocGeneral, types.DocRegister},
			Indicators:   []string{"signature", "signed", "authorized signatory", "____"},
			BlankMarkers: []string{"____"},
			NameLabels:   []string{"name:"},
			DateLabels:   []string{"date:"},
			Window:       2,
		},
	}
}

func resolvedFallback() []string {
	return []string{"resolved", "resolution", "it was resolved", "be it resolved"}
}

func signatureFallback() []string {
	return []string{"signature", "signed", "____", "authorized signatory", "signatory"}
}

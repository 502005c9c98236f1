// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compliance-review/pkg/types"
)

func doc(paragraphs ...string) types.Document {
	return types.Document{Paragraphs: paragraphs}
}

func descriptions(issues []types.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Description)
	}
	return out
}

func withPrefix(issues []types.Issue, prefix string) []types.Issue {
	var out []types.Issue
	for _, i := range issues {
		if strings.HasPrefix(i.Description, prefix) {
			out = append(out, i)
		}
	}
	return out
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	a := Default()

	for _, d := range []types.Document{doc(), doc("", "   ")} {
		res := a.Analyze(d, types.DocBoardResolution)
		assert.Empty(t, res.Issues)
		assert.Empty(t, res.Annotations)
	}
}

func TestAnalyzeRunsChecksInOrder(t *testing.T) {
	d := doc(
		"BOARD RESOLUTION",
		"Disputes are referred to the Dubai Courts.",
		"The directors might meet monthly.",
	)

	res := Default().Analyze(d, types.DocBoardResolution)

	assert.Equal(t, []string{
		"Incorrect jurisdiction reference: 'Dubai Courts'",
		"Missing ADGM jurisdiction reference",
		"Weak language detected: 'might'",
		"Missing required section: 'date'",
		"Missing required section: 'present'",
		"Missing required section: 'signature'",
		"Missing signature section",
	}, descriptions(res.Issues))

	require.Len(t, res.Annotations, 5)
	assert.Equal(t, 1, res.Annotations[0].Paragraph)
	assert.Equal(t, 0, res.Annotations[1].Paragraph)
	assert.Equal(t, 2, res.Annotations[2].Paragraph)
	assert.Equal(t, "Missing 3 required sections: date, present, signature", res.Annotations[3].Comment)
	assert.Equal(t, 2, res.Annotations[4].Paragraph)

	for _, issue := range res.Issues {
		assert.True(t, issue.Severity.Valid())
		assert.Equal(t, types.SourceRuleBased, issue.Source)
	}
}

func TestJurisdiction(t *testing.T) {
	tests := []struct {
		name    string
		para    string
		want    []string
		comment string
	}{
		{
			name:    "dubai courts",
			para:    "Any dispute shall be settled by the Dubai Courts.",
			want:    []string{"Incorrect jurisdiction reference: 'Dubai Courts'"},
			comment: "Per ADGM Companies Regulations 2020, Art. 6: Use 'ADGM Courts' instead",
		},
		{
			name:    "difc case-insensitive",
			para:    "The company is registered in the difc.",
			want:    []string{"Incorrect jurisdiction reference: 'DIFC'"},
			comment: "Incorrect jurisdiction - must specify 'Abu Dhabi Global Market (ADGM)'",
		},
		{
			name: "several phrases in one paragraph",
			para: "Neither the UAE Federal Courts nor the courts of onshore UAE apply.",
			want: []string{
				"Incorrect jurisdiction reference: 'UAE Federal Courts'",
				"Incorrect jurisdiction reference: 'onshore UAE'",
			},
			comment: "Per ADGM Companies Regulations 2020, Art. 6: Replace with 'ADGM Courts'",
		},
		{
			name:    "country without ADGM marker",
			para:    "Registered address: Abu Dhabi, United Arab Emirates",
			want:    []string{"Incorrect jurisdiction reference: 'United Arab Emirates'"},
			comment: "Specify 'Abu Dhabi Global Market' in addresses of ADGM entities",
		},
		{
			name: "country in a full ADGM address",
			para: "Registered address: Al Maryah Island, Abu Dhabi, United Arab Emirates",
		},
		{
			name: "ADGM courts are fine",
			para: "Disputes are resolved by the ADGM Courts.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Default().Analyze(doc("Heading", tt.para), types.DocGeneral)
			got := withPrefix(res.Issues, "Incorrect jurisdiction")

			assert.Equal(t, tt.want, descriptionsOrNil(got))
			for _, issue := range got {
				assert.Equal(t, 1, issue.Paragraph)
				assert.Equal(t, types.SeverityHigh, issue.Severity)
				assert.Equal(t, "ADGM Companies Regulations 2020, Art. 6", issue.Regulation)
			}
			if tt.comment != "" {
				require.NotEmpty(t, res.Annotations)
				assert.Equal(t, tt.comment, res.Annotations[0].Comment)
				assert.Equal(t, got[0].Suggestion, tt.comment)
			}
		})
	}
}

func descriptionsOrNil(issues []types.Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	return descriptions(issues)
}

func TestMissingJurisdiction(t *testing.T) {
	tests := []struct {
		name    string
		docType types.DocType
		paras   []string
		want    bool
	}{
		{"required type without marker", types.DocArticlesOfAssociation, []string{"Articles", "Registered office in Abu Dhabi"}, true},
		{"required type with ADGM", types.DocArticlesOfAssociation, []string{"Articles", "Registered in ADGM"}, false},
		{"required type with full name", types.DocEmploymentContract, []string{"Governed by the laws of the Abu Dhabi Global Market"}, false},
		{"type not requiring jurisdiction", types.DocUBODeclaration, []string{"Declaration"}, false},
		{"general document", types.DocGeneral, []string{"Notes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Default().Analyze(doc(tt.paras...), tt.docType)
			got := withPrefix(res.Issues, "Missing ADGM jurisdiction")
			if !tt.want {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, 0, got[0].Paragraph)
			assert.Equal(t, types.SeverityHigh, got[0].Severity)
			assert.Equal(t, "Add explicit reference to 'Abu Dhabi Global Market (ADGM)' jurisdiction", got[0].Suggestion)
		})
	}
}

func TestWeakLanguage(t *testing.T) {
	tests := []struct {
		name string
		para string
		want []string
	}{
		{
			name: "two terms reported in table order",
			para: "The director should attend and may vote.",
			want: []string{"Weak language detected: 'may'", "Weak language detected: 'should'"},
		},
		{
			name: "repeated term reported once",
			para: "Members may vote and may appoint proxies.",
			want: []string{"Weak language detected: 'may'"},
		},
		{
			name: "word boundaries",
			para: "The Mayor will maybe attend. Couldn't is not could-ish.",
			want: []string{"Weak language detected: 'could'"},
		},
		{
			name: "case-insensitive",
			para: "PERHAPS the board will decide.",
			want: []string{"Weak language detected: 'perhaps'"},
		},
		{
			name: "acceptable context exempts the whole paragraph",
			para: "A general meeting may be called by any director, who might possibly attend.",
		},
		{
			name: "strong language",
			para: "The company shall maintain a register.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Default().Analyze(doc("Heading", tt.para), types.DocGeneral)
			got := withPrefix(res.Issues, "Weak language")
			assert.Equal(t, tt.want, descriptionsOrNil(got))
			assert.Len(t, res.Annotations, len(tt.want))
			for _, issue := range got {
				assert.Equal(t, types.SeverityMedium, issue.Severity)
				assert.Equal(t, 1, issue.Paragraph)
				assert.Equal(t, tt.para, issue.Context)
			}
		})
	}
}

func TestWeakLanguageIssueFields(t *testing.T) {
	long := "The parties might agree " + strings.Repeat("x", 200)
	res := Default().Analyze(doc(long), types.DocGeneral)

	require.Len(t, res.Issues, 1)
	issue := res.Issues[0]
	assert.Equal(t, "Replace 'might' with 'shall'", issue.Suggestion)
	assert.Equal(t, "ADGM legal drafting standards", issue.Regulation)
	assert.Equal(t, long[:100], issue.Context)

	require.Len(t, res.Annotations, 1)
	assert.Equal(t, long[:50]+"...", res.Annotations[0].Excerpt)
	assert.Equal(t, "Per ADGM legal drafting standards: Replace with 'shall' for binding effect", res.Annotations[0].Comment)
}

func TestSectionPresent(t *testing.T) {
	sections := Default().rules.Sections

	find := func(docType types.DocType, name string) Section {
		for _, s := range sections[docType] {
			if s.Name == name {
				return s
			}
		}
		t.Fatalf("no section %q for %s", name, docType)
		return Section{}
	}

	tests := []struct {
		name    string
		docType types.DocType
		section string
		paras   []string
		want    bool
	}{
		{"name in text", types.DocArticlesOfAssociation, "share capital", []string{"Share capital is AED 50,000"}, true},
		{"name without spaces", types.DocArticlesOfAssociation, "governing law", []string{"GoverningLaw: ADGM"}, true},
		{"absent", types.DocArticlesOfAssociation, "interpretation", []string{"Nothing relevant"}, false},
		{"date by month", types.DocBoardResolution, "date", []string{"Held on 3 March"}, true},
		{"date by year", types.DocBoardResolution, "date", []string{"Held in 2019 at the office"}, true},
		{"date missing", types.DocBoardResolution, "date", []string{"Held at the office"}, false},
		{"present by attendance", types.DocBoardResolution, "present", []string{"In attendance: all directors"}, true},
		{"salary by currency", types.DocEmploymentContract, "salary", []string{"Pay: USD 5,000"}, true},
		{"company name by suffix in heading", types.DocArticlesOfAssociation, "company name", []string{"ACME HOLDINGS LTD"}, true},
		{
			name:    "company name suffix beyond heading",
			docType: types.DocArticlesOfAssociation,
			section: "company name",
			paras:   []string{"a", "b", "c", "d", "e", "Acme Ltd"},
			want:    false,
		},
		{"company name by definition", types.DocArticlesOfAssociation, "company name", []string{"Definitions", `"Company" means Acme`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDocument(doc(tt.paras...))
			assert.Equal(t, tt.want, sectionPresent(find(tt.docType, tt.section), d))
		})
	}
}

func TestMissingSections(t *testing.T) {
	d := doc("EMPLOYMENT CONTRACT under ADGM law", "The employee reports weekly.")

	res := Default().Analyze(d, types.DocEmploymentContract)
	got := withPrefix(res.Issues, "Missing required section")

	assert.Equal(t, []string{
		"Missing required section: 'position'",
		"Missing required section: 'salary'",
		"Missing required section: 'working hours'",
		"Missing required section: 'termination'",
	}, descriptions(got))
	for _, issue := range got {
		assert.Equal(t, types.DocumentLevel, issue.Paragraph)
		assert.Equal(t, types.SeverityHigh, issue.Severity)
	}
	assert.Equal(t, "Add a section covering 'salary'", got[1].Suggestion)
	assert.Equal(t, "Compensation details required", got[1].Regulation)

	var summary []string
	for _, a := range res.Annotations {
		if strings.HasPrefix(a.Comment, "Missing 4") {
			summary = append(summary, a.Comment)
			assert.Equal(t, 0, a.Paragraph)
		}
	}
	assert.Equal(t, []string{"Missing 4 required sections: position, salary, working hours (+1 more)"}, summary)
}

func TestNoSectionsForUnlistedTypes(t *testing.T) {
	res := Default().Analyze(doc("Register of Members"), types.DocRegister)
	assert.Empty(t, withPrefix(res.Issues, "Missing required section"))
}

func TestSignatures(t *testing.T) {
	tests := []struct {
		name    string
		docType types.DocType
		paras   []string
		want    []string
		at      []int
	}{
		{
			name:    "skipped for registers",
			docType: types.DocRegister,
			paras:   []string{"Register of Members", "No execution block"},
		},
		{
			name:    "missing block anchored at last paragraph",
			docType: types.DocUBODeclaration,
			paras:   []string{"UBO Declaration", "Owner: A", "End"},
			want:    []string{"Missing signature section"},
			at:      []int{2},
		},
		{
			name:    "blank line without name or date",
			docType: types.DocUBODeclaration,
			paras:   []string{"Signed for the company", "_______________", "Title: Director"},
			want:    []string{"Incomplete signature block - missing signatory name, date field"},
			at:      []int{1},
		},
		{
			name:    "blank line with date nearby",
			docType: types.DocUBODeclaration,
			paras:   []string{"Signed", "________", "Date: 1 May 2024"},
			want:    []string{"Incomplete signature block - missing signatory name"},
			at:      []int{1},
		},
		{
			name:    "complete block",
			docType: types.DocUBODeclaration,
			paras:   []string{"Signature", "________", "Name: Omar", "Date: 1 May 2024"},
		},
		{
			name:    "blank line labelled with name",
			docType: types.DocUBODeclaration,
			paras:   []string{"Signature", "Name: ________"},
		},
		{
			name:    "label outside window",
			docType: types.DocUBODeclaration,
			paras:   []string{"Name: Omar", "Date: today", "x", "Signature", "________"},
			want:    []string{"Incomplete signature block - missing signatory name, date field"},
			at:      []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Default().Analyze(doc(tt.paras...), tt.docType)
			var got []types.Issue
			for _, i := range res.Issues {
				if strings.Contains(i.Description, "signature") || strings.Contains(i.Description, "Signature") {
					got = append(got, i)
				}
			}
			assert.Equal(t, tt.want, descriptionsOrNil(got))
			for k, issue := range got {
				assert.Equal(t, tt.at[k], issue.Paragraph)
			}
		})
	}
}

func TestSignatureSeverities(t *testing.T) {
	res := Default().Analyze(doc("Signed", "____"), types.DocUBODeclaration)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, types.SeverityMedium, res.Issues[0].Severity)
	assert.Equal(t, "ADGM documentation standards", res.Issues[0].Regulation)
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, "Incomplete signature block - missing: signatory name, date field", res.Annotations[0].Comment)

	res = Default().Analyze(doc("Declaration"), types.DocUBODeclaration)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, types.SeverityHigh, res.Issues[0].Severity)
	assert.Equal(t, "ADGM execution requirements", res.Issues[0].Regulation)
}

func TestMissingSummary(t *testing.T) {
	assert.Equal(t, "Missing 1 required sections: date", missingSummary([]string{"date"}))
	assert.Equal(t, "Missing 3 required sections: a, b, c", missingSummary([]string{"a", "b", "c"}))
	assert.Equal(t, "Missing 5 required sections: a, b, c (+2 more)", missingSummary([]string{"a", "b", "c", "d", "e"}))
}

func TestAnalyzerCopiesRuleSet(t *testing.T) {
	rs := DefaultRuleSet()
	a, err := New(rs)
	require.NoError(t, err)

	rs.WeakLanguage.AcceptableContexts[0] = "nothing matches this"
	rs.Jurisdiction.Disallowed[1].Phrase = "Paris Courts"

	res := a.Analyze(doc("The chair may be called by Dubai Courts"), types.DocGeneral)
	assert.Equal(t, []string{"Incorrect jurisdiction reference: 'Dubai Courts'"}, descriptions(res.Issues))
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
jurisdiction:
  disallowed:
    - phrase: "Paris Courts"
      comment: "Use ADGM Courts"
  regulation: "Local rule 1"
weak_language:
  terms:
    - term: "ought"
      replacement: "shall"
      comment: "Use shall"
  regulation: "Drafting guide"
sections:
  board_resolution:
    - name: "quorum"
      reference: "Quorum required"
signatures:
  skip_types: [general_document]
  indicators: ["signed"]
  blank_markers: ["____"]
  name_labels: ["name:"]
  date_labels: ["date:"]
  window: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	a, err := New(rs)
	require.NoError(t, err)

	res := a.Analyze(doc("Resolution", "The Paris Courts ought to decide. Signed."), types.DocBoardResolution)
	assert.Equal(t, []string{
		"Incorrect jurisdiction reference: 'Paris Courts'",
		"Weak language detected: 'ought'",
		"Missing required section: 'quorum'",
	}, descriptions(res.Issues))
}

func TestLoadRuleSetErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRuleSet(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading rule set")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sections: [unclosed"), 0o644))
	_, err = LoadRuleSet(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing rule set")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultRuleSet().Validate())

	rs := DefaultRuleSet()
	rs.Jurisdiction.Disallowed = append(rs.Jurisdiction.Disallowed, Correction{Phrase: " "})
	rs.WeakLanguage.Terms = append(rs.WeakLanguage.Terms, WeakTerm{Term: "ought"})
	rs.Sections["sales_memo"] = []Section{{Name: "x"}}
	rs.Sections[types.DocRegister] = []Section{{Name: "members", LeadingFallback: []string{"x"}}}
	rs.Signatures.SkipTypes = append(rs.Signatures.SkipTypes, "flyer")
	rs.Signatures.Window = -1

	err := rs.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"empty phrase",
		"empty replacement",
		`unknown document type "sales_memo"`,
		"leading_fallback needs leading_paragraphs",
		`unknown document type "flyer"`,
		"must not be negative",
	} {
		assert.Contains(t, err.Error(), want)
	}

	_, err = New(rs)
	assert.Error(t, err)
}

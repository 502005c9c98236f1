// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import "github.com/pdiddy/compliance-review/pkg/types"

func text(phrases ...string) Term    { return Term{Scope: ScopeText, AnyOf: phrases} }
func leading(phrases ...string) Term { return Term{Scope: ScopeLeading, AnyOf: phrases} }

// DefaultRules returns the ADGM classification table. Order matters:
// phrases such as "resolution" appear in several document families, so the
// more specific families come first.
func DefaultRules() []Rule {
	aoaIndicators := text("company name", "registered office", "share capital", "directors", "governing law", "interpretation")

	return []Rule{
		{
			Type: types.DocArticlesOfAssociation,
			Clauses: []Clause{
				{text("articles of association", "article 1:", "article i:", "article 1 interpretation", "article 2: registered office"), aoaIndicators},
				{leading("articles of association", "article 1:", "article i:"), aoaIndicators},
			},
		},
		{
			Type: types.DocBoardResolution,
			Clauses: []Clause{
				{
					text("board resolution", "resolution of the board", "board of directors", "directors present", "it was resolved", "be it resolved"),
					text("meeting", "directors", "resolved", "quorum"),
				},
			},
		},
		{
			Type: types.DocShareholderResolution,
			Clauses: []Clause{
				{text("shareholder resolution", "resolution of shareholders", "shareholders resolution", "resolution of incorporating shareholders", "incorporating shareholders")},
				{text("shareholder"), text("resolution"), text("shares", "shareholding", "shareholders present")},
			},
		},
		{
			Type: types.DocIncorporationApplication,
			Clauses: []Clause{
				{
					text("adgm registration authority", "application for incorporation", "incorporation application", "application to incorporate", "company incorporation application", "registration authority", "name reservation number"),
					text("application"),
				},
			},
		},
		{
			Type: types.DocEmploymentContract,
			Clauses: []Clause{
				{text("employment agreement", "employment contract", "contract of employment")},
				{text("employment"), text("employee", "employer", "salary", "working hours")},
			},
		},
		{
			Type: types.DocRegister,
			Clauses: []Clause{
				{text("register of members", "register of directors", "members register", "directors register", "part a: register", "part b: register")},
			},
		},
		{
			Type: types.DocUBODeclaration,
			Clauses: []Clause{
				{text("ubo declaration", "beneficial ownership", "ultimate beneficial owner", "declaration of beneficial ownership")},
			},
		},
		{
			Type: types.DocMemorandum,
			Clauses: []Clause{
				{text("memorandum of association", "memorandum and articles")},
				{leading("memorandum"), text("name", "registered office", "objects", "liability", "share capital", "subscribers")},
			},
		},
		{
			Type: types.DocCommercialAgreement,
			Clauses: []Clause{
				{text("this agreement", "this contract", "between party a", "between party b"), text("terms and conditions", "governing law")},
			},
		},
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

func checkJurisdiction(jr JurisdictionRules, d *document, docType types.DocType) Result {
	var res Result

	for i, para := range d.lower {
		for _, c := range jr.Disallowed {
			if !strings.Contains(para, strings.ToLower(c.Phrase)) {
				continue
			}
			if c.ExemptWithMarker && containsAny(para, jr.ParagraphMarkers) {
				continue
			}
			res.annotate(d, i, c.Comment)
			res.add(types.Issue{
				Paragraph:   i,
				Description: fmt.Sprintf("Incorrect jurisdiction reference: '%s'", c.Phrase),
				Severity:    types.SeverityHigh,
				Suggestion:  c.Comment,
				Regulation:  jr.Regulation,
			})
		}
	}

	if slices.Contains(jr.RequiredTypes, docType) && !containsAny(d.text, jr.DocumentMarkers) {
		res.annotate(d, 0, jr.MissingComment)
		res.add(types.Issue{
			Paragraph:   0,
			Description: "Missing ADGM jurisdiction reference",
			Severity:    types.SeverityHigh,
			Suggestion:  jr.MissingSuggestion,
			Regulation:  jr.Regulation,
		})
	}

	return res
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	missingSignatureComment = "Per ADGM execution requirements: Add signature blocks with name, title, and date fields"
	elementName             = "signatory name"
	elementDate             = "date field"
)

func checkSignatures(sr SignatureRules, d *document, docType types.DocType) Result {
	var res Result
	if slices.Contains(sr.SkipTypes, docType) {
		return res
	}

	if !containsAny(d.text, sr.Indicators) {
		last := len(d.paragraphs) - 1
		res.annotate(d, last, missingSignatureComment)
		res.add(types.Issue{
			Paragraph:   last,
			Description: "Missing signature section",
			Severity:    types.SeverityHigh,
			Suggestion:  "Add proper signature blocks with name, title, and date fields",
			Regulation:  "ADGM execution requirements",
		})
		return res
	}

	for i, para := range d.paragraphs {
		if !containsAny(para, sr.BlankMarkers) || containsAny(d.lower[i], sr.NameLabels) {
			continue
		}

		lo := max(0, i-sr.Window)
		hi := min(len(d.lower), i+sr.Window+1)
		block := strings.Join(d.lower[lo:hi], " ")

		var missing []string
		if !containsAny(block, sr.NameLabels) {
			missing = append(missing, elementName)
		}
		if !containsAny(block, sr.DateLabels) {
			missing = append(missing, elementDate)
		}
		if len(missing) == 0 {
			continue
		}

		list := strings.Join(missing, ", ")
		res.annotate(d, i, "Incomplete signature block - missing: "+list)
		res.add(types.Issue{
			Paragraph:   i,
			Description: fmt.Sprintf("Incomplete signature block - missing %s", list),
			Severity:    types.SeverityMedium,
			Suggestion:  "Complete all signature fields with name, title, and date",
			Regulation:  "ADGM documentation standards",
		})
	}

	return res
}

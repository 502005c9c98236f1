// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const summaryNames = 3

func checkSections(sections []Section, d *document) Result {
	var res Result
	var missing []string

	for _, s := range sections {
		if sectionPresent(s, d) {
			continue
		}
		missing = append(missing, s.Name)
		res.add(types.Issue{
			Paragraph:   types.DocumentLevel,
			Description: fmt.Sprintf("Missing required section: '%s'", s.Name),
			Severity:    types.SeverityHigh,
			Suggestion:  fmt.Sprintf("Add a section covering '%s'", s.Name),
			Regulation:  s.Reference,
		})
	}

	if len(missing) > 0 {
		res.annotate(d, 0, missingSummary(missing))
	}
	return res
}

func sectionPresent(s Section, d *document) bool {
	if strings.Contains(d.text, s.Name) || strings.Contains(d.text, strings.ReplaceAll(s.Name, " ", "")) {
		return true
	}
	if containsAny(d.text, s.Fallback) {
		return true
	}
	if s.Year && yearPattern.MatchString(d.text) {
		return true
	}
	if len(s.LeadingFallback) > 0 {
		n := min(s.LeadingParagraphs, len(d.lower))
		if containsAny(strings.Join(d.lower[:n], " "), s.LeadingFallback) {
			return true
		}
	}
	return false
}

// missingSummary lists up to summaryNames section names.
func missingSummary(missing []string) string {
	shown := missing[:min(len(missing), summaryNames)]
	msg := fmt.Sprintf("Missing %d required sections: %s", len(missing), strings.Join(shown, ", "))
	if extra := len(missing) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" (+%d more)", extra)
	}
	return msg
}

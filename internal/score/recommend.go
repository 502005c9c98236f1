// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"fmt"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// facts are the batch statistics the recommendation table is evaluated on.
type facts struct {
	missing      []string
	critical     int
	high         int
	medium       int
	jurisdiction int
	weak         int
	sections     int
	signatures   int
}

func gather(issues []types.Issue, check types.DocumentSetCheck) facts {
	f := facts{missing: check.Missing}
	for _, issue := range issues {
		switch issue.Severity {
		case types.SeverityCritical:
			f.critical++
		case types.SeverityHigh:
			if issue.Penalized() {
				f.high++
			}
		case types.SeverityMedium:
			if issue.Penalized() {
				f.medium++
			}
		}

		desc := strings.ToLower(issue.Description)
		if strings.Contains(desc, "jurisdiction") {
			f.jurisdiction++
		}
		if strings.Contains(desc, "weak language") {
			f.weak++
		}
		if strings.Contains(desc, "missing required section") {
			f.sections++
		}
		if strings.Contains(desc, "signature") {
			f.signatures++
		}
	}
	return f
}

func (f facts) blocking() bool {
	return len(f.missing) > 0 || f.high > 0 || f.critical > 0
}

// recommendation fires when its trigger holds.
type recommendation struct {
	trigger func(facts) bool
	message func(facts) string
}

func fixed(msg string) func(facts) string {
	return func(facts) string { return msg }
}

// cascade is evaluated top to bottom; every firing entry contributes one
// line.
var cascade = []recommendation{
	{
		trigger: func(f facts) bool { return len(f.missing) > 0 },
		message: func(f facts) string {
			return "URGENT: Upload missing documents: " + strings.Join(f.missing, ", ")
		},
	},
	{
		trigger: func(f facts) bool { return f.critical > 0 },
		message: func(f facts) string {
			return fmt.Sprintf("CRITICAL: Fix %d critical compliance issues immediately", f.critical)
		},
	},
	{
		trigger: func(f facts) bool { return f.high > 0 },
		message: func(f facts) string {
			return fmt.Sprintf("HIGH PRIORITY: Address %d high-severity issues before submission", f.high)
		},
	},
	{
		trigger: func(f facts) bool { return f.jurisdiction > 0 },
		message: fixed("JURISDICTION: Update all references to specify 'Abu Dhabi Global Market (ADGM)' instead of UAE/DIFC"),
	},
	{
		trigger: func(f facts) bool { return f.weak > 0 },
		message: fixed("LANGUAGE: Replace weak terms (may, might, could, perhaps) with binding language (shall, must, will)"),
	},
	{
		trigger: func(f facts) bool { return f.sections > 0 },
		message: fixed("SECTIONS: Add missing required sections as per ADGM regulatory templates"),
	},
	{
		trigger: func(f facts) bool { return f.signatures > 0 },
		message: fixed("SIGNATURES: Complete all signature blocks with full names, titles, and dates"),
	},
	{
		trigger: func(f facts) bool { return f.medium > 0 },
		message: func(f facts) string {
			return fmt.Sprintf("REVIEW: Address %d medium-priority issues for better compliance", f.medium)
		},
	},
	{
		trigger: func(f facts) bool { return !f.blocking() && f.medium > 0 },
		message: fixed("GOOD: Documents are largely compliant - address minor issues and submit"),
	},
	{
		trigger: func(f facts) bool { return !f.blocking() && f.medium == 0 },
		message: fixed("EXCELLENT: Documents appear fully compliant with ADGM regulations"),
	},
	{
		trigger: facts.blocking,
		message: fixed("NEXT STEPS: 1) Address high-priority issues, 2) Upload missing documents, 3) Review recommendations, 4) Re-submit for validation"),
	},
}

// Recommend returns the recommendations that apply to a batch, in priority
// order.
func Recommend(issues []types.Issue, check types.DocumentSetCheck) []string {
	f := gather(issues, check)
	out := []string{}
	for _, r := range cascade {
		if r.trigger(f) {
			out = append(out, r.message(f))
		}
	}
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"regexp"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const contextLen = 100

// checkWeakLanguage flags each weak term once per paragraph. patterns[i]
// is the word-boundary matcher for wr.Terms[i].
func checkWeakLanguage(wr WeakLanguageRules, patterns []*regexp.Regexp, d *document) Result {
	var res Result

	for i, para := range d.paragraphs {
		if containsAny(d.lower[i], wr.AcceptableContexts) {
			continue
		}
		for j, w := range wr.Terms {
			if !patterns[j].MatchString(para) {
				continue
			}
			res.annotate(d, i, w.Comment)
			res.add(types.Issue{
				Paragraph:   i,
				Description: fmt.Sprintf("Weak language detected: '%s'", w.Term),
				Severity:    types.SeverityMedium,
				Suggestion:  fmt.Sprintf("Replace '%s' with '%s'", w.Term, w.Replacement),
				Regulation:  wr.Regulation,
				Context:     truncate(para, contextLen),
			})
		}
	}

	return res
}

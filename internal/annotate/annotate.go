// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate renders a reviewed document as Markdown: a header with
// issue counts, the original paragraphs with inline comment markers where
// the analyzer requested annotations, and a numbered comment summary.
package annotate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const rule = "======================================================================"

// templateURLs are the official ADGM templates offered alongside a review.
var templateURLs = map[types.DocType]string{
	types.DocShareholderResolution: "https://assets.adgm.com/download/assets/adgm-ra-resolution-multiple-incorporate-shareholders-LTD-incorporation-v2.docx/186a12846c3911efa4e6c6223862cd87",
	types.DocEmploymentContract:    "https://assets.adgm.com/download/assets/ADGM+Standard+Employment+Contract+Template+-+ER+2024+(Feb+2025).docx/ee14b252edbe11efa63b12b3a30e5e3a",
}

// TemplateURL returns the official template for t, if ADGM publishes one.
func TemplateURL(t types.DocType) (string, bool) {
	u, ok := templateURLs[t]
	return u, ok
}

// Review is everything needed to render one reviewed document.
type Review struct {
	Document    types.Document
	Type        types.DocType
	Issues      []types.Issue
	Annotations []types.Annotation
	ReviewedAt  time.Time
}

// Render writes the Markdown review of r to w.
func Render(w io.Writer, r Review) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# ADGM Compliance Review Report")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "- Review Date: %s\n", r.ReviewedAt.Format("January 2, 2006"))
	fmt.Fprintf(bw, "- Document: %s\n", r.Document.Name)
	fmt.Fprintf(bw, "- Document Type: %s\n", titleCase(string(r.Type)))
	if u, ok := TemplateURL(r.Type); ok {
		fmt.Fprintf(bw, "- Official Template: %s\n", u)
	}
	fmt.Fprintf(bw, "- Total Issues Found: %d\n", len(r.Issues))

	counts := make(map[types.Severity]int, len(types.Severities))
	for _, is := range r.Issues {
		counts[is.Severity]++
	}
	for _, sev := range types.Severities {
		if counts[sev] > 0 {
			fmt.Fprintf(bw, "- %s Severity: %d\n", titleCase(string(sev)), counts[sev])
		}
	}

	fmt.Fprintf(bw, "\n%s\n\n## Reviewed Document With Inline Comments\n\n%s\n", rule, rule)

	inline := make(map[int][]string)
	for _, a := range r.Annotations {
		inline[a.Paragraph] = append(inline[a.Paragraph], a.Comment)
	}
	for i, p := range r.Document.Paragraphs {
		text := p
		for _, c := range inline[i] {
			text += " [COMMENT: " + c + "]"
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(bw, "\n%s\n", text)
	}

	if len(r.Annotations) > 0 {
		fmt.Fprintf(bw, "\n---\n\n## Comment Summary\n")
		for i, a := range r.Annotations {
			fmt.Fprintf(bw, "\n%d. Location: %s\n   Comment: %s\n", i+1, a.Excerpt, a.Comment)
		}
	}
	return bw.Flush()
}

// FileName returns the reviewed-output name for source at time at.
func FileName(source string, at time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return fmt.Sprintf("%s_reviewed_%s.md", stem, at.Format("20060102_150405"))
}

// WriteFile renders r into dir and returns the path written.
func WriteFile(dir string, r Review) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r.Document.Name, r.ReviewedAt))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Render(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// titleCase turns "articles_of_association" into "Articles Of Association".
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

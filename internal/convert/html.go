// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// boilerplate lists elements dropped before conversion.
const boilerplate = "script, style, noscript, nav, header, footer, iframe, form"

// HTMLConverter reads saved web pages. Page chrome is removed and the body
// is rendered as Markdown, one paragraph per block.
type HTMLConverter struct{}

// Convert reads path and returns the page body as paragraphs.
func (HTMLConverter) Convert(ctx context.Context, path string) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return types.Document{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return types.Document{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.Find(boilerplate).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	html, err := goquery.OuterHtml(body)
	if err != nil {
		return types.Document{}, fmt.Errorf("rendering %s: %w", path, err)
	}
	markdown, err := md.NewConverter("", true, nil).ConvertString(html)
	if err != nil {
		return types.Document{}, fmt.Errorf("converting %s: %w", path, err)
	}
	return NewDocument(filepath.Base(path), SplitParagraphs(markdown)), nil
}

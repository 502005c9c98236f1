// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// TextConverter reads plain text and Markdown. Paragraphs are separated by
// one or more blank lines.
type TextConverter struct{}

// Convert reads path and splits it into paragraphs.
func (TextConverter) Convert(ctx context.Context, path string) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return types.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewDocument(filepath.Base(path), SplitParagraphs(string(data))), nil
}

// SplitParagraphs splits text on blank lines. Lines inside a paragraph keep
// their line breaks; surrounding whitespace is trimmed.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return paragraphs
}

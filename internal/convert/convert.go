// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns uploaded files into the plain text and ordered
// paragraph list that the review stages operate on. Backends (DOCX, plain
// text, HTML, the markitdown container) implement Converter; Registry picks one
// by file extension.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

var (
	// ErrUnsupported is returned when no converter handles a file's extension.
	ErrUnsupported = errors.New("unsupported file type")

	// ErrUnreadable wraps every failure of a converter to read a file.
	ErrUnreadable = errors.New("unreadable document")
)

// Converter extracts a Document from the file at path.
type Converter interface {
	Convert(ctx context.Context, path string) (types.Document, error)
}

// Registry dispatches conversion by lower-cased file extension.
type Registry struct {
	byExt    map[string]Converter
	fallback Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Converter)}
}

// Register maps each extension (with or without the leading dot) to c.
func (r *Registry) Register(c Converter, exts ...string) {
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = c
	}
}

// SetFallback sets the converter used for extensions nothing else claims.
func (r *Registry) SetFallback(c Converter) {
	r.fallback = c
}

// Lookup returns the converter for path.
func (r *Registry) Lookup(path string) (Converter, bool) {
	if c, ok := r.byExt[normalizeExt(filepath.Ext(path))]; ok {
		return c, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Convert extracts path with the matching converter. The returned error
// wraps ErrUnsupported or ErrUnreadable.
func (r *Registry) Convert(ctx context.Context, path string) (types.Document, error) {
	c, ok := r.Lookup(path)
	if !ok {
		return types.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	doc, err := c.Convert(ctx, path)
	if err != nil {
		if errors.Is(err, ErrUnreadable) {
			return types.Document{}, err
		}
		return types.Document{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return doc, nil
}

// DefaultRegistry handles .docx natively, .txt/.md as plain text and
// .html/.htm as web pages. When markitdown is non-nil it serves every other
// extension.
func DefaultRegistry(markitdown Converter) *Registry {
	r := NewRegistry()
	r.Register(DocxConverter{}, ".docx")
	r.Register(TextConverter{}, ".txt", ".md", ".markdown")
	r.Register(HTMLConverter{}, ".html", ".htm")
	if markitdown != nil {
		r.SetFallback(markitdown)
	}
	return r
}

// NewDocument builds a Document from ordered paragraphs. Text is the
// non-empty paragraphs joined by newlines.
func NewDocument(name string, paragraphs []string) types.Document {
	return types.Document{
		Name:       name,
		Text:       joinNonEmpty(paragraphs),
		Paragraphs: paragraphs,
	}
}

func joinNonEmpty(blocks []string) string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n")
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

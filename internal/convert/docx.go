// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	docxBodyPart = "word/document.xml"
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// DocxConverter reads WordprocessingML packages. Paragraphs are the body
// paragraphs outside tables, empty ones included. Text adds each non-empty
// table cell where its table appears.
type DocxConverter struct{}

// Convert opens the package at path and parses its main document part.
func (DocxConverter) Convert(ctx context.Context, path string) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return types.Document{}, err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return types.Document{}, fmt.Errorf("opening %s in %s: %w", docxBodyPart, path, err)
		}
		defer rc.Close()

		paragraphs, blocks, err := parseWordBody(rc)
		if err != nil {
			return types.Document{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return types.Document{
			Name:       filepath.Base(path),
			Text:       joinNonEmpty(blocks),
			Paragraphs: paragraphs,
		}, nil
	}
	return types.Document{}, fmt.Errorf("%s has no %s", path, docxBodyPart)
}

// parseWordBody walks document.xml once. It returns the paragraphs outside
// tables, and every paragraph and table cell text in document order.
func parseWordBody(r io.Reader) (paragraphs, blocks []string, err error) {
	dec := xml.NewDecoder(r)

	var (
		stack  []string   // open WordprocessingML element names
		cells  [][]string // paragraphs of each open table cell, innermost last
		para   strings.Builder
		pDepth int // w:p nests only through text boxes; inner text joins the outer paragraph
		inText bool
	)
	parent := func() string {
		if len(stack) < 2 {
			return ""
		}
		return stack[len(stack)-2]
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				stack = append(stack, "")
				continue
			}
			stack = append(stack, t.Name.Local)
			switch t.Name.Local {
			case "p":
				if pDepth == 0 {
					para.Reset()
				}
				pDepth++
			case "tc":
				cells = append(cells, nil)
			case "t":
				inText = true
			case "tab":
				if parent() == "r" {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if parent() == "r" {
					para.WriteByte('\n')
				}
			}

		case xml.EndElement:
			name := ""
			if len(stack) > 0 {
				name = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
			switch name {
			case "t":
				inText = false
			case "p":
				pDepth--
				if pDepth > 0 {
					continue
				}
				text := para.String()
				if n := len(cells); n > 0 {
					cells[n-1] = append(cells[n-1], text)
					continue
				}
				paragraphs = append(paragraphs, text)
				blocks = append(blocks, text)
			case "tc":
				n := len(cells)
				if n == 0 {
					continue
				}
				blocks = append(blocks, strings.Join(cells[n-1], "\n"))
				cells = cells[:n-1]
			}

		case xml.CharData:
			if inText && pDepth > 0 {
				para.Write(t)
			}
		}
	}
	return paragraphs, blocks, nil
}

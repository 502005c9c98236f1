// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/compliance-review/internal/container"
	"github.com/pdiddy/compliance-review/pkg/types"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownConverter handles formats without a native reader (PDF, legacy
// .doc, HTML) by piping them through the markitdown container image and
// splitting the resulting Markdown into paragraphs.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter verifies that the markitdown image exists in rt.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert pipes the file at path through the markitdown container.
func (m *MarkitdownConverter) Convert(ctx context.Context, path string) (types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, imageMarkitdown, f, &out); err != nil {
		return types.Document{}, fmt.Errorf("converting %s with markitdown: %w", path, err)
	}
	if len(bytes.TrimSpace(out.Bytes())) == 0 {
		return types.Document{}, fmt.Errorf("markitdown produced empty output for %s", path)
	}
	return NewDocument(filepath.Base(path), SplitParagraphs(out.String())), nil
}

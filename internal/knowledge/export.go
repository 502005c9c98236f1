// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportEntry is one passage in an export file.
type ExportEntry struct {
	Partition string         `json:"partition" yaml:"partition"`
	ID        string         `json:"id" yaml:"id"`
	Content   string         `json:"content" yaml:"content"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ExportSource lists and reads partitions.
type ExportSource interface {
	Partitions(ctx context.Context) ([]string, error)
	All(ctx context.Context, partition string) ([]types.StoredPassage, error)
}

// Export writes every passage of the given partitions to path as YAML or
// JSON. An empty partitions list exports all of them.
func Export(ctx context.Context, store ExportSource, partitions []string, format, path string) (int, error) {
	if format != FormatYAML && format != FormatJSON {
		return 0, fmt.Errorf("unsupported export format %q (want yaml or json)", format)
	}

	if len(partitions) == 0 {
		var err error
		partitions, err = store.Partitions(ctx)
		if err != nil {
			return 0, err
		}
	}

	var entries []ExportEntry
	for _, partition := range partitions {
		passages, err := store.All(ctx, partition)
		if err != nil {
			return 0, fmt.Errorf("querying for export: %w", err)
		}
		for _, p := range passages {
			entries = append(entries, ExportEntry{
				Partition: partition,
				ID:        p.ID,
				Content:   p.Content,
				Metadata:  p.Metadata,
			})
		}
	}

	var (
		data []byte
		err  error
	)
	if format == FormatJSON {
		data, err = json.MarshalIndent(entries, "", "  ")
	} else {
		data, err = yaml.Marshal(entries)
	}
	if err != nil {
		return 0, fmt.Errorf("marshaling %s: %w", format, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(entries), nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/internal/retrieval"
	"github.com/pdiddy/compliance-review/pkg/types"
)

//go:embed corpus/*.yaml
var builtinCorpus embed.FS

const builtinPrefix = "builtin/"

// Corpus is one YAML file of passages destined for a single partition.
type Corpus struct {
	Partition string                `yaml:"partition" json:"partition"`
	Passages  []types.StoredPassage `yaml:"passages" json:"passages"`
}

// ParseCorpus decodes and validates a corpus file.
func ParseCorpus(data []byte) (Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Corpus{}, fmt.Errorf("parse error: %w", err)
	}
	if c.Partition == "" {
		return Corpus{}, fmt.Errorf("corpus has no partition")
	}
	seen := make(map[string]bool, len(c.Passages))
	for i, p := range c.Passages {
		if p.ID == "" {
			return Corpus{}, fmt.Errorf("passage %d has no id", i)
		}
		if strings.TrimSpace(p.Content) == "" {
			return Corpus{}, fmt.Errorf("passage %s has no content", p.ID)
		}
		if seen[p.ID] {
			return Corpus{}, fmt.Errorf("passage %s listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	return c, nil
}

// DefaultCorpus returns the built-in ADGM regulation, template, rule and
// official-document passages.
func DefaultCorpus() ([]Corpus, error) {
	entries, err := fs.ReadDir(builtinCorpus, corpusDir)
	if err != nil {
		return nil, fmt.Errorf("reading built-in corpus: %w", err)
	}
	var out []Corpus
	for _, e := range entries {
		data, err := builtinCorpus.ReadFile(path.Join(corpusDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		c, err := ParseCorpus(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, c)
	}
	return out, nil
}

// PassageRef names one stored passage.
type PassageRef struct {
	Partition string
	ID        string
}

// SeedStore is a vector store that remembers which corpus files it has
// ingested and which passages each one contributed.
type SeedStore interface {
	Add(ctx context.Context, partition string, p types.StoredPassage, embedding []float32) error
	SeededVersion(ctx context.Context, source string) (string, bool, error)
	SeededPassages(ctx context.Context, source string) ([]PassageRef, error)
	MarkSeeded(ctx context.Context, source, version string, passages []PassageRef) error
	Prune(ctx context.Context, source string, stale []PassageRef) (int, error)
}

// embedderName is implemented by embedders that can name the vector space
// they produce, such as "openai/text-embedding-3-small".
type embedderName interface {
	Name() string
}

// embedderID identifies the vector space passages are embedded into.
func embedderID(e retrieval.Embedder) string {
	if e == nil {
		return "none"
	}
	if n, ok := e.(embedderName); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", e)
}

// sourceVersion combines a corpus file version with the embedder, so
// switching provider or model re-embeds every file.
func sourceVersion(fileVersion string, embedder retrieval.Embedder) string {
	return fileVersion + "+" + embedderID(embedder)
}

// SeedSummary holds counts from a seeding run.
type SeedSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of corpus files processed.
func (s SeedSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

func (s *SeedSummary) add(o SeedSummary) {
	s.Indexed += o.Indexed
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Seed ingests every *.yaml corpus file in dir whose modification time or
// embedder changed since it was last seeded. A nil embedder stores passages
// for sparse retrieval only. Passages dropped from a re-seeded file are
// removed. Per-file progress is written to w.
func Seed(ctx context.Context, store SeedStore, embedder retrieval.Embedder, dir string, w io.Writer) (SeedSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}

	var summary SeedSummary
	for _, entry := range entries {
		if entry.IsDir() || !isCorpusFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		version := sourceVersion(info.ModTime().UTC().Format(time.RFC3339Nano), embedder)

		summary.add(seedSource(ctx, store, embedder, name, version, func() ([]byte, error) {
			return os.ReadFile(filepath.Join(dir, name))
		}, w))
	}

	printSummary(w, summary)
	return summary, nil
}

// SeedDefaults ingests the built-in corpus. Files are versioned by content
// hash and embedder so an upgraded binary or a new embedding model re-seeds
// them.
func SeedDefaults(ctx context.Context, store SeedStore, embedder retrieval.Embedder, w io.Writer) (SeedSummary, error) {
	entries, err := fs.ReadDir(builtinCorpus, corpusDir)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("reading built-in corpus: %w", err)
	}

	var summary SeedSummary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		data, err := builtinCorpus.ReadFile(path.Join(corpusDir, entry.Name()))
		if err != nil {
			return summary, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(data)
		summary.add(seedSource(ctx, store, embedder, builtinPrefix+entry.Name(), sourceVersion(hex.EncodeToString(sum[:]), embedder),
			func() ([]byte, error) { return data, nil }, w))
	}

	printSummary(w, summary)
	return summary, nil
}

func seedSource(ctx context.Context, store SeedStore, embedder retrieval.Embedder, source, version string, read func() ([]byte, error), w io.Writer) SeedSummary {
	stored, seeded, err := store.SeededVersion(ctx, source)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", source, err)
		return SeedSummary{Failed: 1}
	}
	if seeded && stored == version {
		fmt.Fprintf(w, "skipped %s\n", source)
		return SeedSummary{Skipped: 1}
	}

	data, err := read()
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", source, err)
		return SeedSummary{Failed: 1}
	}
	corpus, err := ParseCorpus(data)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", source, err)
		return SeedSummary{Failed: 1}
	}

	refs := make([]PassageRef, len(corpus.Passages))
	for i, p := range corpus.Passages {
		refs[i] = PassageRef{Partition: corpus.Partition, ID: p.ID}
		var embedding []float32
		if embedder != nil {
			embedding, err = embedder.Embed(ctx, p.Content)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: embedding %s: %v\n", source, p.ID, err)
				return SeedSummary{Failed: 1}
			}
		}
		if err := store.Add(ctx, corpus.Partition, p, embedding); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			return SeedSummary{Failed: 1}
		}
	}

	previous, err := store.SeededPassages(ctx, source)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", source, err)
		return SeedSummary{Failed: 1}
	}
	if stale := staleRefs(previous, refs); len(stale) > 0 {
		n, err := store.Prune(ctx, source, stale)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			return SeedSummary{Failed: 1}
		}
		if n > 0 {
			fmt.Fprintf(w, "pruned  %s (%d passages)\n", source, n)
		}
	}

	if err := store.MarkSeeded(ctx, source, version, refs); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", source, err)
		return SeedSummary{Failed: 1}
	}

	if seeded {
		fmt.Fprintf(w, "updated %s (%d passages into %s)\n", source, len(corpus.Passages), corpus.Partition)
		return SeedSummary{Updated: 1}
	}
	fmt.Fprintf(w, "indexing %s (%d passages into %s)\n", source, len(corpus.Passages), corpus.Partition)
	return SeedSummary{Indexed: 1}
}

// staleRefs returns the refs in previous that current no longer lists.
func staleRefs(previous, current []PassageRef) []PassageRef {
	keep := make(map[PassageRef]bool, len(current))
	for _, r := range current {
		keep[r] = true
	}
	var out []PassageRef
	for _, r := range previous {
		if !keep[r] {
			out = append(out, r)
		}
	}
	return out
}

func printSummary(w io.Writer, s SeedSummary) {
	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		s.Indexed, s.Updated, s.Skipped, s.Failed)
}

func isCorpusFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

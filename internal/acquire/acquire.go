// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads official ADGM pages and documents and turns
// them into a corpus file that knowledge seeding ingests into the
// official_documents partition.
package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/internal/httputil"
	"github.com/pdiddy/compliance-review/internal/knowledge"
	"github.com/pdiddy/compliance-review/pkg/types"
)

const (
	// Partition is the knowledge-base partition fetched documents belong to.
	Partition = "official_documents"

	// idPrefix keeps fetched passages apart from the built-in summaries of
	// the same documents.
	idPrefix = "fetched_"

	defaultMaxChars  = 8000
	defaultUserAgent = "compliance-review/1.0"
	maxSlugLen       = 80
	titleLen         = 120
)

// documentExts are the extensions recognised in a source URL path. Pages
// without one are saved as HTML.
var documentExts = map[string]bool{
	".docx": true,
	".doc":  true,
	".pdf":  true,
	".html": true,
	".htm":  true,
}

// Converter extracts text from a downloaded file.
type Converter interface {
	Convert(ctx context.Context, path string) (types.Document, error)
}

// BatchResult holds the outcome of a fetch run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Passages   []types.StoredPassage
}

// Total returns the number of sources processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any source failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetcher downloads sources into Dir and converts them to passages.
type Fetcher struct {
	Client    *http.Client
	Converter Converter
	Dir       string
	UserAgent string

	// Delay is waited between consecutive downloads.
	Delay time.Duration

	// MaxRetries bounds retries on HTTP 429 and 503.
	MaxRetries int

	// MaxChars caps the stored passage length in runes. Zero uses 8000.
	MaxChars int
}

// Fetch downloads src unless a copy is already on disk, then converts it.
// The skipped return value reports whether the download was skipped.
func (f *Fetcher) Fetch(ctx context.Context, src Source, w io.Writer) (passage types.StoredPassage, skipped bool, err error) {
	slug, ext := Slug(src)
	dest := filepath.Join(f.Dir, slug+ext)

	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", slug)
		skipped = true
	} else {
		if err := os.MkdirAll(f.Dir, 0o755); err != nil {
			return types.StoredPassage{}, false, fmt.Errorf("creating directory %s: %w", f.Dir, err)
		}
		fmt.Fprintf(w, "downloading: %s (%s)\n", slug, src.Category)
		if err := f.download(ctx, src.URL, dest); err != nil {
			return types.StoredPassage{}, false, fmt.Errorf("downloading %s: %w", slug, err)
		}
	}

	doc, err := f.Converter.Convert(ctx, dest)
	if err != nil {
		return types.StoredPassage{}, skipped, fmt.Errorf("converting %s: %w", slug, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return types.StoredPassage{}, skipped, fmt.Errorf("converting %s: no text extracted", slug)
	}
	return f.passage(slug, src, dest, doc), skipped, nil
}

// FetchAll processes sources in order, printing per-source status and a
// summary. It continues after individual failures and returns an error only
// when ctx is cancelled.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, w io.Writer) (BatchResult, error) {
	var result BatchResult
	seen := make(map[string]int)
	for i, src := range sources {
		if i > 0 && f.Delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(f.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		p, wasSkipped, err := f.Fetch(ctx, src, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", src.URL, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		seen[p.ID]++
		if n := seen[p.ID]; n > 1 {
			p.ID = fmt.Sprintf("%s-%d", p.ID, n)
		}
		result.Passages = append(result.Passages, p)
	}
	fmt.Fprintf(w, "\nFetch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// WriteCorpus writes passages to path as a corpus file for Partition.
func WriteCorpus(path string, passages []types.StoredPassage) error {
	data, err := yaml.Marshal(knowledge.Corpus{Partition: Partition, Passages: passages})
	if err != nil {
		return fmt.Errorf("marshaling corpus: %w", err)
	}
	if _, err := knowledge.ParseCorpus(data); err != nil {
		return fmt.Errorf("invalid corpus: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Slug derives a stable file name and extension for src: the category
// followed by the most descriptive path segment of the URL.
func Slug(src Source) (slug, ext string) {
	name, ext := describingSegment(src.URL)
	name = sanitize(name)
	if name == "" {
		sum := sha256.Sum256([]byte(src.URL))
		name = hex.EncodeToString(sum[:6])
	}
	return src.Category + "_" + name, ext
}

// describingSegment returns the last path segment carrying a document
// extension, or the last non-empty segment with ".html".
func describingSegment(raw string) (name, ext string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ".html"
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg, err := url.PathUnescape(segments[i])
		if err != nil {
			seg = segments[i]
		}
		if e := strings.ToLower(path.Ext(seg)); documentExts[e] {
			return strings.TrimSuffix(seg, path.Ext(seg)), e
		}
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			seg, err := url.PathUnescape(segments[i])
			if err != nil {
				seg = segments[i]
			}
			return seg, ".html"
		}
	}
	return "", ".html"
}

// sanitize lower-cases s and collapses everything but letters and digits
// into single hyphens.
func sanitize(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > maxSlugLen {
		out = strings.TrimSuffix(out[:maxSlugLen], "-")
	}
	return out
}

func (f *Fetcher) passage(slug string, src Source, file string, doc types.Document) types.StoredPassage {
	maxChars := f.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	content := doc.Text
	if r := []rune(content); len(r) > maxChars {
		content = string(r[:maxChars])
	}
	meta := map[string]any{
		"type":       "official_document",
		"category":   src.Category,
		"source":     "ADGM Official",
		"source_url": src.URL,
		"file":       filepath.Base(file),
	}
	for _, p := range doc.Paragraphs {
		if t := strings.TrimSpace(p); t != "" {
			if r := []rune(t); len(r) > titleLen {
				t = string(r[:titleLen])
			}
			meta["title"] = t
			break
		}
	}
	return types.StoredPassage{ID: idPrefix + slug, Content: content, Metadata: meta}
}

// download fetches rawURL to dest through a temporary file so a failed
// transfer never leaves a partial document behind.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, f.MaxRetries)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return writeAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
}

// writeAtomic writes to a temporary file beside dest and renames it into
// place on success.
func writeAtomic(dest string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := write(tmp)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", dest, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/internal/retrieval"
	"github.com/pdiddy/compliance-review/pkg/types"
)

// Compile-time interface checks.
var (
	_ retrieval.VectorStore = (*SQLiteStore)(nil)
	_ retrieval.VectorStore = (*PGVectorStore)(nil)
	_ SeedStore             = (*SQLiteStore)(nil)
	_ SeedStore             = (*PGVectorStore)(nil)
	_ ExportSource          = (*SQLiteStore)(nil)
)

// --- test helpers ---

func testSetup(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "knowledge", corpusDir), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "knowledge"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func writeCorpus(t *testing.T, tmpDir, name string, c Corpus) string {
	t.Helper()
	data, err := yaml.Marshal(&c)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(tmpDir, "knowledge", corpusDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleCorpus() Corpus {
	return Corpus{
		Partition: "adgm_regulations",
		Passages: []types.StoredPassage{
			{ID: "reg-1", Content: "All documents must reference ADGM jurisdiction", Metadata: map[string]any{"source": "ADGM Official"}},
			{ID: "reg-2", Content: "Minimum one director required"},
		},
	}
}

// hashEmbedder maps text to a fixed 3-dimensional vector keyed on the first
// letter so tests can predict similarity.
type hashEmbedder struct {
	err   error
	calls int
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	switch strings.ToLower(text)[0] {
	case 'a':
		return []float32{1, 0, 0}, nil
	case 'm':
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

// --- schema tests ---

func TestNewSQLiteStoreCreatesSchema(t *testing.T) {
	store, tmpDir := testSetup(t)

	for _, table := range []string{"passages", "indexing_status", "seeded_passages"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}

	dbPath := filepath.Join(tmpDir, "knowledge", indexDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- store tests ---

func TestAddAndAll(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	c := sampleCorpus()
	for _, p := range c.Passages {
		if err := store.Add(ctx, c.Partition, p, nil); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.All(ctx, c.Partition)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d passages, want 2", len(got))
	}
	if got[0].ID != "reg-1" || got[1].ID != "reg-2" {
		t.Errorf("order = [%s %s], want [reg-1 reg-2]", got[0].ID, got[1].ID)
	}
	if got[0].Metadata["source"] != "ADGM Official" {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
	if got[1].Metadata != nil {
		t.Errorf("empty metadata should read back nil, got %v", got[1].Metadata)
	}
}

func TestAddReplacesSameID(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	store.Add(ctx, "p", types.StoredPassage{ID: "x", Content: "old"}, nil)
	store.Add(ctx, "p", types.StoredPassage{ID: "x", Content: "new"}, nil)
	store.Add(ctx, "other", types.StoredPassage{ID: "x", Content: "separate"}, nil)

	got, err := store.All(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "new" {
		t.Errorf("got %+v, want single passage with content new", got)
	}
}

func TestPartitionsInInsertionOrder(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	adds := []struct{ partition, id string }{
		{"compliance_rules", "1"},
		{"adgm_regulations", "2"},
		{"compliance_rules", "3"},
	}
	for _, a := range adds {
		if err := store.Add(ctx, a.partition, types.StoredPassage{ID: a.id, Content: "c"}, nil); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Partitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"compliance_rules", "adgm_regulations"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Partitions = %v, want %v", got, want)
	}
}

func TestQueryRanksByCosineDistance(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	store.Add(ctx, "p", types.StoredPassage{ID: "far", Content: "far"}, []float32{0, 1})
	store.Add(ctx, "p", types.StoredPassage{ID: "near", Content: "near"}, []float32{1, 0.1})
	store.Add(ctx, "p", types.StoredPassage{ID: "exact", Content: "exact"}, []float32{2, 0})
	store.Add(ctx, "p", types.StoredPassage{ID: "sparse-only", Content: "no vector"}, nil)

	got, err := store.Query(ctx, "p", []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].ID != "exact" || got[1].ID != "near" {
		t.Errorf("order = [%s %s], want [exact near]", got[0].ID, got[1].ID)
	}
	if math.Abs(got[0].Distance) > 1e-6 {
		t.Errorf("exact distance = %f, want 0", got[0].Distance)
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	store.Add(ctx, "p", types.StoredPassage{ID: "x", Content: "x"}, []float32{1, 0, 0})
	_, err := store.Query(ctx, "p", []float32{1, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3e-8, 0}
	got := decodeEmbedding(encodeEmbedding(v))
	if len(got) != len(v) {
		t.Fatalf("len = %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], v[i])
		}
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineDistance = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFormatVector(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -0.25, 2}, "[0.5,-0.25,2]"},
	}
	for _, tt := range tests {
		if got := formatVector(tt.in); got != tt.want {
			t.Errorf("formatVector(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- corpus tests ---

func TestParseCorpusErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "partition: [", "parse error"},
		{"no partition", "passages:\n  - id: a\n    content: x\n", "no partition"},
		{"no id", "partition: p\npassages:\n  - content: x\n", "has no id"},
		{"no content", "partition: p\npassages:\n  - id: a\n    content: '  '\n", "has no content"},
		{"duplicate", "partition: p\npassages:\n  - id: a\n    content: x\n  - id: a\n    content: y\n", "listed twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCorpus([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultCorpus(t *testing.T) {
	corpora, err := DefaultCorpus()
	if err != nil {
		t.Fatal(err)
	}

	partitions := map[string]int{}
	for _, c := range corpora {
		partitions[c.Partition] += len(c.Passages)
	}
	for _, p := range []string{"adgm_regulations", "document_templates", "compliance_rules", "official_documents"} {
		if partitions[p] == 0 {
			t.Errorf("built-in corpus has no passages for %s", p)
		}
	}
	for p := range partitions {
		found := false
		for _, known := range types.DefaultPartitions {
			if p == known {
				found = true
			}
		}
		if !found {
			t.Errorf("built-in partition %s is not a default partition", p)
		}
	}
}

// --- seed tests ---

func TestSeed(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeCorpus(t, tmpDir, "regulations.yaml", sampleCorpus())
	writeCorpus(t, tmpDir, "rules.yml", Corpus{
		Partition: "compliance_rules",
		Passages:  []types.StoredPassage{{ID: "rule-1", Content: "Avoid weak language"}},
	})
	os.WriteFile(filepath.Join(tmpDir, "knowledge", corpusDir, "README.md"), []byte("ignored"), 0o644)

	embedder := &hashEmbedder{}
	var buf strings.Builder
	summary, err := Seed(context.Background(), store, embedder, filepath.Join(tmpDir, "knowledge", corpusDir), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 indexed; output: %s", summary, buf.String())
	}
	if embedder.calls != 3 {
		t.Errorf("embedder calls = %d, want 3", embedder.calls)
	}
	if !strings.Contains(buf.String(), "indexing regulations.yaml (2 passages into adgm_regulations)") {
		t.Errorf("missing progress line: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "indexed: 2, updated: 0, skipped: 0, failed: 0") {
		t.Errorf("missing summary line: %s", buf.String())
	}

	got, err := store.Query(context.Background(), "adgm_regulations", []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "reg-1" {
		t.Errorf("nearest = %+v, want reg-1", got)
	}
}

func TestSeedSkipsUnchanged(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeCorpus(t, tmpDir, "regulations.yaml", sampleCorpus())
	dir := filepath.Join(tmpDir, "knowledge", corpusDir)

	var buf strings.Builder
	if _, err := Seed(context.Background(), store, nil, dir, &buf); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	summary, err := Seed(context.Background(), store, nil, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Indexed != 0 {
		t.Errorf("summary = %+v, want 1 skipped", summary)
	}
	if !strings.Contains(buf.String(), "skipped regulations.yaml") {
		t.Errorf("output should contain skipped line: %s", buf.String())
	}
}

func TestSeedUpdatesChanged(t *testing.T) {
	store, tmpDir := testSetup(t)
	path := writeCorpus(t, tmpDir, "regulations.yaml", sampleCorpus())
	dir := filepath.Join(tmpDir, "knowledge", corpusDir)

	var buf strings.Builder
	if _, err := Seed(context.Background(), store, nil, dir, &buf); err != nil {
		t.Fatal(err)
	}

	c := sampleCorpus()
	c.Passages[0].Content = "Updated jurisdiction passage"
	writeCorpus(t, tmpDir, "regulations.yaml", c)
	future := time.Now().Add(time.Second)
	os.Chtimes(path, future, future)

	buf.Reset()
	summary, err := Seed(context.Background(), store, nil, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1; output: %s", summary.Updated, buf.String())
	}

	got, _ := store.All(context.Background(), "adgm_regulations")
	if len(got) != 2 || got[0].Content != "Updated jurisdiction passage" {
		t.Errorf("passages = %+v", got)
	}
}

// namedEmbedder is a hashEmbedder that reports a model name.
type namedEmbedder struct {
	hashEmbedder
	name string
}

func (e *namedEmbedder) Name() string { return e.name }

func touch(t *testing.T, path string, d time.Duration) {
	t.Helper()
	at := time.Now().Add(d)
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatal(err)
	}
}

func TestSeedReembedsWhenEmbedderChanges(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeCorpus(t, tmpDir, "regulations.yaml", sampleCorpus())
	dir := filepath.Join(tmpDir, "knowledge", corpusDir)
	ctx := context.Background()

	var buf strings.Builder
	if _, err := Seed(ctx, store, nil, dir, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := store.Query(ctx, "adgm_regulations", []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("passages seeded without an embedder should not be dense candidates: %+v", got)
	}

	small := &namedEmbedder{name: "openai/small"}
	summary, err := Seed(ctx, store, small, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || small.calls != 2 {
		t.Errorf("summary = %+v, embed calls = %d; want 1 updated, 2 calls", summary, small.calls)
	}
	got, err = store.Query(ctx, "adgm_regulations", []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "reg-1" {
		t.Errorf("nearest = %+v, want reg-1", got)
	}

	summary, err = Seed(ctx, store, &namedEmbedder{name: "openai/small"}, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 {
		t.Errorf("same embedder should skip: %+v", summary)
	}

	large := &namedEmbedder{name: "openai/large"}
	summary, err = Seed(ctx, store, large, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || large.calls != 2 {
		t.Errorf("new model should re-embed: %+v, calls = %d", summary, large.calls)
	}
}

func TestSeedPrunesRemovedPassages(t *testing.T) {
	store, tmpDir := testSetup(t)
	path := writeCorpus(t, tmpDir, "regulations.yaml", sampleCorpus())
	writeCorpus(t, tmpDir, "shared.yaml", Corpus{
		Partition: "adgm_regulations",
		Passages:  []types.StoredPassage{{ID: "reg-1", Content: "All documents must reference ADGM jurisdiction"}},
	})
	dir := filepath.Join(tmpDir, "knowledge", corpusDir)
	ctx := context.Background()

	var buf strings.Builder
	if _, err := Seed(ctx, store, nil, dir, &buf); err != nil {
		t.Fatal(err)
	}

	// reg-1 is also seeded by shared.yaml, so only reg-2 goes.
	writeCorpus(t, tmpDir, "regulations.yaml", Corpus{
		Partition: "adgm_regulations",
		Passages:  []types.StoredPassage{{ID: "reg-3", Content: "Annual accounts must be filed"}},
	})
	touch(t, path, time.Second)

	buf.Reset()
	summary, err := Seed(ctx, store, nil, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v; output: %s", summary, buf.String())
	}
	if !strings.Contains(buf.String(), "pruned  regulations.yaml (1 passages)") {
		t.Errorf("missing prune line: %s", buf.String())
	}

	got, err := store.All(ctx, "adgm_regulations")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "reg-1,reg-3" {
		t.Errorf("passages = %v, want [reg-1 reg-3]", ids)
	}

	refs, err := store.SeededPassages(ctx, "regulations.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0] != (PassageRef{Partition: "adgm_regulations", ID: "reg-3"}) {
		t.Errorf("seeded passages = %+v", refs)
	}
}

func TestStaleRefs(t *testing.T) {
	a := PassageRef{"p", "a"}
	b := PassageRef{"p", "b"}
	c := PassageRef{"q", "a"}
	got := staleRefs([]PassageRef{a, b, c}, []PassageRef{b})
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("staleRefs = %+v, want [a c]", got)
	}
	if got := staleRefs(nil, []PassageRef{a}); len(got) != 0 {
		t.Errorf("staleRefs with no history = %+v", got)
	}
}

func TestEmbedderID(t *testing.T) {
	if got := embedderID(nil); got != "none" {
		t.Errorf("nil embedder = %q", got)
	}
	if got := embedderID(&namedEmbedder{name: "gemini/text-embedding-004"}); got != "gemini/text-embedding-004" {
		t.Errorf("named embedder = %q", got)
	}
	if got := embedderID(&hashEmbedder{}); got != "*knowledge.hashEmbedder" {
		t.Errorf("unnamed embedder = %q", got)
	}
}

func TestSeedFailures(t *testing.T) {
	store, tmpDir := testSetup(t)
	dir := filepath.Join(tmpDir, "knowledge", corpusDir)
	writeCorpus(t, tmpDir, "good.yaml", sampleCorpus())
	os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("partition: ["), 0o644)

	var buf strings.Builder
	summary, err := Seed(context.Background(), store, nil, dir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || summary.Indexed != 1 {
		t.Errorf("summary = %+v, want 1 failed, 1 indexed", summary)
	}
	if !strings.Contains(buf.String(), "failed  bad.yaml") {
		t.Errorf("output should report failure: %s", buf.String())
	}

	// A failed embedding leaves the file unseeded so the next run retries it.
	store2, tmpDir2 := testSetup(t)
	writeCorpus(t, tmpDir2, "good.yaml", sampleCorpus())
	summary, err = Seed(context.Background(), store2, &hashEmbedder{err: errors.New("quota")},
		filepath.Join(tmpDir2, "knowledge", corpusDir), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if _, seeded, _ := store2.SeededVersion(context.Background(), "good.yaml"); seeded {
		t.Error("failed file should not be marked seeded")
	}
}

func TestSeedMissingDirectory(t *testing.T) {
	store, tmpDir := testSetup(t)
	var buf strings.Builder
	if _, err := Seed(context.Background(), store, nil, filepath.Join(tmpDir, "nope"), &buf); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSeedDefaults(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	var buf strings.Builder
	first, err := SeedDefaults(ctx, store, nil, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if first.Indexed == 0 || first.Failed != 0 {
		t.Errorf("first run = %+v; output: %s", first, buf.String())
	}

	second, err := SeedDefaults(ctx, store, nil, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped != first.Indexed {
		t.Errorf("second run skipped %d, want %d", second.Skipped, first.Indexed)
	}

	partitions, err := store.Partitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(partitions) != 4 {
		t.Errorf("partitions = %v, want 4", partitions)
	}
}

func TestSeedSummaryTotal(t *testing.T) {
	s := SeedSummary{Indexed: 1, Updated: 2, Skipped: 3, Failed: 4}
	if s.Total() != 10 {
		t.Errorf("Total = %d, want 10", s.Total())
	}
}

// --- export tests ---

func TestExport(t *testing.T) {
	store, tmpDir := testSetup(t)
	ctx := context.Background()
	c := sampleCorpus()
	for _, p := range c.Passages {
		store.Add(ctx, c.Partition, p, nil)
	}
	store.Add(ctx, "compliance_rules", types.StoredPassage{ID: "rule-1", Content: "r"}, nil)

	t.Run("yaml all partitions", func(t *testing.T) {
		path := filepath.Join(tmpDir, "out", "export.yaml")
		n, err := Export(ctx, store, nil, FormatYAML, path)
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Errorf("exported %d, want 3", n)
		}
		data, _ := os.ReadFile(path)
		var entries []ExportEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			t.Fatal(err)
		}
		if len(entries) != 3 || entries[0].Partition != "adgm_regulations" || entries[2].ID != "rule-1" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("json one partition", func(t *testing.T) {
		path := filepath.Join(tmpDir, "out", "export.json")
		n, err := Export(ctx, store, []string{"compliance_rules"}, FormatJSON, path)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("exported %d, want 1", n)
		}
		data, _ := os.ReadFile(path)
		var entries []ExportEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].ID != "rule-1" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := Export(ctx, store, nil, "csv", filepath.Join(tmpDir, "x.csv")); err == nil {
			t.Error("expected error for csv")
		}
	})
}

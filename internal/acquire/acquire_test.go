package acquire

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compliance-review/internal/convert"
	"github.com/pdiddy/compliance-review/internal/httputil"
	"github.com/pdiddy/compliance-review/internal/knowledge"
	"github.com/pdiddy/compliance-review/pkg/types"
)

const registrationPage = `<html><body>
<nav>Home</nav>
<h1>Registration and Incorporation</h1>
<p>All companies must maintain a registered office in ADGM.</p>
</body></html>`

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/registration-authority/registration-and-incorporation":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, registrationPage)
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body><script>x()</script></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newFetcher(t *testing.T, ts *httptest.Server) *Fetcher {
	t.Helper()
	return &Fetcher{
		Client:    ts.Client(),
		Converter: convert.DefaultRegistry(nil),
		Dir:       filepath.Join(t.TempDir(), "sources"),
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		src      Source
		wantSlug string
		wantExt  string
	}{
		{
			Source{"company_formation", "https://www.adgm.com/registration-authority/registration-and-incorporation"},
			"company_formation_registration-and-incorporation", ".html",
		},
		{
			Source{"employment", "https://assets.adgm.com/download/assets/ADGM+Standard+Employment+Contract+Template+-+ER+2024+(Feb+2025).docx/ee14b252edbe11efa63b12b3a30e5e3a"},
			"employment_adgm-standard-employment-contract-template-er-2024-feb-2025", ".docx",
		},
		{
			Source{"checklists", "https://www.adgm.com/documents/registration-authority/registration-and-incorporation/checklist/branch-non-financial-services-20231228.pdf"},
			"checklists_branch-non-financial-services-20231228", ".pdf",
		},
		{
			Source{"regulatory", "https://assets.adgm.com/download/assets/Templates_SHReso_AmendmentArticles-v1-20220107.docx/97120d7c5af911efae4b1e183375c0b2?forcedownload=1"},
			"regulatory_templates-shreso-amendmentarticles-v1-20220107", ".docx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.wantSlug, func(t *testing.T) {
			slug, ext := Slug(tt.src)
			assert.Equal(t, tt.wantSlug, slug)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestSlugWithoutPathUsesHash(t *testing.T) {
	slug, ext := Slug(Source{"misc", "https://example.com/"})
	assert.True(t, strings.HasPrefix(slug, "misc_"))
	assert.Len(t, slug, len("misc_")+12)
	assert.Equal(t, ".html", ext)
}

func TestDefaultSourcesHaveDistinctSlugs(t *testing.T) {
	seen := map[string]bool{}
	for _, src := range DefaultSources() {
		slug, _ := Slug(src)
		assert.False(t, seen[slug], "duplicate slug %s", slug)
		seen[slug] = true
	}
}

func TestFetchAll(t *testing.T) {
	ts := newTestServer(t, nil)
	f := newFetcher(t, ts)

	var out bytes.Buffer
	result, err := f.FetchAll(context.Background(), []Source{
		{"company_formation", ts.URL + "/registration-authority/registration-and-incorporation"},
		{"compliance", ts.URL + "/missing"},
		{"compliance", ts.URL + "/empty"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 3, result.Total())
	assert.True(t, result.HasFailures())
	assert.Contains(t, out.String(), "HTTP 404")
	assert.Contains(t, out.String(), "no text extracted")
	assert.Contains(t, out.String(), "Fetch summary: 1 downloaded, 0 skipped, 2 failed (total: 3)")

	require.Len(t, result.Passages, 1)
	p := result.Passages[0]
	assert.Equal(t, "fetched_company_formation_registration-and-incorporation", p.ID)
	assert.Contains(t, p.Content, "registered office in ADGM")
	assert.NotContains(t, p.Content, "Home")
	assert.Equal(t, "official_document", p.Metadata["type"])
	assert.Equal(t, "company_formation", p.Metadata["category"])
	assert.Equal(t, "ADGM Official", p.Metadata["source"])
	assert.Equal(t, ts.URL+"/registration-authority/registration-and-incorporation", p.Metadata["source_url"])

	_, err = os.Stat(filepath.Join(f.Dir, "company_formation_registration-and-incorporation.html"))
	assert.NoError(t, err)
	leftovers, _ := filepath.Glob(filepath.Join(f.Dir, ".acquire-*.tmp"))
	assert.Empty(t, leftovers)
}

func TestFetchSkipsExistingFile(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, &hits)
	f := newFetcher(t, ts)
	src := Source{"company_formation", ts.URL + "/registration-authority/registration-and-incorporation"}

	_, skipped, err := f.Fetch(context.Background(), src, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, skipped)

	var out bytes.Buffer
	p, skipped, err := f.Fetch(context.Background(), src, &out)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, out.String(), "skipped: company_formation_registration-and-incorporation")
	assert.Contains(t, p.Content, "registered office")
}

func TestFetchRetriesBusyServer(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, registrationPage)
	}))
	defer ts.Close()

	f := newFetcher(t, ts)
	_, _, err := f.Fetch(context.Background(), Source{"guidance", ts.URL + "/setting-up"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAllRenamesDuplicateIDs(t *testing.T) {
	ts := newTestServer(t, nil)
	f := newFetcher(t, ts)
	src := Source{"company_formation", ts.URL + "/registration-authority/registration-and-incorporation"}

	result, err := f.FetchAll(context.Background(), []Source{src, src}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, result.Passages, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "fetched_company_formation_registration-and-incorporation", result.Passages[0].ID)
	assert.Equal(t, "fetched_company_formation_registration-and-incorporation-2", result.Passages[1].ID)
}

func TestFetchAllStopsOnCancel(t *testing.T) {
	ts := newTestServer(t, nil)
	f := newFetcher(t, ts)
	f.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	src := Source{"company_formation", ts.URL + "/registration-authority/registration-and-incorporation"}
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := f.FetchAll(ctx, []Source{src, src}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Downloaded)
}

func TestWriteCorpus(t *testing.T) {
	ts := newTestServer(t, nil)
	f := newFetcher(t, ts)
	result, err := f.FetchAll(context.Background(), []Source{
		{"company_formation", ts.URL + "/registration-authority/registration-and-incorporation"},
	}, &bytes.Buffer{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corpus", "fetched_official_documents.yaml")
	require.NoError(t, WriteCorpus(path, result.Passages))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	c, err := knowledge.ParseCorpus(data)
	require.NoError(t, err)
	assert.Equal(t, Partition, c.Partition)
	require.Len(t, c.Passages, 1)
	assert.Equal(t, result.Passages[0].ID, c.Passages[0].ID)
	assert.Equal(t, "ADGM Official", c.Passages[0].Metadata["source"])
}

func TestWriteCorpusRejectsEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	err := WriteCorpus(path, nil)
	require.NoError(t, err)

	err = WriteCorpus(path, []types.StoredPassage{{ID: "x"}})
	assert.Error(t, err)
}

package annotate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compliance-review/pkg/types"
)

var reviewedAt = time.Date(2026, time.March, 4, 9, 5, 7, 0, time.UTC)

func sampleReview() Review {
	return Review{
		Document: types.Document{
			Name: "Employment Contract.docx",
			Paragraphs: []string{
				"EMPLOYMENT CONTRACT",
				"",
				"Disputes go to the Dubai Courts.",
				"The employee may work remotely.",
			},
		},
		Type: types.DocEmploymentContract,
		Issues: []types.Issue{
			{Paragraph: 2, Severity: types.SeverityHigh, Description: "Incorrect jurisdiction"},
			{Paragraph: 3, Severity: types.SeverityMedium, Description: "Weak language"},
			{Paragraph: types.DocumentLevel, Severity: types.SeverityHigh, Description: "Missing section"},
		},
		Annotations: []types.Annotation{
			{Paragraph: 2, Excerpt: "Disputes go to the Dubai Courts....", Comment: "Use 'ADGM Courts' instead"},
			{Paragraph: 3, Excerpt: "The employee may work remotely....", Comment: "Replace 'may' with 'shall'"},
			{Paragraph: 2, Excerpt: "Disputes go to the Dubai Courts....", Comment: "Second note"},
		},
		ReviewedAt: reviewedAt,
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReview()))
	out := buf.String()

	assert.Contains(t, out, "- Review Date: March 4, 2026\n")
	assert.Contains(t, out, "- Document Type: Employment Contract\n")
	assert.Contains(t, out, "- Official Template: https://assets.adgm.com/")
	assert.Contains(t, out, "- Total Issues Found: 3\n")
	assert.Contains(t, out, "- High Severity: 2\n")
	assert.Contains(t, out, "- Medium Severity: 1\n")
	assert.NotContains(t, out, "Low Severity")

	assert.Contains(t, out, "\nDisputes go to the Dubai Courts. [COMMENT: Use 'ADGM Courts' instead] [COMMENT: Second note]\n")
	assert.Contains(t, out, "\nThe employee may work remotely. [COMMENT: Replace 'may' with 'shall']\n")
	assert.Contains(t, out, "\nEMPLOYMENT CONTRACT\n")

	assert.Contains(t, out, "## Comment Summary")
	assert.Contains(t, out, "1. Location: Disputes go to the Dubai Courts....\n   Comment: Use 'ADGM Courts' instead\n")
	assert.Contains(t, out, "3. Location:")
}

func TestRenderWithoutAnnotations(t *testing.T) {
	r := sampleReview()
	r.Type = types.DocBoardResolution
	r.Issues = nil
	r.Annotations = nil

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "- Total Issues Found: 0\n")
	assert.NotContains(t, out, "Official Template")
	assert.NotContains(t, out, "Comment Summary")
	assert.NotContains(t, out, "[COMMENT:")
}

func TestRenderIgnoresOutOfRangeAnnotations(t *testing.T) {
	r := sampleReview()
	r.Annotations = []types.Annotation{{Paragraph: 42, Excerpt: "x...", Comment: "stray"}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	out := buf.String()

	assert.NotContains(t, out, "[COMMENT: stray]")
	assert.Contains(t, out, "1. Location: x...\n   Comment: stray\n")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Employment Contract_reviewed_20260304_090507.md", FileName("/tmp/in/Employment Contract.docx", reviewedAt))
	assert.Equal(t, "notes_reviewed_20260304_090507.md", FileName("notes", reviewedAt))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	path, err := WriteFile(dir, sampleReview())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Employment Contract_reviewed_20260304_090507.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# ADGM Compliance Review Report\n"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Articles Of Association", titleCase("articles_of_association"))
	assert.Equal(t, "Ubo Declaration", titleCase("ubo_declaration"))
	assert.Equal(t, "", titleCase(""))
}

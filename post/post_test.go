package post

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIDFromURL_Deterministic verifies the same article URL always yields
// the same ID regardless of trailing slash, query string, or fragment.
func TestIDFromURL_Deterministic(t *testing.T) {
	base := IDFromURL("https://www.clio.com/blog/example-post/")

	assert.Equal(t, "example-post", base)
	assert.Equal(t, base, IDFromURL("https://www.clio.com/blog/example-post"))
	assert.Equal(t, base, IDFromURL("https://www.clio.com/blog/example-post/?utm_source=feed"))
	assert.Equal(t, base, IDFromURL("https://www.clio.com/blog/example-post#comments"))
}

// TestIDFromURL_DistinctPosts verifies different articles yield different
// IDs.
func TestIDFromURL_DistinctPosts(t *testing.T) {
	a := IDFromURL("https://www.clio.com/blog/example-post/")
	b := IDFromURL("https://www.clio.com/blog/another-post/")

	assert.NotEqual(t, a, b)
}

// TestIDFromURL_Normalization verifies casing and special characters
// collapse consistently.
func TestIDFromURL_Normalization(t *testing.T) {
	assert.Equal(t, "top-10-tips", IDFromURL("https://example.com/blog/Top_10%20Tips/"))
	assert.Equal(t, "", IDFromURL("https://example.com/"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "legal-tech-trends-2026", Slug("Legal Tech Trends: 2026!"))
	assert.Equal(t, "a-b-c", Slug("--a__b  c--"))
	assert.Equal(t, "", Slug("!!!"))
}

// TestSummaryFromContent verifies truncation at a word boundary with an
// ellipsis.
func TestSummaryFromContent(t *testing.T) {
	short := "A short summary."
	assert.Equal(t, short, SummaryFromContent(short))

	long := strings.Repeat("word ", 100)
	summary := SummaryFromContent(long)
	assert.LessOrEqual(t, len(summary), 203)
	assert.True(t, strings.HasSuffix(summary, "..."))
	assert.False(t, strings.Contains(summary, "  "), "whitespace should be collapsed")
}

// TestNormalize verifies derived-field fallbacks.
func TestNormalize(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	p := &Post{
		Source:  SourceClio,
		Title:   "Test",
		Content: "Some content that stands in for the article body.",
		URL:     "https://www.clio.com/blog/test-post/",
	}
	p.Normalize(now)

	assert.Equal(t, "test-post", p.ID)
	assert.Equal(t, "Some content that stands in for the article body.", p.Summary)
	assert.Equal(t, now, p.PublishedAt)
}

// TestNormalize_PreservesExisting verifies explicit values are kept.
func TestNormalize_PreservesExisting(t *testing.T) {
	published := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	p := &Post{
		ID:          "custom-id",
		Summary:     "Hand-written summary",
		URL:         "https://www.clio.com/blog/test-post/",
		Content:     "Content",
		PublishedAt: published,
	}
	p.Normalize(time.Now())

	assert.Equal(t, "custom-id", p.ID)
	assert.Equal(t, "Hand-written summary", p.Summary)
	assert.Equal(t, published, p.PublishedAt)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("Clio")
	require.NoError(t, err)
	assert.Equal(t, SourceClio, src)

	_, err = ParseSource("unknown-blog")
	assert.Error(t, err)
}

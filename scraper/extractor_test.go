package scraper

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blawby/lawfeed/post"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func testProfile() Profile {
	return Profile{
		Source:           post.SourceClio,
		TitleSelectors:   []string{"h1", ".fallback-title"},
		DateSelectors:    []string{`meta[property="article:published_time"]`, "time[datetime]"},
		ContentSelectors: []string{"article p", ".post-content p"},
		SummarySelectors: []string{`meta[name="description"]`},
		ImageSelectors:   []string{`meta[property="og:image"]`, "article img"},
		DateFormats:      defaultDateFormats,
	}
}

// TestExtract verifies fragment filtering: paragraphs at or under the minimum
// length are dropped and the rest join with blank lines.
func TestExtract(t *testing.T) {
	html := `<html><body>
		<h1>Test Title</h1>
		<article>
			<p>Paragraph one.</p>
			<p>Short.</p>
			<p>Paragraph two with enough length.</p>
		</article>
	</body></html>`

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p, err := NewExtractor().Extract(mustDoc(t, html), testProfile(), "https://www.clio.com/blog/test-title/", now)
	require.NoError(t, err)

	assert.Equal(t, "test-title", p.ID)
	assert.Equal(t, "Test Title", p.Title)
	assert.Equal(t, "Paragraph one.\n\nParagraph two with enough length.", p.Content)
	assert.Equal(t, now, p.PublishedAt, "missing date falls back to scrape time")
	assert.Equal(t, p.Content, p.Summary, "short content doubles as summary")
}

// TestExtract_SelectorFallback verifies the second selector in a chain is
// tried when the first matches nothing.
func TestExtract_SelectorFallback(t *testing.T) {
	html := `<html><body>
		<div class="fallback-title">Fallback Title</div>
		<div class="post-content">
			<p>Body paragraph long enough to keep.</p>
		</div>
	</body></html>`

	p, err := NewExtractor().Extract(mustDoc(t, html), testProfile(), "https://www.clio.com/blog/fallback/", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Fallback Title", p.Title)
	assert.Equal(t, "Body paragraph long enough to keep.", p.Content)
}

// TestExtract_Failure verifies an empty title and content after every
// selector yields *ExtractionFailure rather than a silent empty post.
func TestExtract_Failure(t *testing.T) {
	html := `<html><body><div class="unrelated">nothing here matches</div></body></html>`

	_, err := NewExtractor().Extract(mustDoc(t, html), testProfile(), "https://www.clio.com/blog/gone/", time.Now())
	require.Error(t, err)

	var failure *ExtractionFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "https://www.clio.com/blog/gone/", failure.URL)
}

// TestExtract_TitleOnly verifies a post with a title but drifted content
// selectors still extracts.
func TestExtract_TitleOnly(t *testing.T) {
	html := `<html><body><h1>Only A Title</h1></body></html>`

	p, err := NewExtractor().Extract(mustDoc(t, html), testProfile(), "https://www.clio.com/blog/title-only/", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Only A Title", p.Title)
	assert.Empty(t, p.Content)
}

// TestExtract_Metadata verifies meta-tag dates, descriptions, and image URL
// resolution against the page URL.
func TestExtract_Metadata(t *testing.T) {
	html := `<html><head>
		<meta property="article:published_time" content="2026-03-15T09:30:00Z">
		<meta name="description" content="A meta description.">
	</head><body>
		<h1>With Metadata</h1>
		<article>
			<img src="/images/hero.png">
			<p>Body paragraph long enough to keep.</p>
		</article>
	</body></html>`

	p, err := NewExtractor().Extract(mustDoc(t, html), testProfile(), "https://www.clio.com/blog/meta/", time.Now())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), p.PublishedAt)
	assert.Equal(t, "A meta description.", p.Summary)
	assert.Equal(t, "https://www.clio.com/images/hero.png", p.ImageURL)
}

// TestFirstDate_TextFormats verifies human-readable date text parses via the
// configured format list.
func TestFirstDate_TextFormats(t *testing.T) {
	html := `<html><body><time datetime="not-a-date">March 15, 2026</time></body></html>`
	doc := mustDoc(t, html)

	got := firstDate(doc, []string{"span.date", "time"}, defaultDateFormats)
	assert.True(t, got.IsZero(), "datetime attribute wins and fails to parse")

	html = `<html><body><span class="date">March 15, 2026</span></body></html>`
	got = firstDate(mustDoc(t, html), []string{"span.date"}, defaultDateFormats)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

package scraper_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
	"github.com/blawby/lawfeed/store"
)

// fakeFetcher serves canned HTML from a map and records every fetched URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	fetched []string
	onFetch func(url string)
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, &scraper.FetchError{URL: url, LastStatus: 404, Attempts: 1}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func listingProfile() scraper.Profile {
	return scraper.Profile{
		Source:             post.SourceClio,
		Name:               "Clio Blog",
		BaseURL:            "https://example.com/blog/",
		LinkSelector:       "a.article",
		PaginationSelector: "a.next",
		TitleSelectors:     []string{"h1"},
		ContentSelectors:   []string{"article p"},
		DateFormats:        []string{time.RFC3339},
	}
}

func newFrontier(f scraper.Fetcher, backend *store.Memory, batchSize int) *scraper.Frontier {
	fetcherFor := func(scraper.Profile) scraper.Fetcher { return f }
	return scraper.NewFrontier(fetcherFor, backend, backend, batchSize, logger.New("error"))
}

const listingHTML = `<html><body>
	<a class="article" href="/blog/post-one/">One</a>
	<a class="article" href="/blog/post-two/?utm_source=home">Two</a>
	<a class="article" href="/blog/post-one/#comments">Dup of one</a>
	<a class="article" href="/blog/category/tips/">Category</a>
	<a class="article" href="https://other.example.org/blog/elsewhere/">External</a>
	<a class="article" href="/blog/?page=2">Listing self-link</a>
	<a class="next" href="/blog/page/2/">Next</a>
</body></html>`

// TestNextBatch verifies link discovery: non-article links, external hosts,
// and duplicate IDs are dropped, and the surviving URLs keep listing order
// with query strings stripped.
func TestNextBatch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/blog/": listingHTML,
	}}
	backend := store.NewMemory()
	frontier := newFrontier(fetcher, backend, 10)

	batch, err := frontier.NextBatch(context.Background(), listingProfile())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/blog/post-one/",
		"https://example.com/blog/post-two/",
	}, batch.URLs)
	assert.Equal(t, "https://example.com/blog/", batch.Cursor)
	assert.Equal(t, "https://example.com/blog/page/2/", batch.NextCursor)

	prog, err := backend.GetProgress(post.SourceClio)
	require.NoError(t, err)
	assert.Equal(t, scraper.StateScraping, prog.State)
	assert.Equal(t, 2, prog.TotalArticles)
}

// TestNextBatch_FiltersScraped verifies URLs already in the store are not
// handed out again.
func TestNextBatch_FiltersScraped(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/blog/": listingHTML,
	}}
	backend := store.NewMemory()
	require.NoError(t, backend.Upsert(&post.Post{
		ID:     "post-one",
		Source: post.SourceClio,
		Title:  "One",
		URL:    "https://example.com/blog/post-one/",
	}))

	batch, err := newFrontier(fetcher, backend, 10).NextBatch(context.Background(), listingProfile())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/post-two/"}, batch.URLs)
}

// TestNextBatch_BatchSizeCap verifies the batch never exceeds the configured
// size.
func TestNextBatch_BatchSizeCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/blog/": listingHTML,
	}}

	batch, err := newFrontier(fetcher, store.NewMemory(), 1).NextBatch(context.Background(), listingProfile())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/post-one/"}, batch.URLs)
}

// TestNextBatch_ResumesFromCursor verifies a persisted cursor overrides the
// base URL, so an interrupted crawl picks up where it left off.
func TestNextBatch_ResumesFromCursor(t *testing.T) {
	page2 := `<html><body><a class="article" href="/blog/post-three/">Three</a></body></html>`
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/blog/page/2/": page2,
	}}
	backend := store.NewMemory()
	require.NoError(t, backend.PutProgress(&scraper.Progress{
		Source:     post.SourceClio,
		State:      scraper.StateIdle,
		NextCursor: "https://example.com/blog/page/2/",
	}))

	batch, err := newFrontier(fetcher, backend, 10).NextBatch(context.Background(), listingProfile())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/blog/post-three/"}, batch.URLs)
	assert.Equal(t, "https://example.com/blog/page/2/", batch.Cursor)
	assert.Empty(t, batch.NextCursor, "no pagination link means the crawl is done")
	assert.Equal(t, []string{"https://example.com/blog/page/2/"}, fetcher.fetchedURLs())
}

// TestRecordBatchResult verifies cursor bookkeeping: an empty next cursor is
// authoritative completion.
func TestRecordBatchResult(t *testing.T) {
	backend := store.NewMemory()
	frontier := newFrontier(&fakeFetcher{}, backend, 10)

	require.NoError(t, frontier.RecordBatchResult(post.SourceClio, 3, "https://example.com/blog/page/2/"))
	prog, err := backend.GetProgress(post.SourceClio)
	require.NoError(t, err)
	assert.Equal(t, 3, prog.ScrapedCount)
	assert.Equal(t, "https://example.com/blog/page/2/", prog.NextCursor)
	assert.False(t, prog.IsComplete)
	assert.Equal(t, scraper.StateIdle, prog.State)

	require.NoError(t, frontier.RecordBatchResult(post.SourceClio, 2, ""))
	prog, err = backend.GetProgress(post.SourceClio)
	require.NoError(t, err)
	assert.Equal(t, 5, prog.ScrapedCount)
	assert.True(t, prog.IsComplete)
}

// TestRecordError verifies the error log is bounded and never moves the
// cursor.
func TestRecordError(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.PutProgress(&scraper.Progress{
		Source:     post.SourceClio,
		NextCursor: "https://example.com/blog/page/2/",
	}))
	frontier := newFrontier(&fakeFetcher{}, backend, 10)

	for i := 0; i < 150; i++ {
		require.NoError(t, frontier.RecordError(post.SourceClio, fmt.Errorf("boom %d", i)))
	}

	prog, err := backend.GetProgress(post.SourceClio)
	require.NoError(t, err)
	assert.Len(t, prog.RecentErrors, 100)
	assert.Contains(t, prog.RecentErrors[0], "boom 50", "oldest entries are evicted first")
	assert.Contains(t, prog.RecentErrors[99], "boom 149")
	assert.Equal(t, "https://example.com/blog/page/2/", prog.NextCursor)
	assert.False(t, prog.IsComplete)
	assert.Equal(t, scraper.StateError, prog.State)
}

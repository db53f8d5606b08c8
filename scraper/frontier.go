package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
)

// PostChecker answers whether a post ID has already been scraped, so the
// frontier never hands out URLs the store already holds.
type PostChecker interface {
	Has(id string) (bool, error)
}

// Batch is one page's worth of crawl work: candidate article URLs plus the
// cursor bookkeeping to make the crawl resumable.
type Batch struct {
	// URLs are candidate article URLs in listing-page order, capped at the
	// batch size, already filtered of non-article links and known posts.
	URLs []string

	// Cursor is the listing page this batch was discovered from. Recording
	// it as the next cursor resumes the same page, which is how a partially
	// processed batch avoids losing its remaining URLs.
	Cursor string

	// NextCursor is the following listing page, or empty when pagination
	// ends. An absent cursor is authoritative completion.
	NextCursor string
}

// nonArticleSegments are path segments that mark listing-adjacent links
// (category, tag, author, paginator) rather than articles.
var nonArticleSegments = []string{"/category/", "/tag/", "/author/", "/page/", "/topics/", "/search/"}

// Frontier discovers candidate article URLs for a source and tracks its
// resumable crawl checkpoint.
type Frontier struct {
	fetchers  func(Profile) Fetcher
	progress  ProgressStore
	posts     PostChecker
	feeds     *gofeed.Parser
	batchSize int
	log       *logger.Logger
}

// NewFrontier creates a frontier. fetcherFor selects the fetch backend for a
// profile (static or rendered).
func NewFrontier(fetcherFor func(Profile) Fetcher, progress ProgressStore, posts PostChecker, batchSize int, log *logger.Logger) *Frontier {
	return &Frontier{
		fetchers:  fetcherFor,
		progress:  progress,
		posts:     posts,
		feeds:     gofeed.NewParser(),
		batchSize: batchSize,
		log:       log,
	}
}

// NextBatch returns up to batch-size candidate article URLs for the source,
// starting from the persisted cursor (or the base URL on a fresh crawl).
// Profiles with a feed URL discover links from the vendor feed; everything
// else scrapes the listing page with the profile's link selector.
func (f *Frontier) NextBatch(ctx context.Context, profile Profile) (*Batch, error) {
	prog, err := f.progress.GetProgress(profile.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	prog.State = StateScraping
	prog.LastUpdated = time.Now()
	if err := f.progress.PutProgress(prog); err != nil {
		return nil, fmt.Errorf("failed to persist progress: %w", err)
	}

	if profile.FeedURL != "" {
		return f.nextBatchFromFeed(ctx, profile, prog)
	}
	return f.nextBatchFromListing(ctx, profile, prog)
}

func (f *Frontier) nextBatchFromListing(ctx context.Context, profile Profile, prog *Progress) (*Batch, error) {
	pageURL := prog.NextCursor
	if pageURL == "" {
		pageURL = profile.BaseURL
	}

	doc, err := f.fetchers(profile).Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	candidates := f.discoverLinks(doc, profile, base)
	urls, err := f.filterScraped(candidates)
	if err != nil {
		return nil, err
	}

	prog.TotalArticles += len(urls)
	prog.LastUpdated = time.Now()
	if err := f.progress.PutProgress(prog); err != nil {
		return nil, fmt.Errorf("failed to persist progress: %w", err)
	}

	if len(urls) > f.batchSize {
		urls = urls[:f.batchSize]
	}

	return &Batch{
		URLs:       urls,
		Cursor:     pageURL,
		NextCursor: f.nextPage(doc, profile, base, pageURL),
	}, nil
}

// nextBatchFromFeed discovers article URLs from the vendor's RSS/Atom feed.
// Feeds are not paginated, so a feed batch never yields a next cursor.
func (f *Frontier) nextBatchFromFeed(ctx context.Context, profile Profile, prog *Progress) (*Batch, error) {
	feed, err := f.feeds.ParseURLWithContext(profile.FeedURL, ctx)
	if err != nil {
		return nil, &FetchError{URL: profile.FeedURL, Attempts: 1, Err: err}
	}

	var candidates []string
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		id := post.IDFromURL(item.Link)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, item.Link)
	}

	urls, err := f.filterScraped(candidates)
	if err != nil {
		return nil, err
	}

	prog.TotalArticles += len(urls)
	prog.LastUpdated = time.Now()
	if err := f.progress.PutProgress(prog); err != nil {
		return nil, fmt.Errorf("failed to persist progress: %w", err)
	}

	if len(urls) > f.batchSize {
		urls = urls[:f.batchSize]
	}

	return &Batch{URLs: urls, Cursor: profile.FeedURL}, nil
}

// discoverLinks applies the link selector and filters out non-article links:
// wrong host, category/tag/author/paginator paths, fragment or query-only
// variants of the listing page, and in-page duplicates.
func (f *Frontier) discoverLinks(doc *goquery.Document, profile Profile, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find(profile.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)

		if !isArticleLink(base, resolved) {
			return
		}

		id := post.IDFromURL(resolved.String())
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		resolved.Fragment = ""
		resolved.RawQuery = ""
		links = append(links, resolved.String())
	})

	return links
}

// filterScraped drops URLs whose derived ID the store already holds,
// preserving discovery order.
func (f *Frontier) filterScraped(candidates []string) ([]string, error) {
	var urls []string
	for _, u := range candidates {
		has, err := f.posts.Has(post.IDFromURL(u))
		if err != nil {
			return nil, fmt.Errorf("failed to check post: %w", err)
		}
		if !has {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// nextPage resolves the pagination link, or returns empty when there is no
// discoverable next page.
func (f *Frontier) nextPage(doc *goquery.Document, profile Profile, base *url.URL, currentURL string) string {
	if profile.PaginationSelector == "" {
		return ""
	}

	sel := doc.Find(profile.PaginationSelector).First()
	href, ok := sel.Attr("href")
	if !ok || href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	next := base.ResolveReference(ref).String()
	if next == currentURL {
		return ""
	}
	return next
}

// isArticleLink filters candidate links down to same-host article pages.
func isArticleLink(base, link *url.URL) bool {
	if link.Host != base.Host {
		return false
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return false
	}

	path := strings.ToLower(link.Path)
	for _, seg := range nonArticleSegments {
		if strings.Contains(path, seg) {
			return false
		}
	}

	// Fragment or query-only variants of the listing page point back at the
	// page itself, not at an article.
	if strings.TrimSuffix(link.Path, "/") == strings.TrimSuffix(base.Path, "/") {
		return false
	}

	return post.IDFromURL(link.String()) != ""
}

// RecordBatchResult persists a finished (or cleanly halted) batch:
// incremented scraped count, updated cursor, and completion when no further
// cursor was discovered.
func (f *Frontier) RecordBatchResult(source post.Source, scraped int, nextCursor string) error {
	prog, err := f.progress.GetProgress(source)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	prog.ScrapedCount += scraped
	prog.NextCursor = nextCursor
	prog.IsComplete = nextCursor == ""
	prog.State = StateIdle
	prog.LastUpdated = time.Now()

	if err := f.progress.PutProgress(prog); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}

// RecordError appends to the bounded error log and leaves the cursor and
// completion flag untouched, so a future run retries from the same spot.
// Progress is never regressed by a failed batch.
func (f *Frontier) RecordError(source post.Source, crawlErr error) error {
	prog, err := f.progress.GetProgress(source)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	prog.AppendError(time.Now(), crawlErr.Error())
	prog.State = StateError
	prog.IsComplete = false
	prog.LastUpdated = time.Now()

	if err := f.progress.PutProgress(prog); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}

package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/blawby/lawfeed/logger"
)

// Fetcher retrieves a URL and returns its parsed HTML. Implementations are
// the static HTTP backend and the rendered (headless browser) backend; the
// profile's Render flag selects between them without touching the extractor
// or orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// userAgent mimics a real browser. The target sites serve different markup
// (or nothing) to default HTTP client agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// browserHeaders applies the header set the sites expect from a browser.
func browserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// HTTPFetcher fetches static HTML over plain HTTP with retry and
// exponential backoff.
type HTTPFetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	log     *logger.Logger
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout and
// retry bound. The backoff base delay doubles on each failed attempt.
func NewHTTPFetcher(timeout time.Duration, retries int, log *logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: 500 * time.Millisecond,
		log:     log,
	}
}

// Fetch retrieves the URL, retrying transient failures (network error,
// timeout, non-2xx) up to the retry bound. Exhausting retries returns a
// *FetchError carrying the last status or error seen.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var lastStatus int
	var lastErr error

	delay := f.backoff
	for attempt := 1; attempt <= f.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		doc, status, err := f.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastStatus = status
		lastErr = err
		f.log.Debug("fetch attempt failed", "url", url, "attempt", attempt, "status", status, "error", err)
	}

	return nil, &FetchError{URL: url, LastStatus: lastStatus, Attempts: f.retries, Err: lastErr}
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*goquery.Document, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	browserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, resp.StatusCode, nil
}

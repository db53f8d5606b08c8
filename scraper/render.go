package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/blawby/lawfeed/logger"
)

// consentDismissScript clicks the cookie-consent buttons the three blogs are
// known to render. Harmless when no dialog is present.
const consentDismissScript = `
(() => {
	const selectors = [
		'#onetrust-accept-btn-handler',
		'.cookie-consent button',
		'button[aria-label="Accept cookies"]',
		'.cc-allow',
	];
	for (const sel of selectors) {
		const btn = document.querySelector(sel);
		if (btn) { btn.click(); return true; }
	}
	return false;
})()`

// RenderFetcher drives a headless browser for sources whose content only
// exists after page scripts run. It satisfies the same Fetcher contract as
// HTTPFetcher: retries with doubling backoff, hard timeout per navigation,
// *FetchError on exhaustion.
type RenderFetcher struct {
	timeout      time.Duration
	retries      int
	backoff      time.Duration
	waitSelector string
	log          *logger.Logger
}

// NewRenderFetcher creates a rendered-mode fetcher. waitSelector, when
// non-empty, is waited on after navigation before the DOM is captured.
func NewRenderFetcher(timeout time.Duration, retries int, waitSelector string, log *logger.Logger) *RenderFetcher {
	return &RenderFetcher{
		timeout:      timeout,
		retries:      retries,
		backoff:      500 * time.Millisecond,
		waitSelector: waitSelector,
		log:          log,
	}
}

// Fetch navigates to the URL in a headless browser, dismisses known consent
// dialogs, waits for the profile's wait selector, and returns the rendered
// DOM.
func (f *RenderFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
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

		doc, err := f.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		f.log.Debug("render attempt failed", "url", url, "attempt", attempt, "error", err)
	}

	return nil, &FetchError{URL: url, Attempts: f.retries, Err: lastErr}
}

func (f *RenderFetcher) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	navCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(navCtx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(consentDismissScript, nil),
	}
	if f.waitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(f.waitSelector, chromedp.ByQuery))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, err
	}

	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
